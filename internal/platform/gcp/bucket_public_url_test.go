package gcp

import (
	"strings"
	"testing"
)

func TestResolveObjectStoragePublicBaseURLGCSDefault(t *testing.T) {
	baseURL, source := resolveObjectStoragePublicBaseURL(ObjectStorageConfig{
		Mode: ObjectStorageModeGCS,
	})
	if baseURL != "" {
		t.Fatalf("baseURL: want empty got=%q", baseURL)
	}
	if source != "gcs_default" {
		t.Fatalf("source: want=%q got=%q", "gcs_default", source)
	}
}

func TestResolveObjectStoragePublicBaseURLEmulatorFallback(t *testing.T) {
	baseURL, source := resolveObjectStoragePublicBaseURL(ObjectStorageConfig{
		Mode:         ObjectStorageModeGCSEmulator,
		EmulatorHost: "http://fake-gcs:4443",
	})
	if baseURL != "http://fake-gcs:4443" {
		t.Fatalf("baseURL: want=%q got=%q", "http://fake-gcs:4443", baseURL)
	}
	if source != "storage_emulator_host" {
		t.Fatalf("source: want=%q got=%q", "storage_emulator_host", source)
	}
}

func TestResolveObjectStoragePublicBaseURLOverride(t *testing.T) {
	baseURL, source := resolveObjectStoragePublicBaseURL(ObjectStorageConfig{
		Mode:          ObjectStorageModeGCSEmulator,
		EmulatorHost:  "http://fake-gcs:4443",
		PublicBaseURL: "http://localhost:4443/",
	})
	if baseURL != "http://localhost:4443" {
		t.Fatalf("baseURL: want=%q got=%q", "http://localhost:4443", baseURL)
	}
	if source != "object_storage_public_base_url" {
		t.Fatalf("source: want=%q got=%q", "object_storage_public_base_url", source)
	}
}

func TestGetPublicURLGCSDefault(t *testing.T) {
	bs := &bucketService{
		cardBucket: bucketConfig{name: "card-bucket"},
	}

	got := bs.GetPublicURL(BucketCategoryCard, "cards/pat_123/r4.png")
	want := "https://storage.googleapis.com/card-bucket/cards/pat_123/r4.png"
	if got != want {
		t.Fatalf("GetPublicURL: want=%q got=%q", want, got)
	}
}

func TestGetPublicURLUsesCDNDomain(t *testing.T) {
	bs := &bucketService{
		artifactBucket: bucketConfig{
			name:      "artifact-bucket",
			cdnDomain: "cdn.example.com",
		},
	}

	got := bs.GetPublicURL(BucketCategoryArtifact, "runs/run_abc/vdg.json")
	want := "https://cdn.example.com/runs/run_abc/vdg.json"
	if got != want {
		t.Fatalf("GetPublicURL: want=%q got=%q", want, got)
	}
}

func TestGetPublicURLUsesPublicBaseURL(t *testing.T) {
	bs := &bucketService{
		publicBaseURL: "http://localhost:4443",
		artifactBucket: bucketConfig{
			name: "artifact-bucket",
		},
	}

	got := bs.GetPublicURL(BucketCategoryArtifact, "/runs/run_abc/vdg.json")
	want := "http://localhost:4443/artifact-bucket/runs/run_abc/vdg.json"
	if got != want {
		t.Fatalf("GetPublicURL: want=%q got=%q", want, got)
	}
}

func TestGetPublicURLUsesEmulatorMediaEndpoint(t *testing.T) {
	bs := &bucketService{
		storageMode:   ObjectStorageModeGCSEmulator,
		publicBaseURL: "http://localhost:4443",
		cardBucket: bucketConfig{
			name: "card-bucket",
		},
	}

	got := bs.GetPublicURL(BucketCategoryCard, "cards/pat_123/r4.png")
	want := "http://localhost:4443/storage/v1/b/card-bucket/o/cards%2Fpat_123%2Fr4.png?alt=media"
	if got != want {
		t.Fatalf("GetPublicURL: want=%q got=%q", want, got)
	}
}

func TestGetPublicURLUsesEmulatorHostWhenPublicBaseMissing(t *testing.T) {
	bs := &bucketService{
		storageMode:  ObjectStorageModeGCSEmulator,
		emulatorHost: "http://fake-gcs:4443",
		cardBucket: bucketConfig{
			name: "card-bucket",
		},
	}

	got := bs.GetPublicURL(BucketCategoryCard, "/cards/pat_123/r4.png")
	want := "http://fake-gcs:4443/storage/v1/b/card-bucket/o/cards%2Fpat_123%2Fr4.png?alt=media"
	if got != want {
		t.Fatalf("GetPublicURL: want=%q got=%q", want, got)
	}
}

func TestEmulatorPublicURLSmokeRenderableObjects(t *testing.T) {
	bs := &bucketService{
		storageMode:   ObjectStorageModeGCSEmulator,
		publicBaseURL: "http://localhost:4443",
		artifactBucket: bucketConfig{
			name: "artifact-bucket",
		},
		cardBucket: bucketConfig{
			name: "card-bucket",
		},
	}

	cases := []struct {
		name       string
		category   BucketCategory
		key        string
		wantBucket string
		wantCT     string
	}{
		{
			name:       "rendered card png",
			category:   BucketCategoryCard,
			key:        "cards/pat_1/r1.png",
			wantBucket: "card-bucket",
			wantCT:     "image/png",
		},
		{
			name:       "vdg artifact json",
			category:   BucketCategoryArtifact,
			key:        "runs/run_1/vdg.json",
			wantBucket: "artifact-bucket",
			wantCT:     "application/json",
		},
		{
			name:       "source clip mp4",
			category:   BucketCategoryArtifact,
			key:        "runs/run_1/clip.mp4",
			wantBucket: "artifact-bucket",
			wantCT:     "video/mp4",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			publicURL := bs.GetPublicURL(tc.category, tc.key)
			if !strings.HasPrefix(publicURL, "http://localhost:4443/storage/v1/b/"+tc.wantBucket+"/o/") {
				t.Fatalf("publicURL prefix mismatch for %s: %s", tc.name, publicURL)
			}
			if !strings.Contains(publicURL, "alt=media") {
				t.Fatalf("publicURL should include alt=media for the object media endpoint: %s", publicURL)
			}
			if !strings.Contains(publicURL, strings.ReplaceAll(tc.key, "/", "%2F")) {
				t.Fatalf("publicURL should escape object key path: %s", publicURL)
			}
			if got := contentTypeForKey(tc.key); got != tc.wantCT {
				t.Fatalf("contentTypeForKey(%q): want=%q got=%q", tc.key, tc.wantCT, got)
			}
		})
	}
}
