package gcp

import "testing"

func TestObjectStorageModeHelpers(t *testing.T) {
	for _, mode := range []ObjectStorageMode{ObjectStorageModeGCS, ObjectStorageModeGCSEmulator} {
		if !IsSupportedObjectStorageMode(mode) {
			t.Fatalf("%q should be supported", mode)
		}
	}
	if IsSupportedObjectStorageMode(ObjectStorageMode("s3")) {
		t.Fatal("unknown mode should not be supported")
	}
	if IsEmulatorObjectStorageMode(ObjectStorageModeGCS) {
		t.Fatal("gcs is not emulator mode")
	}
	if !IsEmulatorObjectStorageMode(ObjectStorageModeGCSEmulator) {
		t.Fatal("gcs_emulator is emulator mode")
	}
}

func TestObjectStorageConfigHelpers(t *testing.T) {
	cfg := ObjectStorageConfig{Mode: ObjectStorageModeGCS}
	if cfg.IsEmulatorMode() {
		t.Fatal("gcs config should not be emulator mode")
	}
	if got := cfg.ModeSource(); got != "explicit_or_default" {
		t.Fatalf("ModeSource: want=%q got=%q", "explicit_or_default", got)
	}

	cfg = ObjectStorageConfig{
		Mode:                  ObjectStorageModeGCSEmulator,
		CompatibilityFallback: true,
	}
	if !cfg.IsEmulatorMode() {
		t.Fatal("gcs_emulator config should be emulator mode")
	}
	if got := cfg.ModeSource(); got != "compatibility_fallback" {
		t.Fatalf("ModeSource: want=%q got=%q", "compatibility_fallback", got)
	}
}

func TestValidateObjectStorageConfigPublicBaseCoversEmulator(t *testing.T) {
	err := ValidateObjectStorageConfig(ObjectStorageConfig{
		Mode:          ObjectStorageModeGCSEmulator,
		PublicBaseURL: "http://localhost:4443",
	})
	if err != nil {
		t.Fatalf("public base url alone should satisfy emulator mode: %v", err)
	}
}
