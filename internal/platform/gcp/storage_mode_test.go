package gcp

import (
	"errors"
	"testing"
)

func resolveEnv(t *testing.T, mode, emulatorHost, publicBaseURL string) (ObjectStorageConfig, error) {
	t.Helper()
	t.Setenv("OBJECT_STORAGE_MODE", mode)
	t.Setenv("STORAGE_EMULATOR_HOST", emulatorHost)
	t.Setenv("OBJECT_STORAGE_PUBLIC_BASE_URL", publicBaseURL)
	return ResolveObjectStorageConfigFromEnv()
}

func TestResolveObjectStorageConfigDefaultGCS(t *testing.T) {
	cfg, err := resolveEnv(t, "", "", "")
	if err != nil {
		t.Fatalf("ResolveObjectStorageConfigFromEnv: %v", err)
	}
	if cfg.Mode != ObjectStorageModeGCS {
		t.Fatalf("mode: want=%q got=%q", ObjectStorageModeGCS, cfg.Mode)
	}
	if cfg.CompatibilityFallback {
		t.Fatal("default gcs mode must not be a compatibility fallback")
	}
}

func TestResolveObjectStorageConfigExplicitGCS(t *testing.T) {
	cfg, err := resolveEnv(t, "gcs", "http://fake-gcs:4443", "")
	if err != nil {
		t.Fatalf("ResolveObjectStorageConfigFromEnv: %v", err)
	}
	if cfg.Mode != ObjectStorageModeGCS {
		t.Fatalf("mode: want=%q got=%q", ObjectStorageModeGCS, cfg.Mode)
	}
	if cfg.CompatibilityFallback {
		t.Fatal("explicit mode must not be a compatibility fallback")
	}
}

func TestResolveObjectStorageConfigExplicitEmulator(t *testing.T) {
	cfg, err := resolveEnv(t, "gcs_emulator", "http://fake-gcs:4443", "")
	if err != nil {
		t.Fatalf("ResolveObjectStorageConfigFromEnv: %v", err)
	}
	if cfg.Mode != ObjectStorageModeGCSEmulator {
		t.Fatalf("mode: want=%q got=%q", ObjectStorageModeGCSEmulator, cfg.Mode)
	}
	if cfg.EmulatorHost != "http://fake-gcs:4443" {
		t.Fatalf("emulator host: got=%q", cfg.EmulatorHost)
	}
}

func TestResolveObjectStorageConfigCompatibilityFallback(t *testing.T) {
	cfg, err := resolveEnv(t, "", "http://fake-gcs:4443", "")
	if err != nil {
		t.Fatalf("ResolveObjectStorageConfigFromEnv: %v", err)
	}
	if cfg.Mode != ObjectStorageModeGCSEmulator {
		t.Fatalf("mode: want=%q got=%q", ObjectStorageModeGCSEmulator, cfg.Mode)
	}
	if !cfg.CompatibilityFallback {
		t.Fatal("emulator host without a mode must mark the compatibility fallback")
	}
}

func TestResolveObjectStorageConfigEmulatorViaPublicBaseOnly(t *testing.T) {
	cfg, err := resolveEnv(t, "gcs_emulator", "", "http://localhost:4443")
	if err != nil {
		t.Fatalf("ResolveObjectStorageConfigFromEnv: %v", err)
	}
	if cfg.PublicBaseURL != "http://localhost:4443" {
		t.Fatalf("public base url: got=%q", cfg.PublicBaseURL)
	}
}

func TestResolveObjectStorageConfigInvalidMode(t *testing.T) {
	_, err := resolveEnv(t, "local", "", "")
	assertConfigError(t, err, ObjectStorageConfigErrorInvalidMode)
}

func TestResolveObjectStorageConfigEmulatorWithoutEndpoints(t *testing.T) {
	_, err := resolveEnv(t, "gcs_emulator", "", "")
	assertConfigError(t, err, ObjectStorageConfigErrorMissingEmulatorHost)
}

func TestResolveObjectStorageConfigInvalidEmulatorHost(t *testing.T) {
	_, err := resolveEnv(t, "gcs_emulator", "fake-gcs:4443", "")
	assertConfigError(t, err, ObjectStorageConfigErrorInvalidEmulatorHost)
}

func TestResolveObjectStorageConfigInvalidPublicBaseURL(t *testing.T) {
	_, err := resolveEnv(t, "gcs", "", "localhost:4443")
	assertConfigError(t, err, ObjectStorageConfigErrorInvalidPublicBaseURL)
}

func assertConfigError(t *testing.T, err error, code ObjectStorageConfigErrorCode) {
	t.Helper()
	if err == nil {
		t.Fatal("expected a config error, got nil")
	}
	var cfgErr *ObjectStorageConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ObjectStorageConfigError, got %T: %v", err, err)
	}
	if cfgErr.Code != code {
		t.Fatalf("error code: want=%q got=%q (%v)", code, cfgErr.Code, err)
	}
}
