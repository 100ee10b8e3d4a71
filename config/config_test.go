package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HTTPPort != "8080" {
		t.Errorf("HTTPPort = %q", cfg.HTTPPort)
	}
	if cfg.RustAPIURL != "http://rust_iss:3000" {
		t.Errorf("RustAPIURL = %q", cfg.RustAPIURL)
	}
	if cfg.DefaultLatitude != 55.7558 || cfg.DefaultLongitude != 37.6176 {
		t.Errorf("default coords = %v / %v", cfg.DefaultLatitude, cfg.DefaultLongitude)
	}
	if !cfg.SnapshotEnabled || cfg.SnapshotCron != "*/5 * * * *" {
		t.Errorf("snapshot defaults = %v / %q", cfg.SnapshotEnabled, cfg.SnapshotCron)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("RUST_API_URL", "http://localhost:9000/")
	t.Setenv("API_SECRET_KEY", "k")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APISecretKey != "k" {
		t.Errorf("APISecretKey = %q", cfg.APISecretKey)
	}
	if cfg.RustBase() != "http://localhost:9000" {
		t.Errorf("RustBase() = %q, trailing slash must go", cfg.RustBase())
	}
}
