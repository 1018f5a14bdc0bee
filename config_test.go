package s3stream

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigFileDefaultSection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials")
	contents := `
endpoint = s3.amazonaws.com
access_key = AKIAEXAMPLE
secret_key = secretExample
secure = true
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFile(path, "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Endpoint != "s3.amazonaws.com" {
		t.Errorf("Endpoint = %q, want s3.amazonaws.com", cfg.Endpoint)
	}
	if cfg.AccessKey != "AKIAEXAMPLE" || cfg.SecretKey != "secretExample" {
		t.Errorf("unexpected credentials: %+v", cfg)
	}
	if !cfg.Secure {
		t.Error("expected Secure to be true")
	}
}

func TestLoadConfigFileNamedProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials")
	contents := `
[staging]
endpoint = minio.staging.local
access_key = stagingkey
secret_key = stagingsecret
port = 9000
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFile(path, "staging")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Endpoint != "minio.staging.local" {
		t.Errorf("Endpoint = %q, want minio.staging.local", cfg.Endpoint)
	}
	if cfg.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Port)
	}
}

func TestLoadConfigFileMissingEndpointFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials")
	if err := os.WriteFile(path, []byte("access_key = x\nsecret_key = y\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadConfigFile(path, ""); err == nil {
		t.Error("expected an error when endpoint is missing")
	}
}
