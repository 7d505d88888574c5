package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "benchswarm.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)
	// Keep secrets from the host environment out of the test.
	t.Setenv("DO_TOKEN", "")
	t.Setenv("YC_TOKEN", "")
	t.Setenv("YC_FOLDER_ID", "")
}

func TestLoadMissingProviderType(t *testing.T) {
	writeConfig(t, `max_workers: 3`)

	cfg, err := Load()
	if err == nil {
		t.Error("Expected error for missing provider type, but got none")
	}
	if cfg != nil {
		t.Error("Expected config to be nil when validation fails")
	}
}

func TestLoadUnsupportedProvider(t *testing.T) {
	writeConfig(t, `provider:
  type: OpenStack
`)

	if _, err := Load(); err == nil {
		t.Error("Expected error for unsupported provider type, but got none")
	}
}

func TestLoadGCPMissingProject(t *testing.T) {
	writeConfig(t, `provider:
  type: GCP
  gcp:
    credentials_path: /tmp/creds.json
`)

	if _, err := Load(); err == nil {
		t.Error("Expected error for missing GCP project ID, but got none")
	}
}

func TestLoadValidAWSConfig(t *testing.T) {
	writeConfig(t, `provider:
  type: AWS
  aws:
    region: us-east-1
    access_key_id: AKIA_TEST
    secret_access_key: secret
max_workers: 2
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Provider.Type != ProviderAWS {
		t.Errorf("Provider.Type = %q, want %q", cfg.Provider.Type, ProviderAWS)
	}
	if cfg.Provider.AWS.Region != "us-east-1" {
		t.Errorf("Region = %q, want us-east-1", cfg.Provider.AWS.Region)
	}
	if cfg.MaxWorkers != 2 {
		t.Errorf("MaxWorkers = %d, want 2", cfg.MaxWorkers)
	}
}

func TestLoadEnvExpansion(t *testing.T) {
	t.Setenv("TEST_DO_SECRET", "tok-123")
	writeConfig(t, `provider:
  type: DigitalOcean
  digitalocean:
    token: ${TEST_DO_SECRET}
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Provider.DigitalOcean.Token != "tok-123" {
		t.Errorf("Token = %q, want expanded env value", cfg.Provider.DigitalOcean.Token)
	}
}

func TestLoadEnvOverrideWinsOverFile(t *testing.T) {
	writeConfig(t, `provider:
  type: YandexCloud
  yandex_cloud:
    iam_token: from-file
    folder_id: folder-file
`)
	t.Setenv("YC_TOKEN", "from-env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Provider.YandexCloud.IAMToken != "from-env" {
		t.Errorf("IAMToken = %q, want env override", cfg.Provider.YandexCloud.IAMToken)
	}
	if cfg.Provider.YandexCloud.FolderID != "folder-file" {
		t.Errorf("FolderID = %q, want file value", cfg.Provider.YandexCloud.FolderID)
	}
}

func TestLoadDefaults(t *testing.T) {
	writeConfig(t, `provider:
  type: DigitalOcean
  digitalocean:
    token: tok
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.MaxWorkers != 5 {
		t.Errorf("MaxWorkers = %d, want default 5", cfg.MaxWorkers)
	}
	if cfg.ResultsDir != "results" {
		t.Errorf("ResultsDir = %q, want default results", cfg.ResultsDir)
	}
	if len(cfg.Etcd.Endpoints) != 1 || cfg.Etcd.Endpoints[0] != "localhost:2379" {
		t.Errorf("Etcd.Endpoints = %v, want default localhost endpoint", cfg.Etcd.Endpoints)
	}
}
