package hamsconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd() error = %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir() error = %v", err)
	}
	defer os.Chdir(cwd)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Name != "hamsd" {
		t.Errorf("Name = %q, want %q", cfg.Name, "hamsd")
	}
	if cfg.BindAddress != "0.0.0.0:8079" {
		t.Errorf("BindAddress = %q, want %q", cfg.BindAddress, "0.0.0.0:8079")
	}
}

func TestLoad_ReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd() error = %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir() error = %v", err)
	}
	defer os.Chdir(cwd)

	content := "name: demo\nbind_address: 127.0.0.1:9000\ngrace_period: 2s\n"
	if err := os.WriteFile(filepath.Join(dir, "hamsd.yaml"), []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Name != "demo" {
		t.Errorf("Name = %q, want %q", cfg.Name, "demo")
	}
	if cfg.BindAddress != "127.0.0.1:9000" {
		t.Errorf("BindAddress = %q, want %q", cfg.BindAddress, "127.0.0.1:9000")
	}
}
