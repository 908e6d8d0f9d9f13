package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("UPCOMING_TEST_DOTENV=loaded\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("UPCOMING_TEST_DOTENV") })

	if err := LoadEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}
	if got := os.Getenv("UPCOMING_TEST_DOTENV"); got != "loaded" {
		t.Errorf("UPCOMING_TEST_DOTENV = %q, want loaded", got)
	}
}

func TestLoadEnv_HomeExpansion(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if err := os.WriteFile(filepath.Join(home, ".upcoming.env"), []byte("UPCOMING_TEST_HOME=yes\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("UPCOMING_TEST_HOME") })

	if err := LoadEnv("~/.upcoming.env"); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}
	if got := os.Getenv("UPCOMING_TEST_HOME"); got != "yes" {
		t.Errorf("UPCOMING_TEST_HOME = %q, want yes", got)
	}
}
