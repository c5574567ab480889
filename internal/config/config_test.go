package config

import (
	"os"
	"testing"
	"time"
)

// unsetenv removes key for the duration of the test. t.Setenv alone cannot
// express "unset", it only overwrites, so pair it with os.Unsetenv and rely
// on its cleanup to restore the original value.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	os.Unsetenv(key)
}

func TestLoadDoesNotInjectWeakAuthDefault(t *testing.T) {
	unsetenv(t, "AUTH_SECRET")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadDefaults(t *testing.T) {
	unsetenv(t, "PORT")
	unsetenv(t, "FINALIZE_TIMEOUT")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("unexpected address %q", cfg.Address())
	}
	if cfg.FinalizeTimeout != 10*time.Second {
		t.Fatalf("unexpected finalize timeout %s", cfg.FinalizeTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOCK_WAIT_TIMEOUT", "2s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Fatalf("expected port 9090, got %q", cfg.Port)
	}
	if cfg.LockWaitTimeout != 2*time.Second {
		t.Fatalf("unexpected lock wait timeout %s", cfg.LockWaitTimeout)
	}
}
