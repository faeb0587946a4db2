package config

import (
	"testing"
	"time"
)

// TestLoadDefaults tests that only the document root is mandatory
func TestLoadDefaults(t *testing.T) {
	cfg, err := Load([]string{"-root", "/var/www"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.Backend != BackendNotify {
		t.Errorf("Backend = %q, want %q", cfg.Backend, BackendNotify)
	}
	if cfg.MaxConnections != 50000 {
		t.Errorf("MaxConnections = %d, want 50000", cfg.MaxConnections)
	}
	if cfg.Workers != 200 || cfg.QueueSize != 10000 {
		t.Errorf("pool defaults = %d/%d, want 200/10000", cfg.Workers, cfg.QueueSize)
	}
	if cfg.KeepAliveMax != 100 || cfg.KeepAliveTimeout != 5*time.Second {
		t.Errorf("keep-alive defaults = %d/%v", cfg.KeepAliveMax, cfg.KeepAliveTimeout)
	}
}

// TestLoadFlagsOverride tests flag precedence
func TestLoadFlagsOverride(t *testing.T) {
	cfg, err := Load([]string{
		"-root", "/srv/site",
		"-port", "9001",
		"-backend", "poll",
		"-max-connections", "128",
		"-workers", "8",
		"-keepalive-timeout", "2s",
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.DocRoot != "/srv/site" || cfg.Port != 9001 || cfg.Backend != BackendPoll {
		t.Errorf("flags not applied: %+v", cfg)
	}
	if cfg.MaxConnections != 128 || cfg.Workers != 8 {
		t.Errorf("numeric flags not applied: %+v", cfg)
	}
	if cfg.KeepAliveTimeout != 2*time.Second {
		t.Errorf("KeepAliveTimeout = %v, want 2s", cfg.KeepAliveTimeout)
	}
}

// TestLoadEnvOverride tests environment precedence over defaults
func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("C10K_DOC_ROOT", "/env/www")
	t.Setenv("C10K_PORT", "7000")
	t.Setenv("C10K_BACKEND", "threadpool")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DocRoot != "/env/www" || cfg.Port != 7000 || cfg.Backend != BackendThreadPool {
		t.Errorf("env not applied: %+v", cfg)
	}

	// A flag still beats the environment.
	cfg, err = Load([]string{"-port", "7100"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 7100 {
		t.Errorf("Port = %d, want flag value 7100", cfg.Port)
	}
}

// TestValidate tests rejection of unusable configurations
func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing root", nil},
		{"bad backend", []string{"-root", "/www", "-backend", "fibers"}},
		{"bad port", []string{"-root", "/www", "-port", "70000"}},
		{"zero connections", []string{"-root", "/www", "-max-connections", "0"}},
		{"zero workers", []string{"-root", "/www", "-workers", "0"}},
		{"zero keepalive", []string{"-root", "/www", "-keepalive-max", "0"}},
	}

	for _, tt := range tests {
		if _, err := Load(tt.args); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}
