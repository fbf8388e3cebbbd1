package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load(Overrides{EnvFile: "nonexistent.env"})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.BackendURL != "http://127.0.0.1:8000" {
			t.Errorf("BackendURL = %q, want http://127.0.0.1:8000", cfg.BackendURL)
		}
		if cfg.HTTPTimeout != 120*time.Second {
			t.Errorf("HTTPTimeout = %v, want 120s", cfg.HTTPTimeout)
		}
		if cfg.SampleRate != 16000 {
			t.Errorf("SampleRate = %d, want 16000", cfg.SampleRate)
		}
		if cfg.FrameSize != 1024 {
			t.Errorf("FrameSize = %d, want 1024", cfg.FrameSize)
		}
		if cfg.StubAddr != ":8000" {
			t.Errorf("StubAddr = %q, want :8000", cfg.StubAddr)
		}
		if cfg.LogLevel != "info" {
			t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
		}
	})

	t.Run("env_vars_read", func(t *testing.T) {
		cleanup := setEnvs(t, map[string]string{
			"TUTOR_BACKEND_URL":  "http://tutor.local:9000",
			"TUTOR_HTTP_TIMEOUT": "30s",
		})
		defer cleanup()

		cfg, err := Load(Overrides{EnvFile: "nonexistent.env"})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.BackendURL != "http://tutor.local:9000" {
			t.Errorf("BackendURL = %q, want env value", cfg.BackendURL)
		}
		if cfg.HTTPTimeout != 30*time.Second {
			t.Errorf("HTTPTimeout = %v, want 30s", cfg.HTTPTimeout)
		}
	})

	t.Run("cli_overrides_take_priority", func(t *testing.T) {
		cleanup := setEnvs(t, map[string]string{
			"TUTOR_BACKEND_URL": "http://env.local:9000",
		})
		defer cleanup()

		cfg, err := Load(Overrides{
			EnvFile:    "nonexistent.env",
			BackendURL: "http://flag.local:7000",
			StubAddr:   ":7001",
			LogLevel:   "debug",
		})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.BackendURL != "http://flag.local:7000" {
			t.Errorf("BackendURL = %q, want flag value", cfg.BackendURL)
		}
		if cfg.StubAddr != ":7001" {
			t.Errorf("StubAddr = %q, want :7001", cfg.StubAddr)
		}
		if cfg.LogLevel != "debug" {
			t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
		}
	})
}

// setEnvs sets environment variables and returns a cleanup function.
func setEnvs(t *testing.T, envs map[string]string) func() {
	t.Helper()
	originals := make(map[string]string)
	unset := make([]string, 0)

	for k, v := range envs {
		if orig, ok := os.LookupEnv(k); ok {
			originals[k] = orig
		} else {
			unset = append(unset, k)
		}
		os.Setenv(k, v)
	}

	return func() {
		for k, v := range originals {
			os.Setenv(k, v)
		}
		for _, k := range unset {
			os.Unsetenv(k)
		}
	}
}
