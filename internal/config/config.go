package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	BackendURL string `env:"TUTOR_BACKEND_URL" envDefault:"http://127.0.0.1:8000"`

	// The chat endpoint runs an LLM server-side; keep this generous.
	HTTPTimeout time.Duration `env:"TUTOR_HTTP_TIMEOUT" envDefault:"120s"`

	SampleRate int `env:"TUTOR_SAMPLE_RATE" envDefault:"16000"`
	FrameSize  int `env:"TUTOR_FRAME_SIZE" envDefault:"1024"`

	// PrefsPath overrides the preference file location; empty means the
	// user config directory.
	PrefsPath string `env:"TUTOR_PREFS_PATH"`

	StubAddr string `env:"TUTOR_STUB_ADDR" envDefault:":8000"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile    string
	BackendURL string
	StubAddr   string
	LogLevel   string
}

// Load reads configuration from .env file, environment variables, and CLI
// overrides. Priority: CLI flags > environment variables > .env file >
// struct defaults.
func Load(overrides Overrides) (*Config, error) {
	// Load .env file (silent if missing)
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if overrides.BackendURL != "" {
		cfg.BackendURL = overrides.BackendURL
	}
	if overrides.StubAddr != "" {
		cfg.StubAddr = overrides.StubAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}

	return cfg, nil
}
