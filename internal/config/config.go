package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config is the frontend server configuration
type Config struct {
	Port  string `env:"PORT" envDefault:"8080"`
	Env   string `env:"ENV" envDefault:"development"`
	Debug bool   `env:"DEBUG"`

	NodeAPIURL string `env:"NODE_API_URL" envDefault:"http://localhost:10009/api/gmedchain/"`
	// NodeTimeout bounds each node request; zero means no timeout
	NodeTimeout time.Duration `env:"NODE_TIMEOUT" envDefault:"0s"`

	DialogSecret string        `env:"DIALOG_SECRET"`
	DialogTTL    time.Duration `env:"DIALOG_TTL" envDefault:"30m"`
	// GeneratedSecret is set when DIALOG_SECRET was empty and Load made one up
	GeneratedSecret bool

	DatabasePath    string        `env:"DATABASE_PATH" envDefault:"file::memory:?cache=shared"`
	ResultRetention time.Duration `env:"RESULT_RETENTION" envDefault:"1h"`

	StrictFormValidation bool     `env:"STRICT_FORM_VALIDATION" envDefault:"false"`
	CORSAllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

// DevNode is the configuration of the standalone dev node
type DevNode struct {
	Port         string `env:"DEVNODE_PORT" envDefault:"10009"`
	Env          string `env:"ENV" envDefault:"development"`
	Debug        bool   `env:"DEBUG"`
	DatabasePath string `env:"DEVNODE_DATABASE_PATH" envDefault:"file:devnode?mode=memory&cache=shared"`
}

func (c *Config) Production() bool {
	return c.Env == "production"
}

// Load reads the .env file at envPath (or ./.env when empty) if it exists,
// then the environment. Environment variables win over the file.
func Load(envPath string) (*Config, error) {
	loadDotEnv(envPath)

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if cfg.DialogSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return nil, err
		}
		cfg.DialogSecret = secret
		cfg.GeneratedSecret = true
	}

	return cfg, nil
}

// LoadDevNode reads the dev node configuration the same way Load does
func LoadDevNode(envPath string) (*DevNode, error) {
	loadDotEnv(envPath)

	cfg := &DevNode{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}
	return cfg, nil
}

func loadDotEnv(envPath string) {
	// a missing .env is not an error
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate dialog secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
