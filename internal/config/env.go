package config

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
)

// Credentials holds the secrets the seeder never reads from YAML.
type Credentials struct {
	AnthropicAPIKey string
	AdminEmail      string
	AdminPassword   string
}

// LoadCredentials reads secrets from the environment, with a .env file as an
// optional source. A missing .env is fine; missing variables are not checked
// here because the generate and backfill phases need different subsets.
func LoadCredentials() Credentials {
	_ = godotenv.Load()

	return Credentials{
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AdminEmail:      os.Getenv("SEEDER_ADMIN_EMAIL"),
		AdminPassword:   os.Getenv("SEEDER_ADMIN_PASSWORD"),
	}
}

// RequireLLM checks the credentials the generation phase needs.
func (c Credentials) RequireLLM() error {
	if c.AnthropicAPIKey == "" {
		return errors.New("ANTHROPIC_API_KEY is not set")
	}
	return nil
}

// RequireAdmin checks the credentials the backfill phase needs.
func (c Credentials) RequireAdmin() error {
	if c.AdminEmail == "" || c.AdminPassword == "" {
		return errors.New("SEEDER_ADMIN_EMAIL and SEEDER_ADMIN_PASSWORD must be set")
	}
	return nil
}
