package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Secrets holds values that never live in the YAML file.
type Secrets struct {
	ConfigPath string `env:"ARCHIVE_CONFIG" envDefault:"config.yaml"`

	ClerkAPI      string `env:"CLERK_API"`
	Ed25519PubKey string `env:"ED25519_PUBKEY"`
	AdminUserID   string `env:"ARCHIVE_ADMIN_ID" envDefault:"admin"`

	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	S3Endpoint        string `env:"S3_ENDPOINT"`
}

func LoadSecrets() (*Secrets, error) {
	secrets := &Secrets{}
	if err := env.Parse(secrets); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return secrets, nil
}
