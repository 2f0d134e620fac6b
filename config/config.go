// config/config.go
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config carries every process-wide setting. It is parsed once in main and
// injected into the services that need it, so request paths never call
// os.Getenv.
type Config struct {
	Port string `env:"PORT" envDefault:"5300"`

	DatabaseURL string `env:"DATABASE_URL,required"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	// Base URL the frontend is served from; manage links embed it.
	AppBaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:3000"`

	TurnstileSecretKey string `env:"TURNSTILE_SECRET_KEY"`
	TurnstileVerifyURL string `env:"TURNSTILE_VERIFY_URL" envDefault:"https://challenges.cloudflare.com/turnstile/v0/siteverify"`

	ResendAPIKey string `env:"RESEND_API_KEY"`
	EmailFrom    string `env:"EMAIL_FROM" envDefault:"khatam tracker <onboarding@resend.dev>"`

	// Cloudflare R2 (cover images). Optional: uploads are disabled when unset.
	CloudflareAccountID string `env:"CLOUDFLARE_ACCOUNT_ID"`
	R2AccessKeyID       string `env:"R2_ACCESS_KEY_ID"`
	R2AccessKeySecret   string `env:"R2_ACCESS_KEY_SECRET"`
	R2Bucket            string `env:"R2_BUCKET_NAME"`
	CDNBaseURL          string `env:"CDN_BASE_URL"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
