package config

import "github.com/fooddash/platform/pkg/config"

type ServiceConfig struct {
	config.Config
}

func Load() ServiceConfig {
	cfg := config.Load()

	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")

	if cfg.ServiceName == "" {
		cfg.ServiceName = "product"
	}

	return ServiceConfig{Config: cfg}
}
