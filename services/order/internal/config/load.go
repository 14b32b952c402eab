package config

import "github.com/fooddash/platform/pkg/config"

type ServiceConfig struct {
	config.Config
}

func Load() ServiceConfig {
	cfg := config.Load()

	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmpty(cfg.ProductServiceURL, "PRODUCT_SERVICE_URL")

	if cfg.ServiceName == "" {
		cfg.ServiceName = "order"
	}

	return ServiceConfig{Config: cfg}
}
