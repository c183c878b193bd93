package app

import (
	"github.com/hooklab-media/hooklab-backend/internal/platform/envutil"
)

type Config struct {
	Port        string
	Environment string
	Version     string

	WorkerEnabled   bool
	TemporalEnabled bool
}

func LoadConfig() Config {
	return Config{
		Port:        envutil.String("PORT", "8080"),
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", "dev"),

		WorkerEnabled:   envutil.Bool("WORKER_ENABLED", true),
		TemporalEnabled: envutil.Bool("TEMPORAL_ENABLED", false),
	}
}
