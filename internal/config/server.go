package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type ServerConfig struct {
	PostgresDSN   string `env:"POSTGRES_DSN,required,notEmpty"`
	HTTPAddr      string `env:"HTTP_ADDR" envDefault:":8080"`
	RunMigrations bool   `env:"RUN_MIGRATIONS" envDefault:"true"`
	AdminAPIKey   string `env:"ADMIN_API_KEY"`

	MoltDir string `env:"MOLT_DIR" envDefault:"./molt-files"`

	ExecutorURL     string        `env:"EXECUTOR_URL"`
	ExecutorTimeout time.Duration `env:"EXECUTOR_TIMEOUT" envDefault:"5s"`

	PreMatchDelay time.Duration `env:"PRE_MATCH_DELAY" envDefault:"2s"`
	PhaseDelay    time.Duration `env:"PHASE_DELAY" envDefault:"3s"`

	QueueBroadcastInterval time.Duration `env:"QUEUE_BROADCAST_INTERVAL" envDefault:"5s"`

	OTELEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTELInsecure bool   `env:"OTEL_INSECURE" envDefault:"false"`

	SpectatorPushEnabled      bool          `env:"SPECTATOR_PUSH_ENABLED" envDefault:"false"`
	SpectatorPushConfigJSON   string        `env:"SPECTATOR_PUSH_CONFIG_JSON"`
	SpectatorPushConfigPath   string        `env:"SPECTATOR_PUSH_CONFIG_PATH"`
	SpectatorPushConfigReload time.Duration `env:"SPECTATOR_PUSH_CONFIG_RELOAD" envDefault:"1s"`
	SpectatorPushWorkers      int           `env:"SPECTATOR_PUSH_WORKERS" envDefault:"2"`
	SpectatorPushRetryMax     int           `env:"SPECTATOR_PUSH_RETRY_MAX" envDefault:"3"`
	SpectatorPushRetryBase    time.Duration `env:"SPECTATOR_PUSH_RETRY_BASE" envDefault:"500ms"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
