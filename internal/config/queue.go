package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type QueueConfig struct {
	BaseRange          int           `env:"QUEUE_BASE_RANGE" envDefault:"200"`
	RangeStep          int           `env:"QUEUE_RANGE_STEP" envDefault:"50"`
	RangeStepEvery     time.Duration `env:"QUEUE_RANGE_STEP_EVERY" envDefault:"10s"`
	CategoryRelaxAfter time.Duration `env:"QUEUE_CATEGORY_RELAX_AFTER" envDefault:"15s"`
	ForcePairAfter     time.Duration `env:"QUEUE_FORCE_PAIR_AFTER" envDefault:"30s"`
	TickInterval       time.Duration `env:"QUEUE_TICK_INTERVAL" envDefault:"1s"`
	JobBuffer          int           `env:"QUEUE_JOB_BUFFER" envDefault:"64"`
}

func LoadQueue() (QueueConfig, error) {
	var cfg QueueConfig
	err := env.Parse(&cfg)
	return cfg, err
}
