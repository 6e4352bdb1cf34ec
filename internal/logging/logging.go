package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"claw-colosseum/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	mu     sync.RWMutex
	output io.Writer = os.Stdout
)

// Init configures the global zerolog logger. When cfg.File is set, lines go
// to both stdout and a rotating file.
func Init(cfg config.LogConfig) {
	level := zerolog.InfoLevel
	if v := strings.TrimSpace(cfg.Level); v != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(v)); err == nil {
			level = parsed
		}
	}

	var raw io.Writer = os.Stdout
	if cfg.File != "" {
		fw, err := newRotatingWriter(cfg.File, cfg.MaxMB)
		if err != nil {
			log.Error().Err(err).Str("path", cfg.File).Msg("open log file failed; logging to stdout only")
		} else {
			raw = io.MultiWriter(os.Stdout, fw)
		}
	}
	mu.Lock()
	output = raw
	mu.Unlock()

	var console io.Writer = raw
	if cfg.Pretty {
		console = zerolog.ConsoleWriter{Out: raw}
	}

	zerolog.SetGlobalLevel(level)
	lc := zerolog.New(console).With().Timestamp()
	if cfg.Service != "" {
		lc = lc.Str("service", cfg.Service)
	}
	logger := lc.Logger()
	if cfg.SampleEvery > 1 {
		logger = logger.Sample(&zerolog.BasicSampler{N: uint32(cfg.SampleEvery)})
	}
	log.Logger = logger
}

// Writer is the raw destination chosen by Init, for loggers that do not go
// through zerolog.
func Writer() io.Writer {
	mu.RLock()
	defer mu.RUnlock()
	return output
}
