package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"belote-lobby/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	mu     sync.RWMutex
	output io.Writer = os.Stdout
)

// Init configures the global zerolog logger. The returned func closes the
// log file sink, if any.
func Init(cfg config.LogConfig) func() {
	level := zerolog.InfoLevel
	if v := strings.TrimSpace(cfg.Level); v != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(v)); err == nil {
			level = parsed
		}
	}

	var (
		out     io.Writer = os.Stdout
		closeFn           = func() {}
	)
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: os.Stdout}
	}
	if path := strings.TrimSpace(cfg.File); path != "" {
		fw, err := newFileSink(path, cfg.MaxMB)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("log_file_unavailable")
		} else {
			out = zerolog.MultiLevelWriter(out, fw)
			closeFn = func() { _ = fw.Close() }
		}
	}

	mu.Lock()
	output = out
	mu.Unlock()

	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(out).With().Timestamp().Str("service", cfg.Service).Logger()
	if cfg.SampleEvery > 1 {
		logger = logger.Sample(&zerolog.BasicSampler{N: uint32(cfg.SampleEvery)})
	}
	log.Logger = logger
	return closeFn
}

// Writer is the sink Init selected, for loggers outside zerolog.
func Writer() io.Writer {
	mu.RLock()
	defer mu.RUnlock()
	return output
}
