// Package logger configures the process-wide slog logger: plain text in
// dev, zap-backed JSON in prod.
package logger

import "log/slog"

var def *slog.Logger

// Init wires slog up for the given environment and makes the result the
// default logger.
func Init(cfg Config) {
	if cfg.Env == "" {
		cfg.Env = DetectEnv()
	}
	if cfg.Service == "" {
		cfg.Service = "roomd"
	}
	cfg.InstanceID = ensureInstanceID(cfg.InstanceID)

	if cfg.Backend == "" {
		if cfg.Env == EnvDev {
			cfg.Backend = BackendStd
		} else {
			cfg.Backend = BackendZap
		}
	}

	var h slog.Handler
	switch cfg.Backend {
	case BackendZap:
		h = newZapHandler(cfg)
	default:
		h = newStdHandler(cfg)
	}

	h = h.WithAttrs(commonAttr(cfg))

	base := slog.New(h)
	slog.SetDefault(base)
	def = base
}

// L returns the configured logger, initializing defaults on first use.
func L() *slog.Logger {
	if def != nil {
		return def
	}

	Init(Config{})
	return def
}
