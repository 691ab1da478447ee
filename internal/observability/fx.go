// Package observability wires structured logging and prometheus metrics.
package observability

import (
	"github.com/globetrotter-hq/globetrotter/internal/config"
	"github.com/globetrotter-hq/globetrotter/internal/observability/logger"
	"github.com/globetrotter-hq/globetrotter/internal/observability/metrics"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(loggerConfig),
	fx.Provide(logger.New),
	fx.Provide(metrics.New),
)

func loggerConfig(cfg config.Config) logger.Config {
	return logger.Config{
		ServiceName: cfg.AppName,
		Environment: cfg.Environment,
		Version:     cfg.AppVersion,
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
	}
}
