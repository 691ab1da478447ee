package db

import (
	"github.com/globetrotter-hq/globetrotter/internal/config"
	"github.com/globetrotter-hq/globetrotter/internal/observability/logger"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("db",
	fx.Provide(provide),
)

func provide(cfg config.Config) (*gorm.DB, error) {
	return Open(cfg, &gorm.Config{
		Logger:         logger.NewGormLogger(logger.DefaultGormLoggerConfig()),
		TranslateError: true,
	})
}
