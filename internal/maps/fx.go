package maps

import (
	"github.com/globetrotter-hq/globetrotter/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("maps.service",
	fx.Provide(func(cfg config.Config) Config {
		return Config{DefaultProvider: cfg.DefaultMapsProvider}
	}),
	fx.Provide(NewService),
)
