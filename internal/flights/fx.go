package flights

import (
	"github.com/globetrotter-hq/globetrotter/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("flights.service",
	fx.Provide(func(cfg config.Config) Config {
		return Config{DefaultProvider: cfg.DefaultFlightsProvider}
	}),
	fx.Provide(NewService),
)
