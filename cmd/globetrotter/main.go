package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/globetrotter-hq/globetrotter/internal/booking"
	"github.com/globetrotter-hq/globetrotter/internal/config"
	"github.com/globetrotter-hq/globetrotter/internal/flights"
	"github.com/globetrotter-hq/globetrotter/internal/locking"
	"github.com/globetrotter-hq/globetrotter/internal/maps"
	"github.com/globetrotter-hq/globetrotter/internal/migration"
	"github.com/globetrotter-hq/globetrotter/internal/observability"
	"github.com/globetrotter-hq/globetrotter/internal/payment"
	"github.com/globetrotter-hq/globetrotter/internal/providers"
	"github.com/globetrotter-hq/globetrotter/internal/server"
	"github.com/globetrotter-hq/globetrotter/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		locking.Module,
		migration.Module,

		// Providers and functional domains
		providers.Module,
		payment.Module,
		booking.Module,
		flights.Module,
		maps.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
