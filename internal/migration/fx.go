package migration

import (
	bookingdomain "github.com/globetrotter-hq/globetrotter/internal/booking/domain"
	"github.com/globetrotter-hq/globetrotter/internal/config"
	paymentdomain "github.com/globetrotter-hq/globetrotter/internal/payment/domain"
	"github.com/globetrotter-hq/globetrotter/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType != "postgres" {
			if err := conn.AutoMigrate(
				&paymentdomain.Payment{},
				&paymentdomain.RefundRequest{},
				&bookingdomain.Booking{},
				&bookingdomain.TravelPackage{},
			); err != nil {
				return err
			}
		} else {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		}

		if cfg.Environment != "production" {
			return seed.EnsureSamplePackages(conn)
		}
		return nil
	}),
)
