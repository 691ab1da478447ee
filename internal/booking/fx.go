package booking

import (
	bookingservice "github.com/globetrotter-hq/globetrotter/internal/booking/service"
	"github.com/globetrotter-hq/globetrotter/internal/config"
	paymentdomain "github.com/globetrotter-hq/globetrotter/internal/payment/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("booking.service",
	fx.Provide(func(cfg config.Config) bookingservice.Config {
		return bookingservice.Config{
			SmsProvider:   cfg.SmsProvider,
			EmailProvider: cfg.EmailProvider,
		}
	}),
	fx.Provide(bookingservice.NewService),
	fx.Provide(func(s *bookingservice.Service) paymentdomain.BookingConfirmer { return s }),
	fx.Provide(func(s *bookingservice.Service) paymentdomain.BookingGuard { return s }),
)
