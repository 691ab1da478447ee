package payment

import (
	"github.com/globetrotter-hq/globetrotter/internal/payment/repository"
	paymentservice "github.com/globetrotter-hq/globetrotter/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(paymentservice.NewService),
)
