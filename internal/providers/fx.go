// Package providers registers every adapter the platform ships with and
// builds the resolver the dispatch services use. Adding a provider means
// adding one Register line here plus its configuration keys.
package providers

import (
	"github.com/globetrotter-hq/globetrotter/internal/adapter"
	amadeusflights "github.com/globetrotter-hq/globetrotter/internal/adapter/flights/amadeus"
	duffelflights "github.com/globetrotter-hq/globetrotter/internal/adapter/flights/duffel"
	fakeflights "github.com/globetrotter-hq/globetrotter/internal/adapter/flights/fake"
	googlemaps "github.com/globetrotter-hq/globetrotter/internal/adapter/maps/google"
	mapboxmaps "github.com/globetrotter-hq/globetrotter/internal/adapter/maps/mapbox"
	fakenotify "github.com/globetrotter-hq/globetrotter/internal/adapter/notify/fake"
	fcmnotify "github.com/globetrotter-hq/globetrotter/internal/adapter/notify/fcm"
	sendgridnotify "github.com/globetrotter-hq/globetrotter/internal/adapter/notify/sendgrid"
	twilionotify "github.com/globetrotter-hq/globetrotter/internal/adapter/notify/twilio"
	fakepayments "github.com/globetrotter-hq/globetrotter/internal/adapter/payments/fake"
	flutterwavepayments "github.com/globetrotter-hq/globetrotter/internal/adapter/payments/flutterwave"
	mpesapayments "github.com/globetrotter-hq/globetrotter/internal/adapter/payments/mpesa"
	stripepayments "github.com/globetrotter-hq/globetrotter/internal/adapter/payments/stripe"
	"github.com/globetrotter-hq/globetrotter/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	fx.Provide(NewRegistry),
	fx.Provide(NewResolver),
)

func NewRegistry() (*adapter.Registry, error) {
	registry := adapter.NewRegistry()

	registrations := map[string]adapter.Constructor{
		stripepayments.Name:      stripepayments.New,
		mpesapayments.Name:       mpesapayments.New,
		flutterwavepayments.Name: flutterwavepayments.New,
		fakepayments.Name:        fakepayments.New,

		amadeusflights.Name: amadeusflights.New,
		duffelflights.Name:  duffelflights.New,
		fakeflights.Name:    fakeflights.New,

		googlemaps.Name: googlemaps.New,
		mapboxmaps.Name: mapboxmaps.New,

		twilionotify.Name:   twilionotify.New,
		sendgridnotify.Name: sendgridnotify.New,
		fcmnotify.Name:      fcmnotify.New,
		fakenotify.Name:     fakenotify.New,
	}
	for name, ctor := range registrations {
		if err := registry.Register(name, ctor); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func NewResolver(registry *adapter.Registry, cfg config.Config) *adapter.Resolver {
	return adapter.NewResolver(registry, cfg.Adapters)
}
