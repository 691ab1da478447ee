// Package flights dispatches flight operations to the configured provider
// and records normalization quality metrics.
package flights

import (
	"context"
	"strings"

	"github.com/globetrotter-hq/globetrotter/internal/adapter"
	obsmetrics "github.com/globetrotter-hq/globetrotter/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Resolver *adapter.Resolver
	Config   Config
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

type Config struct {
	DefaultProvider string
}

type Service struct {
	log      *zap.Logger
	resolver *adapter.Resolver
	cfg      Config
	metrics  *obsmetrics.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		log:      p.Log.Named("flights.service"),
		resolver: p.Resolver,
		cfg:      p.Config,
		metrics:  p.Metrics,
	}
}

func (s *Service) provider(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = s.cfg.DefaultProvider
	}
	return name
}

func (s *Service) Search(ctx context.Context, provider string, req adapter.FlightSearchRequest) (*adapter.FlightSearchResult, error) {
	provider = s.provider(provider)
	flightsAdapter, err := s.resolver.Flights(provider)
	if err != nil {
		return nil, err
	}

	result, err := flightsAdapter.Search(ctx, req)
	if err != nil {
		return nil, err
	}
	if result.Skipped > 0 {
		s.log.Warn("dropped malformed flight offers",
			zap.String("provider", provider),
			zap.Int("skipped", result.Skipped),
			zap.Int("kept", len(result.Offers)))
		for i := 0; i < result.Skipped; i++ {
			s.metrics.RecordOfferSkipped(provider)
		}
	}
	return result, nil
}

func (s *Service) Price(ctx context.Context, provider, offerID string) (*adapter.FlightPrice, error) {
	flightsAdapter, err := s.resolver.Flights(s.provider(provider))
	if err != nil {
		return nil, err
	}
	return flightsAdapter.Price(ctx, offerID)
}

func (s *Service) Book(ctx context.Context, provider, offerID string, passengers []adapter.Passenger, contact adapter.Customer) (*adapter.FlightBooking, error) {
	flightsAdapter, err := s.resolver.Flights(s.provider(provider))
	if err != nil {
		return nil, err
	}
	return flightsAdapter.Book(ctx, offerID, passengers, contact)
}

func (s *Service) GetPNR(ctx context.Context, provider, locator, lastName string) (*adapter.PNR, error) {
	flightsAdapter, err := s.resolver.Flights(s.provider(provider))
	if err != nil {
		return nil, err
	}
	return flightsAdapter.GetPNR(ctx, locator, lastName)
}
