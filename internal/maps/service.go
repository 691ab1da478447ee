// Package maps dispatches geo operations to the configured provider.
package maps

import (
	"context"
	"strings"

	"github.com/globetrotter-hq/globetrotter/internal/adapter"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Resolver *adapter.Resolver
	Config   Config
}

type Config struct {
	DefaultProvider string
}

type Service struct {
	log      *zap.Logger
	resolver *adapter.Resolver
	cfg      Config
}

func NewService(p Params) *Service {
	return &Service{
		log:      p.Log.Named("maps.service"),
		resolver: p.Resolver,
		cfg:      p.Config,
	}
}

func (s *Service) adapter(provider string) (adapter.MapsAdapter, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		provider = s.cfg.DefaultProvider
	}
	return s.resolver.Maps(provider)
}

func (s *Service) Geocode(ctx context.Context, provider, query string) ([]adapter.GeocodeResult, error) {
	mapsAdapter, err := s.adapter(provider)
	if err != nil {
		return nil, err
	}
	return mapsAdapter.Geocode(ctx, query)
}

func (s *Service) ReverseGeocode(ctx context.Context, provider string, lat, lng float64) (*adapter.GeocodeResult, error) {
	mapsAdapter, err := s.adapter(provider)
	if err != nil {
		return nil, err
	}
	return mapsAdapter.ReverseGeocode(ctx, lat, lng)
}

func (s *Service) Places(ctx context.Context, provider, query string, lat, lng *float64) ([]adapter.Place, error) {
	mapsAdapter, err := s.adapter(provider)
	if err != nil {
		return nil, err
	}
	return mapsAdapter.Places(ctx, query, lat, lng)
}

func (s *Service) DistanceMatrix(ctx context.Context, provider string, origins, destinations []string, mode string) (*adapter.DistanceMatrix, error) {
	mapsAdapter, err := s.adapter(provider)
	if err != nil {
		return nil, err
	}
	return mapsAdapter.DistanceMatrix(ctx, origins, destinations, mode)
}

func (s *Service) StaticMapURL(provider string, lat, lng float64, zoom, width, height int) (string, error) {
	mapsAdapter, err := s.adapter(provider)
	if err != nil {
		return "", err
	}
	return mapsAdapter.StaticMapURL(lat, lng, zoom, width, height), nil
}
