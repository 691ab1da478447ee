package amadeus

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/globetrotter-hq/globetrotter/internal/adapter"
	"golang.org/x/sync/singleflight"
)

// expirySafetyMargin is subtracted from the provider-reported lifetime so a
// token is never used right at its expiry edge.
const expirySafetyMargin = 10 * time.Second

// tokenCache holds one OAuth2 client-credentials token per cache key and is
// shared across adapter instances of the same provider within the process.
// Concurrent refreshes of an expired token are coalesced: one fetch in
// flight, other callers wait for its result.
type tokenCache struct {
	mu      sync.Mutex
	entries map[string]tokenEntry
	group   singleflight.Group
	now     func() time.Time
}

type tokenEntry struct {
	accessToken string
	expiresAt   time.Time
}

func newTokenCache() *tokenCache {
	return &tokenCache{
		entries: map[string]tokenEntry{},
		now:     time.Now,
	}
}

// sharedTokens is the process-wide cache used by every Amadeus adapter
// instance.
var sharedTokens = newTokenCache()

type tokenFetch func(ctx context.Context) (accessToken string, expiresIn time.Duration, err error)

func (c *tokenCache) get(ctx context.Context, key string, fetch tokenFetch) (string, error) {
	c.mu.Lock()
	entry, ok := c.entries[key]
	now := c.now()
	c.mu.Unlock()
	if ok && entry.expiresAt.After(now) {
		return entry.accessToken, nil
	}

	token, err, _ := c.group.Do(key, func() (any, error) {
		// Re-check under the flight: another caller may have refreshed while
		// this one was queued.
		c.mu.Lock()
		entry, ok := c.entries[key]
		now := c.now()
		c.mu.Unlock()
		if ok && entry.expiresAt.After(now) {
			return entry.accessToken, nil
		}

		accessToken, expiresIn, err := fetch(ctx)
		if err != nil {
			return "", err
		}

		c.mu.Lock()
		c.entries[key] = tokenEntry{
			accessToken: accessToken,
			expiresAt:   c.now().Add(expiresIn - expirySafetyMargin),
		}
		c.mu.Unlock()
		return accessToken, nil
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

func (c *tokenCache) reset() {
	c.mu.Lock()
	c.entries = map[string]tokenEntry{}
	c.mu.Unlock()
}

func (a *Adapter) fetchToken(ctx context.Context) (string, time.Duration, error) {
	if a.clientID == "" || a.clientSecret == "" {
		return "", 0, fmt.Errorf("amadeus credentials: %w", adapter.ErrConfiguration)
	}

	values := url.Values{}
	values.Set("grant_type", "client_credentials")
	values.Set("client_id", a.clientID)
	values.Set("client_secret", a.clientSecret)

	raw, err := adapter.DoForm(ctx, a.client, a.baseURL+"/v1/security/oauth2/token", nil, values, "amadeus", "token")
	if err != nil {
		if _, ok := adapter.IsRequestError(err); ok {
			return "", 0, fmt.Errorf("amadeus token exchange: %w", adapter.ErrAuthentication)
		}
		return "", 0, err
	}

	token, _ := raw["access_token"].(string)
	if token == "" {
		return "", 0, fmt.Errorf("amadeus token missing in response: %w", adapter.ErrAuthentication)
	}
	expiresIn := a.tokenTTL
	if seconds, ok := raw["expires_in"].(float64); ok && seconds > 0 {
		expiresIn = time.Duration(seconds) * time.Second
	}
	return token, expiresIn, nil
}

func (a *Adapter) authHeaders(ctx context.Context) (map[string]string, error) {
	token, err := a.tokens.get(ctx, a.cacheKey(), func(ctx context.Context) (string, time.Duration, error) {
		return a.fetchToken(ctx)
	})
	if err != nil {
		return nil, err
	}
	return map[string]string{"Authorization": "Bearer " + token}, nil
}

func (a *Adapter) cacheKey() string {
	return "amadeus:" + a.clientID + ":" + a.environment
}
