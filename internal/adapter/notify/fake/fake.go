// Package fake records notifications in memory. It backs local development
// and the booking confirmation tests, and can simulate provider failures.
package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/globetrotter-hq/globetrotter/internal/adapter"
)

const Name = "notifications.fake"

func New(cfg adapter.Config) (any, error) {
	return &Adapter{fail: cfg.Bool("simulate_failures")}, nil
}

// Adapter implements every notification channel and keeps what it sent.
type Adapter struct {
	mu       sync.Mutex
	fail     bool
	sequence int

	SMS    []adapter.SmsMessage
	Emails []adapter.EmailMessage
	Pushes []adapter.PushMessage
}

var (
	_ adapter.SmsAdapter   = (*Adapter)(nil)
	_ adapter.EmailAdapter = (*Adapter)(nil)
	_ adapter.PushAdapter  = (*Adapter)(nil)
)

func (a *Adapter) SendSMS(ctx context.Context, msg adapter.SmsMessage) adapter.SendResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fail {
		return adapter.SendResult{Status: adapter.SendStatusFailed, Error: "simulated sms failure"}
	}
	a.SMS = append(a.SMS, msg)
	return a.sent()
}

func (a *Adapter) SendEmail(ctx context.Context, msg adapter.EmailMessage) adapter.SendResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fail {
		return adapter.SendResult{Status: adapter.SendStatusFailed, Error: "simulated email failure"}
	}
	a.Emails = append(a.Emails, msg)
	return a.sent()
}

func (a *Adapter) SendPush(ctx context.Context, msg adapter.PushMessage) adapter.SendResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fail {
		return adapter.SendResult{Status: adapter.SendStatusFailed, Error: "simulated push failure"}
	}
	a.Pushes = append(a.Pushes, msg)
	return a.sent()
}

func (a *Adapter) sent() adapter.SendResult {
	a.sequence++
	return adapter.SendResult{
		Status:     adapter.SendStatusSent,
		ProviderID: fmt.Sprintf("fake-%d", a.sequence),
	}
}
