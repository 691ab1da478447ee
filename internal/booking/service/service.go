package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/globetrotter-hq/globetrotter/internal/adapter"
	"github.com/globetrotter-hq/globetrotter/internal/booking/domain"
	obsmetrics "github.com/globetrotter-hq/globetrotter/internal/observability/metrics"
	paymentdomain "github.com/globetrotter-hq/globetrotter/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Resolver *adapter.Resolver
	Config   Config
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

// Config names the notification providers the booking flow uses.
type Config struct {
	SmsProvider   string
	EmailProvider string
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	resolver *adapter.Resolver
	cfg      Config
	metrics  *obsmetrics.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("booking.service"),
		resolver: p.Resolver,
		cfg:      p.Config,
		metrics:  p.Metrics,
	}
}

var (
	_ paymentdomain.BookingConfirmer = (*Service)(nil)
	_ paymentdomain.BookingGuard     = (*Service)(nil)
)

// ConfirmOnPayment moves a booking to CONFIRMED after its payment settles.
// Re-delivery is harmless: an already confirmed booking is a no-op. Package
// capacity is decremented best effort, and notification failures never fail
// the confirmation.
func (s *Service) ConfirmOnPayment(ctx context.Context, bookingID snowflake.ID, payment *paymentdomain.Payment) error {
	var booking *domain.Booking
	confirmed := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		booking, err = s.findForUpdate(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if booking.Status == domain.StatusConfirmed {
			return nil
		}

		now := time.Now().UTC()
		booking.Status = domain.StatusConfirmed
		booking.ConfirmedAt = &now
		booking.UpdatedAt = now
		if err := tx.WithContext(ctx).Save(booking).Error; err != nil {
			return err
		}
		confirmed = true

		if booking.PackageID != nil {
			if err := s.decrementCapacity(ctx, tx, *booking.PackageID); err != nil {
				s.log.Warn("failed to decrement package capacity",
					zap.String("booking_id", bookingID.String()),
					zap.String("package_id", booking.PackageID.String()),
					zap.Error(err))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !confirmed {
		return nil
	}

	s.log.Info("booking confirmed",
		zap.String("booking_id", bookingID.String()),
		zap.String("payment_id", payment.ID.String()))
	s.notifyConfirmation(ctx, booking)
	return nil
}

func (s *Service) IsCancelled(ctx context.Context, bookingID snowflake.ID) (bool, error) {
	booking, err := s.Get(ctx, bookingID)
	if err != nil {
		return false, err
	}
	return booking.Status == domain.StatusCancelled, nil
}

func (s *Service) Get(ctx context.Context, bookingID snowflake.ID) (*domain.Booking, error) {
	var booking domain.Booking
	err := s.db.WithContext(ctx).Where("id = ?", bookingID).First(&booking).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (s *Service) findForUpdate(ctx context.Context, tx *gorm.DB, bookingID snowflake.ID) (*domain.Booking, error) {
	query := tx.WithContext(ctx)
	if tx.Dialector.Name() != "sqlite" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var booking domain.Booking
	err := query.Where("id = ?", bookingID).First(&booking).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("booking %s: %w", bookingID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (s *Service) decrementCapacity(ctx context.Context, tx *gorm.DB, packageID snowflake.ID) error {
	res := tx.WithContext(ctx).Exec(
		`UPDATE travel_packages SET capacity = capacity - 1, updated_at = ? WHERE id = ? AND capacity > 0`,
		time.Now().UTC(), packageID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("package %s has no remaining capacity", packageID)
	}
	return nil
}

// notifyConfirmation sends the confirmation SMS and email. Provider failures
// are recorded and logged, never propagated.
func (s *Service) notifyConfirmation(ctx context.Context, booking *domain.Booking) {
	if s.cfg.SmsProvider != "" && booking.CustomerPhone != "" {
		if sms, err := s.resolver.Sms(s.cfg.SmsProvider); err != nil {
			s.log.Warn("sms provider unavailable", zap.String("provider", s.cfg.SmsProvider), zap.Error(err))
		} else {
			result := sms.SendSMS(ctx, adapter.SmsMessage{
				To:      booking.CustomerPhone,
				Message: fmt.Sprintf("Your booking %s is confirmed. Safe travels!", booking.Reference),
			})
			s.recordSend("sms", result)
		}
	}

	if s.cfg.EmailProvider != "" && booking.CustomerEmail != "" {
		if email, err := s.resolver.Email(s.cfg.EmailProvider); err != nil {
			s.log.Warn("email provider unavailable", zap.String("provider", s.cfg.EmailProvider), zap.Error(err))
		} else {
			result := email.SendEmail(ctx, adapter.EmailMessage{
				To:      []string{booking.CustomerEmail},
				Subject: fmt.Sprintf("Booking %s confirmed", booking.Reference),
				Text:    fmt.Sprintf("Hi %s, your booking %s is confirmed.", booking.CustomerName, booking.Reference),
			})
			s.recordSend("email", result)
		}
	}
}

func (s *Service) recordSend(channel string, result adapter.SendResult) {
	s.metrics.RecordNotificationSend(channel, string(result.Status))
	if result.Status == adapter.SendStatusFailed {
		s.log.Warn("confirmation notification failed",
			zap.String("channel", channel),
			zap.String("error", result.Error))
	}
}
