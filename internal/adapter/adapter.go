package adapter

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Customer identifies the paying or travelling customer as far as a provider
// needs to know them.
type Customer struct {
	Email string
	Phone string
	Name  string
}

type ReturnURLs struct {
	Success string
	Cancel  string
}

type CheckoutRequest struct {
	Amount     decimal.Decimal
	Currency   string
	Customer   Customer
	Metadata   map[string]string
	ReturnURLs ReturnURLs
}

// CheckoutSession is the normalized result of a hosted-checkout initiation.
// Raw carries the untouched provider response for audit purposes; orchestration
// code must only read the typed fields.
type CheckoutSession struct {
	SessionID string
	URL       string
	TxnRef    string
	Raw       map[string]any
}

type RefundRequest struct {
	TxnRef string
	// Amount nil means a full refund.
	Amount *decimal.Decimal
	Reason string
}

type RefundResult struct {
	RefundID string
	Status   string
	Amount   decimal.Decimal
	Currency string
	Raw      map[string]any
}

// Canonical webhook event types shared by all payment adapters.
const (
	EventPaymentSucceeded = "payment_succeeded"
	EventPaymentFailed    = "payment_failed"
	EventPaymentCanceled  = "payment_canceled"
)

// WebhookEvent is the canonical shape a payment adapter normalizes a
// provider-initiated callback into.
type WebhookEvent struct {
	Type      string
	EventID   string
	Status    string
	Amount    decimal.Decimal
	Currency  string
	TxnRef    string
	PaymentID string
	Raw       map[string]any
}

// PaymentAdapter is the operation set every payment provider implements.
type PaymentAdapter interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)
	ParseWebhook(payload []byte, headers Headers) (*WebhookEvent, error)
}

// WebhookVerifier is declared by adapters that can cryptographically verify
// webhook payloads. Verification must report false on malformed input rather
// than panic; the unconfigured-secret policy is provider specific.
type WebhookVerifier interface {
	VerifyWebhook(payload []byte, headers Headers) bool
}

type SendStatus string

const (
	SendStatusSent   SendStatus = "SENT"
	SendStatusQueued SendStatus = "QUEUED"
	SendStatusFailed SendStatus = "FAILED"
)

// SendResult reports a notification attempt. Failures are captured in the
// result, never returned as errors, so a notification problem cannot abort a
// caller's larger flow.
type SendResult struct {
	Status     SendStatus
	ProviderID string
	Error      string
	Raw        map[string]any
}

type SmsMessage struct {
	To       string
	Message  string
	SenderID string
}

type SmsAdapter interface {
	SendSMS(ctx context.Context, msg SmsMessage) SendResult
}

type EmailMessage struct {
	To      []string
	Subject string
	HTML    string
	Text    string
	From    string
}

type EmailAdapter interface {
	SendEmail(ctx context.Context, msg EmailMessage) SendResult
}

type PushMessage struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

type PushAdapter interface {
	SendPush(ctx context.Context, msg PushMessage) SendResult
}

type FlightSearchRequest struct {
	Origin      string
	Destination string
	DepartDate  string
	ReturnDate  string
	Adults      int
	Cabin       string
}

// FlightSegment is one leg of an itinerary with IATA endpoints and UTC times.
type FlightSegment struct {
	CarrierCode  string
	FlightNumber string
	Origin       string
	Destination  string
	DepartureAt  time.Time
	ArrivalAt    time.Time
}

// FlightOffer is the normalized shape extracted from heterogeneous provider
// search responses.
type FlightOffer struct {
	OfferID     string
	CarrierCode string
	CarrierName string
	Segments    []FlightSegment
	Duration    time.Duration
	Stops       int
	PriceTotal  decimal.Decimal
	Currency    string
	Raw         map[string]any
}

// FlightSearchResult carries well-formed offers plus the count of upstream
// items that were dropped during normalization.
type FlightSearchResult struct {
	Offers  []FlightOffer
	Skipped int
	Raw     map[string]any
}

type FlightPrice struct {
	OfferID  string
	Total    decimal.Decimal
	Currency string
	Raw      map[string]any
}

type Passenger struct {
	Type      string
	FirstName string
	LastName  string
	BirthDate string
}

type FlightBooking struct {
	Locator string
	Status  string
	Raw     map[string]any
}

type PNR struct {
	Locator   string
	Status    string
	Itinerary map[string]any
	Raw       map[string]any
}

type FlightsAdapter interface {
	Search(ctx context.Context, req FlightSearchRequest) (*FlightSearchResult, error)
	Price(ctx context.Context, offerID string) (*FlightPrice, error)
	Book(ctx context.Context, offerID string, passengers []Passenger, contact Customer) (*FlightBooking, error)
	GetPNR(ctx context.Context, locator, lastName string) (*PNR, error)
}

type GeocodeResult struct {
	FormattedAddress string
	Lat              float64
	Lng              float64
	PlaceID          string
	Raw              map[string]any
}

type Place struct {
	Name    string
	Address string
	PlaceID string
	Lat     float64
	Lng     float64
	Raw     map[string]any
}

type DistanceMatrix struct {
	Rows []DistanceRow
	Raw  map[string]any
}

type DistanceRow struct {
	Elements []DistanceElement
}

type DistanceElement struct {
	DistanceMeters  int64
	DurationSeconds int64
	Status          string
}

type MapsAdapter interface {
	Geocode(ctx context.Context, query string) ([]GeocodeResult, error)
	ReverseGeocode(ctx context.Context, lat, lng float64) (*GeocodeResult, error)
	Places(ctx context.Context, query string, lat, lng *float64) ([]Place, error)
	DistanceMatrix(ctx context.Context, origins, destinations []string, mode string) (*DistanceMatrix, error)
	// StaticMapURL builds a static map URL without a network call.
	StaticMapURL(lat, lng float64, zoom, width, height int) string
}
