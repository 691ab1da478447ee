package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type BookingStatus string

const (
	StatusPending   BookingStatus = "PENDING"
	StatusConfirmed BookingStatus = "CONFIRMED"
	StatusCancelled BookingStatus = "CANCELLED"
)

var ErrNotFound = errors.New("booking not found")

type Booking struct {
	ID            snowflake.ID      `json:"id" gorm:"primaryKey"`
	Reference     string            `json:"reference" gorm:"type:text;not null;uniqueIndex"`
	PackageID     *snowflake.ID     `json:"package_id" gorm:"index"`
	CustomerName  string            `json:"customer_name" gorm:"type:text"`
	CustomerEmail string            `json:"customer_email" gorm:"type:text"`
	CustomerPhone string            `json:"customer_phone" gorm:"type:text"`
	Status        BookingStatus     `json:"status" gorm:"type:text;not null;index"`
	TotalAmount   decimal.Decimal   `json:"total_amount" gorm:"type:decimal(12,2);not null"`
	Currency      string            `json:"currency" gorm:"type:text;not null"`
	Metadata      datatypes.JSONMap `json:"metadata" gorm:"type:jsonb"`
	ConfirmedAt   *time.Time        `json:"confirmed_at"`
	CreatedAt     time.Time         `json:"created_at" gorm:"not null"`
	UpdatedAt     time.Time         `json:"updated_at" gorm:"not null"`
}

func (Booking) TableName() string { return "bookings" }

// TravelPackage is the sellable inventory a booking draws from. Capacity is
// decremented when a booking confirms and never goes below zero.
type TravelPackage struct {
	ID        snowflake.ID    `json:"id" gorm:"primaryKey"`
	Name      string          `json:"name" gorm:"type:text;not null"`
	Capacity  int             `json:"capacity" gorm:"not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	Currency  string          `json:"currency" gorm:"type:text;not null"`
	CreatedAt time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time       `json:"updated_at" gorm:"not null"`
}

func (TravelPackage) TableName() string { return "travel_packages" }
