// Package seed bootstraps sample inventory so a fresh local install has
// something to book against. Production environments skip it.
package seed

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	bookingdomain "github.com/globetrotter-hq/globetrotter/internal/booking/domain"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var samplePackages = []struct {
	name     string
	capacity int
	price    string
	currency string
}{
	{"Maasai Mara Safari, 3 nights", 12, "899.00", "USD"},
	{"Zanzibar Beach Escape, 5 nights", 20, "1249.00", "USD"},
	{"Cape Town City Break, 4 nights", 16, "980.00", "USD"},
}

// EnsureSamplePackages inserts the sample travel packages if the inventory
// table is empty. Re-running is a no-op.
func EnsureSamplePackages(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&bookingdomain.TravelPackage{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		for _, p := range samplePackages {
			price, err := decimal.NewFromString(p.price)
			if err != nil {
				return err
			}
			pkg := &bookingdomain.TravelPackage{
				ID:       node.Generate(),
				Name:     p.name,
				Capacity: p.capacity,
				Price:    price,
				Currency: p.currency,
			}
			if err := tx.Create(pkg).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
