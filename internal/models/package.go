package models

import (
	"database/sql/driver"
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// PACKAGE (sellable tour product)
// ============================================================================

// ItineraryDay is one day of a package programme
type ItineraryDay struct {
	Day         int           `json:"day"`
	Title       LocalizedText `json:"title"`
	Description LocalizedText `json:"description"`
}

// Itinerary is stored as JSONB
type Itinerary []ItineraryDay

func (i Itinerary) Value() (driver.Value, error) {
	if i == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(i)
}

func (i *Itinerary) Scan(src interface{}) error {
	return scanJSON(src, i, "Itinerary")
}

// Variation is an alternate fare product offered on the same package
type Variation struct {
	Name          LocalizedText `json:"name"`
	Price         float64       `json:"price"`
	ChildPrice    float64       `json:"childPrice"`
	Features      LocalizedList `json:"features,omitempty"`
	DiscountBadge string        `json:"discountBadge,omitempty"`
}

// Variations is stored as JSONB
type Variations []Variation

func (v Variations) Value() (driver.Value, error) {
	if v == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(v)
}

func (v *Variations) Scan(src interface{}) error {
	return scanJSON(src, v, "Variations")
}

// Package represents a tour package (called "ticket" by the public API)
type Package struct {
	ID             uuid.UUID     `json:"id" db:"id"`
	Title          LocalizedText `json:"title" db:"title"`
	Subtitle       LocalizedText `json:"subtitle" db:"subtitle"`
	Description    LocalizedText `json:"description" db:"description"`
	Location       string        `json:"location" db:"location"`
	Price          float64       `json:"price" db:"price"`
	ChildPrice     float64       `json:"childPrice" db:"child_price"`
	FullPrice      *float64      `json:"fullPrice,omitempty" db:"full_price"`
	Rating         float64       `json:"rating" db:"rating"`
	ReviewCount    int           `json:"reviewCount" db:"review_count"`
	ImageURL       string        `json:"image" db:"image_url"`
	Gallery        StringArray   `json:"gallery" db:"gallery"`
	AvailableSlots int           `json:"availableSlots" db:"available_slots"`
	Itinerary      Itinerary     `json:"itinerary" db:"itinerary"`
	Included       LocalizedList `json:"included" db:"included"`
	Variations     Variations    `json:"variations" db:"variations"`
	IsFeatured     bool          `json:"featured" db:"is_featured"`
	CreatedAt      time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time     `json:"updatedAt" db:"updated_at"`
}

// PackageFilter holds the catalog list query parameters
type PackageFilter struct {
	Location string
	Limit    int
	Featured bool
}

// Validate checks the fields a package needs to be sellable
func (p *Package) Validate() error {
	if len(p.Title) == 0 {
		return NewValidationError("title", "at least one locale is required")
	}
	for locale := range p.Title {
		if locale == "" {
			return NewValidationError("title", "locale code must not be empty")
		}
	}
	if p.Price < 0 {
		return NewValidationError("price", "must not be negative")
	}
	if p.ChildPrice < 0 {
		return NewValidationError("childPrice", "must not be negative")
	}
	if p.FullPrice != nil && *p.FullPrice < 0 {
		return NewValidationError("fullPrice", "must not be negative")
	}
	if p.AvailableSlots < 0 {
		return NewValidationError("availableSlots", "must not be negative")
	}
	if p.Rating < 0 || p.Rating > 5 {
		return NewValidationError("rating", "must be between 0 and 5")
	}
	if p.ReviewCount < 0 {
		return NewValidationError("reviewCount", "must not be negative")
	}
	for _, v := range p.Variations {
		if v.Price < 0 || v.ChildPrice < 0 {
			return NewValidationError("variations", "prices must not be negative")
		}
	}
	return nil
}

// QuoteTotal returns the amount due for the given passenger mix, rounded to cents
func (p *Package) QuoteTotal(adults, children int) float64 {
	total := float64(adults)*p.Price + float64(children)*p.ChildPrice
	return math.Round(total*100) / 100
}
