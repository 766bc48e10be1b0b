package catalog

import (
	"fmt"
	"strings"
)

// Platform identifies the marketplace a record was scraped from.
type Platform uint8

const (
	PlatformUnknown Platform = iota
	PlatformTikTok
	PlatformShopee
	PlatformTokopedia
	PlatformLazada
	PlatformBlibli

	platformCount
)

var platformNames = [platformCount]string{
	PlatformUnknown:   "unknown",
	PlatformTikTok:    "tiktok",
	PlatformShopee:    "shopee",
	PlatformTokopedia: "tokopedia",
	PlatformLazada:    "lazada",
	PlatformBlibli:    "blibli",
}

func (p Platform) String() string {
	if p >= platformCount {
		return "unknown"
	}
	return platformNames[p]
}

// ParsePlatform maps a source platform name to its enum value.
// Matching is case-insensitive; unrecognized names report ok=false.
func ParsePlatform(s string) (Platform, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for p, name := range platformNames {
		if p != int(PlatformUnknown) && name == s {
			return Platform(p), true
		}
	}
	return PlatformUnknown, false
}

// Record is one row of the product-sale catalog.
// Prices are carried in integer minor currency units. Records are immutable
// once loaded into a snapshot.
type Record struct {
	// ID is the opaque stable identifier of the listing.
	ID string

	Brand       string
	ProductType string
	Platform    Platform

	// PriceMinor is the effective sale price in minor currency units.
	PriceMinor int64

	UnitsSold int64

	// Rating is the average review score, 0.0-5.0.
	Rating float64

	// Discount is the discount fraction, 0.0-1.0.
	Discount float64
}

// Validate checks the record invariants. Rows that fail validation are
// dropped at snapshot build time, never repaired.
func (r *Record) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("id is required")
	}
	if r.PriceMinor < 0 {
		return fmt.Errorf("price must be >= 0, got %d", r.PriceMinor)
	}
	if r.UnitsSold < 0 {
		return fmt.Errorf("units_sold must be >= 0, got %d", r.UnitsSold)
	}
	if r.Rating < 0 || r.Rating > 5 {
		return fmt.Errorf("rating must be within [0, 5], got %g", r.Rating)
	}
	if r.Discount < 0 || r.Discount > 1 {
		return fmt.Errorf("discount must be within [0, 1], got %g", r.Discount)
	}
	return nil
}
