package query

import (
	"net/url"
	"strconv"

	"github.com/marketlens-lab/marketlens/internal/core/catalog"
)

// ParsePredicate builds a typed predicate from raw query parameters.
// The contract is deliberately forgiving: malformed numeric bounds are
// ignored (the dimension stays unrestricted), duplicate set values are
// deduplicated, and unknown platform names are dropped. A request with no
// recognizable filters yields the unrestricted predicate.
func ParsePredicate(params url.Values) catalog.Predicate {
	p := catalog.NewPredicate()

	p.Brands = params["brand"]
	p.ProductTypes = params["product_type"]
	for _, raw := range params["platform"] {
		if platform, ok := catalog.ParsePlatform(raw); ok {
			p.Platforms = append(p.Platforms, platform)
		}
	}

	if v, ok := parseBound(params, "min_price"); ok {
		p.Price.Min = v
	}
	if v, ok := parseBound(params, "max_price"); ok {
		p.Price.Max = v
	}
	if v, ok := parseBound(params, "min_rating"); ok {
		p.Rating.Min = v
	}
	if v, ok := parseBound(params, "max_rating"); ok {
		p.Rating.Max = v
	}
	if v, ok := parseBound(params, "min_discount"); ok {
		p.Discount.Min = normalizeDiscount(v)
	}
	if v, ok := parseBound(params, "max_discount"); ok {
		p.Discount.Max = normalizeDiscount(v)
	}

	return p.Canonical()
}

func parseBound(params url.Values, name string) (float64, bool) {
	raw := params.Get(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// normalizeDiscount accepts either a fraction (0.15) or a percentage (15)
// and returns the fraction. Callers sending sliders in percent get the
// same semantics as ones sending fractions.
func normalizeDiscount(v float64) float64 {
	if v > 1.0 {
		return v / 100.0
	}
	return v
}
