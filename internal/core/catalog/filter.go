package catalog

import (
	"crypto/sha256"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Range is an inclusive [Min, Max] numeric bound.
type Range struct {
	Min float64
	Max float64
}

// UnboundedRange matches every value.
func UnboundedRange() Range {
	return Range{Min: math.Inf(-1), Max: math.Inf(1)}
}

func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

func (r Range) normalized() Range {
	if r.Min > r.Max {
		r.Min, r.Max = r.Max, r.Min
	}
	return r
}

// Predicate is the conjunction of filters a request applies to the catalog.
// An empty categorical set means "unrestricted", never "match nothing":
// no-selection in the caller is all-inclusive.
type Predicate struct {
	Brands       []string
	ProductTypes []string
	Platforms    []Platform

	Price    Range
	Rating   Range
	Discount Range
}

// NewPredicate returns a predicate with no restrictions.
func NewPredicate() Predicate {
	return Predicate{
		Price:    UnboundedRange(),
		Rating:   UnboundedRange(),
		Discount: UnboundedRange(),
	}
}

// Canonical returns the predicate in canonical form: sets deduplicated and
// sorted, ranges normalized so Min <= Max. Two semantically equal
// predicates canonicalize identically.
func (p Predicate) Canonical() Predicate {
	out := p
	out.Brands = dedupSorted(p.Brands)
	out.ProductTypes = dedupSorted(p.ProductTypes)
	out.Platforms = dedupSortedPlatforms(p.Platforms)
	out.Price = p.Price.normalized()
	out.Rating = p.Rating.normalized()
	out.Discount = p.Discount.normalized()
	return out
}

// Fingerprint returns a stable key for the predicate's semantic content.
// Input order of set elements does not affect the result.
func (p Predicate) Fingerprint() string {
	c := p.Canonical()

	var b strings.Builder
	b.WriteString("brands=")
	b.WriteString(strings.Join(c.Brands, "\x1f"))
	b.WriteString("|types=")
	b.WriteString(strings.Join(c.ProductTypes, "\x1f"))
	b.WriteString("|platforms=")
	for i, pl := range c.Platforms {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(pl.String())
	}
	fmt.Fprintf(&b, "|price=[%g,%g]|rating=[%g,%g]|discount=[%g,%g]",
		c.Price.Min, c.Price.Max,
		c.Rating.Min, c.Rating.Max,
		c.Discount.Min, c.Discount.Max,
	)

	return fmt.Sprintf("%x", sha256.Sum256([]byte(b.String())))
}

// Matches reports whether a single record satisfies the predicate.
// Used by the listing path; aggregation scans use Compile for speed.
func (p Predicate) Matches(r Record) bool {
	c := p.Canonical()
	if len(c.Brands) > 0 && !containsString(c.Brands, r.Brand) {
		return false
	}
	if len(c.ProductTypes) > 0 && !containsString(c.ProductTypes, r.ProductType) {
		return false
	}
	if len(c.Platforms) > 0 && !containsPlatform(c.Platforms, r.Platform) {
		return false
	}
	return c.Price.Contains(float64(r.PriceMinor)) &&
		c.Rating.Contains(r.Rating) &&
		c.Discount.Contains(r.Discount)
}

// Matcher is a predicate compiled against one snapshot's dictionaries.
// Categorical membership becomes an ID-indexed lookup, evaluated before the
// numeric range checks.
type Matcher struct {
	cols Columns

	brandAllowed []bool // nil when unrestricted
	typeAllowed  []bool
	platAllowed  [platformCount]bool
	platAny      bool

	price    Range
	rating   Range
	discount Range
}

// Compile resolves the predicate's set filters against snap's dictionaries.
// Names absent from the snapshot simply match no rows.
func (p Predicate) Compile(snap *Snapshot) *Matcher {
	c := p.Canonical()
	m := &Matcher{
		cols:     snap.Columns(),
		price:    c.Price,
		rating:   c.Rating,
		discount: c.Discount,
		platAny:  len(c.Platforms) == 0,
	}

	if len(c.Brands) > 0 {
		m.brandAllowed = make([]bool, len(snap.brandDict))
		for _, name := range c.Brands {
			if id, ok := snap.brandIndex[name]; ok {
				m.brandAllowed[id] = true
			}
		}
	}
	if len(c.ProductTypes) > 0 {
		m.typeAllowed = make([]bool, len(snap.typeDict))
		for _, name := range c.ProductTypes {
			if id, ok := snap.typeIndex[name]; ok {
				m.typeAllowed[id] = true
			}
		}
	}
	for _, pl := range c.Platforms {
		if pl < platformCount {
			m.platAllowed[pl] = true
		}
	}

	return m
}

// Matches reports whether row i satisfies the compiled predicate.
func (m *Matcher) Matches(i int) bool {
	if m.brandAllowed != nil && !m.brandAllowed[m.cols.BrandIDs[i]] {
		return false
	}
	if m.typeAllowed != nil && !m.typeAllowed[m.cols.TypeIDs[i]] {
		return false
	}
	if !m.platAny && !m.platAllowed[m.cols.Platforms[i]] {
		return false
	}
	return m.price.Contains(float64(m.cols.PriceMinor[i])) &&
		m.rating.Contains(m.cols.Ratings[i]) &&
		m.discount.Contains(m.cols.Discounts[i])
}

func dedupSorted(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func dedupSortedPlatforms(in []Platform) []Platform {
	if len(in) == 0 {
		return nil
	}
	var seen [platformCount]bool
	out := make([]Platform, 0, len(in))
	for _, p := range in {
		if p >= platformCount || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func containsString(sorted []string, s string) bool {
	i := sort.SearchStrings(sorted, s)
	return i < len(sorted) && sorted[i] == s
}

func containsPlatform(set []Platform, p Platform) bool {
	for _, candidate := range set {
		if candidate == p {
			return true
		}
	}
	return false
}
