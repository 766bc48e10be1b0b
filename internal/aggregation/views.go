package aggregation

import (
	"fmt"

	"github.com/shopspring/decimal"
)

func init() {
	// Money fields serialize as JSON numbers; the dashboard chart layer
	// parses them with parseFloat, not as strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// ViewKind names one kind of aggregate computation.
type ViewKind string

const (
	ViewKPI                    ViewKind = "kpi"
	ViewDistribution           ViewKind = "distribution"
	ViewBrandPerformance       ViewKind = "brand"
	ViewProductTypePerformance ViewKind = "product_type"
	ViewHeatmap                ViewKind = "heatmap"
	ViewScatter                ViewKind = "scatter"
)

// Distribution dimensions.
const (
	DimensionBrand    = "brand"
	DimensionCategory = "category"
)

// Heatmap metrics.
const (
	MetricUnits  = "units"
	MetricRating = "rating"
)

// Scatter series kinds.
const (
	SeriesPriceQuantity  = "price_quantity"
	SeriesDiscountRating = "discount_rating"
)

const (
	defaultDistributionLimit = 100
	maxPerformanceGroups     = 100
	maxScatterPoints         = 2000
)

// Request selects a view kind plus its per-kind knobs.
type Request struct {
	Kind ViewKind

	// Dimension selects the grouping for ViewDistribution: brand or category.
	Dimension string

	// Metric selects the cell value for ViewHeatmap: units or rating.
	Metric string

	// Series selects the point mapping for ViewScatter.
	Series string

	// Limit truncates ViewDistribution output after ordering. Zero or
	// negative means the default.
	Limit int
}

// Normalize fills kind-specific defaults and rejects unsupported knob
// values. Aggregate applies it internally; callers that build cache keys
// from a Request should normalize first so equivalent requests collide.
func (r Request) Normalize() (Request, error) {
	switch r.Kind {
	case ViewDistribution:
		if r.Dimension == "" {
			r.Dimension = DimensionBrand
		}
		if r.Dimension != DimensionBrand && r.Dimension != DimensionCategory {
			return r, fmt.Errorf("%w: distribution type %q", ErrUnknownView, r.Dimension)
		}
		if r.Limit <= 0 {
			r.Limit = defaultDistributionLimit
		}
	case ViewHeatmap:
		if r.Metric == "" {
			r.Metric = MetricUnits
		}
		if r.Metric != MetricUnits && r.Metric != MetricRating {
			return r, fmt.Errorf("%w: heatmap metric %q", ErrUnknownView, r.Metric)
		}
	case ViewScatter:
		if r.Series == "" {
			r.Series = SeriesPriceQuantity
		}
		if r.Series != SeriesPriceQuantity && r.Series != SeriesDiscountRating {
			return r, fmt.Errorf("%w: scatter type %q", ErrUnknownView, r.Series)
		}
	case ViewKPI, ViewBrandPerformance, ViewProductTypePerformance:
	default:
		return r, fmt.Errorf("%w: %q", ErrUnknownView, r.Kind)
	}
	return r, nil
}

// CacheKey returns a stable key covering every knob that affects the result.
func (r Request) CacheKey() string {
	return fmt.Sprintf("%s|dim=%s|metric=%s|series=%s|limit=%d",
		r.Kind, r.Dimension, r.Metric, r.Series, r.Limit)
}

// KPI is the headline summary over the filtered record set.
type KPI struct {
	TotalProducts  int             `json:"total_products"`
	TotalUnitsSold int64           `json:"total_units_sold"`
	RevenueProxy   decimal.Decimal `json:"revenue_proxy"`
	AvgPrice       decimal.Decimal `json:"avg_price"`
	AvgRating      float64         `json:"avg_rating"`
	AvgDiscount    float64         `json:"avg_discount"`
}

// DistributionEntry is one group of a grouped-count distribution.
type DistributionEntry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// BrandPerformance is the per-brand rollup.
type BrandPerformance struct {
	Brand     string          `json:"brand"`
	UnitsSold int64           `json:"units_sold"`
	Revenue   decimal.Decimal `json:"revenue"`
	AvgPrice  decimal.Decimal `json:"avg_price"`
	AvgRating float64         `json:"avg_rating"`
	Count     int             `json:"count"`
}

// ProductTypePerformance is the per-category rollup.
type ProductTypePerformance struct {
	ProductType string          `json:"product_type"`
	UnitsSold   int64           `json:"units_sold"`
	Revenue     decimal.Decimal `json:"revenue"`
	AvgPrice    decimal.Decimal `json:"avg_price"`
	Count       int             `json:"count"`
}

// HeatmapCell is one (brand, product type) cell. Cells with no matching
// records are omitted from the result, not emitted as zero.
type HeatmapCell struct {
	Brand       string  `json:"brand"`
	ProductType string  `json:"product_type"`
	Value       float64 `json:"value"`
}

// ScatterPoint is one record projected onto a chart axis pair.
type ScatterPoint struct {
	ID   string  `json:"id"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Name string  `json:"name"`
	Fill string  `json:"fill"`
}

// View is the tagged union of aggregate results. Exactly the member for
// Kind is populated; every member is well formed (possibly empty) even when
// no records match.
type View struct {
	Kind ViewKind

	KPI          *KPI
	Distribution []DistributionEntry
	Brands       []BrandPerformance
	ProductTypes []ProductTypePerformance
	Heatmap      []HeatmapCell
	Scatter      []ScatterPoint
}

// Payload returns the member to serialize for Kind.
func (v View) Payload() interface{} {
	switch v.Kind {
	case ViewKPI:
		return v.KPI
	case ViewDistribution:
		return v.Distribution
	case ViewBrandPerformance:
		return v.Brands
	case ViewProductTypePerformance:
		return v.ProductTypes
	case ViewHeatmap:
		return v.Heatmap
	case ViewScatter:
		return v.Scatter
	}
	return nil
}
