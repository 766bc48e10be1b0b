package query

import (
	"net/url"

	"github.com/marketlens-lab/marketlens/internal/aggregation"
	"github.com/marketlens-lab/marketlens/internal/core/catalog"
)

const maxProductListing = 100

// Service is the query orchestrator: it turns raw request parameters into a
// typed predicate, dispatches to the aggregation engine through the view
// cache, and shapes the response payloads.
type Service struct {
	store  *catalog.Store
	engine *aggregation.Engine
	cache  *aggregation.ViewCache
}

func NewService(store *catalog.Store, engine *aggregation.Engine, cache *aggregation.ViewCache) *Service {
	return &Service{
		store:  store,
		engine: engine,
		cache:  cache,
	}
}

// View computes (or serves from cache) the requested aggregate view for the
// filters in params against the current catalog generation.
func (s *Service) View(req aggregation.Request, params url.Values) (aggregation.View, error) {
	req, err := req.Normalize()
	if err != nil {
		return aggregation.View{}, err
	}

	snap, err := s.store.Snapshot()
	if err != nil {
		return aggregation.View{}, err
	}

	pred := ParsePredicate(params)
	key := req.CacheKey() + "#" + pred.Fingerprint()

	return s.cache.GetOrCompute(snap.Generation(), key, func() (aggregation.View, error) {
		return s.engine.Aggregate(req, pred, snap)
	})
}

// ProductRow is one catalog record in listing responses.
type ProductRow struct {
	ID             string  `json:"id"`
	Brand          string  `json:"brand"`
	ProductType    string  `json:"product_type"`
	SourcePlatform string  `json:"source_platform"`
	PriceEffective int64   `json:"price_effective"`
	QuantitySold   int64   `json:"quantity_sold"`
	Rating         float64 `json:"rating"`
	Discount       float64 `json:"discount"`
}

// Products returns the first matching records, bounded at 100 rows.
// Listings are not memoized: they are cheap single scans with an early exit.
func (s *Service) Products(params url.Values) ([]ProductRow, error) {
	snap, err := s.store.Snapshot()
	if err != nil {
		return nil, err
	}

	matcher := ParsePredicate(params).Compile(snap)
	out := make([]ProductRow, 0)
	for i := 0; i < snap.Len() && len(out) < maxProductListing; i++ {
		if !matcher.Matches(i) {
			continue
		}
		rec := snap.Record(i)
		out = append(out, ProductRow{
			ID:             rec.ID,
			Brand:          rec.Brand,
			ProductType:    rec.ProductType,
			SourcePlatform: rec.Platform.String(),
			PriceEffective: rec.PriceMinor,
			QuantitySold:   rec.UnitsSold,
			Rating:         rec.Rating,
			Discount:       rec.Discount,
		})
	}
	return out, nil
}
