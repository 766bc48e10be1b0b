package aggregation

import (
	"sort"

	"github.com/marketlens-lab/marketlens/internal/core/catalog"
	"github.com/shopspring/decimal"
)

// distributionComputer counts matching records per group of one categorical
// dimension. Group IDs index per-worker count arrays, so the hot loop is a
// single array increment.
type distributionComputer struct{}

type distPartial struct {
	groupIDs []int32
	counts   []int64
}

func (distributionComputer) newPartial(snap *catalog.Snapshot, req Request) partial {
	cols := snap.Columns()
	ids, size := cols.BrandIDs, len(snap.Brands())
	if req.Dimension == DimensionCategory {
		ids, size = cols.TypeIDs, len(snap.ProductTypes())
	}
	return &distPartial{groupIDs: ids, counts: make([]int64, size)}
}

func (p *distPartial) add(i int) {
	p.counts[p.groupIDs[i]]++
}

func (distributionComputer) finalize(partials []partial, snap *catalog.Snapshot, req Request) View {
	names := snap.Brands()
	if req.Dimension == DimensionCategory {
		names = snap.ProductTypes()
	}

	counts := make([]int64, len(names))
	for _, raw := range partials {
		p := raw.(*distPartial)
		for id, c := range p.counts {
			counts[id] += c
		}
	}

	entries := make([]DistributionEntry, 0, len(names))
	for id, c := range counts {
		if c > 0 {
			entries = append(entries, DistributionEntry{Name: names[id], Count: int(c)})
		}
	}

	// Count descending, name ascending on ties, for deterministic output.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Name < entries[j].Name
	})
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	return View{Kind: ViewDistribution, Distribution: entries}
}

// groupStats is the per-group accumulator shared by the brand and product
// type rollups.
type groupStats struct {
	units         int64
	revenueMinor  int64
	priceSumMinor int64
	ratingSum     float64
	count         int64
}

type rollupPartial struct {
	cols     catalog.Columns
	groupIDs []int32
	groups   []groupStats
}

func newRollupPartial(snap *catalog.Snapshot, byType bool) *rollupPartial {
	cols := snap.Columns()
	ids, size := cols.BrandIDs, len(snap.Brands())
	if byType {
		ids, size = cols.TypeIDs, len(snap.ProductTypes())
	}
	return &rollupPartial{cols: cols, groupIDs: ids, groups: make([]groupStats, size)}
}

func (p *rollupPartial) add(i int) {
	g := &p.groups[p.groupIDs[i]]
	price := p.cols.PriceMinor[i]
	units := p.cols.Units[i]

	g.units += units
	g.revenueMinor += price * units
	g.priceSumMinor += price
	g.ratingSum += p.cols.Ratings[i]
	g.count++
}

func mergeRollups(partials []partial) []groupStats {
	first := partials[0].(*rollupPartial)
	merged := make([]groupStats, len(first.groups))
	for _, raw := range partials {
		p := raw.(*rollupPartial)
		for id, g := range p.groups {
			m := &merged[id]
			m.units += g.units
			m.revenueMinor += g.revenueMinor
			m.priceSumMinor += g.priceSumMinor
			m.ratingSum += g.ratingSum
			m.count += g.count
		}
	}
	return merged
}

// groupAvgPrice is revenue / units sold, falling back to the plain mean
// price of the group when no units were sold.
func groupAvgPrice(g groupStats) decimal.Decimal {
	if g.units > 0 {
		return decimal.NewFromInt(g.revenueMinor).Div(decimal.NewFromInt(g.units)).Round(2)
	}
	if g.count > 0 {
		return decimal.NewFromInt(g.priceSumMinor).Div(decimal.NewFromInt(g.count)).Round(2)
	}
	return decimal.Zero
}

type brandComputer struct{}

func (brandComputer) newPartial(snap *catalog.Snapshot, _ Request) partial {
	return newRollupPartial(snap, false)
}

func (brandComputer) finalize(partials []partial, snap *catalog.Snapshot, _ Request) View {
	merged := mergeRollups(partials)
	names := snap.Brands()

	out := make([]BrandPerformance, 0, len(merged))
	revenueKey := make(map[string]int64, len(merged))
	for id, g := range merged {
		if g.count == 0 {
			continue
		}
		out = append(out, BrandPerformance{
			Brand:     names[id],
			UnitsSold: g.units,
			Revenue:   decimal.NewFromInt(g.revenueMinor),
			AvgPrice:  groupAvgPrice(g),
			AvgRating: g.ratingSum / float64(g.count),
			Count:     int(g.count),
		})
		revenueKey[names[id]] = g.revenueMinor
	}

	sort.Slice(out, func(i, j int) bool {
		ri, rj := revenueKey[out[i].Brand], revenueKey[out[j].Brand]
		if ri != rj {
			return ri > rj
		}
		return out[i].Brand < out[j].Brand
	})
	if len(out) > maxPerformanceGroups {
		out = out[:maxPerformanceGroups]
	}

	return View{Kind: ViewBrandPerformance, Brands: out}
}

type productTypeComputer struct{}

func (productTypeComputer) newPartial(snap *catalog.Snapshot, _ Request) partial {
	return newRollupPartial(snap, true)
}

func (productTypeComputer) finalize(partials []partial, snap *catalog.Snapshot, _ Request) View {
	merged := mergeRollups(partials)
	names := snap.ProductTypes()

	out := make([]ProductTypePerformance, 0, len(merged))
	revenueKey := make(map[string]int64, len(merged))
	for id, g := range merged {
		if g.count == 0 {
			continue
		}
		out = append(out, ProductTypePerformance{
			ProductType: names[id],
			UnitsSold:   g.units,
			Revenue:     decimal.NewFromInt(g.revenueMinor),
			AvgPrice:    groupAvgPrice(g),
			Count:       int(g.count),
		})
		revenueKey[names[id]] = g.revenueMinor
	}

	sort.Slice(out, func(i, j int) bool {
		ri, rj := revenueKey[out[i].ProductType], revenueKey[out[j].ProductType]
		if ri != rj {
			return ri > rj
		}
		return out[i].ProductType < out[j].ProductType
	})
	if len(out) > maxPerformanceGroups {
		out = out[:maxPerformanceGroups]
	}

	return View{Kind: ViewProductTypePerformance, ProductTypes: out}
}
