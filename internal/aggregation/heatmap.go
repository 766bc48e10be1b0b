package aggregation

import (
	"sort"

	"github.com/marketlens-lab/marketlens/internal/core/catalog"
)

// heatmapComputer aggregates over (brand, product type) pairs. The pair
// space is flattened into one array indexed by brandID*numTypes+typeID, so
// the hot loop stays free of map operations.
type heatmapComputer struct{}

type heatCell struct {
	units     int64
	ratingSum float64
	count     int64
}

type heatmapPartial struct {
	cols     catalog.Columns
	numTypes int
	cells    []heatCell
}

func (heatmapComputer) newPartial(snap *catalog.Snapshot, _ Request) partial {
	numTypes := len(snap.ProductTypes())
	return &heatmapPartial{
		cols:     snap.Columns(),
		numTypes: numTypes,
		cells:    make([]heatCell, len(snap.Brands())*numTypes),
	}
}

func (p *heatmapPartial) add(i int) {
	idx := int(p.cols.BrandIDs[i])*p.numTypes + int(p.cols.TypeIDs[i])
	c := &p.cells[idx]
	c.units += p.cols.Units[i]
	c.ratingSum += p.cols.Ratings[i]
	c.count++
}

func (heatmapComputer) finalize(partials []partial, snap *catalog.Snapshot, req Request) View {
	numTypes := len(snap.ProductTypes())
	merged := make([]heatCell, len(snap.Brands())*numTypes)
	for _, raw := range partials {
		p := raw.(*heatmapPartial)
		for idx, c := range p.cells {
			if c.count > 0 {
				m := &merged[idx]
				m.units += c.units
				m.ratingSum += c.ratingSum
				m.count += c.count
			}
		}
	}

	brands := snap.Brands()
	types := snap.ProductTypes()

	cells := make([]HeatmapCell, 0)
	for idx, c := range merged {
		if c.count == 0 {
			continue // empty cells are omitted, not emitted as zero
		}
		value := float64(c.units)
		if req.Metric == MetricRating {
			value = c.ratingSum / float64(c.count)
		}
		cells = append(cells, HeatmapCell{
			Brand:       brands[idx/numTypes],
			ProductType: types[idx%numTypes],
			Value:       value,
		})
	}

	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Brand != cells[j].Brand {
			return cells[i].Brand < cells[j].Brand
		}
		return cells[i].ProductType < cells[j].ProductType
	})

	return View{Kind: ViewHeatmap, Heatmap: cells}
}
