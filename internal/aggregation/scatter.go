package aggregation

import (
	"github.com/marketlens-lab/marketlens/internal/core/catalog"
)

// scatterPalette colors points by their group in first-encounter order,
// matching what the chart layer expects for series coloring.
var scatterPalette = []string{"#3B82F6", "#10B981", "#F59E0B", "#8B5CF6", "#EC4899"}

// scatterComputer emits one point per matching record. Workers collect row
// indices for their own chunk; concatenating partials in chunk order
// restores row order, which keeps sampling deterministic for a given
// (generation, predicate).
type scatterComputer struct{}

type scatterPartial struct {
	rows []int
}

func (scatterComputer) newPartial(_ *catalog.Snapshot, _ Request) partial {
	return &scatterPartial{}
}

func (p *scatterPartial) add(i int) {
	p.rows = append(p.rows, i)
}

func (scatterComputer) finalize(partials []partial, snap *catalog.Snapshot, req Request) View {
	total := 0
	for _, raw := range partials {
		total += len(raw.(*scatterPartial).rows)
	}
	rows := make([]int, 0, total)
	for _, raw := range partials {
		rows = append(rows, raw.(*scatterPartial).rows...)
	}

	// Stride sampling, never random: identical requests against the same
	// generation must return identical output.
	if len(rows) > maxScatterPoints {
		stride := (len(rows) + maxScatterPoints - 1) / maxScatterPoints
		sampled := make([]int, 0, maxScatterPoints)
		for i := 0; i < len(rows); i += stride {
			sampled = append(sampled, rows[i])
		}
		rows = sampled
	}

	cols := snap.Columns()
	brands := snap.Brands()
	types := snap.ProductTypes()

	fills := make(map[string]string)
	fillFor := func(name string) string {
		if fill, ok := fills[name]; ok {
			return fill
		}
		fill := scatterPalette[len(fills)%len(scatterPalette)]
		fills[name] = fill
		return fill
	}

	points := make([]ScatterPoint, 0, len(rows))
	for _, i := range rows {
		var pt ScatterPoint
		pt.ID = cols.IDs[i]
		switch req.Series {
		case SeriesDiscountRating:
			pt.X = cols.Discounts[i] * 100 // percentage on the axis
			pt.Y = cols.Ratings[i]
			pt.Name = brands[cols.BrandIDs[i]]
		default: // SeriesPriceQuantity
			pt.X = float64(cols.PriceMinor[i])
			pt.Y = float64(cols.Units[i])
			pt.Name = types[cols.TypeIDs[i]]
		}
		pt.Fill = fillFor(pt.Name)
		points = append(points, pt)
	}

	return View{Kind: ViewScatter, Scatter: points}
}
