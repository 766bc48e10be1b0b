package aggregation

import (
	"github.com/marketlens-lab/marketlens/internal/core/catalog"
	"github.com/shopspring/decimal"
)

type kpiComputer struct{}

type kpiPartial struct {
	cols catalog.Columns

	count         int64
	units         int64
	revenueMinor  int64
	priceSumMinor int64
	ratingSum     float64
	discountSum   float64
}

func (kpiComputer) newPartial(snap *catalog.Snapshot, _ Request) partial {
	return &kpiPartial{cols: snap.Columns()}
}

func (p *kpiPartial) add(i int) {
	price := p.cols.PriceMinor[i]
	units := p.cols.Units[i]

	p.count++
	p.units += units
	p.revenueMinor += price * units
	p.priceSumMinor += price
	p.ratingSum += p.cols.Ratings[i]
	p.discountSum += p.cols.Discounts[i]
}

func (kpiComputer) finalize(partials []partial, _ *catalog.Snapshot, _ Request) View {
	total := kpiPartial{}
	for _, raw := range partials {
		p := raw.(*kpiPartial)
		total.count += p.count
		total.units += p.units
		total.revenueMinor += p.revenueMinor
		total.priceSumMinor += p.priceSumMinor
		total.ratingSum += p.ratingSum
		total.discountSum += p.discountSum
	}

	kpi := &KPI{
		TotalProducts:  int(total.count),
		TotalUnitsSold: total.units,
		RevenueProxy:   decimal.NewFromInt(total.revenueMinor),
		AvgPrice:       decimal.Zero,
	}
	// Means over zero matching records are defined as 0, not NaN.
	if total.count > 0 {
		n := decimal.NewFromInt(total.count)
		kpi.AvgPrice = decimal.NewFromInt(total.priceSumMinor).Div(n).Round(2)
		kpi.AvgRating = total.ratingSum / float64(total.count)
		kpi.AvgDiscount = total.discountSum / float64(total.count)
	}

	return View{Kind: ViewKPI, KPI: kpi}
}
