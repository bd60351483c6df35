package dataprep

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"pricecli/internal/pricing"
)

// Prepare merges sales history with competitor prices and the catalog into
// clean observation rows and derives the modeling features:
// revenue/margin, calendar fields, unit lags, rolling means, and the
// ok_for_elasticity flag (a row is usable when the product was in stock and
// actually sold).
//
// Joins are left joins on the sales history: a sales row with no competitor
// quote keeps a zero competitor price, and one with no catalog entry keeps
// zero cost fields. Inputs are never mutated.
func Prepare(ctx context.Context, sales []SalesRecord, comp []pricing.CompetitorReference, catalog []pricing.Product) []CleanRow {
	type compKey struct {
		date string
		pid  int
	}
	compIdx := make(map[compKey]float64, len(comp))
	for _, c := range comp {
		compIdx[compKey{pricing.DateKey(c.Date), c.ProductID}] = c.CompetitorPrice
	}
	products := make(map[int]pricing.Product, len(catalog))
	for _, p := range catalog {
		products[p.ProductID] = p
	}

	rows := make([]CleanRow, 0, len(sales))
	for _, s := range sales {
		row := CleanRow{
			Date:       s.Date,
			ProductID:  s.ProductID,
			UnitsSold:  s.UnitsSold,
			Price:      s.Price,
			IsPromo:    s.IsPromo,
			IsStockout: s.IsStockout,
		}
		if cp, ok := compIdx[compKey{pricing.DateKey(s.Date), s.ProductID}]; ok {
			row.CompetitorPrice = cp
		}
		if p, ok := products[s.ProductID]; ok {
			row.BaseCost = p.BaseCost
			row.BasePrice = p.BasePrice
		}

		row.Revenue = round2(s.Price * float64(s.UnitsSold))
		row.Margin = round2((s.Price - row.BaseCost) * float64(s.UnitsSold))

		row.DayOfWeek = pythonWeekday(s.Date)
		row.IsWeekend = row.DayOfWeek >= 5
		_, row.Week = s.Date.ISOWeek()
		row.Month = int(s.Date.Month())
		row.Year = s.Date.Year()

		row.OKForElasticity = !s.IsStockout && s.UnitsSold > 0
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].ProductID != rows[j].ProductID {
			return rows[i].ProductID < rows[j].ProductID
		}
		return rows[i].Date.Before(rows[j].Date)
	})

	addRollingFeatures(rows)

	slog.Default().InfoContext(ctx, "prepared clean observation rows",
		"sales_rows", len(sales),
		"clean_rows", len(rows),
		"products", len(products),
	)
	return rows
}

// addRollingFeatures fills lag and rolling-mean columns in place. Rows must
// already be sorted by (product, date).
func addRollingFeatures(rows []CleanRow) {
	start := 0
	for start < len(rows) {
		end := start
		for end < len(rows) && rows[end].ProductID == rows[start].ProductID {
			end++
		}
		group := rows[start:end]
		for i := range group {
			if i >= 1 {
				v := float64(group[i-1].UnitsSold)
				group[i].Lag1Units = &v
			}
			if i >= 7 {
				v := float64(group[i-7].UnitsSold)
				group[i].Lag7Units = &v
			}
			group[i].Roll7Mean = trailingMean(group, i, 7)
			group[i].Roll14Mean = trailingMean(group, i, 14)
		}
		start = end
	}
}

// trailingMean averages units over the window ending at index i inclusive,
// shrinking at the start of the series
func trailingMean(group []CleanRow, i, window int) float64 {
	lo := i - window + 1
	if lo < 0 {
		lo = 0
	}
	var sum float64
	for j := lo; j <= i; j++ {
		sum += float64(group[j].UnitsSold)
	}
	return sum / float64(i-lo+1)
}

// Observations converts clean rows to the modeling core's input dataset
func Observations(rows []CleanRow) []pricing.Observation {
	obs := make([]pricing.Observation, len(rows))
	for i, r := range rows {
		obs[i] = r.Observation()
	}
	return obs
}

// FutureCompetitorReference builds the optimizer's competitor guardrail for
// forecast dates: each product carries its last known competitor price
// forward; products never quoted fall back to the global mean quote. An
// empty quote history yields no reference at all.
func FutureCompetitorReference(forecast []pricing.ForecastPoint, comp []pricing.CompetitorReference) []pricing.CompetitorReference {
	if len(comp) == 0 {
		return nil
	}

	last := make(map[int]pricing.CompetitorReference)
	var total float64
	for _, c := range comp {
		total += c.CompetitorPrice
		if prev, ok := last[c.ProductID]; !ok || c.Date.After(prev.Date) {
			last[c.ProductID] = c
		}
	}
	globalMean := total / float64(len(comp))

	out := make([]pricing.CompetitorReference, 0, len(forecast))
	for _, f := range forecast {
		price := globalMean
		if l, ok := last[f.ProductID]; ok {
			price = l.CompetitorPrice
		}
		out = append(out, pricing.CompetitorReference{
			Date:            f.Date,
			ProductID:       f.ProductID,
			CompetitorPrice: price,
		})
	}
	return out
}

// pythonWeekday maps time.Weekday onto the Monday=0..Sunday=6 convention the
// weekend flag is defined against
func pythonWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
