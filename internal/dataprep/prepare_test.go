package dataprep

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricecli/internal/pricing"
)

func day(d int) time.Time {
	return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d)
}

func sampleInputs() ([]SalesRecord, []pricing.CompetitorReference, []pricing.Product) {
	sales := []SalesRecord{
		{Date: day(0), ProductID: 1, Price: 10, UnitsSold: 5},
		{Date: day(1), ProductID: 1, Price: 10.5, UnitsSold: 0, IsStockout: true},
		{Date: day(2), ProductID: 1, Price: 11, UnitsSold: 3, IsPromo: true},
		{Date: day(0), ProductID: 2, Price: 20, UnitsSold: 7},
	}
	comp := []pricing.CompetitorReference{
		{Date: day(0), ProductID: 1, CompetitorPrice: 9.5},
		{Date: day(2), ProductID: 1, CompetitorPrice: 10.9},
		{Date: day(0), ProductID: 2, CompetitorPrice: 21},
	}
	catalog := []pricing.Product{
		{ProductID: 1, Name: "Widget", Category: "Home", Brand: "Astra", BaseCost: 6, BasePrice: 10},
		{ProductID: 2, Name: "Gadget", Category: "Sports", Brand: "Zephyr", BaseCost: 14, BasePrice: 20},
	}
	return sales, comp, catalog
}

func TestPrepareMergesAndFlags(t *testing.T) {
	sales, comp, catalog := sampleInputs()
	rows := Prepare(context.Background(), sales, comp, catalog)
	require.Len(t, rows, 4)

	// Sorted by (product, date)
	assert.Equal(t, 1, rows[0].ProductID)
	assert.Equal(t, 2, rows[3].ProductID)

	first := rows[0]
	assert.Equal(t, 9.5, first.CompetitorPrice)
	assert.Equal(t, 6.0, first.BaseCost)
	assert.Equal(t, 50.0, first.Revenue)
	assert.Equal(t, 20.0, first.Margin)
	assert.True(t, first.OKForElasticity)

	// Stockout day is never usable for elasticity
	assert.False(t, rows[1].OKForElasticity)
	// Missing competitor quote joins as zero
	assert.Zero(t, rows[1].CompetitorPrice)

	// 2025-03-01 is a Saturday
	assert.Equal(t, 5, first.DayOfWeek)
	assert.True(t, first.IsWeekend)
}

func TestPrepareRollingFeatures(t *testing.T) {
	var sales []SalesRecord
	for i := 0; i < 10; i++ {
		sales = append(sales, SalesRecord{Date: day(i), ProductID: 1, Price: 10, UnitsSold: i + 1})
	}
	rows := Prepare(context.Background(), sales, nil, nil)
	require.Len(t, rows, 10)

	assert.Nil(t, rows[0].Lag1Units)
	require.NotNil(t, rows[1].Lag1Units)
	assert.Equal(t, 1.0, *rows[1].Lag1Units)

	assert.Nil(t, rows[6].Lag7Units)
	require.NotNil(t, rows[7].Lag7Units)
	assert.Equal(t, 1.0, *rows[7].Lag7Units)

	// Mean of 1..7 at index 6
	assert.InDelta(t, 4.0, rows[6].Roll7Mean, 1e-12)
	// Window shrinks at the start of the series
	assert.InDelta(t, 1.5, rows[1].Roll14Mean, 1e-12)
}

func TestObservations(t *testing.T) {
	sales, comp, catalog := sampleInputs()
	rows := Prepare(context.Background(), sales, comp, catalog)
	obs := Observations(rows)
	require.Len(t, obs, 4)
	assert.Equal(t, rows[0].UnitsSold, obs[0].UnitsSold)
	assert.Equal(t, rows[0].OKForElasticity, obs[0].OKForElasticity)
}

func TestFutureCompetitorReference(t *testing.T) {
	forecast := []pricing.ForecastPoint{
		{Date: day(30), ProductID: 1, ForecastUnits: 5},
		{Date: day(30), ProductID: 9, ForecastUnits: 2},
	}
	comp := []pricing.CompetitorReference{
		{Date: day(0), ProductID: 1, CompetitorPrice: 9},
		{Date: day(2), ProductID: 1, CompetitorPrice: 11},
		{Date: day(1), ProductID: 2, CompetitorPrice: 20},
	}

	refs := FutureCompetitorReference(forecast, comp)
	require.Len(t, refs, 2)

	// Product 1 carries its last known quote forward
	assert.Equal(t, 11.0, refs[0].CompetitorPrice)
	// Product 9 was never quoted: global mean of (9+11+20)/3
	assert.InDelta(t, 40.0/3, refs[1].CompetitorPrice, 1e-9)

	assert.Nil(t, FutureCompetitorReference(forecast, nil))
}

func TestCleanCSVRoundTrip(t *testing.T) {
	sales, comp, catalog := sampleInputs()
	rows := Prepare(context.Background(), sales, comp, catalog)

	path := filepath.Join(t.TempDir(), "clean_data.csv")
	require.NoError(t, WriteClean(path, rows))

	loaded, err := LoadClean(path)
	require.NoError(t, err)
	require.Len(t, loaded, len(rows))

	for i := range rows {
		assert.True(t, rows[i].Date.Equal(loaded[i].Date), "row %d date", i)
		assert.Equal(t, rows[i].ProductID, loaded[i].ProductID)
		assert.Equal(t, rows[i].UnitsSold, loaded[i].UnitsSold)
		assert.InDelta(t, rows[i].Price, loaded[i].Price, 1e-9)
		assert.InDelta(t, rows[i].CompetitorPrice, loaded[i].CompetitorPrice, 1e-9)
		assert.Equal(t, rows[i].OKForElasticity, loaded[i].OKForElasticity)
	}
}

func TestWriteCleanPersistsDerivedColumns(t *testing.T) {
	sales, comp, catalog := sampleInputs()
	rows := Prepare(context.Background(), sales, comp, catalog)

	path := filepath.Join(t.TempDir(), "clean_data.csv")
	require.NoError(t, WriteClean(path, rows))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.GreaterOrEqual(t, len(lines), 2)

	header := strings.Split(lines[0], ",")
	assert.Equal(t, []string{
		"date", "product_id", "units_sold", "price", "competitor_price",
		"is_promo", "is_stockout", "base_cost", "base_price",
		"revenue", "margin",
		"dow", "is_weekend", "week", "month", "year",
		"lag1_units", "lag7_units", "roll7_units_mean", "roll14_units_mean",
		"ok_for_elasticity",
	}, header)

	// The first row of a product has no lag history: empty cells, not zeros
	first := strings.Split(lines[1], ",")
	require.Len(t, first, len(header))
	assert.Equal(t, "", first[16], "lag1_units of the first row")
	assert.Equal(t, "", first[17], "lag7_units of the first row")

	// Calendar and rolling columns carry the in-memory values
	assert.Equal(t, strconv.Itoa(rows[0].DayOfWeek), first[11])
	assert.Equal(t, strconv.Itoa(rows[0].Week), first[13])
	assert.Equal(t, strconv.Itoa(rows[0].Year), first[15])
	assert.Equal(t, strconv.FormatFloat(rows[0].Roll7Mean, 'f', -1, 64), first[18])
}
