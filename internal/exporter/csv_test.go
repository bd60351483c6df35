package exporter

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"pricecli/internal/pricing"
)

func ptr(v float64) *float64 { return &v }

var expDate = time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

func readBack(t *testing.T, path string) [][]string {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	content := strings.TrimPrefix(string(raw), "\xef\xbb\xbf")
	records, err := csv.NewReader(strings.NewReader(content)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteElasticity(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(dir)

	estimates := []pricing.ElasticityEstimate{
		{ProductID: 1, Elasticity: ptr(-1.234), RSquared: ptr(0.9), SampleSize: 60, PValue: ptr(0.001), ConfLow: ptr(-1.5), ConfHigh: ptr(-0.97)},
		{ProductID: 2, SampleSize: 12},
	}
	require.NoError(t, w.WriteElasticity(estimates))

	records := readBack(t, filepath.Join(dir, ElasticityFile))
	require.Len(t, records, 3)
	assert.Equal(t, []string{"product_id", "elasticity", "r2", "n", "p_value", "conf_low", "conf_high"}, records[0])
	assert.Equal(t, "-1.234", records[1][1])

	// Undefined fields stay empty, not zero
	assert.Equal(t, []string{"2", "", "", "12", "", "", ""}, records[2])
}

func TestWriteForecast(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(dir)

	points := []pricing.ForecastPoint{
		{Date: expDate, ProductID: 3, ForecastUnits: 21.5},
		{Date: expDate.AddDate(0, 0, 1), ProductID: 3, ForecastUnits: 0},
	}
	require.NoError(t, w.WriteForecast(points))

	records := readBack(t, filepath.Join(dir, ForecastFile))
	require.Len(t, records, 3)
	assert.Equal(t, []string{"2025-07-01", "3", "21.5"}, records[1])
	assert.Equal(t, []string{"2025-07-02", "3", "0"}, records[2])
}

func TestWriteRecommendations(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(dir)

	recs := []pricing.PriceRecommendation{
		{Date: expDate, ProductID: 5, RecommendedPrice: 12.34, ExpectedProfit: 567.89, BaselineUnits: 100.123, ElasticityUsed: ptr(-1.0), CompPriceRef: ptr(12.0)},
		{Date: expDate, ProductID: 6, RecommendedPrice: 9.99, ExpectedProfit: 50, BaselineUnits: 10, ElasticityUsed: ptr(-2.5)},
	}
	require.NoError(t, w.WriteRecommendations(recs))

	records := readBack(t, filepath.Join(dir, RecommendationFile))
	require.Len(t, records, 3)
	assert.Equal(t, "12.34", records[1][2])
	assert.Equal(t, "12", records[1][6])
	// No competitor reference serializes as an empty cell
	assert.Equal(t, "", records[2][6])
}

func TestWriteWorkbook(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(dir)

	estimates := []pricing.ElasticityEstimate{{ProductID: 1, Elasticity: ptr(-1.1), SampleSize: 45}}
	forecast := []pricing.ForecastPoint{{Date: expDate, ProductID: 1, ForecastUnits: 12}}
	recs := []pricing.PriceRecommendation{{Date: expDate, ProductID: 1, RecommendedPrice: 10, ExpectedProfit: 100, BaselineUnits: 12, ElasticityUsed: ptr(-1.1)}}

	require.NoError(t, w.WriteWorkbook(estimates, forecast, recs))

	f, err := excelize.OpenFile(filepath.Join(dir, WorkbookFile))
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{"Elasticity", "Forecast", "Recommendations"}, f.GetSheetList())

	cell, err := f.GetCellValue("Recommendations", "C2")
	require.NoError(t, err)
	assert.Equal(t, "10", cell)
}
