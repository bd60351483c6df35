// Package exporter persists pipeline outputs: one CSV per dataset in the
// layout downstream analysts expect, plus a combined Excel workbook.
package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"pricecli/internal/pricing"
)

// CSVWriter writes datasets beneath a fixed output directory
type CSVWriter struct {
	outDir string
}

// NewCSVWriter creates a CSV writer rooted at outDir
func NewCSVWriter(outDir string) *CSVWriter {
	return &CSVWriter{outDir: outDir}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // add a UTF-8 BOM for Excel compatibility
}

// WriteCSV writes data to a CSV file under the output directory
func (w *CSVWriter) WriteCSV(name string, options WriteOptions) error {
	fullPath := filepath.Join(w.outDir, name)

	slog.Info("Writing CSV file",
		slog.String("path", fullPath),
		slog.Int("record_count", len(options.Records)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if options.BOMPrefix {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	return writer.Error()
}

// Output file names
const (
	ElasticityFile     = "elasticity_results.csv"
	ForecastFile       = "forecast_demand.csv"
	RecommendationFile = "price_recommendations.csv"
	WorkbookFile       = "pricing_report.xlsx"
)

var (
	elasticityHeader     = []string{"product_id", "elasticity", "r2", "n", "p_value", "conf_low", "conf_high"}
	forecastHeader       = []string{"date", "product_id", "forecast_units"}
	recommendationHeader = []string{"date", "product_id", "recommended_price", "expected_profit", "baseline_units", "elasticity_used", "comp_price_ref"}
)

// WriteElasticity writes the elasticity estimates dataset.
// Undefined statistical fields serialize as empty cells, never as sentinels.
func (w *CSVWriter) WriteElasticity(estimates []pricing.ElasticityEstimate) error {
	records := make([][]string, 0, len(estimates))
	for _, e := range estimates {
		records = append(records, []string{
			strconv.Itoa(e.ProductID),
			optFloat(e.Elasticity),
			optFloat(e.RSquared),
			strconv.Itoa(e.SampleSize),
			optFloat(e.PValue),
			optFloat(e.ConfLow),
			optFloat(e.ConfHigh),
		})
	}
	return w.WriteCSV(ElasticityFile, WriteOptions{Headers: elasticityHeader, Records: records, BOMPrefix: true})
}

// WriteForecast writes the demand forecast dataset with ISO 8601 dates
func (w *CSVWriter) WriteForecast(points []pricing.ForecastPoint) error {
	records := make([][]string, 0, len(points))
	for _, p := range points {
		records = append(records, []string{
			p.Date.Format("2006-01-02"),
			strconv.Itoa(p.ProductID),
			floatCell(p.ForecastUnits),
		})
	}
	return w.WriteCSV(ForecastFile, WriteOptions{Headers: forecastHeader, Records: records, BOMPrefix: true})
}

// WriteRecommendations writes the price recommendation dataset
func (w *CSVWriter) WriteRecommendations(recs []pricing.PriceRecommendation) error {
	records := make([][]string, 0, len(recs))
	for _, r := range recs {
		records = append(records, []string{
			r.Date.Format("2006-01-02"),
			strconv.Itoa(r.ProductID),
			floatCell(r.RecommendedPrice),
			floatCell(r.ExpectedProfit),
			floatCell(r.BaselineUnits),
			optFloat(r.ElasticityUsed),
			optFloat(r.CompPriceRef),
		})
	}
	return w.WriteCSV(RecommendationFile, WriteOptions{Headers: recommendationHeader, Records: records, BOMPrefix: true})
}

func optFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return floatCell(*v)
}

func floatCell(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
