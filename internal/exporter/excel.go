package exporter

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"

	"pricecli/internal/pricing"
)

// WriteWorkbook writes the three pipeline outputs into one Excel workbook,
// one sheet per dataset, for analysts who review recommendations outside
// the CSV tooling.
func (w *CSVWriter) WriteWorkbook(
	estimates []pricing.ElasticityEstimate,
	forecast []pricing.ForecastPoint,
	recs []pricing.PriceRecommendation,
) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeSheet(f, "Elasticity", elasticityHeader, elasticityRows(estimates)); err != nil {
		return err
	}
	if err := writeSheet(f, "Forecast", forecastHeader, forecastRows(forecast)); err != nil {
		return err
	}
	if err := writeSheet(f, "Recommendations", recommendationHeader, recommendationRows(recs)); err != nil {
		return err
	}

	// Drop the default sheet excelize creates
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}

	fullPath := filepath.Join(w.outDir, WorkbookFile)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := f.SaveAs(fullPath); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, name string, header []string, rows [][]interface{}) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}

	headerCells := make([]interface{}, len(header))
	for i, h := range header {
		headerCells[i] = h
	}
	if err := f.SetSheetRow(name, "A1", &headerCells); err != nil {
		return fmt.Errorf("write header of %s: %w", name, err)
	}

	for i, row := range rows {
		cell := "A" + strconv.Itoa(i+2)
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("write row %d of %s: %w", i+2, name, err)
		}
	}
	return nil
}

func elasticityRows(estimates []pricing.ElasticityEstimate) [][]interface{} {
	rows := make([][]interface{}, 0, len(estimates))
	for _, e := range estimates {
		rows = append(rows, []interface{}{
			e.ProductID,
			optCell(e.Elasticity),
			optCell(e.RSquared),
			e.SampleSize,
			optCell(e.PValue),
			optCell(e.ConfLow),
			optCell(e.ConfHigh),
		})
	}
	return rows
}

func forecastRows(points []pricing.ForecastPoint) [][]interface{} {
	rows := make([][]interface{}, 0, len(points))
	for _, p := range points {
		rows = append(rows, []interface{}{
			p.Date.Format("2006-01-02"),
			p.ProductID,
			p.ForecastUnits,
		})
	}
	return rows
}

func recommendationRows(recs []pricing.PriceRecommendation) [][]interface{} {
	rows := make([][]interface{}, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, []interface{}{
			r.Date.Format("2006-01-02"),
			r.ProductID,
			r.RecommendedPrice,
			r.ExpectedProfit,
			r.BaselineUnits,
			optCell(r.ElasticityUsed),
			optCell(r.CompPriceRef),
		})
	}
	return rows
}

func optCell(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
