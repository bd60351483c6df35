package dataprep

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"pricecli/internal/pricing"
)

var dateFormats = []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339}

// LoadCatalog reads the product catalog CSV.
// Expected columns: product_id,product_name,category,brand,base_cost,base_price
func LoadCatalog(path string) ([]pricing.Product, error) {
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	var products []pricing.Product
	for i, rec := range records {
		if len(rec) < 6 {
			return nil, fmt.Errorf("catalog line %d: expected 6 columns, got %d", i+2, len(rec))
		}
		pid, err := parseInt(rec[0], "product_id", i+2)
		if err != nil {
			return nil, err
		}
		cost, err := parseFloat(rec[4], "base_cost", i+2)
		if err != nil {
			return nil, err
		}
		price, err := parseFloat(rec[5], "base_price", i+2)
		if err != nil {
			return nil, err
		}
		products = append(products, pricing.Product{
			ProductID: pid,
			Name:      strings.TrimSpace(rec[1]),
			Category:  strings.TrimSpace(rec[2]),
			Brand:     strings.TrimSpace(rec[3]),
			BaseCost:  cost,
			BasePrice: price,
		})
	}
	return products, nil
}

// LoadSales reads the sales history CSV.
// Expected columns: date,product_id,price,is_promo,is_stockout,units_sold[,...]
// Trailing derived columns (revenue, margin) are ignored; they are recomputed
// during preparation.
func LoadSales(path string) ([]SalesRecord, error) {
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	var sales []SalesRecord
	for i, rec := range records {
		if len(rec) < 6 {
			return nil, fmt.Errorf("sales line %d: expected at least 6 columns, got %d", i+2, len(rec))
		}
		date, err := parseDate(rec[0], i+2)
		if err != nil {
			return nil, err
		}
		pid, err := parseInt(rec[1], "product_id", i+2)
		if err != nil {
			return nil, err
		}
		price, err := parseFloat(rec[2], "price", i+2)
		if err != nil {
			return nil, err
		}
		promo, err := parseFlag(rec[3], "is_promo", i+2)
		if err != nil {
			return nil, err
		}
		stockout, err := parseFlag(rec[4], "is_stockout", i+2)
		if err != nil {
			return nil, err
		}
		units, err := parseInt(rec[5], "units_sold", i+2)
		if err != nil {
			return nil, err
		}
		sales = append(sales, SalesRecord{
			Date:       date,
			ProductID:  pid,
			Price:      price,
			IsPromo:    promo,
			IsStockout: stockout,
			UnitsSold:  units,
		})
	}
	return sales, nil
}

// LoadCompetitorPrices reads the competitor price CSV.
// Expected columns: date,product_id,competitor_price
func LoadCompetitorPrices(path string) ([]pricing.CompetitorReference, error) {
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	var refs []pricing.CompetitorReference
	for i, rec := range records {
		if len(rec) < 3 {
			return nil, fmt.Errorf("competitor line %d: expected 3 columns, got %d", i+2, len(rec))
		}
		date, err := parseDate(rec[0], i+2)
		if err != nil {
			return nil, err
		}
		pid, err := parseInt(rec[1], "product_id", i+2)
		if err != nil {
			return nil, err
		}
		price, err := parseFloat(rec[2], "competitor_price", i+2)
		if err != nil {
			return nil, err
		}
		refs = append(refs, pricing.CompetitorReference{Date: date, ProductID: pid, CompetitorPrice: price})
	}
	return refs, nil
}

// cleanHeader is the column set written to and read from clean_data.csv.
// Derived columns are persisted too, so the file stands alone for
// downstream analysis; lag cells are empty when no prior row exists.
var cleanHeader = []string{
	"date", "product_id", "units_sold", "price", "competitor_price",
	"is_promo", "is_stockout", "base_cost", "base_price",
	"revenue", "margin",
	"dow", "is_weekend", "week", "month", "year",
	"lag1_units", "lag7_units", "roll7_units_mean", "roll14_units_mean",
	"ok_for_elasticity",
}

// WriteClean persists the clean observation rows as CSV
func WriteClean(path string, rows []CleanRow) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create clean CSV: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(cleanHeader); err != nil {
		return fmt.Errorf("write clean header: %w", err)
	}
	for _, r := range rows {
		rec := []string{
			r.Date.Format("2006-01-02"),
			strconv.Itoa(r.ProductID),
			strconv.Itoa(r.UnitsSold),
			formatFloat(r.Price),
			formatFloat(r.CompetitorPrice),
			flag(r.IsPromo),
			flag(r.IsStockout),
			formatFloat(r.BaseCost),
			formatFloat(r.BasePrice),
			formatFloat(r.Revenue),
			formatFloat(r.Margin),
			strconv.Itoa(r.DayOfWeek),
			flag(r.IsWeekend),
			strconv.Itoa(r.Week),
			strconv.Itoa(r.Month),
			strconv.Itoa(r.Year),
			optFloat(r.Lag1Units),
			optFloat(r.Lag7Units),
			formatFloat(r.Roll7Mean),
			formatFloat(r.Roll14Mean),
			flag(r.OKForElasticity),
		}
		if err := writer.Write(rec); err != nil {
			return fmt.Errorf("write clean row: %w", err)
		}
	}
	return writer.Error()
}

// LoadClean reads a previously written clean_data.csv back into clean rows.
// Rolling features are recomputed rather than parsed.
func LoadClean(path string) ([]CleanRow, error) {
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	var rows []CleanRow
	for i, rec := range records {
		if len(rec) < len(cleanHeader) {
			return nil, fmt.Errorf("clean line %d: expected %d columns, got %d", i+2, len(cleanHeader), len(rec))
		}
		date, err := parseDate(rec[0], i+2)
		if err != nil {
			return nil, err
		}
		pid, err := parseInt(rec[1], "product_id", i+2)
		if err != nil {
			return nil, err
		}
		units, err := parseInt(rec[2], "units_sold", i+2)
		if err != nil {
			return nil, err
		}
		price, err := parseFloat(rec[3], "price", i+2)
		if err != nil {
			return nil, err
		}
		comp, err := parseFloat(rec[4], "competitor_price", i+2)
		if err != nil {
			return nil, err
		}
		promo, err := parseFlag(rec[5], "is_promo", i+2)
		if err != nil {
			return nil, err
		}
		stockout, err := parseFlag(rec[6], "is_stockout", i+2)
		if err != nil {
			return nil, err
		}
		cost, err := parseFloat(rec[7], "base_cost", i+2)
		if err != nil {
			return nil, err
		}
		base, err := parseFloat(rec[8], "base_price", i+2)
		if err != nil {
			return nil, err
		}
		ok, err := parseFlag(rec[len(cleanHeader)-1], "ok_for_elasticity", i+2)
		if err != nil {
			return nil, err
		}
		row := CleanRow{
			Date:            date,
			ProductID:       pid,
			UnitsSold:       units,
			Price:           price,
			CompetitorPrice: comp,
			IsPromo:         promo,
			IsStockout:      stockout,
			BaseCost:        cost,
			BasePrice:       base,
			OKForElasticity: ok,
		}
		row.Revenue = round2(price * float64(units))
		row.Margin = round2((price - cost) * float64(units))
		row.DayOfWeek = pythonWeekday(date)
		row.IsWeekend = row.DayOfWeek >= 5
		_, row.Week = date.ISOWeek()
		row.Month = int(date.Month())
		row.Year = date.Year()
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].ProductID != rows[j].ProductID {
			return rows[i].ProductID < rows[j].ProductID
		}
		return rows[i].Date.Before(rows[j].Date)
	})
	addRollingFeatures(rows)
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read CSV records: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty CSV file: %s", path)
	}

	// First row is assumed to be a header when its second cell is not numeric
	if len(records[0]) > 1 {
		if _, err := strconv.ParseFloat(strings.TrimSpace(records[0][1]), 64); err != nil {
			return records[1:], nil
		}
	}
	slog.Warn("CSV file has no recognizable header row", "path", path)
	return records, nil
}

func parseDate(s string, line int) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse date %q (line %d)", s, line)
}

func parseInt(s, field string, line int) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse %s %q (line %d): %w", field, s, line, err)
	}
	return v, nil
}

func parseFloat(s, field string, line int) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q (line %d): %w", field, s, line, err)
	}
	return v, nil
}

func parseFlag(s, field string, line int) (bool, error) {
	switch strings.TrimSpace(s) {
	case "0", "false", "":
		return false, nil
	case "1", "true":
		return true, nil
	}
	return false, fmt.Errorf("parse %s %q (line %d): expected 0/1", field, s, line)
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// optFloat renders a nil-able value, leaving the cell empty when undefined
func optFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
