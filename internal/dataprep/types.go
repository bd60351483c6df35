// Package dataprep merges the raw input datasets (sales history, competitor
// prices, product catalog) into the clean observation set the modeling
// pipeline consumes, deriving the usability flags and rolling features along
// the way. It is thin glue: all statistical work lives in internal/pricing.
package dataprep

import (
	"time"

	"pricecli/internal/pricing"
)

// SalesRecord is one raw row of the sales history input
type SalesRecord struct {
	Date       time.Time `json:"date"`
	ProductID  int       `json:"product_id"`
	Price      float64   `json:"price"`
	IsPromo    bool      `json:"is_promo"`
	IsStockout bool      `json:"is_stockout"`
	UnitsSold  int       `json:"units_sold"`
}

// CleanRow is one merged, feature-engineered observation row.
// Lag fields are nil when there is no prior row to draw from.
type CleanRow struct {
	Date            time.Time `json:"date"`
	ProductID       int       `json:"product_id"`
	UnitsSold       int       `json:"units_sold"`
	Price           float64   `json:"price"`
	CompetitorPrice float64   `json:"competitor_price"`
	IsPromo         bool      `json:"is_promo"`
	IsStockout      bool      `json:"is_stockout"`
	BaseCost        float64   `json:"base_cost"`
	BasePrice       float64   `json:"base_price"`

	Revenue   float64 `json:"revenue"`
	Margin    float64 `json:"margin"`
	DayOfWeek int     `json:"dow"`
	IsWeekend bool    `json:"is_weekend"`
	Week      int     `json:"week"`
	Month     int     `json:"month"`
	Year      int     `json:"year"`

	Lag1Units  *float64 `json:"lag1_units"`
	Lag7Units  *float64 `json:"lag7_units"`
	Roll7Mean  float64  `json:"roll7_units_mean"`
	Roll14Mean float64  `json:"roll14_units_mean"`

	OKForElasticity bool `json:"ok_for_elasticity"`
}

// Observation converts a clean row into the modeling core's input type
func (r CleanRow) Observation() pricing.Observation {
	return pricing.Observation{
		Date:            r.Date,
		ProductID:       r.ProductID,
		UnitsSold:       r.UnitsSold,
		Price:           r.Price,
		CompetitorPrice: r.CompetitorPrice,
		IsPromo:         r.IsPromo,
		OKForElasticity: r.OKForElasticity,
	}
}
