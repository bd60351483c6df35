// Package datagen produces a deterministic synthetic retail dataset for
// demo runs and tests: a product catalog, a daily sales history, and a daily
// competitor price series. Prices follow coupled random walks, demand is
// Poisson-distributed with a promo lift, and the same seed always yields the
// same dataset.
package datagen

import (
	"math"
	"math/rand"
	"strconv"
	"time"

	"pricecli/internal/dataprep"
	"pricecli/internal/pricing"
)

// DefaultSeed keeps demo data identical across runs
const DefaultSeed = 42

// Params controls the shape of the generated dataset
type Params struct {
	Seed         int64
	Days         int
	Products     int
	Start        time.Time
	PromoRate    float64 // probability of a promo day
	StockoutRate float64 // probability of a stockout day
}

// DefaultParams mirrors the reference demo dataset: 30 products over 240
// days starting 2024-12-01
func DefaultParams() Params {
	return Params{
		Seed:         DefaultSeed,
		Days:         240,
		Products:     30,
		Start:        time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
		PromoRate:    0.06,
		StockoutRate: 0.02,
	}
}

var (
	categories = []string{"Electronics", "Home & Kitchen", "Beauty", "Sports", "Books"}
	brands     = []string{"Astra", "Novac", "Zephyr", "Lumio", "Kairo", "Vanta"}
)

// Dataset bundles the three generated inputs
type Dataset struct {
	Catalog          []pricing.Product
	Sales            []dataprep.SalesRecord
	CompetitorPrices []pricing.CompetitorReference
}

// Generate builds a synthetic dataset from the given parameters
func Generate(params Params) Dataset {
	rng := rand.New(rand.NewSource(params.Seed))

	catalog := make([]pricing.Product, 0, params.Products)
	for pid := 1; pid <= params.Products; pid++ {
		baseCost := roundCents(50 + rng.Float64()*1450)
		basePrice := roundCents(baseCost * (1.15 + rng.Float64()*0.45))
		catalog = append(catalog, pricing.Product{
			ProductID: pid,
			Name:      productName(pid),
			Category:  categories[rng.Intn(len(categories))],
			Brand:     brands[rng.Intn(len(brands))],
			BaseCost:  baseCost,
			BasePrice: basePrice,
		})
	}

	var sales []dataprep.SalesRecord
	var comp []pricing.CompetitorReference
	for _, p := range catalog {
		compPrice := p.BasePrice * (0.9 + rng.Float64()*0.15)
		price := p.BasePrice
		for d := 0; d < params.Days; d++ {
			date := params.Start.AddDate(0, 0, d)

			// Competitor walks randomly; our price chases it
			compPrice += rng.NormFloat64() * p.BasePrice * 0.002
			price += 0.2*(compPrice-price) + rng.NormFloat64()*p.BasePrice*0.001
			price = math.Max(price, p.BaseCost*1.1)
			compPrice = math.Max(compPrice, p.BaseCost*1.05)

			promo := rng.Float64() < params.PromoRate
			stockout := rng.Float64() < params.StockoutRate

			meanDemand := 20 + rng.NormFloat64()*2
			if promo {
				meanDemand += 10
			}
			if meanDemand < 0 {
				meanDemand = 0
			}
			units := 0
			if !stockout {
				units = poisson(rng, meanDemand)
			}

			sales = append(sales, dataprep.SalesRecord{
				Date:       date,
				ProductID:  p.ProductID,
				Price:      roundCents(price),
				IsPromo:    promo,
				IsStockout: stockout,
				UnitsSold:  units,
			})
			comp = append(comp, pricing.CompetitorReference{
				Date:            date,
				ProductID:       p.ProductID,
				CompetitorPrice: roundCents(compPrice),
			})
		}
	}

	return Dataset{Catalog: catalog, Sales: sales, CompetitorPrices: comp}
}

// poisson draws from a Poisson distribution by Knuth's multiplication
// method; fine for the small means used here
func poisson(rng *rand.Rand, mean float64) int {
	if mean <= 0 {
		return 0
	}
	limit := math.Exp(-mean)
	k := 0
	p := 1.0
	for {
		p *= rng.Float64()
		if p <= limit {
			return k
		}
		k++
	}
}

func productName(pid int) string {
	return "Prod " + strconv.Itoa(pid)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
