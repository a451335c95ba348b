package services

import (
	"math"

	"chat-meter/models"
)

// Pricing is a static linear token price with a fixed display-currency rate.
type Pricing struct {
	PricePer1K float64 // USD per 1000 tokens
	FXRate     float64 // display currency units per USD
}

var DefaultPricing = Pricing{PricePer1K: 0.01, FXRate: 32}

// Cost returns usd = round(tokens*price/1000, 6) and twd = round(usd*fx, 4).
func (p Pricing) Cost(tokens int) models.Cost {
	if tokens < 0 {
		tokens = 0
	}
	usd := Round(float64(tokens)*p.PricePer1K/1000, 6)
	return models.Cost{
		Tokens: tokens,
		USD:    usd,
		TWD:    Round(usd*p.FXRate, 4),
	}
}

// Round rounds half away from zero to the given number of decimal places.
func Round(x float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(x*pow) / pow
}

// ledger amounts are whole micro-dollars so charge and refund cancel exactly
const microsPerUSD = 1_000_000

func toMicros(usd float64) int64 {
	return int64(math.Round(usd * microsPerUSD))
}

func fromMicros(m int64) float64 {
	return float64(m) / microsPerUSD
}
