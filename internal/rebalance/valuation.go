package rebalance

import (
	"math"

	"github.com/atharvakonge/portfolio-rebalancer/internal/models"
)

// IsValid reports whether a holding takes part in monetary calculations
func IsValid(h models.Holding) bool {
	return h.Ticker != "" && h.Price > 0
}

// Value is the market value of a holding, always derived from shares and price
func Value(h models.Holding) float64 {
	return h.Shares * h.Price
}

// Revalue returns h with Value brought in line with Shares and Price
func Revalue(h models.Holding) models.Holding {
	h.Value = Value(h)
	return h
}

// roundShares rounds to the nearest whole share, halves toward +Inf
func roundShares(x float64) float64 {
	f := math.Floor(x)
	if x-f >= 0.5 {
		f++
	}
	return f
}
