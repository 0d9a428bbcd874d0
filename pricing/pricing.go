// Package pricing implements the deterministic fare formula.
// It is a pure function: same inputs always produce the same output, no
// I/O, no clock, no randomness.
package pricing

import (
	"math"

	"github.com/motocabz/dispatch-core/domain"
)

const (
	// BaseFare, PerKM and PerMinute are minor-currency-unit rates.
	BaseFare  = 500
	PerKM     = 150
	PerMinute = 0.6

	heavyThresholdGrams  = 5000
	heavyRatePerKG       = 100
	bulkyThresholdM3     = 0.2
	bulkySurcharge       = 500
	fragileSurcharge     = 300

	minDriverRemuneration = 300
	minClientFee          = 500

	driverShareOfBase = 0.5
	driverShareOfRest = 0.95
	clientFeeMarkup   = 1.05
)

// Quote is the priced output of a single order.
type Quote struct {
	ClientFee          int64
	DriverRemuneration int64
}

// Price computes {client_fee, driver_remuneration} for one order. Steps
// apply in order: base cost, weight and volume surcharges, fragile
// surcharge, then the remuneration/fee splits with their floors.
func Price(distanceMeters, durationSeconds float64, packages []domain.PackageItem) Quote {
	km := distanceMeters / 1000
	minutes := durationSeconds / 60

	cost := BaseFare + km*PerKM + minutes*PerMinute

	totalWeightG, totalVolumeM3, hasFragile := aggregate(packages)

	if totalWeightG > heavyThresholdGrams {
		cost += (totalWeightG - heavyThresholdGrams) / 1000 * heavyRatePerKG
	}
	if totalVolumeM3 > bulkyThresholdM3 {
		cost += bulkySurcharge
	}
	if hasFragile {
		cost += fragileSurcharge
	}

	driverRemuneration := int64(math.Round(driverShareOfBase*BaseFare + (cost-BaseFare)*driverShareOfRest))
	if driverRemuneration < minDriverRemuneration {
		driverRemuneration = minDriverRemuneration
	}

	clientFee := int64(math.Round(cost * clientFeeMarkup))
	if clientFee < minClientFee {
		clientFee = minClientFee
	}

	return Quote{ClientFee: clientFee, DriverRemuneration: driverRemuneration}
}

// aggregate sums weight/volume across packages and reports whether any
// package mentions "fragile" — the fragile surcharge applies at most once
// regardless of how many fragile packages are in the order.
func aggregate(packages []domain.PackageItem) (weightG, volumeM3 float64, fragile bool) {
	for _, p := range packages {
		qty := float64(p.Quantity)
		if qty <= 0 {
			qty = 1
		}
		if p.WeightG != nil {
			weightG += *p.WeightG * qty
		}
		if p.DepthCM != nil && p.WidthCM != nil && p.HeightCM != nil {
			volumeM3 += (*p.DepthCM * *p.WidthCM * *p.HeightCM / 1_000_000) * qty
		}
		if p.MentionWarning != nil && *p.MentionWarning == "fragile" {
			fragile = true
		}
	}
	return weightG, volumeM3, fragile
}
