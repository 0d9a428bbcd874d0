package pricing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/motocabz/dispatch-core/domain"
)

func weight(g float64) *float64 { return &g }
func warning(s string) *string  { return &s }

func TestPrice_HappyPathS1(t *testing.T) {
	packages := []domain.PackageItem{
		{WeightG: weight(2000), Quantity: 1},
	}
	q := Price(2000, 360, packages)
	require.Equal(t, int64(844), q.ClientFee)
	require.Equal(t, int64(538), q.DriverRemuneration)
}

func TestPrice_FragileSurchargeAppliesOncePerOrder(t *testing.T) {
	fragile := warning("fragile")
	noFragile := Price(1000, 60, []domain.PackageItem{
		{WeightG: weight(500), Quantity: 1},
		{WeightG: weight(500), Quantity: 1},
	})
	oneFragile := Price(1000, 60, []domain.PackageItem{
		{WeightG: weight(500), Quantity: 1, MentionWarning: fragile},
		{WeightG: weight(500), Quantity: 1},
	})
	twoFragile := Price(1000, 60, []domain.PackageItem{
		{WeightG: weight(500), Quantity: 1, MentionWarning: fragile},
		{WeightG: weight(500), Quantity: 1, MentionWarning: fragile},
	})
	require.Equal(t, oneFragile.ClientFee, twoFragile.ClientFee, "fragile surcharge must not compound")
	require.Equal(t, int64(315), oneFragile.ClientFee-noFragile.ClientFee, "surcharge of 300 scaled by the 1.05 markup")
}

func TestPrice_FloorsAreEnforced(t *testing.T) {
	q := Price(0, 0, nil)
	require.GreaterOrEqual(t, q.ClientFee, int64(500))
	require.GreaterOrEqual(t, q.DriverRemuneration, int64(300))
}

func TestPrice_HeavyAndBulkySurcharges(t *testing.T) {
	base := Price(1000, 60, nil)
	heavy := Price(1000, 60, []domain.PackageItem{{WeightG: weight(6000), Quantity: 1}})
	require.Greater(t, heavy.ClientFee, base.ClientFee)

	depth, width, height := 100.0, 100.0, 100.0 // 1 m^3, over the 0.2 m^3 threshold
	bulky := Price(1000, 60, []domain.PackageItem{{DepthCM: &depth, WidthCM: &width, HeightCM: &height, Quantity: 1}})
	require.Greater(t, bulky.ClientFee, base.ClientFee)
}
