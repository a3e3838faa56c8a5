package metering

import (
	"math"

	"github.com/Bando358/neonmeter/internal/config"
	"github.com/Bando358/neonmeter/internal/metering/domain"
	"github.com/shopspring/decimal"
)

// EstimateCostCents estimates what Neon charges for the given metrics, in USD
// cents. Deterministic and side-effect-free.
func EstimateCostCents(m domain.Metrics, rates config.PricingRates) int64 {
	cost := m.ComputeUnitSeconds*rates.ComputeUnitSecond +
		m.RootBranchBytesMonth*rates.RootBranchByteMonth +
		m.ChildBranchBytesMonth*rates.ChildBranchByteMonth +
		m.InstantRestoreBytesMonth*rates.InstantRestoreByteMonth +
		m.WrittenDataBytes*rates.WrittenDataByte +
		m.PublicNetworkTransferBytes*rates.PublicNetworkTransferByte +
		m.PrivateNetworkTransfer*rates.PrivateNetworkTransfer +
		m.ExtraBranchesMonth*rates.ExtraBranchMonth

	return int64(math.Round(cost * 100))
}

// ApplyMarkup applies a percentage markup to a cost in cents, rounding to the
// nearest cent. Markup bounds are validated at company-configuration time;
// zero passes through unchanged.
func ApplyMarkup(costCents int64, markupPercent float64) int64 {
	factor := decimal.NewFromFloat(markupPercent).Div(decimal.NewFromInt(100)).Add(decimal.NewFromInt(1))
	return decimal.NewFromInt(costCents).Mul(factor).Round(0).IntPart()
}
