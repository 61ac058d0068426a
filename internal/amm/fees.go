package amm

import (
	fpmath "OptionAMM/internal/math"
)

// FeeModel computes the trade fee split. All ratios are 1e8 == 100%.
type FeeModel struct {
	BaseFeeRatio     int64 // applied to the raw premium
	BaseSpread       int64 // applied to trade notional (size * spot)
	ProtocolFeeRatio int64 // share of the total fee routed to the fee pool
}

// TradeFee is the fee breakdown for one trade, in collateral units.
type TradeFee struct {
	BaseFee     int64
	SpreadFee   int64
	ProtocolFee int64
}

// Total returns baseFee + spreadFee.
func (f TradeFee) Total() int64 {
	return f.BaseFee + f.SpreadFee
}

// PoolFee returns the portion accruing to tick profit state.
func (f TradeFee) PoolFee() int64 {
	return f.Total() - f.ProtocolFee
}

// Calculate computes the fee for a trade with the given raw premium
// (collateral units), size (8 decimals) and spot (8 decimals). The spread
// component scales with notional so large trades pay a wider spread.
func (m FeeModel) Calculate(rawPremium, size, spot int64) TradeFee {
	base := fpmath.MulDiv(rawPremium, m.BaseFeeRatio, fpmath.RatioScale, true)

	notional8 := fpmath.MulDiv(size, spot, fpmath.AmountScale, false)
	notional := fpmath.Scale(notional8, fpmath.PriceDecimals, fpmath.CollateralDecimals)
	spread := fpmath.MulDiv(notional, m.BaseSpread, fpmath.RatioScale, true)

	fee := TradeFee{BaseFee: base, SpreadFee: spread}
	fee.ProtocolFee = fpmath.MulDiv(fee.Total(), m.ProtocolFeeRatio, fpmath.RatioScale, false)
	return fee
}
