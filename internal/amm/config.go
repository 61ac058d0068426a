package amm

import "errors"

// Operator-settable config keys, matching the on-chain parameter names.
const (
	ConfigProtocolFeeRatio    = "PROTOCOL_FEE_RATIO"
	ConfigIVMoveDecreaseRatio = "IVMOVE_DECREASE_RATIO"
	ConfigMinDelta            = "MIN_DELTA"
	ConfigBaseSpread          = "BASE_SPREAD"
	ConfigBaseFeeRatio        = "BASE_FEE_RATIO"
)

// Time gates, in seconds.
const (
	// LockupPeriod is the minimum time an ordinary deposit stays before
	// withdrawal.
	LockupPeriod int64 = 14 * 24 * 60 * 60

	// WithdrawablePeriod is how long a reservation must age before the
	// reserved amount becomes withdrawable.
	WithdrawablePeriod int64 = 7 * 24 * 60 * 60
)

var ErrUnknownConfigKey = errors.New("amm: unknown config key")

// Config holds the operator-tunable parameters. Ratios are 1e8 == 100%.
type Config struct {
	ProtocolFeeRatio    int64 `json:"protocol_fee_ratio"`
	IVMoveDecreaseRatio int64 `json:"ivmove_decrease_ratio"`
	MinDelta            int64 `json:"min_delta"`
	BaseSpread          int64 `json:"base_spread"`
	BaseFeeRatio        int64 `json:"base_fee_ratio"`
}

// DefaultConfig mirrors the launch parameterization.
func DefaultConfig() Config {
	return Config{
		ProtocolFeeRatio:    10_000_000, // 10% of fees
		IVMoveDecreaseRatio: 80_000_000, // sells move IV at 80% of buy rate
		MinDelta:            1_000_000,  // 1% delta floor
		BaseSpread:          500_000,    // 0.5% of notional
		BaseFeeRatio:        1_000_000,  // 1% of raw premium
	}
}

// Set updates one parameter by key.
func (c *Config) Set(key string, value int64) error {
	switch key {
	case ConfigProtocolFeeRatio:
		c.ProtocolFeeRatio = value
	case ConfigIVMoveDecreaseRatio:
		c.IVMoveDecreaseRatio = value
	case ConfigMinDelta:
		c.MinDelta = value
	case ConfigBaseSpread:
		c.BaseSpread = value
	case ConfigBaseFeeRatio:
		c.BaseFeeRatio = value
	default:
		return ErrUnknownConfigKey
	}
	return nil
}

// Get reads one parameter by key.
func (c *Config) Get(key string) (int64, error) {
	switch key {
	case ConfigProtocolFeeRatio:
		return c.ProtocolFeeRatio, nil
	case ConfigIVMoveDecreaseRatio:
		return c.IVMoveDecreaseRatio, nil
	case ConfigMinDelta:
		return c.MinDelta, nil
	case ConfigBaseSpread:
		return c.BaseSpread, nil
	case ConfigBaseFeeRatio:
		return c.BaseFeeRatio, nil
	default:
		return 0, ErrUnknownConfigKey
	}
}

// FeeModel derives the fee model from the current parameters.
func (c *Config) FeeModel() FeeModel {
	return FeeModel{
		BaseFeeRatio:     c.BaseFeeRatio,
		BaseSpread:       c.BaseSpread,
		ProtocolFeeRatio: c.ProtocolFeeRatio,
	}
}
