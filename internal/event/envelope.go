// Package event defines the AMM's event log vocabulary: one envelope type
// wrapping JSON payloads for every committed state mutation.
package event

import "time"

// Type discriminator for event payloads
type Type int32

const (
	TypeUnknown Type = iota
	TypeDeposit
	TypeWithdrawal
	TypeReservation
	TypeTrade
	TypeSettlement
	TypeSpotPrice
	TypeConfigUpdate
	TypeExpiryCreated
	TypeSeriesCreated
	TypeHedge
	TypeStateChange
	TypeBotSet
	TypeOperatorSet
	TypeDepositWindowSet
	TypeLockupExemptionSet
)

func (t Type) String() string {
	switch t {
	case TypeDeposit:
		return "Deposit"
	case TypeWithdrawal:
		return "Withdrawal"
	case TypeReservation:
		return "Reservation"
	case TypeTrade:
		return "Trade"
	case TypeSettlement:
		return "Settlement"
	case TypeSpotPrice:
		return "SpotPrice"
	case TypeConfigUpdate:
		return "ConfigUpdate"
	case TypeExpiryCreated:
		return "ExpiryCreated"
	case TypeSeriesCreated:
		return "SeriesCreated"
	case TypeHedge:
		return "Hedge"
	case TypeStateChange:
		return "StateChange"
	case TypeBotSet:
		return "BotSet"
	case TypeOperatorSet:
		return "OperatorSet"
	case TypeDepositWindowSet:
		return "DepositWindowSet"
	case TypeLockupExemptionSet:
		return "LockupExemptionSet"
	default:
		return "Unknown"
	}
}

// ParseType maps the stored string form back to the discriminator.
func ParseType(s string) Type {
	switch s {
	case "Deposit":
		return TypeDeposit
	case "Withdrawal":
		return TypeWithdrawal
	case "Reservation":
		return TypeReservation
	case "Trade":
		return TypeTrade
	case "Settlement":
		return TypeSettlement
	case "SpotPrice":
		return TypeSpotPrice
	case "ConfigUpdate":
		return TypeConfigUpdate
	case "ExpiryCreated":
		return TypeExpiryCreated
	case "SeriesCreated":
		return TypeSeriesCreated
	case "Hedge":
		return TypeHedge
	case "StateChange":
		return TypeStateChange
	case "BotSet":
		return TypeBotSet
	case "OperatorSet":
		return TypeOperatorSet
	case "DepositWindowSet":
		return TypeDepositWindowSet
	case "LockupExemptionSet":
		return TypeLockupExemptionSet
	default:
		return TypeUnknown
	}
}

// Envelope wraps every committed mutation in the event log.
type Envelope struct {
	// Global monotonic sequence assigned by the processor
	Sequence int64

	// Event type discriminator
	Type Type

	// Acting account ("" for feed/system events)
	Account string

	// Versioned input timestamp (NOT wall-clock)
	Timestamp time.Time

	// JSON-encoded event-specific payload
	Payload []byte

	// SHA-256 chain over (sequence, payload); PrevHash links to the
	// previous envelope for integrity checking on replay
	StateHash [32]byte
	PrevHash  [32]byte
}
