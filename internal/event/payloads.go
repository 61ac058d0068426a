package event

// Deposit records minted LP shares and the collateral pulled.
type Deposit struct {
	Account   string `json:"account"`
	RangeID   int32  `json:"range_id"`
	Shares    int64  `json:"shares"`
	Deposited int64  `json:"deposited"`
}

// Withdrawal records burned LP shares and the collateral paid out.
type Withdrawal struct {
	Account        string `json:"account"`
	RangeID        int32  `json:"range_id"`
	Shares         int64  `json:"shares"`
	Withdrawn      int64  `json:"withdrawn"`
	UseReservation bool   `json:"use_reservation"`
}

// Reservation records shares pre-committed for withdrawal.
type Reservation struct {
	Account string `json:"account"`
	RangeID int32  `json:"range_id"`
	Shares  int64  `json:"shares"`
}

// Trade records a committed buy or sell.
type Trade struct {
	Account     string `json:"account"`
	SeriesID    int64  `json:"series_id"`
	ExpiryID    int64  `json:"expiry_id"`
	IsSell      bool   `json:"is_sell"`
	Size        int64  `json:"size"`
	Spot        int64  `json:"spot"`
	RawPremium  int64  `json:"raw_premium"`
	BaseFee     int64  `json:"base_fee"`
	SpreadFee   int64  `json:"spread_fee"`
	ProtocolFee int64  `json:"protocol_fee"`
	Total       int64  `json:"total"`
	IVAfter     int64  `json:"iv_after"`
}

// Settlement records a finalized expiry.
type Settlement struct {
	ExpiryID       int64 `json:"expiry_id"`
	Price          int64 `json:"price"`
	TotalPayout    int64 `json:"total_payout"`
	TotalRefund    int64 `json:"total_refund"`
	TotalShortfall int64 `json:"total_shortfall"`
	FeesFolded     int64 `json:"fees_folded"`
}

// SpotPrice records an ingested oracle round.
type SpotPrice struct {
	RoundID   int64 `json:"round_id"`
	Price     int64 `json:"price"`
	Timestamp int64 `json:"timestamp"`
}

// ConfigUpdate records an operator parameter change.
type ConfigUpdate struct {
	Key   string `json:"key"`
	Value int64  `json:"value"`
}

// ExpiryCreated records a new expiry listing.
type ExpiryCreated struct {
	ExpiryID  int64 `json:"expiry_id"`
	Timestamp int64 `json:"timestamp"`
	InitialIV int64 `json:"initial_iv"`
}

// SeriesCreated records a new strike listing.
type SeriesCreated struct {
	SeriesID int64 `json:"series_id"`
	ExpiryID int64 `json:"expiry_id"`
	Strike   int64 `json:"strike"`
	IsPut    bool  `json:"is_put"`
}

// Hedge records a hedge book adjustment.
type Hedge struct {
	ExpiryID int64 `json:"expiry_id"`
	Delta    int64 `json:"delta"`
}

// StateChange records an emergency mode toggle.
type StateChange struct {
	Emergency bool `json:"emergency"`
}

// BotSet records a hedging bot designation.
type BotSet struct {
	Bot string `json:"bot"`
}

// OperatorSet records an operator role transfer.
type OperatorSet struct {
	Operator string `json:"operator"`
}

// DepositWindowSet records a deposit window deadline change.
type DepositWindowSet struct {
	Until int64 `json:"until"`
}

// LockupExemptionSet records a lockup allow-list change.
type LockupExemptionSet struct {
	Account string `json:"account"`
	Skip    bool   `json:"skip"`
}
