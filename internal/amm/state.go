package amm

import (
	"sort"

	"OptionAMM/internal/option"
	"OptionAMM/internal/oracle"
	"OptionAMM/internal/pool"
)

// CurveRecord is one expiry's IV frontier in exported form.
type CurveRecord struct {
	ExpiryID int64 `json:"expiry_id"`
	IV       int64 `json:"iv"`
}

// Export returns the IV frontiers sorted by expiry.
func (c *Curve) Export() []CurveRecord {
	out := make([]CurveRecord, 0, len(c.iv))
	for expiryID, iv := range c.iv {
		out = append(out, CurveRecord{ExpiryID: expiryID, IV: iv})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiryID < out[j].ExpiryID })
	return out
}

// Restore replaces the curve contents with a previously exported set.
func (c *Curve) Restore(records []CurveRecord) {
	c.iv = make(map[int64]int64, len(records))
	for _, r := range records {
		c.iv[r.ExpiryID] = r.IV
	}
}

// EngineState is the full engine state in snapshot form. Restoring it and
// replaying the event log from the snapshot sequence reproduces the live
// engine exactly.
type EngineState struct {
	Ledger pool.LedgerState    `json:"ledger"`
	Profit []pool.ProfitRecord `json:"profit"`
	Vault  option.VaultState   `json:"vault"`
	Rounds []oracle.Round      `json:"rounds"`
	Curve  []CurveRecord       `json:"curve"`

	Config              Config   `json:"config"`
	Operator            string   `json:"operator"`
	Bot                 string   `json:"bot,omitempty"`
	Emergency           bool     `json:"emergency,omitempty"`
	DepositAllowedUntil int64    `json:"deposit_allowed_until,omitempty"`
	SkipLockup          []string `json:"skip_lockup,omitempty"`

	Held         int64 `json:"held"`
	ProtocolFees int64 `json:"protocol_fees"`
}

// ExportState captures the engine for a snapshot. The output is byte-stable
// for identical state.
func (e *Engine) ExportState() EngineState {
	s := EngineState{
		Ledger:              e.ledger.ExportState(),
		Profit:              e.profit.ExportState(),
		Vault:               e.vault.ExportState(),
		Rounds:              e.feed.ExportRounds(),
		Curve:               e.curve.Export(),
		Config:              e.cfg,
		Operator:            e.operator,
		Bot:                 e.bot,
		Emergency:           e.emergency,
		DepositAllowedUntil: e.depositAllowedUntil,
		Held:                e.held,
		ProtocolFees:        e.protocolFees,
	}
	for account := range e.skipLockup {
		s.SkipLockup = append(s.SkipLockup, account)
	}
	sort.Strings(s.SkipLockup)
	return s
}

// RestoreState replaces the engine contents with a snapshot. The caller must
// not have applied any mutations beforehand.
func (e *Engine) RestoreState(s EngineState) {
	e.ledger.RestoreState(s.Ledger)
	e.profit.RestoreState(s.Profit)
	e.vault.RestoreState(s.Vault)
	e.feed.RestoreRounds(s.Rounds)
	e.curve.Restore(s.Curve)
	e.cfg = s.Config
	e.operator = s.Operator
	e.bot = s.Bot
	e.emergency = s.Emergency
	e.depositAllowedUntil = s.DepositAllowedUntil
	e.skipLockup = make(map[string]bool, len(s.SkipLockup))
	for _, account := range s.SkipLockup {
		e.skipLockup[account] = true
	}
	e.held = s.Held
	e.protocolFees = s.ProtocolFees
	e.checkInvariant("restore")
}
