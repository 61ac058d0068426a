package pool

import "sort"

// PositionRecord is one LP position in exported form.
type PositionRecord struct {
	Account  string   `json:"account"`
	RangeID  int32    `json:"range_id"`
	Position Position `json:"position"`
}

// LedgerState is the exported form of the tick arena and all LP positions.
type LedgerState struct {
	Ticks     []Tick           `json:"ticks"` // index 0 == MinTick
	Positions []PositionRecord `json:"positions"`
}

// ExportState captures the ledger for a snapshot. Positions are sorted so the
// output is byte-stable across runs.
func (l *Ledger) ExportState() LedgerState {
	s := LedgerState{
		Ticks:     make([]Tick, 0, MaxTick),
		Positions: make([]PositionRecord, 0, len(l.positions)),
	}
	for i := MinTick; i <= MaxTick; i++ {
		s.Ticks = append(s.Ticks, l.ticks[i])
	}
	for key, p := range l.positions {
		s.Positions = append(s.Positions, PositionRecord{
			Account:  key.Account,
			RangeID:  key.RangeID,
			Position: *p,
		})
	}
	sort.Slice(s.Positions, func(i, j int) bool {
		if s.Positions[i].Account != s.Positions[j].Account {
			return s.Positions[i].Account < s.Positions[j].Account
		}
		return s.Positions[i].RangeID < s.Positions[j].RangeID
	})
	return s
}

// RestoreState replaces the ledger contents with a previously exported state.
func (l *Ledger) RestoreState(s LedgerState) {
	l.ticks = [MaxTick + 1]Tick{}
	for i, t := range s.Ticks {
		idx := MinTick + int32(i)
		if idx > MaxTick {
			break
		}
		l.ticks[idx] = t
	}
	l.positions = make(map[positionKey]*Position, len(s.Positions))
	for _, r := range s.Positions {
		p := r.Position
		l.positions[positionKey{r.Account, r.RangeID}] = &p
	}
}

// ProfitRecord is one (tick, expiry) profit entry in exported form. Settled
// pairs carry the terminal mark with zeroed accruals.
type ProfitRecord struct {
	Tick     int32 `json:"tick"`
	ExpiryID int64 `json:"expiry_id"`
	Fee      int64 `json:"fee"`
	Payout   int64 `json:"payout"`
	Settled  bool  `json:"settled"`
}

// ExportState captures the profit book, sorted for stable output.
func (b *ProfitBook) ExportState() []ProfitRecord {
	out := make([]ProfitRecord, 0, len(b.states)+len(b.settled))
	for key, s := range b.states {
		out = append(out, ProfitRecord{
			Tick:     key.Tick,
			ExpiryID: key.ExpiryID,
			Fee:      s.CumulativeFee,
			Payout:   s.CumulativePayout,
		})
	}
	for key := range b.settled {
		out = append(out, ProfitRecord{Tick: key.Tick, ExpiryID: key.ExpiryID, Settled: true})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Tick != out[j].Tick {
			return out[i].Tick < out[j].Tick
		}
		if out[i].ExpiryID != out[j].ExpiryID {
			return out[i].ExpiryID < out[j].ExpiryID
		}
		return !out[i].Settled
	})
	return out
}

// RestoreState replaces the profit book contents.
func (b *ProfitBook) RestoreState(records []ProfitRecord) {
	b.states = make(map[profitKey]*ProfitState)
	b.settled = make(map[profitKey]bool)
	for _, r := range records {
		key := profitKey{r.Tick, r.ExpiryID}
		if r.Settled {
			b.settled[key] = true
			continue
		}
		b.states[key] = &ProfitState{
			CumulativeFee:    r.Fee,
			CumulativePayout: r.Payout,
		}
	}
}
