package option

import "sort"

// WrittenRecord is one short book entry in exported form.
type WrittenRecord struct {
	Tick     int32           `json:"tick"`
	SeriesID int64           `json:"series_id"`
	Position WrittenPosition `json:"position"`
}

// LongRecord is one trader long balance in exported form.
type LongRecord struct {
	Account  string `json:"account"`
	SeriesID int64  `json:"series_id"`
	Size     int64  `json:"size"`
}

// HedgeRecord is one expiry hedge position in exported form.
type HedgeRecord struct {
	ExpiryID int64 `json:"expiry_id"`
	Delta    int64 `json:"delta"`
}

// VaultState is the exported form of the option vault: listings, the short
// book, trader longs and the hedge book.
type VaultState struct {
	Expiries     []Expiry        `json:"expiries"`
	Series       []Series        `json:"series"`
	NextExpiryID int64           `json:"next_expiry_id"`
	NextSeriesID int64           `json:"next_series_id"`
	Written      []WrittenRecord `json:"written"`
	Longs        []LongRecord    `json:"longs"`
	Hedges       []HedgeRecord   `json:"hedges"`
}

// ExportState captures the vault for a snapshot. All slices are sorted so the
// output is byte-stable across runs.
func (v *Vault) ExportState() VaultState {
	s := VaultState{
		NextExpiryID: v.nextExpiryID,
		NextSeriesID: v.nextSeriesID,
	}

	for _, e := range v.expiries {
		out := *e
		out.SeriesIDs = append([]int64(nil), e.SeriesIDs...)
		s.Expiries = append(s.Expiries, out)
	}
	sort.Slice(s.Expiries, func(i, j int) bool { return s.Expiries[i].ExpiryID < s.Expiries[j].ExpiryID })

	for _, sr := range v.series {
		s.Series = append(s.Series, *sr)
	}
	sort.Slice(s.Series, func(i, j int) bool { return s.Series[i].SeriesID < s.Series[j].SeriesID })

	for key, p := range v.written {
		s.Written = append(s.Written, WrittenRecord{Tick: key.Tick, SeriesID: key.SeriesID, Position: *p})
	}
	sort.Slice(s.Written, func(i, j int) bool {
		if s.Written[i].Tick != s.Written[j].Tick {
			return s.Written[i].Tick < s.Written[j].Tick
		}
		return s.Written[i].SeriesID < s.Written[j].SeriesID
	})

	for key, size := range v.longs {
		s.Longs = append(s.Longs, LongRecord{Account: key.Account, SeriesID: key.SeriesID, Size: size})
	}
	sort.Slice(s.Longs, func(i, j int) bool {
		if s.Longs[i].Account != s.Longs[j].Account {
			return s.Longs[i].Account < s.Longs[j].Account
		}
		return s.Longs[i].SeriesID < s.Longs[j].SeriesID
	})

	for expiryID, delta := range v.hedge {
		s.Hedges = append(s.Hedges, HedgeRecord{ExpiryID: expiryID, Delta: delta})
	}
	sort.Slice(s.Hedges, func(i, j int) bool { return s.Hedges[i].ExpiryID < s.Hedges[j].ExpiryID })

	return s
}

// RestoreState replaces the vault contents with a previously exported state.
func (v *Vault) RestoreState(s VaultState) {
	v.nextExpiryID = s.NextExpiryID
	v.nextSeriesID = s.NextSeriesID

	v.expiries = make(map[int64]*Expiry, len(s.Expiries))
	for _, e := range s.Expiries {
		out := e
		out.SeriesIDs = append([]int64(nil), e.SeriesIDs...)
		v.expiries[e.ExpiryID] = &out
	}

	v.series = make(map[int64]*Series, len(s.Series))
	for _, sr := range s.Series {
		out := sr
		v.series[sr.SeriesID] = &out
	}

	v.written = make(map[positionKey]*WrittenPosition, len(s.Written))
	for _, r := range s.Written {
		p := r.Position
		v.written[positionKey{r.Tick, r.SeriesID}] = &p
	}

	v.longs = make(map[longKey]int64, len(s.Longs))
	for _, r := range s.Longs {
		v.longs[longKey{r.Account, r.SeriesID}] = r.Size
	}

	v.hedge = make(map[int64]int64, len(s.Hedges))
	for _, r := range s.Hedges {
		v.hedge[r.ExpiryID] = r.Delta
	}
}
