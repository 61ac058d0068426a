// Package option implements the margin-vault collaborator: the option series
// registry, per-tick written positions with locked collateral, trader long
// balances, hedge tracking, and expiry payout computation.
package option

import (
	"errors"
	"sort"
)

var (
	ErrUnknownSeries = errors.New("option: unknown series")
	ErrUnknownExpiry = errors.New("option: unknown expiry")
)

// Series is one strike/direction listing under an expiry.
type Series struct {
	SeriesID int64 `json:"series_id"`
	ExpiryID int64 `json:"expiry_id"`
	Strike   int64 `json:"strike"` // 8 decimals
	IsPut    bool  `json:"is_put"`
}

// Expiry groups the series maturing at one timestamp.
type Expiry struct {
	ExpiryID  int64   `json:"expiry_id"`
	Timestamp int64   `json:"timestamp"`
	SeriesIDs []int64 `json:"series_ids"`
}

// CreateExpiry registers a new expiry timestamp and returns its ID.
func (v *Vault) CreateExpiry(timestamp int64) int64 {
	v.nextExpiryID++
	id := v.nextExpiryID
	v.expiries[id] = &Expiry{ExpiryID: id, Timestamp: timestamp}
	return id
}

// CreateSeries lists a strike under an existing expiry.
func (v *Vault) CreateSeries(expiryID, strike int64, isPut bool) (int64, error) {
	e, ok := v.expiries[expiryID]
	if !ok {
		return 0, ErrUnknownExpiry
	}
	v.nextSeriesID++
	id := v.nextSeriesID
	v.series[id] = &Series{SeriesID: id, ExpiryID: expiryID, Strike: strike, IsPut: isPut}
	e.SeriesIDs = append(e.SeriesIDs, id)
	return id, nil
}

// Series returns the series record for an ID.
func (v *Vault) Series(seriesID int64) (Series, error) {
	s, ok := v.series[seriesID]
	if !ok {
		return Series{}, ErrUnknownSeries
	}
	return *s, nil
}

// Expiry returns the expiry record for an ID.
func (v *Vault) Expiry(expiryID int64) (Expiry, error) {
	e, ok := v.expiries[expiryID]
	if !ok {
		return Expiry{}, ErrUnknownExpiry
	}
	out := *e
	out.SeriesIDs = append([]int64(nil), e.SeriesIDs...)
	return out, nil
}

// GetLiveOptionSerieses returns all expiries whose timestamp is still in the
// future, ordered by expiry time.
func (v *Vault) GetLiveOptionSerieses(now int64) []Expiry {
	var live []Expiry
	for _, e := range v.expiries {
		if e.Timestamp > now {
			out := *e
			out.SeriesIDs = append([]int64(nil), e.SeriesIDs...)
			live = append(live, out)
		}
	}
	sort.Slice(live, func(i, j int) bool { return live[i].Timestamp < live[j].Timestamp })
	return live
}
