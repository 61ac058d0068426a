package server

import (
	"encoding/json"
	"net/http"

	"OptionAMM/internal/amm"
)

// ============================================================================
// Liquidity
// ============================================================================

type depositParams struct {
	Account    string `json:"account"`
	MintAmount int64  `json:"mint_amount"`
	MaxDeposit int64  `json:"max_deposit"`
	Lower      int32  `json:"lower"`
	Upper      int32  `json:"upper"`
}

type depositResult struct {
	Account   string `json:"account"`
	RangeID   int32  `json:"range_id"`
	Shares    int64  `json:"shares"`
	Deposited int64  `json:"deposited"`
}

func (s *RPCServer) deposit(r *http.Request, params json.RawMessage) (interface{}, *RPCError) {
	var p depositParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, invalidParams(err)
	}
	res, err := s.proc.Deposit(r.Context(), p.Account, p.MintAmount, p.MaxDeposit, p.Lower, p.Upper, s.now())
	if err != nil {
		return nil, domainError(err)
	}
	return depositResult{Account: res.Account, RangeID: res.RangeID, Shares: res.Shares, Deposited: res.Deposited}, nil
}

type withdrawParams struct {
	Account        string `json:"account"`
	BurnAmount     int64  `json:"burn_amount"`
	MinAmount      int64  `json:"min_amount"`
	RangeID        int32  `json:"range_id"`
	UseReservation bool   `json:"use_reservation"`
}

type withdrawResult struct {
	Account   string `json:"account"`
	RangeID   int32  `json:"range_id"`
	Shares    int64  `json:"shares"`
	Withdrawn int64  `json:"withdrawn"`
}

func (s *RPCServer) withdraw(r *http.Request, params json.RawMessage) (interface{}, *RPCError) {
	var p withdrawParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, invalidParams(err)
	}
	res, err := s.proc.Withdraw(r.Context(), p.Account, p.BurnAmount, p.MinAmount, p.RangeID, p.UseReservation, s.now())
	if err != nil {
		return nil, domainError(err)
	}
	return withdrawResult{Account: res.Account, RangeID: res.RangeID, Shares: res.Shares, Withdrawn: res.Withdrawn}, nil
}

type reserveParams struct {
	Account string `json:"account"`
	Amount  int64  `json:"amount"`
	RangeID int32  `json:"range_id"`
}

func (s *RPCServer) reserveWithdrawal(r *http.Request, params json.RawMessage) (interface{}, *RPCError) {
	var p reserveParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, invalidParams(err)
	}
	if err := s.proc.ReserveWithdrawal(r.Context(), p.Account, p.Amount, p.RangeID, s.now()); err != nil {
		return nil, domainError(err)
	}
	return map[string]string{"status": "reserved"}, nil
}

// ============================================================================
// Trading
// ============================================================================

type tradeParams struct {
	Account  string `json:"account"`
	SeriesID int64  `json:"series_id"`
	Amount   int64  `json:"amount"`
	// FeeBound caps the total cost on buys and floors the proceeds on sells.
	FeeBound int64 `json:"fee_bound"`
}

type tradeResult struct {
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

func toTradeResult(res *amm.TradeResult) tradeResult {
	return tradeResult{
		Account:     res.Account,
		SeriesID:    res.SeriesID,
		ExpiryID:    res.ExpiryID,
		IsSell:      res.IsSell,
		Size:        res.Size,
		Spot:        res.Spot,
		RawPremium:  res.RawPremium,
		BaseFee:     res.Fee.BaseFee,
		SpreadFee:   res.Fee.SpreadFee,
		ProtocolFee: res.Fee.ProtocolFee,
		Total:       res.Total,
		IVAfter:     res.IVAfter,
	}
}

func (s *RPCServer) trade(r *http.Request, params json.RawMessage, isSell bool) (interface{}, *RPCError) {
	var p tradeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, invalidParams(err)
	}
	var res *amm.TradeResult
	var err error
	if isSell {
		res, err = s.proc.Sell(r.Context(), p.Account, p.SeriesID, p.Amount, p.FeeBound, s.now())
	} else {
		res, err = s.proc.Buy(r.Context(), p.Account, p.SeriesID, p.Amount, p.FeeBound, s.now())
	}
	if err != nil {
		return nil, domainError(err)
	}
	return toTradeResult(res), nil
}

type premiumParams struct {
	SeriesID int64 `json:"series_id"`
	Amount   int64 `json:"amount"`
	IsSell   bool  `json:"is_sell"`
}

func (s *RPCServer) calculatePremium(r *http.Request, params json.RawMessage) (interface{}, *RPCError) {
	var p premiumParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, invalidParams(err)
	}
	premium, err := s.proc.CalculatePremium(r.Context(), p.SeriesID, p.Amount, p.IsSell, s.now())
	if err != nil {
		return nil, domainError(err)
	}
	return map[string]int64{"premium": premium}, nil
}

// ============================================================================
// Settlement and feed
// ============================================================================

type settleParams struct {
	ExpiryID int64 `json:"expiry_id"`
}

type settleResult struct {
	ExpiryID       int64 `json:"expiry_id"`
	ExpiryPrice    int64 `json:"expiry_price"`
	TotalPayout    int64 `json:"total_payout"`
	TotalRefund    int64 `json:"total_refund"`
	TotalShortfall int64 `json:"total_shortfall"`
	FeesFolded     int64 `json:"fees_folded"`
}

func (s *RPCServer) settle(r *http.Request, params json.RawMessage) (interface{}, *RPCError) {
	var p settleParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, invalidParams(err)
	}
	res, err := s.proc.Settle(r.Context(), p.ExpiryID, s.now())
	if err != nil {
		return nil, domainError(err)
	}
	return settleResult{
		ExpiryID:       res.ExpiryID,
		ExpiryPrice:    res.ExpiryPrice,
		TotalPayout:    res.TotalPayout,
		TotalRefund:    res.TotalRefund,
		TotalShortfall: res.TotalShortfall,
		FeesFolded:     res.FeesFolded,
	}, nil
}

type recordSpotParams struct {
	RoundID int64 `json:"round_id"`
	Price   int64 `json:"price"`
}

// recordSpot exists for operational backfill; the normal path is the NATS
// feed.
func (s *RPCServer) recordSpot(r *http.Request, params json.RawMessage) (interface{}, *RPCError) {
	var p recordSpotParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, invalidParams(err)
	}
	if err := s.proc.RecordSpot(r.Context(), p.RoundID, p.Price, s.now()); err != nil {
		return nil, domainError(err)
	}
	return map[string]string{"status": "recorded"}, nil
}

// ============================================================================
// Operator
// ============================================================================

type setConfigParams struct {
	Caller string `json:"caller"`
	Key    string `json:"key"`
	Value  int64  `json:"value"`
}

func (s *RPCServer) setConfig(r *http.Request, params json.RawMessage) (interface{}, *RPCError) {
	var p setConfigParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, invalidParams(err)
	}
	if err := s.proc.SetConfig(r.Context(), p.Caller, p.Key, p.Value, s.now()); err != nil {
		return nil, domainError(err)
	}
	return map[string]string{"status": "updated"}, nil
}

type getConfigParams struct {
	Key string `json:"key"`
}

func (s *RPCServer) getConfig(r *http.Request, params json.RawMessage) (interface{}, *RPCError) {
	var p getConfigParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, invalidParams(err)
	}
	value, err := s.proc.GetConfig(r.Context(), p.Key)
	if err != nil {
		return nil, domainError(err)
	}
	return map[string]int64{"value": value}, nil
}

type changeStateParams struct {
	Caller    string `json:"caller"`
	Emergency bool   `json:"emergency"`
}

func (s *RPCServer) changeState(r *http.Request, params json.RawMessage) (interface{}, *RPCError) {
	var p changeStateParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, invalidParams(err)
	}
	if err := s.proc.ChangeState(r.Context(), p.Caller, p.Emergency, s.now()); err != nil {
		return nil, domainError(err)
	}
	return map[string]string{"status": "changed"}, nil
}

type setBotParams struct {
	Caller string `json:"caller"`
	Bot    string `json:"bot"`
}

func (s *RPCServer) setBot(r *http.Request, params json.RawMessage) (interface{}, *RPCError) {
	var p setBotParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, invalidParams(err)
	}
	if err := s.proc.SetBot(r.Context(), p.Caller, p.Bot, s.now()); err != nil {
		return nil, domainError(err)
	}
	return map[string]string{"status": "set"}, nil
}

type setOperatorParams struct {
	Caller   string `json:"caller"`
	Operator string `json:"operator"`
}

func (s *RPCServer) setNewOperator(r *http.Request, params json.RawMessage) (interface{}, *RPCError) {
	var p setOperatorParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, invalidParams(err)
	}
	if err := s.proc.SetNewOperator(r.Context(), p.Caller, p.Operator, s.now()); err != nil {
		return nil, domainError(err)
	}
	return map[string]string{"status": "transferred"}, nil
}

type setDepositWindowParams struct {
	Caller string `json:"caller"`
	Until  int64  `json:"until"`
}

func (s *RPCServer) setDepositAllowedUntil(r *http.Request, params json.RawMessage) (interface{}, *RPCError) {
	var p setDepositWindowParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, invalidParams(err)
	}
	if err := s.proc.SetDepositAllowedUntil(r.Context(), p.Caller, p.Until, s.now()); err != nil {
		return nil, domainError(err)
	}
	return map[string]string{"status": "set"}, nil
}

type setSkipLockupParams struct {
	Caller  string `json:"caller"`
	Account string `json:"account"`
	Skip    bool   `json:"skip"`
}

func (s *RPCServer) setSkipLockup(r *http.Request, params json.RawMessage) (interface{}, *RPCError) {
	var p setSkipLockupParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, invalidParams(err)
	}
	if err := s.proc.SetSkipLockup(r.Context(), p.Caller, p.Account, p.Skip, s.now()); err != nil {
		return nil, domainError(err)
	}
	return map[string]string{"status": "set"}, nil
}

type createExpiryParams struct {
	Caller    string `json:"caller"`
	Timestamp int64  `json:"timestamp"`
	InitialIV int64  `json:"initial_iv"`
}

func (s *RPCServer) createExpiry(r *http.Request, params json.RawMessage) (interface{}, *RPCError) {
	var p createExpiryParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, invalidParams(err)
	}
	id, err := s.proc.CreateExpiry(r.Context(), p.Caller, p.Timestamp, p.InitialIV, s.now())
	if err != nil {
		return nil, domainError(err)
	}
	return map[string]int64{"expiry_id": id}, nil
}

type createSeriesParams struct {
	Caller   string `json:"caller"`
	ExpiryID int64  `json:"expiry_id"`
	Strike   int64  `json:"strike"`
	IsPut    bool   `json:"is_put"`
}

func (s *RPCServer) createSeries(r *http.Request, params json.RawMessage) (interface{}, *RPCError) {
	var p createSeriesParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, invalidParams(err)
	}
	id, err := s.proc.CreateSeries(r.Context(), p.Caller, p.ExpiryID, p.Strike, p.IsPut, s.now())
	if err != nil {
		return nil, domainError(err)
	}
	return map[string]int64{"series_id": id}, nil
}

type hedgeParams struct {
	Caller   string `json:"caller"`
	ExpiryID int64  `json:"expiry_id"`
	Delta    int64  `json:"delta"`
}

func (s *RPCServer) hedge(r *http.Request, params json.RawMessage) (interface{}, *RPCError) {
	var p hedgeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, invalidParams(err)
	}
	if err := s.proc.Hedge(r.Context(), p.Caller, p.ExpiryID, p.Delta, s.now()); err != nil {
		return nil, domainError(err)
	}
	return map[string]string{"status": "hedged"}, nil
}

// ============================================================================
// Pool views
// ============================================================================

type rangeParams struct {
	Lower int32 `json:"lower"`
	Upper int32 `json:"upper"`
}

func (s *RPCServer) getTicks(r *http.Request, params json.RawMessage) (interface{}, *RPCError) {
	var p rangeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, invalidParams(err)
	}
	ticks, err := s.proc.GetTicks(r.Context(), p.Lower, p.Upper)
	if err != nil {
		return nil, domainError(err)
	}
	return ticks, nil
}

type mintAmountParams struct {
	Lower         int32 `json:"lower"`
	Upper         int32 `json:"upper"`
	DepositAmount int64 `json:"deposit_amount"`
}

func (s *RPCServer) getMintAmount(r *http.Request, params json.RawMessage) (interface{}, *RPCError) {
	var p mintAmountParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, invalidParams(err)
	}
	shares, err := s.proc.GetMintAmount(r.Context(), p.Lower, p.Upper, p.DepositAmount)
	if err != nil {
		return nil, domainError(err)
	}
	return map[string]int64{"shares": shares}, nil
}

type withdrawableParams struct {
	Lower      int32 `json:"lower"`
	Upper      int32 `json:"upper"`
	BurnShares int64 `json:"burn_shares"`
}

func (s *RPCServer) getWithdrawableAmount(r *http.Request, params json.RawMessage) (interface{}, *RPCError) {
	var p withdrawableParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, invalidParams(err)
	}
	amount, err := s.proc.GetWithdrawableAmount(r.Context(), p.Lower, p.Upper, p.BurnShares)
	if err != nil {
		return nil, domainError(err)
	}
	return map[string]int64{"amount": amount}, nil
}

type profitStateParams struct {
	Tick     int32 `json:"tick"`
	ExpiryID int64 `json:"expiry_id"`
}

func (s *RPCServer) getProfitState(r *http.Request, params json.RawMessage) (interface{}, *RPCError) {
	var p profitStateParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, invalidParams(err)
	}
	state, err := s.proc.GetProfitState(r.Context(), p.Tick, p.ExpiryID)
	if err != nil {
		return nil, domainError(err)
	}
	return map[string]int64{
		"cumulative_fee":    state.CumulativeFee,
		"cumulative_payout": state.CumulativePayout,
	}, nil
}

func (s *RPCServer) getSecondsPerLiquidity(r *http.Request, params json.RawMessage) (interface{}, *RPCError) {
	var p rangeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, invalidParams(err)
	}
	value, err := s.proc.GetSecondsPerLiquidity(r.Context(), p.Lower, p.Upper, s.now())
	if err != nil {
		return nil, domainError(err)
	}
	return map[string]int64{"seconds_per_liquidity": value}, nil
}

func (s *RPCServer) getLiveOptionSerieses(r *http.Request, params json.RawMessage) (interface{}, *RPCError) {
	expiries, err := s.proc.GetLiveOptionSerieses(r.Context(), s.now())
	if err != nil {
		return nil, domainError(err)
	}
	return expiries, nil
}

type positionOfParams struct {
	Account string `json:"account"`
	RangeID int32  `json:"range_id"`
}

func (s *RPCServer) positionOf(r *http.Request, params json.RawMessage) (interface{}, *RPCError) {
	var p positionOfParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, invalidParams(err)
	}
	pos, err := s.proc.PositionOf(r.Context(), p.Account, p.RangeID)
	if err != nil {
		return nil, domainError(err)
	}
	return pos, nil
}

type longBalanceParams struct {
	Account  string `json:"account"`
	SeriesID int64  `json:"series_id"`
}

func (s *RPCServer) longBalance(r *http.Request, params json.RawMessage) (interface{}, *RPCError) {
	var p longBalanceParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, invalidParams(err)
	}
	balance, err := s.proc.LongBalance(r.Context(), p.Account, p.SeriesID)
	if err != nil {
		return nil, domainError(err)
	}
	return map[string]int64{"balance": balance}, nil
}

type ivParams struct {
	ExpiryID int64 `json:"expiry_id"`
}

func (s *RPCServer) iv(r *http.Request, params json.RawMessage) (interface{}, *RPCError) {
	var p ivParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, invalidParams(err)
	}
	iv, err := s.proc.IV(r.Context(), p.ExpiryID)
	if err != nil {
		return nil, domainError(err)
	}
	return map[string]int64{"iv": iv}, nil
}

// ============================================================================
// History
// ============================================================================

type historyParams struct {
	Account string `json:"account,omitempty"`
	Cursor  int64  `json:"cursor,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

func (s *RPCServer) getTradeHistory(r *http.Request, params json.RawMessage) (interface{}, *RPCError) {
	var p historyParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, invalidParams(err)
		}
	}
	records, err := s.queries.GetTradeHistory(r.Context(), p.Account, p.Cursor, p.Limit)
	if err != nil {
		return nil, &RPCError{Code: codeInternalError, Message: err.Error()}
	}
	return records, nil
}

func (s *RPCServer) getLiquidityHistory(r *http.Request, params json.RawMessage) (interface{}, *RPCError) {
	var p historyParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, invalidParams(err)
		}
	}
	records, err := s.queries.GetLiquidityHistory(r.Context(), p.Account, p.Cursor, p.Limit)
	if err != nil {
		return nil, &RPCError{Code: codeInternalError, Message: err.Error()}
	}
	return records, nil
}

func (s *RPCServer) getSettlementHistory(r *http.Request, params json.RawMessage) (interface{}, *RPCError) {
	var p historyParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, invalidParams(err)
		}
	}
	records, err := s.queries.GetSettlementHistory(r.Context(), p.Cursor, p.Limit)
	if err != nil {
		return nil, &RPCError{Code: codeInternalError, Message: err.Error()}
	}
	return records, nil
}

func (s *RPCServer) verifyIntegrity(r *http.Request, params json.RawMessage) (interface{}, *RPCError) {
	report, err := s.queries.VerifyIntegrity(r.Context())
	if err != nil {
		return nil, &RPCError{Code: codeInternalError, Message: err.Error()}
	}
	return report, nil
}
