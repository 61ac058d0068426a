// Package server exposes the pool over JSON-RPC 2.0: every engine operation
// plus history queries from the read models. The server is the wall-clock
// boundary; it stamps requests with time.Now and the engine only ever sees
// the stamped value.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"OptionAMM/internal/amm"
	"OptionAMM/internal/observability"
	"OptionAMM/internal/query"
)

// Standard JSON-RPC 2.0 error codes, plus the server-defined range for
// domain rejections.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
	codeDomainError    = -32000
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      interface{}     `json:"id"`
}

type rpcResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func invalidParams(err error) *RPCError {
	return &RPCError{Code: codeInvalidParams, Message: "invalid params: " + err.Error()}
}

// domainError wraps an engine rejection. The revert string travels as-is so
// clients can match on it.
func domainError(err error) *RPCError {
	return &RPCError{Code: codeDomainError, Message: err.Error()}
}

// RPCServer routes JSON-RPC requests to the processor and the query service.
type RPCServer struct {
	log     zerolog.Logger
	proc    *amm.Processor
	queries *query.Service
	metrics *observability.Metrics
	now     func() time.Time
}

func NewRPCServer(log zerolog.Logger, proc *amm.Processor, queries *query.Service, metrics *observability.Metrics) *RPCServer {
	return &RPCServer{
		log:     log.With().Str("component", "rpc").Logger(),
		proc:    proc,
		queries: queries,
		metrics: metrics,
		now:     time.Now,
	}
}

// ServeHTTP implements http.Handler for single JSON-RPC 2.0 requests.
func (s *RPCServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.reply(w, nil, nil, &RPCError{Code: codeParseError, Message: "parse error"})
		return
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		s.reply(w, req.ID, nil, &RPCError{Code: codeInvalidRequest, Message: "invalid request"})
		return
	}

	start := time.Now()
	result, rpcErr := s.dispatch(r, req.Method, req.Params)

	if s.metrics != nil {
		s.metrics.RPCRequests.WithLabelValues(req.Method).Inc()
		s.metrics.RPCDuration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())
		if rpcErr != nil {
			s.metrics.RPCErrors.WithLabelValues(req.Method).Inc()
		}
	}

	s.reply(w, req.ID, result, rpcErr)
}

func (s *RPCServer) reply(w http.ResponseWriter, id, result interface{}, rpcErr *RPCError) {
	w.Header().Set("Content-Type", "application/json")
	resp := rpcResponse{JSONRPC: "2.0", Result: result, Error: rpcErr, ID: id}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Error().Err(err).Msg("response encode failed")
	}
}

func (s *RPCServer) dispatch(r *http.Request, method string, params json.RawMessage) (interface{}, *RPCError) {
	switch method {
	// Liquidity
	case "amm_deposit":
		return s.deposit(r, params)
	case "amm_withdraw":
		return s.withdraw(r, params)
	case "amm_reserveWithdrawal":
		return s.reserveWithdrawal(r, params)

	// Trading
	case "amm_buy":
		return s.trade(r, params, false)
	case "amm_sell":
		return s.trade(r, params, true)
	case "amm_calculatePremium":
		return s.calculatePremium(r, params)

	// Settlement and feed
	case "amm_settle":
		return s.settle(r, params)
	case "amm_recordSpot":
		return s.recordSpot(r, params)

	// Operator
	case "amm_setConfig":
		return s.setConfig(r, params)
	case "amm_getConfig":
		return s.getConfig(r, params)
	case "amm_changeState":
		return s.changeState(r, params)
	case "amm_setBot":
		return s.setBot(r, params)
	case "amm_setNewOperator":
		return s.setNewOperator(r, params)
	case "amm_setDepositAllowedUntil":
		return s.setDepositAllowedUntil(r, params)
	case "amm_setSkipLockup":
		return s.setSkipLockup(r, params)
	case "amm_createExpiry":
		return s.createExpiry(r, params)
	case "amm_createSeries":
		return s.createSeries(r, params)
	case "amm_hedge":
		return s.hedge(r, params)

	// Pool views
	case "amm_getTicks":
		return s.getTicks(r, params)
	case "amm_getMintAmount":
		return s.getMintAmount(r, params)
	case "amm_getWithdrawableAmount":
		return s.getWithdrawableAmount(r, params)
	case "amm_getProfitState":
		return s.getProfitState(r, params)
	case "amm_getSecondsPerLiquidity":
		return s.getSecondsPerLiquidity(r, params)
	case "amm_getLiveOptionSerieses":
		return s.getLiveOptionSerieses(r, params)
	case "amm_positionOf":
		return s.positionOf(r, params)
	case "amm_longBalance":
		return s.longBalance(r, params)
	case "amm_iv":
		return s.iv(r, params)

	// History
	case "amm_getTradeHistory":
		return s.getTradeHistory(r, params)
	case "amm_getLiquidityHistory":
		return s.getLiquidityHistory(r, params)
	case "amm_getSettlementHistory":
		return s.getSettlementHistory(r, params)
	case "amm_verifyIntegrity":
		return s.verifyIntegrity(r, params)

	case "amm_ping":
		return "pong", nil

	default:
		return nil, &RPCError{Code: codeMethodNotFound, Message: "method not found"}
	}
}
