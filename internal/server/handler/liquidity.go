package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/parlayd/parlayd/internal/domain"
)

// LiquidityService defines the methods the liquidity handler requires from
// the service layer.
type LiquidityService interface {
	Deposit(ctx context.Context, account string, amount uint64) (uint64, error)
	Withdraw(ctx context.Context, account string, shares uint64) (uint64, error)
	Position(ctx context.Context, account string) (domain.LiquidityPosition, uint64, error)
	Snapshot(ctx context.Context) domain.LedgerSnapshot
	Journal(ctx context.Context, account string, opts domain.ListOpts) ([]domain.LedgerEvent, error)
}

// LiquidityHandler serves liquidity provider HTTP endpoints.
type LiquidityHandler struct {
	liquidity LiquidityService
	logger    *slog.Logger
}

// NewLiquidityHandler creates a LiquidityHandler with the given service and logger.
func NewLiquidityHandler(liquidity LiquidityService, logger *slog.Logger) *LiquidityHandler {
	return &LiquidityHandler{
		liquidity: liquidity,
		logger:    logHandler(logger, "liquidity"),
	}
}

type depositRequest struct {
	Account string `json:"account"`
	Amount  uint64 `json:"amount"`
}

// Deposit adds liquidity and mints shares.
// POST /api/liquidity/deposit
func (h *LiquidityHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Account == "" {
		writeError(w, http.StatusBadRequest, "account is required")
		return
	}

	shares, err := h.liquidity.Deposit(r.Context(), req.Account, req.Amount)
	if err != nil {
		if !writeDomainError(w, err) {
			h.logger.ErrorContext(r.Context(), "deposit failed",
				slog.String("account", req.Account),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"account": req.Account,
		"amount":  req.Amount,
		"shares":  shares,
	})
}

type withdrawRequest struct {
	Account string `json:"account"`
	Shares  uint64 `json:"shares"`
}

// Withdraw burns shares and pays out their value less the withdrawal fee.
// POST /api/liquidity/withdraw
func (h *LiquidityHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Account == "" {
		writeError(w, http.StatusBadRequest, "account is required")
		return
	}

	paid, err := h.liquidity.Withdraw(r.Context(), req.Account, req.Shares)
	if err != nil {
		if !writeDomainError(w, err) {
			h.logger.ErrorContext(r.Context(), "withdraw failed",
				slog.String("account", req.Account),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"account": req.Account,
		"shares":  req.Shares,
		"paid":    paid,
	})
}

// positionResponse pairs a provider position with its redemption value.
type positionResponse struct {
	Position domain.LiquidityPosition `json:"position"`
	Value    uint64                   `json:"value"`
}

// GetPosition returns one provider's position and current value.
// GET /api/liquidity/positions/{account}
func (h *LiquidityHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	account := r.PathValue("account")
	if account == "" {
		writeError(w, http.StatusBadRequest, "missing account")
		return
	}

	pos, value, err := h.liquidity.Position(r.Context(), account)
	if err != nil {
		if !writeDomainError(w, err) {
			h.logger.ErrorContext(r.Context(), "get position failed",
				slog.String("account", account),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	writeJSON(w, http.StatusOK, positionResponse{Position: pos, Value: value})
}

// GetSnapshot returns the global ledger counters.
// GET /api/liquidity
func (h *LiquidityHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := h.liquidity.Snapshot(r.Context())
	writeJSON(w, http.StatusOK, map[string]uint64{
		"total_liquidity": snap.TotalLiquidity,
		"total_shares":    snap.TotalShares,
		"locked":          snap.Locked,
		"on_loan":         snap.OnLoan,
		"available":       snap.Available(),
	})
}

// GetJournal returns an account's ledger journal rows.
// GET /api/liquidity/journal/{account}
func (h *LiquidityHandler) GetJournal(w http.ResponseWriter, r *http.Request) {
	account := r.PathValue("account")
	if account == "" {
		writeError(w, http.StatusBadRequest, "missing account")
		return
	}

	events, err := h.liquidity.Journal(r.Context(), account, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "get journal failed",
			slog.String("account", account),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read journal")
		return
	}
	if events == nil {
		events = []domain.LedgerEvent{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}
