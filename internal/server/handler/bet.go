package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/parlayd/parlayd/internal/domain"
	"github.com/parlayd/parlayd/internal/engine"
)

// WagerService defines the methods the bet handler requires from the service
// layer.
type WagerService interface {
	PlaceBet(ctx context.Context, account string, roundID uint64, stake uint64, legs []engine.LegInput) (domain.Bet, error)
	Claim(ctx context.Context, betID, account string, minPayout uint64) (uint64, error)
	GetBet(ctx context.Context, betID string) (domain.Bet, error)
	ListByRound(ctx context.Context, roundID uint64, opts domain.ListOpts) ([]*domain.Bet, error)
	ListByAccount(ctx context.Context, account string, opts domain.ListOpts) ([]*domain.Bet, error)
	PreviewPayout(ctx context.Context, betID string) (domain.PayoutPreview, error)
	PreviewMultiplier(ctx context.Context, roundID uint64, legs []engine.LegInput) (domain.MultiplierQuote, error)
}

// BetHandler serves wager HTTP endpoints.
type BetHandler struct {
	wagers WagerService
	logger *slog.Logger
}

// NewBetHandler creates a BetHandler with the given service and logger.
func NewBetHandler(wagers WagerService, logger *slog.Logger) *BetHandler {
	return &BetHandler{
		wagers: wagers,
		logger: logHandler(logger, "bet"),
	}
}

type legRequest struct {
	EventIndex int    `json:"event_index"`
	Predicted  string `json:"predicted"`
}

func parseLegs(raw []legRequest) ([]engine.LegInput, error) {
	legs := make([]engine.LegInput, len(raw))
	for i, l := range raw {
		outcome, err := domain.ParseOutcome(l.Predicted)
		if err != nil {
			return nil, err
		}
		legs[i] = engine.LegInput{EventIndex: l.EventIndex, Predicted: outcome}
	}
	return legs, nil
}

type placeBetRequest struct {
	Account string       `json:"account"`
	RoundID uint64       `json:"round_id"`
	Stake   uint64       `json:"stake"`
	Legs    []legRequest `json:"legs"`
}

// PlaceBet accepts a wager at the round's locked odds.
// POST /api/bets
func (h *BetHandler) PlaceBet(w http.ResponseWriter, r *http.Request) {
	var req placeBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Account == "" {
		writeError(w, http.StatusBadRequest, "account is required")
		return
	}

	legs, err := parseLegs(req.Legs)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid leg outcome")
		return
	}

	bet, err := h.wagers.PlaceBet(r.Context(), req.Account, req.RoundID, req.Stake, legs)
	if err != nil {
		if !writeDomainError(w, err) {
			h.logger.ErrorContext(r.Context(), "place bet failed",
				slog.Uint64("round_id", req.RoundID),
				slog.String("account", req.Account),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	writeJSON(w, http.StatusCreated, bet)
}

type claimRequest struct {
	Account   string `json:"account"`
	MinPayout uint64 `json:"min_payout"`
}

// Claim pays out a settled bet.
// POST /api/bets/{id}/claim
func (h *BetHandler) Claim(w http.ResponseWriter, r *http.Request) {
	betID := r.PathValue("id")
	if betID == "" {
		writeError(w, http.StatusBadRequest, "missing bet id")
		return
	}

	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Account == "" {
		writeError(w, http.StatusBadRequest, "account is required")
		return
	}

	payout, err := h.wagers.Claim(r.Context(), betID, req.Account, req.MinPayout)
	if err != nil {
		if !writeDomainError(w, err) {
			h.logger.ErrorContext(r.Context(), "claim failed",
				slog.String("bet_id", betID),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"bet_id": betID,
		"payout": payout,
	})
}

// GetBet returns one bet.
// GET /api/bets/{id}
func (h *BetHandler) GetBet(w http.ResponseWriter, r *http.Request) {
	betID := r.PathValue("id")
	if betID == "" {
		writeError(w, http.StatusBadRequest, "missing bet id")
		return
	}

	bet, err := h.wagers.GetBet(r.Context(), betID)
	if err != nil {
		if !writeDomainError(w, err) {
			h.logger.ErrorContext(r.Context(), "get bet failed",
				slog.String("bet_id", betID),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	writeJSON(w, http.StatusOK, bet)
}

// listBetsResponse wraps the bet list output.
type listBetsResponse struct {
	Bets   []*domain.Bet `json:"bets"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// ListBets returns bets filtered by round or account.
// GET /api/bets?round_id=...&account=...&limit=50&offset=0
func (h *BetHandler) ListBets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	account := q.Get("account")
	roundID := queryUint64(r, "round_id", 0)

	if account == "" && roundID == 0 {
		writeError(w, http.StatusBadRequest, "round_id or account query parameter required")
		return
	}

	opts := parseListOpts(r)

	var (
		bets []*domain.Bet
		err  error
	)
	if roundID != 0 {
		bets, err = h.wagers.ListByRound(r.Context(), roundID, opts)
	} else {
		bets, err = h.wagers.ListByAccount(r.Context(), account, opts)
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list bets failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list bets")
		return
	}
	if bets == nil {
		bets = []*domain.Bet{}
	}

	writeJSON(w, http.StatusOK, listBetsResponse{
		Bets:   bets,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
}

// PreviewPayout returns a settled bet's payout without claiming it.
// GET /api/bets/{id}/payout
func (h *BetHandler) PreviewPayout(w http.ResponseWriter, r *http.Request) {
	betID := r.PathValue("id")
	if betID == "" {
		writeError(w, http.StatusBadRequest, "missing bet id")
		return
	}

	preview, err := h.wagers.PreviewPayout(r.Context(), betID)
	if err != nil {
		if !writeDomainError(w, err) {
			h.logger.ErrorContext(r.Context(), "preview payout failed",
				slog.String("bet_id", betID),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	writeJSON(w, http.StatusOK, preview)
}

type previewMultiplierRequest struct {
	RoundID uint64       `json:"round_id"`
	Legs    []legRequest `json:"legs"`
}

// PreviewMultiplier quotes the parlay multiplier a bet would lock right now.
// POST /api/bets/preview-multiplier
func (h *BetHandler) PreviewMultiplier(w http.ResponseWriter, r *http.Request) {
	var req previewMultiplierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	legs, err := parseLegs(req.Legs)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid leg outcome")
		return
	}

	quote, err := h.wagers.PreviewMultiplier(r.Context(), req.RoundID, legs)
	if err != nil {
		if !writeDomainError(w, err) {
			h.logger.ErrorContext(r.Context(), "preview multiplier failed",
				slog.Uint64("round_id", req.RoundID),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	writeJSON(w, http.StatusOK, quote)
}
