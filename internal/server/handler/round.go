package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/parlayd/parlayd/internal/domain"
)

// RoundService defines the methods the round handler requires from the
// service layer.
type RoundService interface {
	SeedRound(ctx context.Context, roundID uint64, fixtures []domain.Fixture) (domain.Round, error)
	SettleRound(ctx context.Context, roundID uint64, outcomes []domain.Outcome) (domain.Round, error)
	FinalizeRevenue(ctx context.Context, roundID uint64) (domain.Round, error)
	GetRound(ctx context.Context, roundID uint64) (domain.Round, error)
	ListRecent(ctx context.Context, opts domain.ListOpts) ([]*domain.Round, error)
	PreviewOdds(ctx context.Context, roundID uint64, eventIndex int) (domain.OddsTriple, error)
	OperatorBalance() uint64
	SeasonPool() uint64
}

// RoundHandler serves round lifecycle HTTP endpoints.
type RoundHandler struct {
	rounds RoundService
	logger *slog.Logger
}

// NewRoundHandler creates a RoundHandler with the given service and logger.
func NewRoundHandler(rounds RoundService, logger *slog.Logger) *RoundHandler {
	return &RoundHandler{
		rounds: rounds,
		logger: logHandler(logger, "round"),
	}
}

type seedRoundRequest struct {
	RoundID  uint64 `json:"round_id"`
	Fixtures []struct {
		Home string `json:"home"`
		Away string `json:"away"`
	} `json:"fixtures"`
}

// SeedRound creates and seeds a new round, locking its odds.
// POST /api/rounds
func (h *RoundHandler) SeedRound(w http.ResponseWriter, r *http.Request) {
	var req seedRoundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.RoundID == 0 {
		writeError(w, http.StatusBadRequest, "round_id is required")
		return
	}

	fixtures := make([]domain.Fixture, len(req.Fixtures))
	for i, f := range req.Fixtures {
		if f.Home == "" || f.Away == "" {
			writeError(w, http.StatusBadRequest, "every fixture needs home and away")
			return
		}
		fixtures[i] = domain.Fixture{Home: f.Home, Away: f.Away}
	}

	round, err := h.rounds.SeedRound(r.Context(), req.RoundID, fixtures)
	if err != nil {
		if !writeDomainError(w, err) {
			h.logger.ErrorContext(r.Context(), "seed round failed",
				slog.Uint64("round_id", req.RoundID),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	writeJSON(w, http.StatusCreated, round)
}

type settleRoundRequest struct {
	Outcomes []string `json:"outcomes"`
}

// SettleRound records the realized outcome of every event in the round.
// POST /api/rounds/{id}/settle
func (h *RoundHandler) SettleRound(w http.ResponseWriter, r *http.Request) {
	roundID, ok := pathUint64(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid round id")
		return
	}

	var req settleRoundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	outcomes := make([]domain.Outcome, len(req.Outcomes))
	for i, raw := range req.Outcomes {
		outcome, err := domain.ParseOutcome(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid outcome: "+raw)
			return
		}
		outcomes[i] = outcome
	}

	round, err := h.rounds.SettleRound(r.Context(), roundID, outcomes)
	if err != nil {
		if !writeDomainError(w, err) {
			h.logger.ErrorContext(r.Context(), "settle round failed",
				slog.Uint64("round_id", roundID),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	writeJSON(w, http.StatusOK, round)
}

// FinalizeRevenue closes the round's books.
// POST /api/rounds/{id}/finalize
func (h *RoundHandler) FinalizeRevenue(w http.ResponseWriter, r *http.Request) {
	roundID, ok := pathUint64(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid round id")
		return
	}

	round, err := h.rounds.FinalizeRevenue(r.Context(), roundID)
	if err != nil {
		if !writeDomainError(w, err) {
			h.logger.ErrorContext(r.Context(), "finalize revenue failed",
				slog.Uint64("round_id", roundID),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	writeJSON(w, http.StatusOK, round)
}

// GetRound returns one round's full accounting state.
// GET /api/rounds/{id}
func (h *RoundHandler) GetRound(w http.ResponseWriter, r *http.Request) {
	roundID, ok := pathUint64(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid round id")
		return
	}

	round, err := h.rounds.GetRound(r.Context(), roundID)
	if err != nil {
		if !writeDomainError(w, err) {
			h.logger.ErrorContext(r.Context(), "get round failed",
				slog.Uint64("round_id", roundID),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	writeJSON(w, http.StatusOK, round)
}

// listRoundsResponse wraps the round list output with pagination metadata.
type listRoundsResponse struct {
	Rounds []*domain.Round `json:"rounds"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// ListRounds returns recent rounds, newest first.
// GET /api/rounds?limit=50&offset=0
func (h *RoundHandler) ListRounds(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	rounds, err := h.rounds.ListRecent(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list rounds failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list rounds")
		return
	}
	if rounds == nil {
		rounds = []*domain.Round{}
	}

	writeJSON(w, http.StatusOK, listRoundsResponse{
		Rounds: rounds,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
}

// PreviewOdds returns the locked odds for one event of a round.
// GET /api/rounds/{id}/odds/{event}
func (h *RoundHandler) PreviewOdds(w http.ResponseWriter, r *http.Request) {
	roundID, ok := pathUint64(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid round id")
		return
	}
	eventIndex, ok := pathUint64(r, "event")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid event index")
		return
	}

	odds, err := h.rounds.PreviewOdds(r.Context(), roundID, int(eventIndex))
	if err != nil {
		if !writeDomainError(w, err) {
			h.logger.ErrorContext(r.Context(), "preview odds failed",
				slog.Uint64("round_id", roundID),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	writeJSON(w, http.StatusOK, odds)
}

// Treasury reports the operator fee balance and the season reward pool.
// GET /api/treasury
func (h *RoundHandler) Treasury(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]uint64{
		"operator_balance": h.rounds.OperatorBalance(),
		"season_pool":      h.rounds.SeasonPool(),
	})
}
