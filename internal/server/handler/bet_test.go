package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parlayd/parlayd/internal/domain"
	"github.com/parlayd/parlayd/internal/engine"
)

type fakeWagerService struct {
	placedLegs []engine.LegInput
	bet        domain.Bet
	bets       []*domain.Bet
	payout     uint64
	preview    domain.PayoutPreview
	quote      domain.MultiplierQuote
	err        error
}

func (f *fakeWagerService) PlaceBet(ctx context.Context, account string, roundID uint64, stake uint64, legs []engine.LegInput) (domain.Bet, error) {
	f.placedLegs = legs
	return f.bet, f.err
}

func (f *fakeWagerService) Claim(ctx context.Context, betID, account string, minPayout uint64) (uint64, error) {
	return f.payout, f.err
}

func (f *fakeWagerService) GetBet(ctx context.Context, betID string) (domain.Bet, error) {
	return f.bet, f.err
}

func (f *fakeWagerService) ListByRound(ctx context.Context, roundID uint64, opts domain.ListOpts) ([]*domain.Bet, error) {
	return f.bets, f.err
}

func (f *fakeWagerService) ListByAccount(ctx context.Context, account string, opts domain.ListOpts) ([]*domain.Bet, error) {
	return f.bets, f.err
}

func (f *fakeWagerService) PreviewPayout(ctx context.Context, betID string) (domain.PayoutPreview, error) {
	return f.preview, f.err
}

func (f *fakeWagerService) PreviewMultiplier(ctx context.Context, roundID uint64, legs []engine.LegInput) (domain.MultiplierQuote, error) {
	return f.quote, f.err
}

func TestPlaceBetCreated(t *testing.T) {
	svc := &fakeWagerService{bet: domain.Bet{ID: "b-1"}}
	h := NewBetHandler(svc, testLogger())

	body := `{
		"account": "alice",
		"round_id": 1,
		"stake": 500,
		"legs": [
			{"event_index": 0, "predicted": "home"},
			{"event_index": 2, "predicted": "draw"}
		]
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/bets", bytes.NewReader([]byte(body)))
	rec := httptest.NewRecorder()
	h.PlaceBet(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, svc.placedLegs, 2)
	require.Equal(t, domain.OutcomeDraw, svc.placedLegs[1].Predicted)
}

func TestPlaceBetRequiresAccount(t *testing.T) {
	svc := &fakeWagerService{}
	h := NewBetHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/bets",
		bytes.NewReader([]byte(`{"round_id":1,"stake":500,"legs":[]}`)))
	rec := httptest.NewRecorder()
	h.PlaceBet(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlaceBetInsufficientLiquidity(t *testing.T) {
	svc := &fakeWagerService{err: domain.ErrInsufficientLiquidity}
	h := NewBetHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/bets",
		bytes.NewReader([]byte(`{"account":"alice","round_id":1,"stake":500,"legs":[]}`)))
	rec := httptest.NewRecorder()
	h.PlaceBet(rec, req)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestClaimReturnsPayout(t *testing.T) {
	svc := &fakeWagerService{payout: 1_234}
	h := NewBetHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/bets/b-1/claim",
		bytes.NewReader([]byte(`{"account":"alice"}`)))
	req.SetPathValue("id", "b-1")
	rec := httptest.NewRecorder()
	h.Claim(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, float64(1_234), resp["payout"])
}

func TestClaimWrongOwnerForbidden(t *testing.T) {
	svc := &fakeWagerService{err: domain.ErrNotBetOwner}
	h := NewBetHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/bets/b-1/claim",
		bytes.NewReader([]byte(`{"account":"mallory"}`)))
	req.SetPathValue("id", "b-1")
	rec := httptest.NewRecorder()
	h.Claim(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestClaimSlippageConflict(t *testing.T) {
	svc := &fakeWagerService{err: domain.ErrSlippage}
	h := NewBetHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/bets/b-1/claim",
		bytes.NewReader([]byte(`{"account":"alice","min_payout":9999}`)))
	req.SetPathValue("id", "b-1")
	rec := httptest.NewRecorder()
	h.Claim(rec, req)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetBetNotFound(t *testing.T) {
	svc := &fakeWagerService{err: domain.ErrBetNotFound}
	h := NewBetHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/bets/missing", nil)
	req.SetPathValue("id", "missing")
	rec := httptest.NewRecorder()
	h.GetBet(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListBetsRequiresFilter(t *testing.T) {
	svc := &fakeWagerService{}
	h := NewBetHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/bets", nil)
	rec := httptest.NewRecorder()
	h.ListBets(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreviewMultiplier(t *testing.T) {
	svc := &fakeWagerService{quote: domain.MultiplierQuote{Multiplier: 12_600, Gated: true}}
	h := NewBetHandler(svc, testLogger())

	body := `{"round_id":1,"legs":[{"event_index":0,"predicted":"home"},{"event_index":1,"predicted":"away"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/bets/preview-multiplier", bytes.NewReader([]byte(body)))
	rec := httptest.NewRecorder()
	h.PreviewMultiplier(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var quote domain.MultiplierQuote
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quote))
	require.Equal(t, uint64(12_600), quote.Multiplier)
	require.True(t, quote.Gated)
}
