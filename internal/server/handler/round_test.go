package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parlayd/parlayd/internal/domain"
)

type fakeRoundService struct {
	seedCalled    bool
	seedFixtures  []domain.Fixture
	settleCalled  []domain.Outcome
	round         domain.Round
	rounds        []*domain.Round
	odds          domain.OddsTriple
	err           error
	operatorFunds uint64
	seasonPool    uint64
}

func (f *fakeRoundService) SeedRound(ctx context.Context, roundID uint64, fixtures []domain.Fixture) (domain.Round, error) {
	f.seedCalled = true
	f.seedFixtures = fixtures
	return f.round, f.err
}

func (f *fakeRoundService) SettleRound(ctx context.Context, roundID uint64, outcomes []domain.Outcome) (domain.Round, error) {
	f.settleCalled = outcomes
	return f.round, f.err
}

func (f *fakeRoundService) FinalizeRevenue(ctx context.Context, roundID uint64) (domain.Round, error) {
	return f.round, f.err
}

func (f *fakeRoundService) GetRound(ctx context.Context, roundID uint64) (domain.Round, error) {
	return f.round, f.err
}

func (f *fakeRoundService) ListRecent(ctx context.Context, opts domain.ListOpts) ([]*domain.Round, error) {
	return f.rounds, f.err
}

func (f *fakeRoundService) PreviewOdds(ctx context.Context, roundID uint64, eventIndex int) (domain.OddsTriple, error) {
	return f.odds, f.err
}

func (f *fakeRoundService) OperatorBalance() uint64 { return f.operatorFunds }
func (f *fakeRoundService) SeasonPool() uint64      { return f.seasonPool }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSeedRoundCreated(t *testing.T) {
	svc := &fakeRoundService{round: domain.Round{ID: 7}}
	h := NewRoundHandler(svc, testLogger())

	body, _ := json.Marshal(map[string]any{
		"round_id": 7,
		"fixtures": []map[string]string{
			{"home": "ARS", "away": "CHE"},
			{"home": "LIV", "away": "MCI"},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/rounds", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.SeedRound(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.True(t, svc.seedCalled)
	require.Len(t, svc.seedFixtures, 2)
	require.Equal(t, "ARS", svc.seedFixtures[0].Home)
}

func TestSeedRoundValidation(t *testing.T) {
	svc := &fakeRoundService{}
	h := NewRoundHandler(svc, testLogger())

	// Missing round_id.
	req := httptest.NewRequest(http.MethodPost, "/api/rounds", bytes.NewReader([]byte(`{"fixtures":[]}`)))
	rec := httptest.NewRecorder()
	h.SeedRound(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Fixture with empty team name.
	req = httptest.NewRequest(http.MethodPost, "/api/rounds",
		bytes.NewReader([]byte(`{"round_id":1,"fixtures":[{"home":"","away":"CHE"}]}`)))
	rec = httptest.NewRecorder()
	h.SeedRound(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.False(t, svc.seedCalled)
}

func TestSeedRoundConflict(t *testing.T) {
	svc := &fakeRoundService{err: domain.ErrRoundSeeded}
	h := NewRoundHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/rounds",
		bytes.NewReader([]byte(`{"round_id":1,"fixtures":[]}`)))
	rec := httptest.NewRecorder()
	h.SeedRound(rec, req)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestSettleRoundParsesOutcomes(t *testing.T) {
	svc := &fakeRoundService{round: domain.Round{ID: 3}}
	h := NewRoundHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/rounds/3/settle",
		bytes.NewReader([]byte(`{"outcomes":["home","away","draw"]}`)))
	req.SetPathValue("id", "3")
	rec := httptest.NewRecorder()
	h.SettleRound(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []domain.Outcome{domain.OutcomeHome, domain.OutcomeAway, domain.OutcomeDraw}, svc.settleCalled)
}

func TestSettleRoundRejectsBadOutcome(t *testing.T) {
	svc := &fakeRoundService{}
	h := NewRoundHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/rounds/3/settle",
		bytes.NewReader([]byte(`{"outcomes":["sideways"]}`)))
	req.SetPathValue("id", "3")
	rec := httptest.NewRecorder()
	h.SettleRound(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRoundNotFound(t *testing.T) {
	svc := &fakeRoundService{err: domain.ErrRoundNotFound}
	h := NewRoundHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/rounds/99", nil)
	req.SetPathValue("id", "99")
	rec := httptest.NewRecorder()
	h.GetRound(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListRoundsEmptySliceNotNull(t *testing.T) {
	svc := &fakeRoundService{}
	h := NewRoundHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/rounds", nil)
	rec := httptest.NewRecorder()
	h.ListRounds(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Rounds []json.RawMessage `json:"rounds"`
		Limit  int               `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Rounds)
	require.Equal(t, 50, resp.Limit)
}

func TestTreasury(t *testing.T) {
	svc := &fakeRoundService{operatorFunds: 1_000, seasonPool: 250}
	h := NewRoundHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/treasury", nil)
	rec := httptest.NewRecorder()
	h.Treasury(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]uint64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, uint64(1_000), resp["operator_balance"])
	require.Equal(t, uint64(250), resp["season_pool"])
}
