// Package server exposes the wagering API over HTTP and WebSocket.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/parlayd/parlayd/internal/domain"
	"github.com/parlayd/parlayd/internal/server/handler"
	"github.com/parlayd/parlayd/internal/server/middleware"
	"github.com/parlayd/parlayd/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // empty disables authentication
	HMACSecret  string // empty disables request signature checks
	RateLimit   int    // requests per minute per client; zero disables
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health    *handler.HealthHandler
	Rounds    *handler.RoundHandler
	Bets      *handler.BetHandler
	Liquidity *handler.LiquidityHandler
}

// Server is the HTTP + WebSocket API server for the wagering engine.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a Server with all routes registered and the middleware chain
// (request signing, auth, rate limiting, logging, CORS) applied. limiter may be nil to
// disable rate limiting; wsHub may be nil to disable the WebSocket endpoint.
func New(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check, no auth.
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Round lifecycle.
	mux.HandleFunc("POST /api/rounds", handlers.Rounds.SeedRound)
	mux.HandleFunc("GET /api/rounds", handlers.Rounds.ListRounds)
	mux.HandleFunc("GET /api/rounds/{id}", handlers.Rounds.GetRound)
	mux.HandleFunc("POST /api/rounds/{id}/settle", handlers.Rounds.SettleRound)
	mux.HandleFunc("POST /api/rounds/{id}/finalize", handlers.Rounds.FinalizeRevenue)
	mux.HandleFunc("GET /api/rounds/{id}/odds/{event}", handlers.Rounds.PreviewOdds)
	mux.HandleFunc("GET /api/treasury", handlers.Rounds.Treasury)

	// Wagers.
	mux.HandleFunc("POST /api/bets", handlers.Bets.PlaceBet)
	mux.HandleFunc("GET /api/bets", handlers.Bets.ListBets)
	mux.HandleFunc("GET /api/bets/{id}", handlers.Bets.GetBet)
	mux.HandleFunc("POST /api/bets/{id}/claim", handlers.Bets.Claim)
	mux.HandleFunc("GET /api/bets/{id}/payout", handlers.Bets.PreviewPayout)
	mux.HandleFunc("POST /api/bets/preview-multiplier", handlers.Bets.PreviewMultiplier)

	// Liquidity.
	mux.HandleFunc("GET /api/liquidity", handlers.Liquidity.GetSnapshot)
	mux.HandleFunc("POST /api/liquidity/deposit", handlers.Liquidity.Deposit)
	mux.HandleFunc("POST /api/liquidity/withdraw", handlers.Liquidity.Withdraw)
	mux.HandleFunc("GET /api/liquidity/positions/{account}", handlers.Liquidity.GetPosition)
	mux.HandleFunc("GET /api/liquidity/journal/{account}", handlers.Liquidity.GetJournal)

	// WebSocket.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Signature(cfg.HMACSecret)(h)
	h = middleware.Auth(cfg.APIKey)(h)
	if limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimit, time.Minute)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
