// Package api exposes the engine over a JSON HTTP API.
package api

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"token-launchpad/internal/engine"
	"token-launchpad/internal/observability"
	"token-launchpad/internal/storage"
	"token-launchpad/internal/stream"
)

// Server represents an HTTP server with all routes configured
type Server struct {
	engine      *engine.Engine
	swaps       storage.SwapLogStore
	broadcaster *stream.CandleBroadcaster
	nonces      NonceStore
	clock       func() time.Time
	maxSkew     time.Duration
	logger      *log.Logger
	mux         *http.ServeMux
	server      *http.Server
}

// Options configures a Server. Engine is required.
type Options struct {
	Addr        string
	Engine      *engine.Engine
	Swaps       storage.SwapLogStore      // optional, serves the swap history route
	Broadcaster *stream.CandleBroadcaster // optional, serves /ws
	Nonces      NonceStore                // defaults to a MemoryNonceStore
	Clock       func() time.Time          // checks request timestamps; defaults to time.Now
	MaxSkew     time.Duration             // defaults to DefaultMaxSkew
	Logger      *log.Logger
}

// NewServer creates a new HTTP server with configured routes.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stdout, "[api] ", log.LstdFlags|log.Lshortfile)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.MaxSkew <= 0 {
		opts.MaxSkew = DefaultMaxSkew
	}
	if opts.Nonces == nil {
		opts.Nonces = NewMemoryNonceStore(opts.Clock)
	}
	mux := http.NewServeMux()

	s := &Server{
		engine:      opts.Engine,
		swaps:       opts.Swaps,
		broadcaster: opts.Broadcaster,
		nonces:      opts.Nonces,
		clock:       opts.Clock,
		maxSkew:     opts.MaxSkew,
		logger:      opts.Logger,
		mux:         mux,
		server: &http.Server{
			Addr:         opts.Addr,
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
	s.registerRoutes()
	return s
}

// registerRoutes configures all HTTP routes
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", observability.Handler())
	if s.broadcaster != nil {
		s.mux.HandleFunc("GET /ws", s.broadcaster.Handler())
	}

	s.mux.HandleFunc("POST /v1/pools", s.handleInitializePool)
	s.mux.HandleFunc("GET /v1/pools/{pool}", s.handleGetPool)
	s.mux.HandleFunc("POST /v1/pools/{pool}/plugins/scaling", s.handleAttachScaling)
	s.mux.HandleFunc("POST /v1/pools/{pool}/plugins/trade-to-earn", s.handleAttachTradeToEarn)
	s.mux.HandleFunc("POST /v1/pools/{pool}/quote", s.handleQuote)
	s.mux.HandleFunc("POST /v1/pools/{pool}/swap", s.handleSwap)
	s.mux.HandleFunc("POST /v1/pools/{pool}/claim", s.handleClaim)
	s.mux.HandleFunc("GET /v1/pools/{pool}/candles", s.handleCandles)
	s.mux.HandleFunc("GET /v1/pools/{pool}/swaps", s.handleSwaps)
	s.mux.HandleFunc("GET /v1/pools/{pool}/rewards/{day}", s.handleRewardDay)
	s.mux.HandleFunc("GET /v1/pools/{pool}/rewards/{day}/{user}", s.handleUserRewardDay)
	s.mux.HandleFunc("GET /v1/balances/{owner}/{mint}", s.handleBalance)

	s.mux.HandleFunc("POST /v1/faucet/airdrop", s.handleAirdrop)
	s.mux.HandleFunc("POST /v1/faucet/mint", s.handleMintTo)
}

// Handler returns the configured routes.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	s.logger.Printf("Starting HTTP server on %s", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"network": string(s.engine.Params().Network),
	})
}
