// Package main runs the rewards daemon: it loads the YAML config, connects to
// PostgreSQL (and ClickHouse when configured), restores persisted positions
// and scheduled funding, follows the WebSocket tick feed, and syncs every
// configured pool on a fixed interval.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"clm-rewards/internal/config"
	"clm-rewards/internal/domain"
	"clm-rewards/internal/engine"
	"clm-rewards/internal/reporting"
	"clm-rewards/internal/storage"
	chstore "clm-rewards/internal/storage/clickhouse"
	"clm-rewards/internal/storage/migrations"
	pgstore "clm-rewards/internal/storage/postgres"
	"clm-rewards/internal/tickfeed"
)

// Server holds the daemon's components and run state.
type Server struct {
	cfg    *config.Config
	eng    *engine.Engine
	logger *log.Logger

	// reporter reads straight from the durable stores, never from the engine.
	reporter *reporting.Generator

	// State behind mu; the engine itself is only touched by the sync loop.
	mu          sync.Mutex
	started     time.Time
	lastSyncRun time.Time
	syncRuns    int
	syncErrors  int
}

// loggedTransfer acknowledges payouts and logs them. Moving the actual tokens
// is the host's transfer primitive; the daemon records what became claimable.
type loggedTransfer struct {
	logger *log.Logger
}

func (t *loggedTransfer) Transfer(_ context.Context, mint, recipient string, amount *big.Int) error {
	t.logger.Printf("payout %s %s -> %s", amount, mint, recipient)
	return nil
}

func main() {
	// Parse flags
	configPath := flag.String("config", "config.yaml", "Path to YAML configuration file")
	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[rewardsd] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// PostgreSQL: durable positions, funding, claims. Migrations run on boot.
	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Fatalf("Failed to run postgres migrations: %v", err)
	}

	// ClickHouse is optional; without it accrual analytics are simply skipped.
	var accrualStore storage.AccrualEventStore
	if cfg.ClickhouseDSN != "" {
		chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			logger.Fatalf("Failed to run clickhouse migrations: %v", err)
		}
		defer chConn.Close()
		accrualStore = chstore.NewAccrualEventStore(chConn)
	}

	positionStore := pgstore.NewPositionStore(pool)
	fundingStore := pgstore.NewFundingEventStore(pool)
	claimStore := pgstore.NewClaimStore(pool)

	// The cache bridges the push feed to the engine's pull reads. Seeding it
	// with the configured initial ticks lets syncs run before the first
	// feed update arrives.
	cache := tickfeed.NewCache()
	feed, err := tickfeed.NewWSFeed(ctx, cfg.TickFeed.Endpoint, nil)
	if err != nil {
		logger.Fatalf("Failed to connect tick feed: %v", err)
	}
	defer feed.Close()

	eng, err := engine.New(engine.Options{
		Coordinates:   cache,
		Transfer:      &loggedTransfer{logger: logger},
		BurnPolicy:    domain.BurnPolicy(cfg.BurnPolicy),
		PositionStore: positionStore,
		FundingStore:  fundingStore,
		ClaimStore:    claimStore,
		AccrualStore:  accrualStore,
		Logger:        logger,
	})
	if err != nil {
		logger.Fatalf("Failed to create engine: %v", err)
	}

	// Register every configured pool and rebuild its live state: persisted
	// positions plus funding buckets that can still stream.
	today := domain.DayIndex(time.Now().Unix())
	for _, p := range cfg.Pools {
		cache.Apply(tickfeed.TickUpdate{PoolID: p.Address, Tick: p.InitialTick})
		if err := eng.RegisterPool(p.Address, p.InitialTick, p.RewardMints); err != nil {
			logger.Fatalf("Failed to register pool %s: %v", p.Address, err)
		}
		restored, err := eng.RestorePositions(ctx, p.Address)
		if err != nil {
			logger.Fatalf("Failed to restore positions for %s: %v", p.Address, err)
		}
		replayed, err := eng.ReplayFunding(ctx, p.Address, today)
		if err != nil {
			logger.Fatalf("Failed to replay funding for %s: %v", p.Address, err)
		}
		logger.Printf("Pool %s: restored %d positions, replayed %d funding events", p.Address, restored, replayed)

		ch, err := feed.WatchPool(ctx, p.Address)
		if err != nil {
			logger.Fatalf("Failed to watch pool %s: %v", p.Address, err)
		}
		go cache.Follow(ch)
	}

	server := &Server{
		cfg:      cfg,
		eng:      eng,
		logger:   logger,
		reporter: reporting.NewGenerator(fundingStore, claimStore, positionStore),
		started:  time.Now(),
	}

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	// Start HTTP server
	go server.startHTTPServer(cfg.HTTPAddr)

	// Run the sync loop
	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Daemon error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// Run drives the periodic pool sync loop. It is the only goroutine that
// touches the engine, which is single-writer.
func (s *Server) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.SyncIntervalSeconds) * time.Second
	s.logger.Printf("Starting sync loop (interval: %v, pools: %d)...", interval, len(s.cfg.Pools))

	// Run immediately on start
	s.syncAll(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.syncAll(ctx)
		}
	}
}

// syncAll syncs every configured pool, logging failures without stopping.
func (s *Server) syncAll(ctx context.Context) {
	errs := 0
	for _, p := range s.cfg.Pools {
		if err := s.eng.SyncPool(ctx, p.Address); err != nil {
			s.logger.Printf("Sync failed for %s: %v", p.Address, err)
			errs++
		}
	}

	s.mu.Lock()
	s.lastSyncRun = time.Now()
	s.syncRuns++
	s.syncErrors += errs
	s.mu.Unlock()
}

// startHTTPServer starts the HTTP server for health/status/report.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Status endpoint
	mux.HandleFunc("/status", s.handleStatus)

	// Distribution report, rendered from the durable stores
	mux.HandleFunc("/report", s.handleReport)

	s.logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Printf("HTTP server error: %v", err)
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status      string    `json:"status"`
	Uptime      string    `json:"uptime"`
	Pools       int       `json:"pools"`
	LastSyncRun time.Time `json:"last_sync_run,omitempty"`
	SyncRuns    int       `json:"sync_runs"`
	SyncErrors  int       `json:"sync_errors"`
}

// handleStatus returns daemon status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := StatusResponse{
		Status:      "running",
		Uptime:      time.Since(s.started).String(),
		Pools:       len(s.cfg.Pools),
		LastSyncRun: s.lastSyncRun,
		SyncRuns:    s.syncRuns,
		SyncErrors:  s.syncErrors,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleReport renders the Markdown distribution report for ?pool=<address>.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	poolID := r.URL.Query().Get("pool")
	if poolID == "" {
		http.Error(w, "missing pool parameter", http.StatusBadRequest)
		return
	}

	report, err := s.reporter.Generate(r.Context(), poolID)
	if err != nil {
		s.logger.Printf("Report generation failed for %s: %v", poolID, err)
		http.Error(w, fmt.Sprintf("report generation failed: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write([]byte(reporting.RenderMarkdown(report)))
}
