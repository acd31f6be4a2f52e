// Package main runs a deterministic reward streaming scenario entirely in
// memory: fund, subscribe, move the tick, accrue, claim, and verify that
// every funded unit ends up claimed, owed, or still scheduled.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"clm-rewards/internal/domain"
	"clm-rewards/internal/engine"
	"clm-rewards/internal/reporting"
	"clm-rewards/internal/storage/memory"
	"clm-rewards/internal/tickfeed"
)

// Scenario fixtures: one pool, one reward mint, two liquidity providers.
const (
	poolAddr   = "So11111111111111111111111111111111111111112"
	rewardMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	alice      = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	bob        = "Vote111111111111111111111111111111111111111"
)

// dayFunding streams exactly 1000 units per second across one UTC day.
const dayFunding = int64(86400000)

// simClock is a hand-advanced clock so every day window lands exactly.
type simClock struct {
	now int64
}

func (c *simClock) Unix() int64 { return c.now }

func (c *simClock) advanceDays(d int64) {
	c.now += d * domain.SecondsPerDay
}

func main() {
	// Parse flags
	outputDir := flag.String("output-dir", "output", "Output directory for generated reports")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived signal %v, cancelling scenario...\n", sig)
		cancel()
	}()

	// Fixed clock at a UTC day boundary keeps every window exact.
	clock := &simClock{now: time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC).Unix()}

	// All state lives in memory; the transfer sink records payouts.
	positions := memory.NewPositionStore()
	funding := memory.NewFundingEventStore()
	claims := memory.NewClaimStore()
	accruals := memory.NewAccrualEventStore()
	transfer := engine.NewNopTransfer()

	ticks := tickfeed.NewManual()
	ticks.SetTick(poolAddr, 0)

	eng, err := engine.New(engine.Options{
		Coordinates:   ticks,
		Transfer:      transfer,
		PositionStore: positions,
		FundingStore:  funding,
		ClaimStore:    claims,
		AccrualStore:  accruals,
		Clock:         clock.Unix,
	})
	if err != nil {
		fatalf("Create engine: %v", err)
	}

	fmt.Println("=== Reward Streaming Scenario ===")

	// Day 0: register the pool at tick 0 and stake two ranges. Alice covers
	// the active tick; Bob's range sits entirely above it.
	if err := eng.RegisterPool(poolAddr, 0, []string{rewardMint}); err != nil {
		fatalf("Register pool: %v", err)
	}
	aliceID, err := eng.Subscribe(ctx, alice, poolAddr, -600, 600, big.NewInt(1000))
	if err != nil {
		fatalf("Subscribe alice: %v", err)
	}
	bobID, err := eng.Subscribe(ctx, bob, poolAddr, 1200, 2400, big.NewInt(500))
	if err != nil {
		fatalf("Subscribe bob: %v", err)
	}
	if *verbose {
		fmt.Printf("  alice position %s: [-600, 600) liquidity 1000\n", aliceID)
		fmt.Printf("  bob position   %s: [1200, 2400) liquidity 500\n", bobID)
	}

	// Fund one day's stream. It targets day+2 and has fully elapsed by day 3.
	if err := eng.Fund(ctx, poolAddr, rewardMint, big.NewInt(dayFunding)); err != nil {
		fatalf("Fund: %v", err)
	}
	fmt.Printf("Day 0: funded %d of %s\n", dayFunding, rewardMint)

	// Day 3: the funded day streamed at tick 0, covered by alice alone.
	clock.advanceDays(3)
	if *verbose {
		if err := eng.SyncPool(ctx, poolAddr); err != nil {
			fatalf("Sync pool: %v", err)
		}
		pending := eng.PendingRewards(aliceID)
		fmt.Printf("  alice pending before claim: %s\n", amountOrZero(pending[rewardMint]))
	}
	claimed, err := eng.Claim(ctx, aliceID)
	if err != nil {
		fatalf("Claim alice: %v", err)
	}
	fmt.Printf("Day 3: alice claimed %s\n", amountOrZero(claimed[rewardMint]))

	// Second tranche, then move the tick into Bob's range before it streams.
	if err := eng.Fund(ctx, poolAddr, rewardMint, big.NewInt(dayFunding)); err != nil {
		fatalf("Fund second tranche: %v", err)
	}
	ticks.SetTick(poolAddr, 1800)
	if err := eng.SyncPool(ctx, poolAddr); err != nil {
		fatalf("Sync pool after tick move: %v", err)
	}
	fmt.Println("Day 3: funded second tranche, tick moved to 1800")

	// Day 6: the second tranche streamed inside Bob's range. Doubling his
	// stake settles the accrued balance against the pre-change liquidity.
	clock.advanceDays(3)
	if err := eng.ModifyPosition(ctx, bobID, big.NewInt(500)); err != nil {
		fatalf("Modify bob: %v", err)
	}
	claimed, err = eng.Claim(ctx, bobID)
	if err != nil {
		fatalf("Claim bob: %v", err)
	}
	fmt.Printf("Day 6: bob claimed %s after doubling his stake\n", amountOrZero(claimed[rewardMint]))

	// Wind the scenario down; nothing further is owed.
	if _, err := eng.Unsubscribe(ctx, aliceID); err != nil {
		fatalf("Unsubscribe alice: %v", err)
	}
	if _, err := eng.Unsubscribe(ctx, bobID); err != nil {
		fatalf("Unsubscribe bob: %v", err)
	}

	if *verbose {
		fmt.Printf("  total paid to alice: %s\n", transfer.Paid(alice, rewardMint))
		fmt.Printf("  total paid to bob:   %s\n", transfer.Paid(bob, rewardMint))
		events, _ := accruals.GetByPool(ctx, poolAddr)
		fmt.Printf("  accrual events recorded: %d\n", len(events))
	}

	// Conservation report over the recorded funding, claims, and positions.
	fmt.Println("\n=== Conservation Report ===")
	gen := reporting.NewGenerator(funding, claims, positions).
		WithClock(func() time.Time { return time.Unix(clock.now, 0).UTC() })
	report, err := gen.Generate(ctx, poolAddr)
	if err != nil {
		fatalf("Generate report: %v", err)
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fatalf("Create output directory: %v", err)
	}
	mdPath := filepath.Join(*outputDir, "REWARDS_REPORT.md")
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0644); err != nil {
		fatalf("Write markdown report: %v", err)
	}
	csvPath := filepath.Join(*outputDir, "rewards_report.csv")
	if err := os.WriteFile(csvPath, []byte(reporting.RenderCSV(report)), 0644); err != nil {
		fatalf("Write CSV report: %v", err)
	}

	for _, m := range report.Mints {
		fmt.Printf("  %s: funded %s, claimed %s, outstanding %s, residual %s\n",
			m.Mint, m.TotalFunded, m.TotalClaimed, m.TotalOutstanding, m.Residual)
	}
	fmt.Printf("Reports written to %s and %s\n", mdPath, csvPath)

	if !report.Conserved {
		fmt.Fprintln(os.Stderr, "CONSERVATION VIOLATION: claimed or owed exceeds funded")
		os.Exit(1)
	}
	fmt.Println("Conservation holds.")
}

func amountOrZero(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
