package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/yishaik/winter-wellness-bot/internal/history"
	"github.com/yishaik/winter-wellness-bot/internal/log"
	"github.com/yishaik/winter-wellness-bot/internal/sessions"
	"github.com/yishaik/winter-wellness-bot/pkg/config"
)

func main() {
	defaults := sessions.DefaultParams()
	var (
		sqlitePath  = flag.String("sqlite", "", "Path to a local sensor SQLite database")
		baseURL     = flag.String("base-url", "", "Base URL of a remote history endpoint")
		dsn         = flag.String("timescale-dsn", "", "TimescaleDB connection string")
		hours       = flag.Int("hours", 48, "Number of hours of history to analyze")
		threshold   = flag.Float64("threshold", defaults.ThresholdC, "Temperature in °C at or above which a session is hot")
		minDuration = flag.Int("min-duration", defaults.MinDurationMin, "Minimum session duration in minutes")
		gap         = flag.Int("gap", defaults.GapMinutes, "Sampling gap in minutes that closes a session")
		timezone    = flag.String("timezone", "Asia/Jerusalem", "Timezone for printed timestamps")
		asJSON      = flag.Bool("json", false, "Emit sessions as JSON instead of text")
		debug       = flag.Bool("debug", false, "Turn on debugging output")
	)
	flag.Parse()

	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if *sqlitePath == "" && *baseURL == "" && *dsn == "" {
		fmt.Fprintln(os.Stderr, "at least one of -sqlite, -base-url or -timescale-dsn is required")
		flag.Usage()
		os.Exit(2)
	}

	loc, err := time.LoadLocation(*timezone)
	if err != nil {
		log.Errorf("Invalid timezone %q: %v", *timezone, err)
		os.Exit(1)
	}

	chain, err := history.NewChainFromConfig(config.HistoryData{
		SQLitePath:   *sqlitePath,
		TimescaleDSN: *dsn,
		BaseURL:      *baseURL,
	})
	if err != nil {
		log.Errorf("Failed to set up history sources: %v", err)
		os.Exit(1)
	}
	defer chain.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	now := time.Now()
	samples, err := chain.Fetch(ctx, now.Add(-time.Duration(*hours)*time.Hour), now)
	if err != nil {
		log.Errorf("History fetch failed: %v", err)
		os.Exit(1)
	}

	params := sessions.Params{
		ThresholdC:     *threshold,
		MinDurationMin: *minDuration,
		GapMinutes:     *gap,
	}
	found := sessions.Infer(samples, params)

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(found); err != nil {
			log.Errorf("Failed to encode sessions: %v", err)
			os.Exit(1)
		}
		return
	}

	fmt.Printf("%d samples in the last %dh, %d session(s) at or above %.1f°C:\n",
		len(samples), *hours, len(found), *threshold)
	for _, s := range found {
		fmt.Printf("  %s · %s · max %.0f°C\n",
			s.Start.In(loc).Format("02.01 15:04"),
			sessions.FormatMinutes(s.Minutes),
			math.Round(s.MaxTemperatureC))
	}
	if len(found) == 0 {
		fmt.Println("  (none)")
	}
}
