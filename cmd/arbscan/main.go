// Command arbscan runs a single sync cycle against the configured odds
// providers without a database and prints the arbitrage it finds.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/oddsradar-go/internal/arbitrage"
	"github.com/irfndi/oddsradar-go/internal/config"
	"github.com/irfndi/oddsradar-go/internal/connectors"
	"github.com/irfndi/oddsradar-go/internal/connectors/oddsapi"
	"github.com/irfndi/oddsradar-go/internal/connectors/polymarket"
	"github.com/irfndi/oddsradar-go/internal/logging"
	"github.com/irfndi/oddsradar-go/internal/models"
	"github.com/irfndi/oddsradar-go/internal/services"
	"github.com/irfndi/oddsradar-go/internal/utils"
)

func main() {
	source := flag.String("source", models.SyncSourceAll, "provider to scan: all, odds_api or polymarket")
	minGrade := flag.String("min-grade", "", "hide opportunities below this grade (A-F)")
	limit := flag.Int("limit", 25, "maximum rows to print")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall scan timeout")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewWithOutput(os.Stderr, cfg.LogLevel, cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	store := newMemoryStore()
	report, err := scan(ctx, cfg, *source, sources(cfg, logger), store, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Scan failed: %v\n", err)
		os.Exit(1)
	}

	printReport(os.Stdout, report)
	printOpportunities(os.Stdout, filterGrade(store.Opportunities(), arbitrage.Grade(strings.ToUpper(*minGrade))), *limit)
}

func sources(cfg *config.Config, logger *logrus.Logger) map[string]connectors.Source {
	out := map[string]connectors.Source{
		models.SyncSourcePolymarket: polymarket.NewClient(cfg.Polymarket, nil, logger),
	}
	if cfg.OddsAPI.APIKey != "" {
		out[models.SyncSourceOddsAPI] = oddsapi.NewClient(cfg.OddsAPI, nil, logger)
	}
	return out
}

// scan runs one sync cycle over sources with store standing in for every
// repository.
func scan(ctx context.Context, cfg *config.Config, source string, srcs map[string]connectors.Source, store *memoryStore, logger *logrus.Logger) (*models.SyncReport, error) {
	svc := services.NewSyncService(services.SyncDependencies{
		Sources:       srcs,
		Engine:        arbitrage.NewEngine(cfg.Arbitrage.Config),
		Bookmakers:    store,
		Events:        eventStore{store},
		Odds:          store,
		Opportunities: store,
		SyncState:     store,
		Volatility:    services.NewOddsTrendService(store, logger),
	}, services.SyncConfig{
		SnapshotWindow:        cfg.Arbitrage.SnapshotWindow,
		MaxWorkers:            cfg.Arbitrage.MaxWorkers,
		DefaultLiquidityScore: cfg.Arbitrage.DefaultLiquidityScore,
		DefaultReliability:    cfg.Arbitrage.DefaultReliability,
		Volatility:            cfg.Arbitrage.Volatility,
	}, logger)
	return svc.RunOnce(ctx, source)
}

func filterGrade(opps []models.Opportunity, minGrade arbitrage.Grade) []models.Opportunity {
	if minGrade.Rank() < 0 {
		return opps
	}
	out := opps[:0:0]
	for _, o := range opps {
		if o.QualityGrade.Rank() >= minGrade.Rank() {
			out = append(out, o)
		}
	}
	return out
}

func printReport(w io.Writer, report *models.SyncReport) {
	table := tablewriter.NewWriter(w)
	table.Header("Provider", "Events", "Quotes", "Took", "Status")
	for _, r := range report.Results {
		status := "ok"
		if !r.Success {
			status = "failed: " + strings.Join(r.Errors, "; ")
		} else if len(r.Errors) > 0 {
			status = fmt.Sprintf("ok (%d warnings)", len(r.Errors))
		}
		table.Append(
			r.Provider,
			fmt.Sprintf("%d", r.EventsProcessed),
			fmt.Sprintf("%d", r.OddsProcessed),
			r.Duration.Round(time.Millisecond).String(),
			status,
		)
	}
	table.Render()
	fmt.Fprintf(w, "%d opportunities detected in %s\n\n", report.OpportunitiesDetected, report.Duration.Round(time.Millisecond))
}

func printOpportunities(w io.Writer, opps []models.Opportunity, limit int) {
	if len(opps) == 0 {
		fmt.Fprintln(w, "No arbitrage found.")
		return
	}
	if limit > 0 && len(opps) > limit {
		opps = opps[:limit]
	}

	table := tablewriter.NewWriter(w)
	table.Header("#", "Event", "Market", "Home", "Away", "Draw", "Profit", "Grade", "Risk", "Stake", "Expires")
	for i, o := range opps {
		draw := "-"
		if o.BookmakerDraw != "" {
			draw = leg(o.BookmakerDraw, o.OddsDraw, o.StakeDraw)
		}
		table.Append(
			fmt.Sprintf("%d", i+1),
			truncate(o.Title(), 36),
			o.MarketType,
			leg(o.BookmakerHome, o.OddsHome, o.StakeHome),
			leg(o.BookmakerAway, o.OddsAway, o.StakeAway),
			draw,
			utils.FormatProfitPercentage(o.ProfitPercentage),
			fmt.Sprintf("%s (%d)", o.QualityGrade, o.QualityScore),
			string(o.LatencyRisk),
			utils.FormatStake(o.TotalStake),
			o.ExpiresAt.Format("15:04:05"),
		)
	}
	table.Render()
}

func leg(bookmaker string, odds, stake float64) string {
	return fmt.Sprintf("%s @%.2f %s", bookmaker, odds, utils.FormatStake(stake))
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
