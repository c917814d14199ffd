package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/mvidal/shop-funnel/internal/config"
	"github.com/mvidal/shop-funnel/internal/dates"
	"github.com/mvidal/shop-funnel/internal/domain"
	"github.com/mvidal/shop-funnel/internal/reconcile"
	"github.com/mvidal/shop-funnel/internal/shopify"
	"github.com/mvidal/shop-funnel/internal/sink"
	"github.com/mvidal/shop-funnel/internal/store"
)

// logSink replaces the real sink on dry runs: rows are logged, not written.
type logSink struct {
	logger *slog.Logger
}

func (s logSink) WriteRow(_ context.Context, row domain.FunnelRow) error {
	s.logger.Info("dry-run: would write row",
		"day", row.Day,
		"add_to_cart", row.AddToCart,
		"begin_checkout", row.BeginCheckout,
		"purchase", row.Purchase,
	)
	return nil
}

func main() {
	var (
		start    = flag.String("start", "", "first day to reconcile (YYYY-MM-DD, default: yesterday)")
		end      = flag.String("end", "", "last day to reconcile (YYYY-MM-DD, default: yesterday)")
		dryRun   = flag.Bool("dry-run", false, "compute rows but do not write the sink")
		register = flag.Bool("register", false, "register webhook subscriptions and exit")
		baseURL  = flag.String("base-url", "", "public base URL of the webhook receiver (with -register)")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	loc := cfg.Location()

	if cfg.ShopDomain == "" || cfg.ShopifyAccessToken == "" {
		logger.Error("shop_domain and shopify_access_token are required")
		os.Exit(1)
	}
	orders := shopify.NewClient(cfg.ShopDomain, cfg.ShopifyAPIVersion, cfg.ShopifyAccessToken, logger)

	ctx := context.Background()

	if *register {
		if *baseURL == "" {
			logger.Error("-register requires -base-url")
			os.Exit(1)
		}
		if err := orders.RegisterWebhooks(ctx, *baseURL); err != nil {
			logger.Error("failed to register webhooks", "error", err)
			os.Exit(1)
		}
		return
	}

	// A daily cron run with no flags reconciles the last fully elapsed day.
	if *start == "" {
		*start = dates.Yesterday(loc)
	}
	if *end == "" {
		*end = *start
	}

	pgStore, err := store.NewPostgres(ctx, cfg.DatabaseURL, loc)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pgStore.Close()

	var rows reconcile.RowSink = sink.NewCSV(cfg.SinkPath)
	if *dryRun {
		rows = logSink{logger: logger}
	}

	summary, err := reconcile.New(pgStore, orders, rows, logger).Run(ctx, *start, *end)
	if err != nil {
		logger.Error("reconcile run failed", "error", err)
		os.Exit(1)
	}

	for _, f := range summary.Failed {
		logger.Error("day skipped", "run_id", summary.RunID, "day", f.Day, "error", f.Err)
	}
	if len(summary.Failed) > 0 {
		os.Exit(1)
	}
}
