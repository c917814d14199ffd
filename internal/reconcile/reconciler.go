// Package reconcile joins locally counted funnel-entry events with the
// externally sourced paid-order count into one funnel row per day.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/mvidal/shop-funnel/internal/dates"
	"github.com/mvidal/shop-funnel/internal/domain"
)

// CounterSource is the read-only slice of the event store the reconciler
// uses. Counters only grow, so re-running a day is always safe.
type CounterSource interface {
	CountFor(ctx context.Context, kind domain.EventKind, day string) (int64, error)
}

// OrdersClient is the external orders collaborator: given a day, return the
// number of paid orders placed on it. It may be rate limited or eventually
// consistent; the reconciler treats any error as that day being unavailable.
type OrdersClient interface {
	CountPaidOrders(ctx context.Context, day string) (int64, error)
}

// RowSink receives finished funnel rows, keyed by day.
type RowSink interface {
	WriteRow(ctx context.Context, row domain.FunnelRow) error
}

// DayError records a single day lost to a collaborator or sink failure.
type DayError struct {
	Day string
	Err error
}

func (e DayError) Error() string {
	return fmt.Sprintf("day %s: %v", e.Day, e.Err)
}

// Summary is the result of one reconciliation run.
type Summary struct {
	RunID  string
	Rows   []domain.FunnelRow
	Failed []DayError
}

// Reconciler assembles daily funnel rows. It is read-only with respect to
// the event store and holds no state between runs.
type Reconciler struct {
	counters   CounterSource
	orders     OrdersClient
	sink       RowSink
	logger     *slog.Logger
	numWorkers int
}

func New(counters CounterSource, orders OrdersClient, sink RowSink, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		counters:   counters,
		orders:     orders,
		sink:       sink,
		logger:     logger,
		numWorkers: 4,
	}
}

type dayResult struct {
	row domain.FunnelRow
	err *DayError
}

// Run reconciles every day in the inclusive [start, end] range. Days are
// computed by a small worker pool; a failing day is recorded in
// Summary.Failed and the rest proceed. Rows are written to the sink in day
// order once all days have settled, so a re-run over unchanged inputs
// produces identical output.
func (r *Reconciler) Run(ctx context.Context, start, end string) (*Summary, error) {
	days, err := dates.Range(start, end)
	if err != nil {
		return nil, fmt.Errorf("expanding day range: %w", err)
	}

	summary := &Summary{RunID: uuid.New().String()}
	r.logger.Info("reconcile run starting", "run_id", summary.RunID, "start", start, "end", end, "days", len(days))

	jobs := make(chan string)
	results := make(chan dayResult)

	var wg sync.WaitGroup
	for i := 0; i < r.numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for day := range jobs {
				results <- r.reconcileDay(ctx, day)
			}
		}()
	}

	go func() {
		for _, day := range days {
			jobs <- day
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	for res := range results {
		if res.err != nil {
			summary.Failed = append(summary.Failed, *res.err)
			continue
		}
		summary.Rows = append(summary.Rows, res.row)
	}

	sort.Slice(summary.Rows, func(i, j int) bool { return summary.Rows[i].Day < summary.Rows[j].Day })
	sort.Slice(summary.Failed, func(i, j int) bool { return summary.Failed[i].Day < summary.Failed[j].Day })

	// Emit the surviving rows even when other days failed.
	kept := summary.Rows[:0]
	for _, row := range summary.Rows {
		if err := r.sink.WriteRow(ctx, row); err != nil {
			r.logger.Error("failed to write funnel row", "run_id", summary.RunID, "day", row.Day, "error", err)
			summary.Failed = append(summary.Failed, DayError{Day: row.Day, Err: err})
			continue
		}
		kept = append(kept, row)
	}
	summary.Rows = kept

	r.logger.Info("reconcile run finished",
		"run_id", summary.RunID,
		"rows", len(summary.Rows),
		"failed", len(summary.Failed),
	)
	return summary, nil
}

// reconcileDay builds one day's row from its two independent sources. No
// cross-correction happens between them: purchase greater than
// begin_checkout is reported as-is.
func (r *Reconciler) reconcileDay(ctx context.Context, day string) dayResult {
	addToCart, err := r.counters.CountFor(ctx, domain.AddToCart, day)
	if err != nil {
		return dayResult{err: &DayError{Day: day, Err: fmt.Errorf("reading add_to_cart counter: %w", err)}}
	}

	beginCheckout, err := r.counters.CountFor(ctx, domain.BeginCheckout, day)
	if err != nil {
		return dayResult{err: &DayError{Day: day, Err: fmt.Errorf("reading begin_checkout counter: %w", err)}}
	}

	purchases, err := r.orders.CountPaidOrders(ctx, day)
	if err != nil {
		return dayResult{err: &DayError{Day: day, Err: fmt.Errorf("querying paid orders: %w", err)}}
	}

	return dayResult{row: domain.FunnelRow{
		Day:           day,
		AddToCart:     addToCart,
		BeginCheckout: beginCheckout,
		Purchase:      purchases,
	}}
}
