// Package sink writes finished funnel rows to their tabular destination.
package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/mvidal/shop-funnel/internal/domain"
)

var header = []string{"day", "add_to_cart", "begin_checkout", "purchase"}

// CSV appends funnel rows to a local CSV file, updating in place when a
// day is re-reconciled. It keeps the reconciler's append-or-update-by-day
// contract so re-runs never produce duplicate rows.
type CSV struct {
	path string
	mu   sync.Mutex
}

func NewCSV(path string) *CSV {
	return &CSV{path: path}
}

// WriteRow inserts or replaces the row for row.Day. The whole file is
// rewritten through a temp file and rename so a crash mid-write never
// leaves a torn CSV behind.
func (c *CSV) WriteRow(_ context.Context, row domain.FunnelRow) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.read()
	if err != nil {
		return err
	}

	updated := false
	for i, rec := range records {
		if rec[0] == row.Day {
			records[i] = toRecord(row)
			updated = true
			break
		}
	}
	if !updated {
		records = append(records, toRecord(row))
	}

	return c.write(records)
}

func (c *CSV) read() ([][]string, error) {
	f, err := os.Open(c.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", c.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	all, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", c.path, err)
	}

	if len(all) > 0 && len(all[0]) > 0 && all[0][0] == header[0] {
		all = all[1:]
	}
	return all, nil
}

func (c *CSV) write(records [][]string) error {
	// Same directory as the target so the rename stays on one filesystem.
	tmp, err := os.CreateTemp(filepath.Dir(c.path), ".funnel-*.csv")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("writing header: %w", err)
	}
	if err := w.WriteAll(records); err != nil {
		tmp.Close()
		return fmt.Errorf("writing rows: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flushing: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("replacing %s: %w", c.path, err)
	}
	return nil
}

func toRecord(row domain.FunnelRow) []string {
	return []string{
		row.Day,
		strconv.FormatInt(row.AddToCart, 10),
		strconv.FormatInt(row.BeginCheckout, 10),
		strconv.FormatInt(row.Purchase, 10),
	}
}
