package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/marketlens-lab/marketlens/internal/catalogsource"
	"github.com/marketlens-lab/marketlens/internal/core/catalog"
)

// ErrRefreshInFlight is returned when a refresh is requested while another
// one is still running.
var ErrRefreshInFlight = errors.New("refresh: already in progress")

// Refresher replaces the catalog store's snapshot from a source, once at
// startup and then on a periodic interval. Refreshes are serialized: a tick
// that fires while a reload is still running is skipped, not queued.
type Refresher struct {
	source   catalogsource.Source
	store    *catalog.Store
	interval time.Duration

	mu      sync.Mutex
	running bool
}

// New creates a refresher. interval <= 0 disables periodic refresh; the
// initial load and manual triggers still work.
func New(source catalogsource.Source, store *catalog.Store, interval time.Duration) *Refresher {
	return &Refresher{
		source:   source,
		store:    store,
		interval: interval,
	}
}

// Start performs the initial load, then refreshes on every interval tick
// until ctx is cancelled. The caller typically runs this in the background
// so the API is live (returning catalog_unavailable) while the first
// generation loads.
func (r *Refresher) Start(ctx context.Context) error {
	slog.Info("[Refresher] Starting initial catalog load")
	if _, _, err := r.RefreshNow(ctx); err != nil {
		return fmt.Errorf("initial catalog load: %w", err)
	}

	if r.interval <= 0 {
		slog.Info("[Refresher] Periodic refresh disabled")
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, _, err := r.RefreshNow(ctx); err != nil {
				// Keep serving the previous generation on a failed refresh.
				slog.Error("[Refresher] Refresh failed, keeping current generation", "error", err)
			}
		case <-ctx.Done():
			slog.Info("[Refresher] Stopping (context cancelled)")
			return nil
		}
	}
}

// RefreshNow fetches the catalog and publishes it as the next generation,
// returning the new generation and its row count. A second caller while a
// refresh is in flight gets ErrRefreshInFlight instead of queueing.
func (r *Refresher) RefreshNow(ctx context.Context) (generation uint64, rows int, err error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return 0, 0, ErrRefreshInFlight
	}
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	t0 := time.Now()
	records, err := r.source.Fetch(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch catalog: %w", err)
	}

	generation, dropped := r.store.Load(records)
	slog.Info("[Refresher] Catalog generation published",
		"generation", generation,
		"rows", len(records)-dropped,
		"dropped", dropped,
		"elapsed", time.Since(t0),
	)
	return generation, len(records) - dropped, nil
}
