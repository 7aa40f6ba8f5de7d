package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/pikestaff/cartridge/internal/event"
	"github.com/pikestaff/cartridge/internal/game"
	"github.com/pikestaff/cartridge/internal/metrics"
)

// persistTimeout bounds a single discovery batch write.
const persistTimeout = 5 * time.Second

// Persister absorbs discovery events into the catalog so the next search
// for the same games can be answered locally. Write failures are logged
// and dropped; discovery persistence is best effort.
type Persister struct {
	store   *Store
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewPersister creates a Persister. Subscribe HandleEvent to the
// games.discovered event type.
func NewPersister(store *Store, m *metrics.Metrics, logger *slog.Logger) *Persister {
	return &Persister{store: store, metrics: m, logger: logger}
}

// HandleEvent writes the discovered games of one event into the catalog.
func (p *Persister) HandleEvent(e event.Event) {
	games, ok := e.Data["games"].([]game.Candidate)
	if !ok || len(games) == 0 {
		return
	}
	batchID, _ := e.Data["batch_id"].(string)

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	n, err := p.store.Upsert(ctx, games)
	if err != nil {
		p.logger.Warn("persisting discovered games failed",
			slog.String("batch_id", batchID),
			slog.String("error", err.Error()))
		return
	}

	p.metrics.RecordUpserts(n)
	p.logger.Debug("discovered games persisted",
		slog.String("batch_id", batchID),
		slog.Int("count", n))
}
