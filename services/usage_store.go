package services

import (
	"context"
	"sort"
	"sync"

	"chat-meter/models"

	"github.com/sirupsen/logrus"
)

// UsageStore persists the date -> cumulative USD mapping.
type UsageStore interface {
	Load(ctx context.Context) (map[string]float64, error)
	Save(ctx context.Context, usage map[string]float64) error
}

// UsageLedger is the in-memory mirror of the usage store and the single writer to it.
// All amounts are held in micro-dollars.
type UsageLedger struct {
	mu    sync.Mutex
	days  map[string]int64
	store UsageStore
	log   *logrus.Logger
}

// NewUsageLedger loads the persisted usage. A failing store yields an empty ledger.
func NewUsageLedger(ctx context.Context, store UsageStore, log *logrus.Logger) *UsageLedger {
	l := &UsageLedger{
		days:  make(map[string]int64),
		store: store,
		log:   log,
	}
	usage, err := store.Load(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to load usage, starting empty")
		return l
	}
	for day, usd := range usage {
		l.days[day] = toMicros(usd)
	}
	log.WithField("days", len(l.days)).Info("Usage loaded")
	return l
}

// Spent returns the cumulative USD charged on a day.
func (l *UsageLedger) Spent(day string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fromMicros(l.days[day])
}

// Charge adds usd to the day and returns the new total.
func (l *UsageLedger) Charge(day string, usd float64) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.days[day] += toMicros(usd)
	return fromMicros(l.days[day])
}

// Refund takes back a previous charge. Only the overage rollback calls it.
func (l *UsageLedger) Refund(day string, usd float64) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.days[day] -= toMicros(usd)
	if l.days[day] <= 0 {
		delete(l.days, day)
		return 0
	}
	return fromMicros(l.days[day])
}

// Snapshot copies the ledger as the store's wire shape.
func (l *UsageLedger) Snapshot() map[string]float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *UsageLedger) snapshotLocked() map[string]float64 {
	out := make(map[string]float64, len(l.days))
	for day, m := range l.days {
		out[day] = fromMicros(m)
	}
	return out
}

// History lists every day, oldest first, rounded to 4 places for display.
func (l *UsageLedger) History() []models.DailyUsage {
	snap := l.Snapshot()
	out := make([]models.DailyUsage, 0, len(snap))
	for day, usd := range snap {
		out = append(out, models.DailyUsage{Day: day, USD: Round(usd, 4)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}

// Flush writes the whole ledger to the store. Writes are serialized by the ledger lock,
// so two sessions can never interleave a read-modify-write on the store.
func (l *UsageLedger) Flush(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.store.Save(ctx, l.snapshotLocked()); err != nil {
		return &PersistenceError{Err: err}
	}
	return nil
}
