package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter bounds how many events an account may post inside a sliding
// one-hour window.
type Limiter interface {
	// Allow reports whether the account may post another event now.
	Allow(ctx context.Context, accountID int64) (bool, error)
}

// EventCounter is the slice of the event store the database-backed
// limiter needs.
type EventCounter interface {
	CountCreatedSince(ctx context.Context, accountID int64, since time.Time) (int, error)
}

// DBLimiter counts recent event rows, so the budget survives restarts.
// The posted event row itself is the usage record; Allow only reads.
type DBLimiter struct {
	events EventCounter
	limit  int
	window time.Duration
}

// NewDBLimiter creates a database-backed limiter
func NewDBLimiter(events EventCounter, limit int, window time.Duration) *DBLimiter {
	return &DBLimiter{events: events, limit: limit, window: window}
}

// Allow checks the account's post count over the trailing window
func (l *DBLimiter) Allow(ctx context.Context, accountID int64) (bool, error) {
	count, err := l.events.CountCreatedSince(ctx, accountID, time.Now().Add(-l.window))
	if err != nil {
		return false, err
	}
	return count < l.limit, nil
}

// MemoryLimiter keeps per-account timestamps in process. Cheap, but the
// budget resets on restart; the DB limiter is the default in production.
type MemoryLimiter struct {
	mu     sync.Mutex
	stamps map[int64][]time.Time
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewMemoryLimiter creates an in-process limiter
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		stamps: make(map[int64][]time.Time),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow prunes expired timestamps, then records the attempt if the
// account is still under its budget
func (l *MemoryLimiter) Allow(ctx context.Context, accountID int64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	kept := l.stamps[accountID][:0]
	for _, t := range l.stamps[accountID] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.stamps[accountID] = kept

	if len(kept) >= l.limit {
		return false, nil
	}

	l.stamps[accountID] = append(kept, now)
	return true, nil
}
