package initiator

import (
	"context"
	"log"
	"sync"
	"time"
)

// ActiveUserSource lists the users a sweep tick should visit.
type ActiveUserSource interface {
	ActiveUserIDs(ctx context.Context, since time.Time) ([]uint64, error)
}

const (
	defaultInterval  = 5 * time.Minute
	activeWindowDays = 30
)

// Worker runs the sweep for every recently-active user on a fixed
// interval. Sweeps are serialized per user with a keyed mutex, so an
// overlapping slow tick cannot race a fresh one into duplicate daily
// messages.
type Worker struct {
	Sweep    *Sweep
	Users    ActiveUserSource
	Interval time.Duration

	mu    sync.Mutex
	locks map[uint64]*sync.Mutex
}

// Run ticks until the context is cancelled. The first pass happens
// immediately; an in-flight pass finishes before shutdown completes.
func (w *Worker) Run(ctx context.Context) {
	interval := w.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	now := time.Now()
	users, err := w.Users.ActiveUserIDs(ctx, now.AddDate(0, 0, -activeWindowDays))
	if err != nil {
		log.Printf("sweep: list active users: %v", err)
		return
	}

	for _, uid := range users {
		if ctx.Err() != nil {
			return
		}
		w.sweepUser(ctx, uid, now)
	}
	log.Printf("sweep: checked %d users", len(users))
}

func (w *Worker) sweepUser(ctx context.Context, userID uint64, now time.Time) {
	mu := w.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	if err := w.Sweep.Run(ctx, userID, now); err != nil {
		log.Printf("%v", err)
	}
}

func (w *Worker) userLock(userID uint64) *sync.Mutex {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.locks == nil {
		w.locks = map[uint64]*sync.Mutex{}
	}
	mu, ok := w.locks[userID]
	if !ok {
		mu = &sync.Mutex{}
		w.locks[userID] = mu
	}
	return mu
}
