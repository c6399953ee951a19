// Package content holds the periodically refreshed, read-only snapshot of
// quiz questions, prizes and reaction media.
package content

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"funky-quizbot/internal/domain"
	"golang.org/x/sync/singleflight"
)

// Snapshot is one complete, immutable view of the content set. Readers either
// see a whole old snapshot or a whole new one, never a mix.
type Snapshot struct {
	Questions []domain.QuizQuestion  `json:"questions"`
	Prizes    []domain.Prize         `json:"prizes"`
	Reactions []domain.ReactionMedia `json:"reactions"`
	FetchedAt time.Time              `json:"fetchedAt"`
}

// Store persists snapshots so the server can start while the live source is
// unreachable.
type Store interface {
	Save(snap *Snapshot) error
	Load() (*Snapshot, error)
}

// Cache serves the current snapshot and swaps in new ones atomically.
type Cache struct {
	source Source
	store  Store // optional fallback/persistence, may be nil
	clock  func() time.Time
	sf     singleflight.Group
	snap   atomic.Pointer[Snapshot]
}

func NewCache(source Source, store Store) *Cache {
	return &Cache{source: source, store: store, clock: time.Now}
}

// Current returns the live snapshot, fetching one on first use. Concurrent
// first calls share a single fetch. If the source is down and a persisted
// snapshot exists, that is served instead.
func (c *Cache) Current(ctx context.Context) (*Snapshot, error) {
	if snap := c.snap.Load(); snap != nil {
		return snap, nil
	}

	result, err, _ := c.sf.Do("snapshot", func() (interface{}, error) {
		if snap := c.snap.Load(); snap != nil {
			return snap, nil
		}
		if err := c.Refresh(ctx); err != nil {
			if c.store != nil {
				if snap, loadErr := c.store.Load(); loadErr == nil {
					c.snap.Store(snap)
					log.Printf("content: live source down, serving persisted snapshot from %s", snap.FetchedAt.Format(time.RFC3339))
					return snap, nil
				}
			}
			return nil, err
		}
		return c.snap.Load(), nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Snapshot), nil
}

// Refresh builds a complete new snapshot from the source and swaps it in.
// Any fetch failure leaves the previous snapshot untouched.
func (c *Cache) Refresh(ctx context.Context) error {
	questions, err := c.source.FetchQuestions(ctx)
	if err != nil {
		return fmt.Errorf("%w: questions: %v", domain.ErrContentUnavailable, err)
	}
	prizes, err := c.source.FetchPrizes(ctx)
	if err != nil {
		return fmt.Errorf("%w: prizes: %v", domain.ErrContentUnavailable, err)
	}
	reactions, err := c.source.FetchReactions(ctx)
	if err != nil {
		return fmt.Errorf("%w: reactions: %v", domain.ErrContentUnavailable, err)
	}

	snap := &Snapshot{
		Questions: questions,
		Prizes:    prizes,
		Reactions: reactions,
		FetchedAt: c.clock(),
	}
	c.snap.Store(snap)

	if c.store != nil {
		if err := c.store.Save(snap); err != nil {
			log.Printf("content: persisting snapshot failed: %v", err)
		}
	}
	return nil
}

// Refresher runs Cache.Refresh on a fixed interval until its context ends.
// One failed cycle is logged and does not stop the loop.
type Refresher struct {
	cache    *Cache
	interval time.Duration
}

func NewRefresher(cache *Cache, interval time.Duration) *Refresher {
	return &Refresher{cache: cache, interval: interval}
}

func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	if err := r.cache.Refresh(ctx); err != nil {
		log.Printf("content: initial refresh failed: %v", err)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.cache.Refresh(ctx); err != nil {
				log.Printf("content: refresh failed: %v", err)
			}
		}
	}
}
