// Package dedup suppresses reprocessing of redelivered webhook events by
// tracking the highest message sequence number seen per conversation.
package dedup

import (
	"context"
	"sync"
)

// Filter admits each (conversation, sequence) pair at most once.
type Filter interface {
	// Admit returns true and records seq as the new high-water mark iff seq is
	// strictly greater than the stored value for key. The check and the update
	// are one atomic step.
	Admit(ctx context.Context, key string, seq int64) (bool, error)
}

// MemoryFilter is the in-process Filter. Keys are never expired; the map grows
// with the number of distinct conversations over the process lifetime.
type MemoryFilter struct {
	mu   sync.Mutex
	seen map[string]int64
}

func NewMemoryFilter() *MemoryFilter {
	return &MemoryFilter{seen: make(map[string]int64)}
}

func (f *MemoryFilter) Admit(_ context.Context, key string, seq int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	high, ok := f.seen[key]
	if !ok {
		high = -1
	}
	if seq <= high {
		return false, nil
	}
	f.seen[key] = seq
	return true, nil
}
