// Package redis holds the redis-backed dedup filter, for deployments where
// several webhook workers must share one set of high-water marks.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// admitScript compares and records the sequence high-water mark in one atomic
// step on the server, mirroring the in-memory filter's locked check-and-set.
var admitScript = redis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[1]) or '-1')
local seq = tonumber(ARGV[1])
if seq > cur then
	redis.call('SET', KEYS[1], ARGV[1])
	return 1
end
return 0
`)

// DedupFilter implements dedup.Filter on a shared redis instance.
type DedupFilter struct {
	client *redis.Client
}

func NewDedupFilter(client *redis.Client) *DedupFilter {
	return &DedupFilter{client: client}
}

func (f *DedupFilter) Admit(ctx context.Context, key string, seq int64) (bool, error) {
	res, err := admitScript.Run(ctx, f.client, []string{f.key(key)}, seq).Int()
	if err != nil {
		return false, fmt.Errorf("dedup script: %w", err)
	}
	return res == 1, nil
}

func (f *DedupFilter) key(conversation string) string {
	return "dedup:" + conversation
}
