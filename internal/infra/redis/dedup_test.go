package redis

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestAdmitTracksHighWaterMark(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	filter := NewDedupFilter(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	steps := []struct {
		key  string
		seq  int64
		want bool
	}{
		{"u1:page", 0, true},
		{"u1:page", 0, false},
		{"u1:page", 7, true},
		{"u1:page", 3, false},
		{"u2:page", 3, true},
		{"u1:page", 8, true},
	}
	for i, s := range steps {
		got, err := filter.Admit(ctx, s.key, s.seq)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if got != s.want {
			t.Fatalf("step %d: Admit(%q, %d) = %v, want %v", i, s.key, s.seq, got, s.want)
		}
	}

	if !mr.Exists("dedup:u1:page") {
		t.Fatalf("expected key in redis")
	}
}
