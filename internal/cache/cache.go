// Package cache holds short-lived in-process caches and the janitor that
// sweeps them.
package cache

import (
	"context"
	"time"

	"braces/internal/log"
)

// Cache is the lookup surface handlers depend on.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	Len() int
}

// Stats counts cache lookups.
type Stats struct {
	Hits   int64
	Misses int64
	Size   int
}

// Expirer is a cache that can drop its stale entries.
type Expirer interface {
	RemoveExpired() int
}

var _ Cache[int] = (*LRU[int])(nil)

// Janitor periodically sweeps registered caches so expired entries do not
// linger until their next lookup.
type Janitor struct {
	interval time.Duration
	logger   *log.Logger
	caches   []Expirer
}

func NewJanitor(interval time.Duration, logger *log.Logger, caches ...Expirer) *Janitor {
	if logger == nil {
		logger = log.Discard()
	}
	return &Janitor{interval: interval, logger: logger, caches: caches}
}

// Sweep runs one pass and returns the number of entries removed.
func (j *Janitor) Sweep() int {
	total := 0
	for _, c := range j.caches {
		total += c.RemoveExpired()
	}
	return total
}

// Run sweeps every interval until ctx is done.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := j.Sweep(); n > 0 {
				j.logger.DebugContext(ctx, "Expired cache entries removed", "removed", n)
			}
		}
	}
}
