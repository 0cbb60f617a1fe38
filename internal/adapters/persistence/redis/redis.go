// Package redis publishes read-only JSON snapshots for presentation.
// When Redis is unreachable the cache is bypassed and the engine keeps working.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/okian/plotpath/pkg/logger"
	"github.com/okian/plotpath/pkg/metrics"
)

const (
	pingTimeout = 2 * time.Second
	keyPrefix   = "plotpath:"
	defaultTTL  = 5 * time.Minute
)

// Snapshot kinds used as key segments.
const (
	KindDesirability = "desirability"
	KindGap          = "gap"
	KindVerdict      = "verdict"
)

// SnapshotCache stores JSON snapshots with a TTL.
type SnapshotCache struct {
	client *goredis.Client
	ttl    time.Duration
	logger logger.Logger

	warnedUnavailable atomic.Bool
}

// Options for connecting.
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// New connects to Redis. If the server does not answer a ping the returned
// cache bypasses every call.
func New(ctx context.Context, opts Options, log logger.Logger) *SnapshotCache {
	c := &SnapshotCache{ttl: opts.TTL, logger: log}
	if c.ttl <= 0 {
		c.ttl = defaultTTL
	}
	addr := strings.TrimSpace(opts.Addr)
	if addr == "" {
		return c
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		c.warnUnavailableOnce(ctx, err)
		_ = client.Close()
		return c
	}
	c.client = client
	return c
}

// Available reports whether a Redis connection is in use.
func (c *SnapshotCache) Available() bool {
	return c != nil && c.client != nil
}

func (c *SnapshotCache) warnUnavailableOnce(ctx context.Context, err error) {
	if c == nil || c.logger == nil {
		return
	}
	if c.warnedUnavailable.CompareAndSwap(false, true) {
		c.logger.Warn(ctx, "redis unavailable, bypassing snapshot cache", logger.Error(err))
	}
}

// Key builds the cache key for a snapshot.
func Key(kind, id string) string {
	return keyPrefix + kind + ":" + id
}

// Put stores v as JSON under (kind, id).
func (c *SnapshotCache) Put(ctx context.Context, kind, id string, v any) error {
	if !c.Available() {
		metrics.RecordSnapshotCache("bypass")
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, Key(kind, id), b, c.ttl).Err(); err != nil {
		metrics.RecordSnapshotCache("error")
		c.warnUnavailableOnce(ctx, err)
		return err
	}
	metrics.RecordSnapshotCache("set")
	return nil
}

// Get decodes the snapshot into out. It returns false on a miss or when bypassed.
func (c *SnapshotCache) Get(ctx context.Context, kind, id string, out any) (bool, error) {
	if !c.Available() {
		metrics.RecordSnapshotCache("bypass")
		return false, nil
	}
	b, err := c.client.Get(ctx, Key(kind, id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			metrics.RecordSnapshotCache("miss")
			return false, nil
		}
		metrics.RecordSnapshotCache("error")
		c.warnUnavailableOnce(ctx, err)
		return false, err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return false, err
	}
	metrics.RecordSnapshotCache("hit")
	return true, nil
}

// Delete drops the snapshots for the given kinds and id.
func (c *SnapshotCache) Delete(ctx context.Context, id string, kinds ...string) error {
	if !c.Available() || len(kinds) == 0 {
		return nil
	}
	keys := make([]string, 0, len(kinds))
	for _, k := range kinds {
		keys = append(keys, Key(k, id))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.warnUnavailableOnce(ctx, err)
		return err
	}
	return nil
}

// Flush drops every snapshot of kind. Used when a registry change affects all entities.
func (c *SnapshotCache) Flush(ctx context.Context, kind string) error {
	if !c.Available() {
		return nil
	}
	iter := c.client.Scan(ctx, 0, Key(kind, "*"), 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.warnUnavailableOnce(ctx, err)
		}
	}
	return iter.Err()
}

// Close releases the connection.
func (c *SnapshotCache) Close() error {
	if !c.Available() {
		return nil
	}
	return c.client.Close()
}
