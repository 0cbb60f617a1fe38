// Package research caches per-factor research findings and decides their freshness.
package research

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/okian/plotpath/internal/domain/factor"
)

// Score bounds for a finding.
const (
	MinScore = 1
	MaxScore = 10
)

// Finding is one researched score for an (entity, factor) pair.
type Finding struct {
	Entity     string    `json:"entity"`
	Factor     string    `json:"factor"`
	Score      int       `json:"score"`
	Evidence   string    `json:"evidence"`
	Source     string    `json:"source"`
	CapturedAt time.Time `json:"captured_at"`
}

// ExpiresAt is CapturedAt plus ttl. TTL comes from the registry at read time.
func (f Finding) ExpiresAt(ttl time.Duration) time.Time {
	return f.CapturedAt.Add(ttl)
}

// Validate checks the fields that do not depend on the registry.
func (f Finding) Validate() error {
	if f.Entity == "" {
		return ErrEmptyEntity
	}
	if f.Score < MinScore || f.Score > MaxScore {
		return fmt.Errorf("%w: %d", ErrInvalidScore, f.Score)
	}
	if f.CapturedAt.IsZero() {
		return ErrMissingTimestamp
	}
	return nil
}

// Store holds at most one finding per (entity, factor).
type Store interface {
	Get(ctx context.Context, entity, factor string) (Finding, bool)
	// PutIfNewer stores f unless a finding with a later CapturedAt exists.
	// It reports whether f was stored.
	PutIfNewer(ctx context.Context, f Finding) bool
	Delete(ctx context.Context, entity, factor string) bool
	List(ctx context.Context, entity string) []Finding
	Entities(ctx context.Context) []string
	Count() int
}

// Cache applies registry rules on top of a Store.
type Cache struct {
	registry *factor.Registry
	store    Store
}

// NewCache wires a cache over store.
func NewCache(registry *factor.Registry, store Store) *Cache {
	return &Cache{registry: registry, store: store}
}

// Registry returns the factor registry backing this cache.
func (c *Cache) Registry() *factor.Registry { return c.registry }

// Get returns the finding regardless of freshness.
func (c *Cache) Get(ctx context.Context, entity, key string) (Finding, bool) {
	return c.store.Get(ctx, entity, key)
}

// IsFresh reports whether a finding exists and now is before its expiry.
// Unknown factors are never fresh.
func (c *Cache) IsFresh(ctx context.Context, entity, key string, now time.Time) bool {
	ttl, err := c.registry.TTL(key)
	if err != nil {
		return false
	}
	f, ok := c.store.Get(ctx, entity, key)
	if !ok {
		return false
	}
	return now.Before(f.ExpiresAt(ttl))
}

// Put validates f and stores it. An older finding never replaces a newer one;
// in that case Put returns false and no error.
func (c *Cache) Put(ctx context.Context, f Finding) (bool, error) {
	if err := f.Validate(); err != nil {
		return false, err
	}
	if _, err := c.registry.Factor(f.Factor); err != nil {
		return false, err
	}
	return c.store.PutIfNewer(ctx, f), nil
}

// StaleFactors lists registered factors that are absent or expired, sorted.
func (c *Cache) StaleFactors(ctx context.Context, entity string, now time.Time) []string {
	var stale []string
	for _, key := range c.registry.Keys() {
		if !c.IsFresh(ctx, entity, key, now) {
			stale = append(stale, key)
		}
	}
	return stale
}

// Invalidate drops a finding so the factor is stale until re-researched.
func (c *Cache) Invalidate(ctx context.Context, entity, key string) (bool, error) {
	if _, err := c.registry.Factor(key); err != nil {
		return false, err
	}
	return c.store.Delete(ctx, entity, key), nil
}

// EvictStale removes expired findings for entity and returns their factors, sorted.
func (c *Cache) EvictStale(ctx context.Context, entity string, now time.Time) []string {
	var evicted []string
	for _, f := range c.store.List(ctx, entity) {
		ttl, err := c.registry.TTL(f.Factor)
		if err == nil && now.Before(f.ExpiresAt(ttl)) {
			continue
		}
		if c.store.Delete(ctx, entity, f.Factor) {
			evicted = append(evicted, f.Factor)
		}
	}
	sort.Strings(evicted)
	return evicted
}

// Findings returns every cached finding for entity ordered by factor.
func (c *Cache) Findings(ctx context.Context, entity string) []Finding {
	out := c.store.List(ctx, entity)
	sort.Slice(out, func(i, j int) bool { return out[i].Factor < out[j].Factor })
	return out
}

// Entities returns every entity with at least one cached finding, sorted.
func (c *Cache) Entities(ctx context.Context) []string {
	out := c.store.Entities(ctx)
	sort.Strings(out)
	return out
}

// EntityID turns a display name into a lowercase hyphenated identifier,
// e.g. "AT&T Inc." becomes "att-inc".
func EntityID(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.TrimSpace(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingSep = false
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '/':
			pendingSep = true
		}
	}
	return b.String()
}
