// Package factor holds the registry of desirability factors.
package factor

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"
)

// Weight bounds.
const (
	MinWeight = 0.0
	MaxWeight = 2.0
)

// Default class TTLs.
const (
	DefaultStableTTL   = 90 * 24 * time.Hour
	DefaultVolatileTTL = 7 * 24 * time.Hour
)

// Volatility classifies how quickly research on a factor goes out of date.
type Volatility string

const (
	Stable   Volatility = "STABLE"
	Volatile Volatility = "VOLATILE"
)

// ParseVolatility accepts any casing of STABLE or VOLATILE.
func ParseVolatility(s string) (Volatility, error) {
	switch v := Volatility(strings.ToUpper(strings.TrimSpace(s))); v {
	case Stable, Volatile:
		return v, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidVolatility, s)
	}
}

// Factor is one criterion an employer is scored against.
type Factor struct {
	Key        string
	Name       string
	Volatility Volatility
	// TTL overrides the class TTL when positive.
	TTL time.Duration
	// Instructions are handed to the research oracle verbatim.
	Instructions string
	Weight       float64
}

func (f Factor) validate() error {
	if strings.TrimSpace(f.Key) == "" {
		return ErrEmptyKey
	}
	if f.Volatility != Stable && f.Volatility != Volatile {
		return fmt.Errorf("%w: %q", ErrInvalidVolatility, f.Volatility)
	}
	if err := checkWeight(f.Weight); err != nil {
		return err
	}
	if f.TTL < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTTL, f.TTL)
	}
	return nil
}

func checkWeight(w float64) error {
	if math.IsNaN(w) || w < MinWeight || w > MaxWeight {
		return fmt.Errorf("%w: %v", ErrInvalidWeight, w)
	}
	return nil
}

// Registry is the authoritative set of factors. It is safe for concurrent use.
//
// Every mutation bumps Version so that derived scores can tell they are out of date.
type Registry struct {
	mu       sync.RWMutex
	factors  map[string]Factor
	classTTL map[Volatility]time.Duration
	version  uint64
}

// Option configures a Registry.
type Option func(*Registry)

// WithClassTTL overrides the TTL for a volatility class.
func WithClassTTL(v Volatility, ttl time.Duration) Option {
	return func(r *Registry) {
		if ttl > 0 {
			r.classTTL[v] = ttl
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		factors: make(map[string]Factor),
		classTTL: map[Volatility]time.Duration{
			Stable:   DefaultStableTTL,
			Volatile: DefaultVolatileTTL,
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a factor. Keys are immutable, so registering an existing key fails.
func (r *Registry) Register(f Factor) error {
	if err := f.validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factors[f.Key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateFactor, f.Key)
	}
	r.factors[f.Key] = f
	r.version++
	return nil
}

// Lookup returns the factor for key.
func (r *Registry) Lookup(key string) (Factor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factors[key]
	return f, ok
}

// Factor is Lookup with an error for unknown keys.
func (r *Registry) Factor(key string) (Factor, error) {
	f, ok := r.Lookup(key)
	if !ok {
		return Factor{}, fmt.Errorf("%w: %s", ErrUnknownFactor, key)
	}
	return f, nil
}

// Keys returns all registered keys in ascending order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.factors))
	for k := range r.factors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// All returns every factor ordered by key.
func (r *Registry) All() []Factor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Factor, 0, len(r.factors))
	for _, f := range r.factors {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Len returns the number of registered factors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factors)
}

// TTL returns the effective TTL for key: the per-factor override or the class TTL.
func (r *Registry) TTL(key string) (time.Duration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factors[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownFactor, key)
	}
	return r.ttlLocked(f), nil
}

func (r *Registry) ttlLocked(f Factor) time.Duration {
	if f.TTL > 0 {
		return f.TTL
	}
	return r.classTTL[f.Volatility]
}

// SetWeight changes a factor's weight. Cached findings are untouched.
func (r *Registry) SetWeight(key string, w float64) error {
	if err := checkWeight(w); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.factors[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFactor, key)
	}
	f.Weight = w
	r.factors[key] = f
	r.version++
	return nil
}

// SetTTL sets a per-factor TTL override; zero reverts to the class TTL.
func (r *Registry) SetTTL(key string, ttl time.Duration) error {
	if ttl < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTTL, ttl)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.factors[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFactor, key)
	}
	f.TTL = ttl
	r.factors[key] = f
	r.version++
	return nil
}

// SetClassTTL changes the TTL of every factor in a class that has no override.
func (r *Registry) SetClassTTL(v Volatility, ttl time.Duration) error {
	if v != Stable && v != Volatile {
		return fmt.Errorf("%w: %q", ErrInvalidVolatility, v)
	}
	if ttl <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTTL, ttl)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classTTL[v] = ttl
	r.version++
	return nil
}

// ClassTTL returns the TTL of a volatility class.
func (r *Registry) ClassTTL(v Volatility) time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.classTTL[v]
}

// Version increases on every successful mutation.
func (r *Registry) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}
