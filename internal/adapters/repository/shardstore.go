package repository

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/okian/plotpath/internal/domain/research"
	"github.com/okian/plotpath/pkg/metrics"
)

const (
	defaultShardCount            = 16
	defaultMetricsUpdateInterval = 5 * time.Second
)

// shard owns every finding of the entities that hash to it.
type shard struct {
	mu       sync.RWMutex
	entities map[string]map[string]research.Finding
}

// ShardedStore implements research.Store. Entities are spread over shards by
// hash so writes for different entities rarely contend; writes for the same
// entity serialize on its shard lock.
type ShardedStore struct {
	shards                []*shard
	shardCount            int
	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

var _ research.Store = (*ShardedStore)(nil)

// NewShardedStore constructs a store and starts its metrics updater.
// The updater stops when ctx is done or Close is called.
func NewShardedStore(ctx context.Context, opts ...Option) *ShardedStore {
	s := &ShardedStore{
		shardCount:            defaultShardCount,
		metricsUpdateInterval: defaultMetricsUpdateInterval,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.shards = make([]*shard, s.shardCount)
	for i := range s.shards {
		s.shards[i] = &shard{entities: make(map[string]map[string]research.Finding)}
	}

	metrics.UpdateRepositoryShardCount(s.shardCount)
	s.startMetricsUpdater(ctx)
	return s
}

func (s *ShardedStore) shardFor(entity string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(entity))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

// Get returns the finding for (entity, factor).
func (s *ShardedStore) Get(_ context.Context, entity, factor string) (research.Finding, bool) {
	sh := s.shardFor(entity)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	f, ok := sh.entities[entity][factor]
	return f, ok
}

// PutIfNewer stores f unless the existing finding was captured later.
// Equal timestamps replace, so a re-submitted finding wins.
func (s *ShardedStore) PutIfNewer(_ context.Context, f research.Finding) bool {
	sh := s.shardFor(f.Entity)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	byFactor, ok := sh.entities[f.Entity]
	if !ok {
		byFactor = make(map[string]research.Finding)
		sh.entities[f.Entity] = byFactor
	}
	if cur, ok := byFactor[f.Factor]; ok && cur.CapturedAt.After(f.CapturedAt) {
		metrics.RecordFindingSuperseded()
		return false
	}
	byFactor[f.Factor] = f
	metrics.RecordFindingStored(f.Factor)
	return true
}

// Delete removes the finding for (entity, factor) and reports whether one existed.
func (s *ShardedStore) Delete(_ context.Context, entity, factor string) bool {
	sh := s.shardFor(entity)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	byFactor, ok := sh.entities[entity]
	if !ok {
		return false
	}
	if _, ok := byFactor[factor]; !ok {
		return false
	}
	delete(byFactor, factor)
	if len(byFactor) == 0 {
		delete(sh.entities, entity)
	}
	return true
}

// List returns a copy of every finding for entity in no particular order.
func (s *ShardedStore) List(_ context.Context, entity string) []research.Finding {
	sh := s.shardFor(entity)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	byFactor := sh.entities[entity]
	out := make([]research.Finding, 0, len(byFactor))
	for _, f := range byFactor {
		out = append(out, f)
	}
	return out
}

// Entities returns every entity with at least one finding.
func (s *ShardedStore) Entities(_ context.Context) []string {
	var out []string
	for _, sh := range s.shards {
		sh.mu.RLock()
		for e := range sh.entities {
			out = append(out, e)
		}
		sh.mu.RUnlock()
	}
	return out
}

// Count returns the number of findings held.
func (s *ShardedStore) Count() int {
	total := 0
	for _, sh := range s.shards {
		total += sh.count()
	}
	return total
}

func (sh *shard) count() int {
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	n := 0
	for _, byFactor := range sh.entities {
		n += len(byFactor)
	}
	return n
}

// Close stops the metrics updater.
func (s *ShardedStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *ShardedStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

func (s *ShardedStore) updateMetrics() {
	total := 0
	for i, sh := range s.shards {
		n := sh.count()
		total += n
		metrics.UpdateRepositoryRecordsPerShard(strconv.Itoa(i), n)
	}
	metrics.UpdateRepositoryRecordsTotal(total)
}
