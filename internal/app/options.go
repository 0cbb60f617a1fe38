package app

import (
	"time"

	"github.com/okian/plotpath/internal/adapters/extraction"
	"github.com/okian/plotpath/internal/domain/factor"
	"github.com/okian/plotpath/internal/domain/verdict"
	"github.com/okian/plotpath/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of research workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the research queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize caps the number of research tasks in flight.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithShardCount sets the number of finding store shards.
func WithShardCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.shardCount = count
		}
	}
}

// WithResearchTimeout bounds a single research call.
func WithResearchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.researchTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithFactors seeds the registry. Persisted factor settings loaded at Start
// override weight and TTL of seeded factors with the same key.
func WithFactors(factors ...factor.Factor) Option {
	return func(s *Service) {
		s.seedFactors = append(s.seedFactors, factors...)
	}
}

// WithClassTTL overrides the class TTL for a volatility.
func WithClassTTL(v factor.Volatility, ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.classTTL[v] = ttl
		}
	}
}

// WithEscalationThreshold sets how many gap skills a preferred gap must unlock to become critical.
func WithEscalationThreshold(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.escalation = n
		}
	}
}

// WithPolicy sets the verdict thresholds.
func WithPolicy(p verdict.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithResearcher sets the research oracle used by the workers.
func WithResearcher(r extraction.Researcher) Option {
	return func(s *Service) {
		if r != nil {
			s.researcher = r
		}
	}
}

// WithExtractor sets the requirement extractor.
func WithExtractor(e extraction.RequirementExtractor) Option {
	return func(s *Service) {
		if e != nil {
			s.extractor = e
		}
	}
}

// WithLoader bootstraps state from durable storage at Start.
func WithLoader(l Loader) Option {
	return func(s *Service) {
		if l != nil {
			s.loader = l
		}
	}
}

// WithWriter mirrors every accepted change to durable storage.
func WithWriter(w Writer) Option {
	return func(s *Service) {
		if w != nil {
			s.writer = w
		}
	}
}

// WithPublisher publishes read-only snapshots for presentation.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
