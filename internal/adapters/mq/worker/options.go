package worker

import (
	"context"
	"time"

	"github.com/okian/plotpath/internal/domain/research"
	"github.com/okian/plotpath/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithTimeout bounds a single research call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(w *InMemoryWorker) {
		if d >= 0 {
			w.timeout = d
		}
	}
}

// WithOnStored registers a hook called after a finding replaced the cached one.
func WithOnStored(fn func(ctx context.Context, f research.Finding)) Option {
	return func(w *InMemoryWorker) {
		w.onStored = fn
	}
}

// WithClock overrides time.Now for findings that arrive without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(w *InMemoryWorker) {
		if now != nil {
			w.now = now
		}
	}
}
