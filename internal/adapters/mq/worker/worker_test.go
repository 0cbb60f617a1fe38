package worker_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/plotpath/internal/adapters/mq/queue"
	"github.com/okian/plotpath/internal/adapters/mq/worker"
	"github.com/okian/plotpath/internal/adapters/repository"
	"github.com/okian/plotpath/internal/domain/dedupe"
	"github.com/okian/plotpath/internal/domain/factor"
	"github.com/okian/plotpath/internal/domain/model"
	"github.com/okian/plotpath/internal/domain/research"
	logging "github.com/okian/plotpath/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type stubResearcher struct {
	mu    sync.Mutex
	score map[string]int
	fail  map[string]error
	block bool
	calls int
}

func newStubResearcher() *stubResearcher {
	return &stubResearcher{score: map[string]int{}, fail: map[string]error{}}
}

func (s *stubResearcher) Research(ctx context.Context, t model.Task) (research.Finding, error) {
	s.mu.Lock()
	s.calls++
	block := s.block
	err := s.fail[t.Entity]
	score, ok := s.score[t.Entity]
	s.mu.Unlock()

	if block {
		<-ctx.Done()
		// Return a result anyway: it must not be written.
		return research.Finding{Score: 9}, nil
	}
	if err != nil {
		return research.Finding{}, err
	}
	if !ok {
		score = 7
	}
	return research.Finding{Entity: "spoofed", Factor: "spoofed", Score: score, Evidence: "e", Source: "stub"}, nil
}

type recordingSink struct {
	mu    sync.Mutex
	puts  []research.Finding
	cache *research.Cache
}

func (r *recordingSink) Put(ctx context.Context, f research.Finding) (bool, error) {
	r.mu.Lock()
	r.puts = append(r.puts, f)
	r.mu.Unlock()
	return r.cache.Put(ctx, f)
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.puts)
}

func newCache(ctx context.Context) *research.Cache {
	reg := factor.NewRegistry()
	_ = reg.Register(factor.Factor{Key: "culture", Volatility: factor.Stable, Weight: 1})
	_ = reg.Register(factor.Factor{Key: "compensation", Volatility: factor.Volatile, Weight: 1})
	return research.NewCache(reg, repository.NewShardedStore(ctx))
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker wired to a queue, cache and tracker", t, func() {
		_ = logging.Init(logging.WithOutput(&bytes.Buffer{}))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		cache := newCache(ctx)
		sink := &recordingSink{cache: cache}
		tracker := dedupe.NewInMemoryTracker()
		res := newStubResearcher()

		var stored []research.Finding
		var mu sync.Mutex
		w := worker.NewInMemoryWorker(q, res, sink, tracker,
			worker.WithName("test"),
			worker.WithTimeout(50*time.Millisecond),
			worker.WithOnStored(func(_ context.Context, f research.Finding) {
				mu.Lock()
				stored = append(stored, f)
				mu.Unlock()
			}),
		)
		go w.Run(ctx)

		convey.Convey("When a task succeeds", func() {
			task := model.NewTask("acme", "culture", "", time.Now())
			convey.So(tracker.Claim(ctx, task.Key()), convey.ShouldBeNil)
			res.score["acme"] = 8
			convey.So(q.Enqueue(ctx, task), convey.ShouldBeTrue)

			convey.Convey("Then the finding is stored under the task's pair and the claim released", func() {
				convey.So(waitFor(func() bool { return tracker.Size() == 0 }), convey.ShouldBeTrue)
				f, ok := cache.Get(ctx, "acme", "culture")
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(f.Score, convey.ShouldEqual, 8)
				convey.So(f.CapturedAt.IsZero(), convey.ShouldBeFalse)
				_, spoofed := cache.Get(ctx, "spoofed", "spoofed")
				convey.So(spoofed, convey.ShouldBeFalse)

				mu.Lock()
				convey.So(len(stored), convey.ShouldEqual, 1)
				mu.Unlock()
			})
		})

		convey.Convey("When the researcher times out", func() {
			res.block = true
			task := model.NewTask("slow", "culture", "", time.Now())
			convey.So(tracker.Claim(ctx, task.Key()), convey.ShouldBeNil)
			convey.So(q.Enqueue(ctx, task), convey.ShouldBeTrue)

			convey.Convey("Then nothing is written and the claim is still released", func() {
				convey.So(waitFor(func() bool { return tracker.Size() == 0 }), convey.ShouldBeTrue)
				convey.So(sink.count(), convey.ShouldEqual, 0)
				_, ok := cache.Get(ctx, "slow", "culture")
				convey.So(ok, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the researcher fails", func() {
			res.fail["broken"] = errors.New("upstream down")
			task := model.NewTask("broken", "culture", "", time.Now())
			convey.So(tracker.Claim(ctx, task.Key()), convey.ShouldBeNil)
			convey.So(q.Enqueue(ctx, task), convey.ShouldBeTrue)

			convey.Convey("Then nothing is written and the claim is released", func() {
				convey.So(waitFor(func() bool { return tracker.Size() == 0 }), convey.ShouldBeTrue)
				convey.So(sink.count(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When the researcher returns an out-of-range score", func() {
			res.score["liar"] = 42
			task := model.NewTask("liar", "culture", "", time.Now())
			convey.So(tracker.Claim(ctx, task.Key()), convey.ShouldBeNil)
			convey.So(q.Enqueue(ctx, task), convey.ShouldBeTrue)

			convey.Convey("Then the cache rejects it", func() {
				convey.So(waitFor(func() bool { return tracker.Size() == 0 }), convey.ShouldBeTrue)
				_, ok := cache.Get(ctx, "liar", "culture")
				convey.So(ok, convey.ShouldBeFalse)
				mu.Lock()
				convey.So(len(stored), convey.ShouldEqual, 0)
				mu.Unlock()
			})
		})

		convey.Convey("When Shutdown is called", func() {
			sctx, scancel := context.WithTimeout(context.Background(), time.Second)
			defer scancel()
			convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a pool of workers", t, func() {
		_ = logging.Init(logging.WithOutput(&bytes.Buffer{}))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		cache := newCache(ctx)
		tracker := dedupe.NewInMemoryTracker()
		pool := worker.NewPool(4, q, newStubResearcher(), cache, tracker)
		convey.So(pool.Size(), convey.ShouldEqual, 4)
		pool.Start(ctx)

		for i := 0; i < 20; i++ {
			for _, key := range []string{"culture", "compensation"} {
				task := model.NewTask(fmt.Sprintf("entity-%d", i), key, "", time.Now())
				convey.So(tracker.Claim(ctx, task.Key()), convey.ShouldBeNil)
				convey.So(q.Enqueue(ctx, task), convey.ShouldBeTrue)
			}
		}

		convey.Convey("Then every task lands in the cache", func() {
			convey.So(waitFor(func() bool { return tracker.Size() == 0 }), convey.ShouldBeTrue)
			convey.So(len(cache.Entities(ctx)), convey.ShouldEqual, 20)
			for i := 0; i < 20; i++ {
				convey.So(len(cache.Findings(ctx, fmt.Sprintf("entity-%d", i))), convey.ShouldEqual, 2)
			}
		})

		convey.Convey("Then shutdown closes the queue", func() {
			convey.So(waitFor(func() bool { return tracker.Size() == 0 }), convey.ShouldBeTrue)
			convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)
			convey.So(q.IsClosed(), convey.ShouldBeTrue)
			convey.So(pool.Busy(), convey.ShouldEqual, 0)
		})
	})
}
