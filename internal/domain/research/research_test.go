package research_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/plotpath/internal/adapters/repository"
	"github.com/okian/plotpath/internal/domain/factor"
	"github.com/okian/plotpath/internal/domain/research"
	. "github.com/smartystreets/goconvey/convey"
)

var now = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func newCache(ctx context.Context) *research.Cache {
	reg := factor.NewRegistry()
	_ = reg.Register(factor.Factor{Key: "culture", Volatility: factor.Stable, Weight: 1})
	_ = reg.Register(factor.Factor{Key: "compensation", Volatility: factor.Volatile, Weight: 1})
	_ = reg.Register(factor.Factor{Key: "growth", Volatility: factor.Stable, Weight: 1})
	return research.NewCache(reg, repository.NewShardedStore(ctx))
}

func TestCache(t *testing.T) {
	Convey("Given a cache over three factors", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		c := newCache(ctx)

		Convey("Scores outside [1,10] are rejected, not clamped", func() {
			for _, score := range []int{0, 11, -3} {
				ok, err := c.Put(ctx, research.Finding{Entity: "acme", Factor: "culture", Score: score, CapturedAt: now})
				So(ok, ShouldBeFalse)
				So(errors.Is(err, research.ErrInvalidScore), ShouldBeTrue)
			}
			_, found := c.Get(ctx, "acme", "culture")
			So(found, ShouldBeFalse)
		})

		Convey("Unknown factors are rejected", func() {
			_, err := c.Put(ctx, research.Finding{Entity: "acme", Factor: "vibes", Score: 5, CapturedAt: now})
			So(errors.Is(err, factor.ErrUnknownFactor), ShouldBeTrue)
		})

		Convey("Missing entity or timestamp is rejected", func() {
			_, err := c.Put(ctx, research.Finding{Factor: "culture", Score: 5, CapturedAt: now})
			So(errors.Is(err, research.ErrEmptyEntity), ShouldBeTrue)
			_, err = c.Put(ctx, research.Finding{Entity: "acme", Factor: "culture", Score: 5})
			So(errors.Is(err, research.ErrMissingTimestamp), ShouldBeTrue)
		})

		Convey("Freshness follows the class TTL", func() {
			_, err := c.Put(ctx, research.Finding{Entity: "acme", Factor: "compensation", Score: 6, CapturedAt: now})
			So(err, ShouldBeNil)

			So(c.IsFresh(ctx, "acme", "compensation", now), ShouldBeTrue)
			So(c.IsFresh(ctx, "acme", "compensation", now.Add(7*24*time.Hour-time.Nanosecond)), ShouldBeTrue)
			So(c.IsFresh(ctx, "acme", "compensation", now.Add(7*24*time.Hour)), ShouldBeFalse)
			So(c.IsFresh(ctx, "acme", "vibes", now), ShouldBeFalse)
		})

		Convey("A TTL change applies to findings already cached", func() {
			_, _ = c.Put(ctx, research.Finding{Entity: "acme", Factor: "culture", Score: 6, CapturedAt: now})
			So(c.IsFresh(ctx, "acme", "culture", now.Add(48*time.Hour)), ShouldBeTrue)

			So(c.Registry().SetTTL("culture", 24*time.Hour), ShouldBeNil)
			So(c.IsFresh(ctx, "acme", "culture", now.Add(48*time.Hour)), ShouldBeFalse)
		})

		Convey("Get ignores freshness", func() {
			_, _ = c.Put(ctx, research.Finding{Entity: "acme", Factor: "compensation", Score: 6, CapturedAt: now})
			f, ok := c.Get(ctx, "acme", "compensation")
			So(ok, ShouldBeTrue)
			So(f.Score, ShouldEqual, 6)
			So(f.ExpiresAt(7*24*time.Hour), ShouldEqual, now.Add(7*24*time.Hour))
		})

		Convey("StaleFactors lists absent and expired factors in order", func() {
			_, _ = c.Put(ctx, research.Finding{Entity: "acme", Factor: "culture", Score: 8, CapturedAt: now})
			_, _ = c.Put(ctx, research.Finding{Entity: "acme", Factor: "compensation", Score: 6, CapturedAt: now.Add(-8 * 24 * time.Hour)})

			So(c.StaleFactors(ctx, "acme", now), ShouldResemble, []string{"compensation", "growth"})
			So(c.StaleFactors(ctx, "nobody", now), ShouldResemble, []string{"compensation", "culture", "growth"})
		})

		Convey("Invalidate makes a fresh factor stale", func() {
			_, _ = c.Put(ctx, research.Finding{Entity: "acme", Factor: "culture", Score: 8, CapturedAt: now})
			removed, err := c.Invalidate(ctx, "acme", "culture")
			So(err, ShouldBeNil)
			So(removed, ShouldBeTrue)
			So(c.IsFresh(ctx, "acme", "culture", now), ShouldBeFalse)

			_, err = c.Invalidate(ctx, "acme", "vibes")
			So(errors.Is(err, factor.ErrUnknownFactor), ShouldBeTrue)
		})

		Convey("EvictStale removes only expired findings", func() {
			_, _ = c.Put(ctx, research.Finding{Entity: "acme", Factor: "culture", Score: 8, CapturedAt: now})
			_, _ = c.Put(ctx, research.Finding{Entity: "acme", Factor: "compensation", Score: 6, CapturedAt: now.Add(-30 * 24 * time.Hour)})

			So(c.EvictStale(ctx, "acme", now), ShouldResemble, []string{"compensation"})
			So(len(c.Findings(ctx, "acme")), ShouldEqual, 1)
			So(c.EvictStale(ctx, "acme", now), ShouldBeEmpty)
		})

		Convey("An older finding never overwrites a newer one", func() {
			ok, err := c.Put(ctx, research.Finding{Entity: "acme", Factor: "culture", Score: 8, CapturedAt: now})
			So(ok, ShouldBeTrue)
			So(err, ShouldBeNil)
			ok, err = c.Put(ctx, research.Finding{Entity: "acme", Factor: "culture", Score: 2, CapturedAt: now.Add(-time.Minute)})
			So(ok, ShouldBeFalse)
			So(err, ShouldBeNil)
			f, _ := c.Get(ctx, "acme", "culture")
			So(f.Score, ShouldEqual, 8)
		})

		Convey("Findings and Entities are sorted", func() {
			_, _ = c.Put(ctx, research.Finding{Entity: "zeta", Factor: "growth", Score: 3, CapturedAt: now})
			_, _ = c.Put(ctx, research.Finding{Entity: "acme", Factor: "growth", Score: 3, CapturedAt: now})
			_, _ = c.Put(ctx, research.Finding{Entity: "acme", Factor: "culture", Score: 3, CapturedAt: now})

			So(c.Entities(ctx), ShouldResemble, []string{"acme", "zeta"})
			fs := c.Findings(ctx, "acme")
			So(fs[0].Factor, ShouldEqual, "culture")
			So(fs[1].Factor, ShouldEqual, "growth")
		})
	})
}

func TestEntityID(t *testing.T) {
	cases := map[string]string{
		"Acme Corporation":   "acme-corporation",
		"Google LLC":         "google-llc",
		"AT&T Inc.":          "att-inc",
		"  spaced   out  ":   "spaced-out",
		"already-a-slug":     "already-a-slug",
		"Under_score / Path": "under-score-path",
		"":                   "",
	}
	for in, want := range cases {
		if got := research.EntityID(in); got != want {
			t.Errorf("EntityID(%q) = %q, want %q", in, got, want)
		}
	}
}
