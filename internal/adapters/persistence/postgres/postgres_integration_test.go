package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/okian/plotpath/internal/adapters/persistence/postgres"
	"github.com/okian/plotpath/internal/domain/factor"
	"github.com/okian/plotpath/internal/domain/research"
	"github.com/okian/plotpath/internal/domain/skill"
	"github.com/okian/plotpath/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func openStore(t *testing.T) *postgres.Store {
	t.Helper()
	dsn := os.Getenv("PLOTPATH_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PLOTPATH_TEST_POSTGRES_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s, err := postgres.Open(ctx, dsn, 4)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func intp(v int) *int { return &v }

func TestStoreRoundTrip(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	suffix := time.Now().Format("150405.000000")

	Convey("Given a migrated database", t, func() {
		Convey("Migrate is idempotent", func() {
			So(s.Migrate(ctx), ShouldBeNil)
		})

		Convey("Factors are upserted", func() {
			f := factor.Factor{Key: "culture-" + suffix, Name: "Culture", Volatility: factor.Stable, Weight: 1.5, TTL: 48 * time.Hour}
			So(s.SaveFactor(ctx, f), ShouldBeNil)
			f.Weight = 0.5
			So(s.SaveFactor(ctx, f), ShouldBeNil)

			all, err := s.LoadFactors(ctx)
			So(err, ShouldBeNil)
			var got *factor.Factor
			for i := range all {
				if all[i].Key == f.Key {
					got = &all[i]
				}
			}
			So(got, ShouldNotBeNil)
			So(*got, ShouldResemble, f)
		})

		Convey("Skills keep their prerequisites", func() {
			linux := skill.Skill{Name: "Linux-" + suffix, Category: skill.Technical}
			docker := skill.Skill{Name: "Docker-" + suffix, Category: skill.Tool, Prerequisites: []string{linux.Name}}
			So(s.SaveSkill(ctx, linux), ShouldBeNil)
			So(s.SaveSkill(ctx, docker), ShouldBeNil)
			So(s.SaveSkill(ctx, docker), ShouldBeNil)

			all, err := s.LoadSkills(ctx)
			So(err, ShouldBeNil)
			found := false
			for _, sk := range all {
				if sk.Name == docker.Name {
					found = true
					So(sk.Prerequisites, ShouldResemble, []string{linux.Name})
				}
			}
			So(found, ShouldBeTrue)
		})

		Convey("Learnings keep nullable ratings", func() {
			l := skill.Learning{Skill: "Rust-" + suffix, Status: skill.StatusLearning, Ease: intp(3), Demand: intp(8)}
			So(s.SaveLearning(ctx, l), ShouldBeNil)
			all, err := s.LoadLearnings(ctx)
			So(err, ShouldBeNil)
			for _, got := range all {
				if got.Skill == l.Skill {
					So(got, ShouldResemble, l)
				}
			}
		})

		Convey("Roles replace their requirements", func() {
			name := "backend-" + suffix
			r := skill.Role{Name: name, Entity: "acme", Requirements: skill.BuildRequirements(name, []string{"Go"}, []string{"Docker"})}
			So(s.SaveRole(ctx, r), ShouldBeNil)
			r.Requirements = skill.BuildRequirements(name, []string{"Python"}, nil)
			So(s.SaveRole(ctx, r), ShouldBeNil)

			all, err := s.LoadRoles(ctx)
			So(err, ShouldBeNil)
			for _, got := range all {
				if got.Name == name {
					So(got, ShouldResemble, r)
				}
			}
		})

		Convey("Findings never move backwards in time", func() {
			entity := "acme-" + suffix
			newer := research.Finding{Entity: entity, Factor: "culture", Score: 8, Source: "a", CapturedAt: time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)}
			older := newer
			older.Score, older.CapturedAt = 3, newer.CapturedAt.Add(-24*time.Hour)
			So(s.SaveFinding(ctx, newer), ShouldBeNil)
			So(s.SaveFinding(ctx, older), ShouldBeNil)

			all, err := s.LoadFindings(ctx)
			So(err, ShouldBeNil)
			for _, got := range all {
				if got.Entity == entity {
					So(got.Score, ShouldEqual, 8)
				}
			}

			So(s.DeleteFinding(ctx, entity, "culture"), ShouldBeNil)
			So(s.DeleteFinding(ctx, entity, "culture"), ShouldBeNil)
		})

		Convey("Snapshots are upserted", func() {
			So(s.SaveDesirability(ctx, types.DesirabilityView{Entity: "acme-" + suffix, Missing: []string{"culture"}}), ShouldBeNil)
			So(s.SaveGapReport(ctx, types.GapView{Role: "backend-" + suffix, MatchPct: 100}), ShouldBeNil)
			So(s.SaveGapReport(ctx, types.GapView{Role: "backend-" + suffix, MatchPct: 50}), ShouldBeNil)
		})
	})
}

func TestClosedStore(t *testing.T) {
	Convey("A zero Store reports it is not connected", t, func() {
		var s *postgres.Store
		So(s.SaveFinding(context.Background(), research.Finding{}), ShouldEqual, postgres.ErrNotConnected)
		_, err := s.LoadFactors(context.Background())
		So(err, ShouldEqual, postgres.ErrNotConnected)
		So(s.Close(), ShouldBeNil)
	})
}
