package skillgraph_test

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/okian/plotpath/internal/domain/skill"
	"github.com/okian/plotpath/internal/domain/skillgraph"
	. "github.com/smartystreets/goconvey/convey"
)

func mustAdd(g *skillgraph.Graph, name string, prereqs ...string) {
	if err := g.AddSkill(skill.Skill{Name: name, Prerequisites: prereqs}); err != nil {
		panic(err)
	}
}

func TestAddSkill(t *testing.T) {
	Convey("Given a graph Linux <- Docker <- Kubernetes", t, func() {
		g := skillgraph.New()
		mustAdd(g, "Linux")
		mustAdd(g, "docker", "Linux")
		mustAdd(g, "Kubernetes", "Docker")

		Convey("Names are normalized and lookups ignore case", func() {
			So(g.Names(), ShouldResemble, []string{"Docker", "Kubernetes", "Linux"})
			So(g.Has("DOCKER"), ShouldBeTrue)
			s, ok := g.Skill("kubernetes")
			So(ok, ShouldBeTrue)
			So(s.Prerequisites, ShouldResemble, []string{"Docker"})
		})

		Convey("Prerequisites are transitive and sorted", func() {
			ps, err := g.PrerequisitesOf("Kubernetes")
			So(err, ShouldBeNil)
			So(ps, ShouldResemble, []string{"Docker", "Linux"})
		})

		Convey("An unknown prerequisite is rejected", func() {
			err := g.AddSkill(skill.Skill{Name: "Helm", Prerequisites: []string{"Kubernetes", "Go Templates"}})
			var unknown *skillgraph.UnknownSkillError
			So(errors.As(err, &unknown), ShouldBeTrue)
			So(unknown.Skill, ShouldEqual, "Go Templates")
			So(errors.Is(err, skillgraph.ErrUnknownSkill), ShouldBeTrue)
			So(g.Has("Helm"), ShouldBeFalse)
		})

		Convey("Closing a cycle is rejected and the graph is unchanged", func() {
			err := g.AddSkill(skill.Skill{Name: "Linux", Prerequisites: []string{"Kubernetes"}})
			var cycle *skillgraph.CycleError
			So(errors.As(err, &cycle), ShouldBeTrue)
			So(errors.Is(err, skillgraph.ErrCycle), ShouldBeTrue)
			So(cycle.Path, ShouldResemble, []string{"Linux", "Kubernetes", "Docker", "Linux"})

			s, _ := g.Skill("Linux")
			So(s.Prerequisites, ShouldBeEmpty)
			order, err := g.TopologicalOrder(g.Names())
			So(err, ShouldBeNil)
			So(order, ShouldResemble, []string{"Linux", "Docker", "Kubernetes"})
		})

		Convey("A skill cannot require itself", func() {
			err := g.AddSkill(skill.Skill{Name: "Go", Prerequisites: []string{"golang"}})
			So(errors.Is(err, skillgraph.ErrCycle), ShouldBeTrue)
		})

		Convey("Re-adding a skill replaces its prerequisites", func() {
			mustAdd(g, "Go")
			mustAdd(g, "Kubernetes", "Go")
			ps, _ := g.PrerequisitesOf("Kubernetes")
			So(ps, ShouldResemble, []string{"Go"})
		})

		Convey("Dependents lists skills in the set that need the skill", func() {
			deps, err := g.Dependents("Linux", []string{"Linux", "Docker", "Kubernetes"})
			So(err, ShouldBeNil)
			So(deps, ShouldResemble, []string{"Docker", "Kubernetes"})

			deps, _ = g.Dependents("Kubernetes", g.Names())
			So(deps, ShouldBeEmpty)
		})
	})
}

func TestTopologicalOrder(t *testing.T) {
	Convey("Given a diamond with independent skills", t, func() {
		g := skillgraph.New()
		mustAdd(g, "SQL")
		mustAdd(g, "Python")
		mustAdd(g, "Pandas", "Python")
		mustAdd(g, "Airflow", "Python", "SQL")
		mustAdd(g, "dbt", "SQL")
		mustAdd(g, "Data Modeling", "dbt", "Pandas")

		Convey("Ties are broken by ascending name", func() {
			order, err := g.TopologicalOrder(g.Names())
			So(err, ShouldBeNil)
			So(order, ShouldResemble, []string{"Python", "Pandas", "SQL", "Airflow", "dbt", "Data Modeling"})
		})

		Convey("A subset keeps transitive relations through skills outside it", func() {
			order, err := g.TopologicalOrder([]string{"Data Modeling", "SQL", "Airflow"})
			So(err, ShouldBeNil)
			So(order, ShouldResemble, []string{"SQL", "Airflow", "Data Modeling"})

			depths, err := g.Depths([]string{"Data Modeling", "SQL", "Airflow"})
			So(err, ShouldBeNil)
			So(depths, ShouldResemble, map[string]int{"SQL": 0, "Airflow": 1, "Data Modeling": 1})
		})

		Convey("Depth is the longest chain inside the set", func() {
			depths, err := g.Depths(g.Names())
			So(err, ShouldBeNil)
			So(depths["Python"], ShouldEqual, 0)
			So(depths["Pandas"], ShouldEqual, 1)
			So(depths["dbt"], ShouldEqual, 1)
			So(depths["Data Modeling"], ShouldEqual, 2)
		})

		Convey("Unknown names are reported", func() {
			_, err := g.TopologicalOrder([]string{"Python", "Cobol"})
			So(errors.Is(err, skillgraph.ErrUnknownSkill), ShouldBeTrue)
		})

		Convey("Duplicate names collapse", func() {
			order, err := g.TopologicalOrder([]string{"python", "Python", "SQL"})
			So(err, ShouldBeNil)
			So(order, ShouldResemble, []string{"Python", "SQL"})
		})
	})
}

func TestLoad(t *testing.T) {
	Convey("Given skills in arbitrary order", t, func() {
		g := skillgraph.New()
		err := g.Load([]skill.Skill{
			{Name: "Kubernetes", Prerequisites: []string{"Docker"}},
			{Name: "Docker", Prerequisites: []string{"Linux"}},
			{Name: "Linux"},
		})

		Convey("They are inserted in dependency order", func() {
			So(err, ShouldBeNil)
			So(g.Len(), ShouldEqual, 3)
		})

		Convey("A batch with a cycle leaves the graph untouched", func() {
			err := g.Load([]skill.Skill{
				{Name: "A", Prerequisites: []string{"B"}},
				{Name: "B", Prerequisites: []string{"A"}},
				{Name: "C"},
			})
			So(errors.Is(err, skillgraph.ErrCycle), ShouldBeTrue)
			So(g.Has("C"), ShouldBeFalse)
			So(g.Len(), ShouldEqual, 3)
		})

		Convey("A batch with a missing prerequisite names it", func() {
			err := g.Load([]skill.Skill{{Name: "Helm", Prerequisites: []string{"Charts"}}})
			var unknown *skillgraph.UnknownSkillError
			So(errors.As(err, &unknown), ShouldBeTrue)
			So(unknown.Skill, ShouldEqual, "Charts")
		})
	})
}

// Random add sequences must never leave a cycle behind: every accepted graph
// has a full topological order and no skill appears among its own prerequisites.
func TestAddSkillNeverCreatesCycle(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 200; round++ {
		g := skillgraph.New()
		names := make([]string, 12)
		for i := range names {
			names[i] = fmt.Sprintf("s%02d", i)
			mustAdd(g, names[i])
		}
		for step := 0; step < 60; step++ {
			target := names[rng.Intn(len(names))]
			var prereqs []string
			for n := rng.Intn(4); n > 0; n-- {
				prereqs = append(prereqs, names[rng.Intn(len(names))])
			}
			err := g.AddSkill(skill.Skill{Name: target, Prerequisites: prereqs})
			if err != nil && !errors.Is(err, skillgraph.ErrCycle) {
				t.Fatalf("round %d: unexpected error %v", round, err)
			}
		}
		if _, err := g.TopologicalOrder(g.Names()); err != nil {
			t.Fatalf("round %d: graph became cyclic: %v", round, err)
		}
		for _, n := range names {
			ps, _ := g.PrerequisitesOf(n)
			for _, p := range ps {
				if p == n {
					t.Fatalf("round %d: %s requires itself", round, n)
				}
			}
		}
	}
}

func TestGraphConcurrentAccess(t *testing.T) {
	g := skillgraph.New()
	mustAdd(g, "Base")
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = g.AddSkill(skill.Skill{Name: fmt.Sprintf("Leaf %d", i), Prerequisites: []string{"Base"}})
		}(i)
		go func() {
			defer wg.Done()
			_, _ = g.TopologicalOrder(g.Names())
		}()
	}
	wg.Wait()
	if g.Len() != 33 {
		t.Fatalf("expected 33 skills, got %d", g.Len())
	}
}
