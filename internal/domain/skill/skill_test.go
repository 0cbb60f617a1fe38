package skill_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/okian/plotpath/internal/domain/skill"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"  python  ":   "Python",
		"javascript":   "JavaScript",
		"React.js":     "React",
		"NODEJS":       "Node.js",
		"golang":       "Go",
		"apache kafka": "Apache Kafka",
		"C#":           "C#",
		"REST APIs":    "REST APIs",
		"Terraform":    "Terraform",
	}
	for in, want := range cases {
		if got := skill.Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
	if skill.Key("reactjs") != skill.Key("React") {
		t.Error("reactjs and React should share a key")
	}
	if skill.Key("Terraform") != skill.Key(" terraform") {
		t.Error("keys should ignore case and surrounding space")
	}
}

func TestParsers(t *testing.T) {
	Convey("Categories, levels and statuses parse case-insensitively", t, func() {
		c, err := skill.ParseCategory("Tool")
		So(err, ShouldBeNil)
		So(c, ShouldEqual, skill.Tool)
		_, err = skill.ParseCategory("magic")
		So(errors.Is(err, skill.ErrInvalidCategory), ShouldBeTrue)

		l, err := skill.ParseLevel("preferred")
		So(err, ShouldBeNil)
		So(l, ShouldEqual, skill.Preferred)
		_, err = skill.ParseLevel("nice to have")
		So(errors.Is(err, skill.ErrInvalidLevel), ShouldBeTrue)

		s, err := skill.ParseStatus("to_do")
		So(err, ShouldBeNil)
		So(s, ShouldEqual, skill.StatusToDo)
		_, err = skill.ParseStatus("DONE")
		So(errors.Is(err, skill.ErrInvalidStatus), ShouldBeTrue)
	})
}

func TestBuildRequirements(t *testing.T) {
	Convey("Given extracted required and preferred lists", t, func() {
		reqs := skill.BuildRequirements("backend-engineer",
			[]string{" python", "", "Docker", "docker"},
			[]string{"Kubernetes", "  ", "Python"},
		)

		Convey("Blanks are skipped and names are normalized and deduplicated", func() {
			So(reqs, ShouldResemble, []skill.Requirement{
				{Role: "backend-engineer", Skill: "Python", Level: skill.Required},
				{Role: "backend-engineer", Skill: "Docker", Level: skill.Required},
				{Role: "backend-engineer", Skill: "Kubernetes", Level: skill.Preferred},
			})
			So(skill.ValidateRequirements(reqs), ShouldBeNil)
		})
	})

	Convey("Duplicate requirements fail validation", t, func() {
		err := skill.ValidateRequirements([]skill.Requirement{
			{Role: "r", Skill: "Go", Level: skill.Required},
			{Role: "r", Skill: "golang", Level: skill.Preferred},
		})
		So(errors.Is(err, skill.ErrDuplicateRequirement), ShouldBeTrue)

		err = skill.ValidateRequirements([]skill.Requirement{{Role: "r", Skill: "Go", Level: "MAYBE"}})
		So(errors.Is(err, skill.ErrInvalidLevel), ShouldBeTrue)
	})
}

func TestLearning(t *testing.T) {
	Convey("Given a learning record", t, func() {
		l := skill.Learning{Skill: "Docker"}

		Convey("Status moves forward only", func() {
			So(l.Advance(skill.StatusLearning), ShouldBeNil)
			So(l.Advance(skill.StatusLearning), ShouldBeNil)
			So(l.Advance(skill.StatusMastered), ShouldBeNil)
			err := l.Advance(skill.StatusProficient)
			So(errors.Is(err, skill.ErrStatusRegression), ShouldBeTrue)
			So(l.Status, ShouldEqual, skill.StatusMastered)
			So(l.Status.Met(), ShouldBeTrue)
		})

		Convey("Reset returns to TO_DO", func() {
			_ = l.Advance(skill.StatusProficient)
			l.Reset()
			So(l.Status, ShouldEqual, skill.StatusToDo)
			So(l.Status.Met(), ShouldBeFalse)
		})

		Convey("Priority is unknown until every rating is set", func() {
			_, ok := l.Priority()
			So(ok, ShouldBeFalse)

			ease, demand, passion := 2, 8, 5
			l.Ease, l.Demand, l.Passion = &ease, &demand, &passion
			p, ok := l.Priority()
			So(ok, ShouldBeTrue)
			So(p, ShouldEqual, 20)
		})

		Convey("Ratings outside [1,10] are rejected", func() {
			bad := 11
			l.Passion = &bad
			So(errors.Is(l.Validate(), skill.ErrInvalidRating), ShouldBeTrue)
		})

		Convey("Status round-trips through JSON as its name", func() {
			l.Status = skill.StatusProficient
			b, err := json.Marshal(struct {
				Status skill.Status `json:"status"`
			}{l.Status})
			So(err, ShouldBeNil)
			So(string(b), ShouldEqual, `{"status":"PROFICIENT"}`)
		})
	})
}
