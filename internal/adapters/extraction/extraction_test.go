package extraction_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/okian/plotpath/internal/adapters/extraction"
	"github.com/okian/plotpath/internal/domain/model"
	"github.com/okian/plotpath/internal/domain/skill"
	. "github.com/smartystreets/goconvey/convey"
)

type cannedGenerator struct {
	out    string
	err    error
	prompt string
}

func (c *cannedGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	c.prompt = prompt
	return c.out, c.err
}

const postingJSON = `{"title": "Backend Engineer", "company": "Acme", "required_skills": ["python", "docker", " "], "preferred_skills": ["Kubernetes", "Docker"]}`

func TestStripCodeFences(t *testing.T) {
	Convey("Code fences are removed", t, func() {
		So(extraction.StripCodeFences("```json\n{\"a\":1}\n```"), ShouldEqual, `{"a":1}`)
		So(extraction.StripCodeFences("```\n{\"a\":1}```"), ShouldEqual, `{"a":1}`)
		So(extraction.StripCodeFences("  {\"a\":1} "), ShouldEqual, `{"a":1}`)
	})
}

func TestLLMExtractor(t *testing.T) {
	ctx := context.Background()

	Convey("Given an extractor over a canned model", t, func() {
		gen := &cannedGenerator{out: "```json\n" + postingJSON + "\n```"}
		ex := extraction.NewLLMExtractor(gen, 10)

		Convey("It decodes the posting and truncates long text", func() {
			p, err := ex.ExtractRequirements(ctx, "We are hiring a backend engineer")
			So(err, ShouldBeNil)
			So(p.Title, ShouldEqual, "Backend Engineer")
			So(gen.prompt, ShouldContainSubstring, "We are hir")
			So(gen.prompt, ShouldNotContainSubstring, "We are hiring")

			reqs := p.Requirements("backend")
			So(reqs, ShouldResemble, []skill.Requirement{
				{Role: "backend", Skill: "Python", Level: skill.Required},
				{Role: "backend", Skill: "Docker", Level: skill.Required},
				{Role: "backend", Skill: "Kubernetes", Level: skill.Preferred},
			})
		})

		Convey("It rejects a response missing a required field", func() {
			gen.out = `{"title": "x", "company": "y", "required_skills": []}`
			_, err := ex.ExtractRequirements(ctx, "text")
			So(errors.Is(err, extraction.ErrMissingField), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "preferred_skills")
		})

		Convey("It rejects non-JSON output", func() {
			gen.out = "Sure! Here are the skills."
			_, err := ex.ExtractRequirements(ctx, "text")
			So(errors.Is(err, extraction.ErrInvalidResponse), ShouldBeTrue)
		})

		Convey("It rejects empty text without calling the model", func() {
			_, err := ex.ExtractRequirements(ctx, "  ")
			So(err, ShouldEqual, extraction.ErrEmptyText)
			So(gen.prompt, ShouldEqual, "")
		})
	})
}

func TestLLMResearcher(t *testing.T) {
	ctx := context.Background()
	task := model.NewTask("acme", "culture", "Check employee reviews", time.Now())

	Convey("Given a researcher over a canned model", t, func() {
		gen := &cannedGenerator{out: `{"score": 8, "evidence": " strong reviews ", "source": ""}`}
		r := extraction.NewLLMResearcher(gen, "gemini")

		Convey("It maps the answer onto a finding", func() {
			f, err := r.Research(ctx, task)
			So(err, ShouldBeNil)
			So(f.Entity, ShouldEqual, "acme")
			So(f.Factor, ShouldEqual, "culture")
			So(f.Score, ShouldEqual, 8)
			So(f.Evidence, ShouldEqual, "strong reviews")
			So(f.Source, ShouldEqual, "gemini")
			So(strings.Contains(gen.prompt, "Check employee reviews"), ShouldBeTrue)
		})

		Convey("It passes out-of-range scores through for the cache to reject", func() {
			gen.out = `{"score": 11, "evidence": "x"}`
			f, err := r.Research(ctx, task)
			So(err, ShouldBeNil)
			So(f.Score, ShouldEqual, 11)
		})

		Convey("It surfaces model errors", func() {
			gen.err = errors.New("quota")
			_, err := r.Research(ctx, task)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestStaticSources(t *testing.T) {
	ctx := context.Background()

	Convey("The static researcher answers from its table", t, func() {
		s := extraction.NewStaticResearcher()
		s.Set("acme", "culture", 6, "seeded")

		f, err := s.Research(ctx, model.NewTask("acme", "culture", "", time.Now()))
		So(err, ShouldBeNil)
		So(f.Score, ShouldEqual, 6)
		So(f.CapturedAt.IsZero(), ShouldBeFalse)

		_, err = s.Research(ctx, model.NewTask("acme", "growth", "", time.Now()))
		So(errors.Is(err, extraction.ErrNoData), ShouldBeTrue)

		pinned := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		s.SetClock(func() time.Time { return pinned })
		f, err = s.Research(ctx, model.NewTask("acme", "culture", "", time.Now()))
		So(err, ShouldBeNil)
		So(f.CapturedAt, ShouldEqual, pinned)
	})

	Convey("The line extractor reads labelled lines", t, func() {
		p, err := extraction.LineExtractor{}.ExtractRequirements(ctx, "Title: SRE\nrequired: Go, Docker,\nPreferred: Kubernetes\nnoise line")
		So(err, ShouldBeNil)
		So(p.Title, ShouldEqual, "SRE")
		So(p.Required, ShouldResemble, []string{"Go", "Docker"})
		So(p.Preferred, ShouldResemble, []string{"Kubernetes"})

		_, err = extraction.LineExtractor{}.ExtractRequirements(ctx, "nothing here")
		So(errors.Is(err, extraction.ErrNoData), ShouldBeTrue)
	})
}
