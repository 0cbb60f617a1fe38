package verdict_test

import (
	"testing"

	"github.com/okian/plotpath/internal/domain/gap"
	"github.com/okian/plotpath/internal/domain/scoring"
	"github.com/okian/plotpath/internal/domain/verdict"
	. "github.com/smartystreets/goconvey/convey"
)

func complete(overall float64) scoring.Outcome {
	return scoring.Outcome{Entity: "acme", Score: &scoring.Desirability{Entity: "acme", Overall: overall}}
}

func report(match, required float64) gap.Report {
	return gap.Report{
		Role: "backend", Match: match, RequiredMatch: required,
		Required: gap.Ratio{Met: 1, Total: 2}, Preferred: gap.Ratio{Met: 1, Total: 1},
	}
}

func TestSynthesize(t *testing.T) {
	p := verdict.DefaultPolicy()

	Convey("Given the default policy", t, func() {
		Convey("Incomplete desirability is INSUFFICIENT_DATA even with a strong match", func() {
			out := scoring.Outcome{Entity: "company-x", Missing: []string{"reputation"}}
			d := p.Synthesize(out, report(0.9, 1))
			So(d.Verdict, ShouldEqual, verdict.InsufficientData)
			So(d.Missing, ShouldResemble, []string{"reputation"})
			So(d.Desirability, ShouldBeNil)
			So(d.Rationale, ShouldResemble, []string{verdict.ReasonDesirabilityIncomplete})
		})

		Convey("Low required match is NO_GO even when GO thresholds are met", func() {
			d := p.Synthesize(complete(9), report(0.85, 0.4))
			So(d.Verdict, ShouldEqual, verdict.NoGo)
			So(d.Rationale, ShouldResemble, []string{verdict.ReasonRequiredMatchLow})
			So(*d.Desirability, ShouldEqual, 9)
		})

		Convey("High match and desirability is GO", func() {
			d := p.Synthesize(complete(6.0), report(0.8, 0.5))
			So(d.Verdict, ShouldEqual, verdict.Go)
			So(d.Rationale, ShouldResemble, []string{verdict.ReasonMatchHigh, verdict.ReasonDesirabilityHigh})
		})

		Convey("Anything else is MAYBE", func() {
			d := p.Synthesize(complete(5.99), report(0.95, 1))
			So(d.Verdict, ShouldEqual, verdict.Maybe)
			So(d.Rationale, ShouldResemble, []string{verdict.ReasonMatchHigh, verdict.ReasonDesirabilityLow})

			d = p.Synthesize(complete(8), report(0.79, 0.5))
			So(d.Verdict, ShouldEqual, verdict.Maybe)
			So(d.Rationale, ShouldResemble, []string{verdict.ReasonMatchLow, verdict.ReasonDesirabilityHigh})
		})

		Convey("A role with no requirements is flagged in the rationale", func() {
			d := p.Synthesize(complete(7), gap.Report{Role: "intern", Match: 1, RequiredMatch: 1, PreferredMatch: 1})
			So(d.Verdict, ShouldEqual, verdict.Go)
			So(d.Rationale[0], ShouldEqual, verdict.ReasonNoRequirements)
		})
	})

	Convey("Given a custom policy", t, func() {
		strict := verdict.Policy{MinMatch: 0.95, MinDesirability: 8, MinRequiredMatch: 1}
		So(strict.Synthesize(complete(9), report(0.9, 1)).Verdict, ShouldEqual, verdict.Maybe)
		So(strict.Synthesize(complete(9), report(0.96, 0.99)).Verdict, ShouldEqual, verdict.NoGo)
	})
}
