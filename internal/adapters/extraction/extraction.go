// Package extraction turns external content into untrusted finding and
// requirement candidates for the engine.
package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/okian/plotpath/internal/domain/model"
	"github.com/okian/plotpath/internal/domain/research"
	"github.com/okian/plotpath/internal/domain/skill"
)

// Researcher produces a finding candidate for a task.
type Researcher interface {
	Research(ctx context.Context, t model.Task) (research.Finding, error)
}

// RequirementExtractor pulls role requirements out of posting text.
type RequirementExtractor interface {
	ExtractRequirements(ctx context.Context, text string) (Posting, error)
}

// Generator is a text-in text-out model backend.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Posting is what the extractor found in a job posting.
type Posting struct {
	Title     string   `json:"title"`
	Company   string   `json:"company"`
	Required  []string `json:"required_skills"`
	Preferred []string `json:"preferred_skills"`
}

// Requirements links the posting's skills to role. Blank names are skipped
// and a skill listed at both levels stays REQUIRED.
func (p Posting) Requirements(role string) []skill.Requirement {
	return skill.BuildRequirements(role, p.Required, p.Preferred)
}

var fenceRE = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

// StripCodeFences removes a surrounding markdown code fence if present.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if m := fenceRE.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// DecodeObject parses model output as a JSON object, checks that every
// field in required is present and decodes it into out.
func DecodeObject(raw string, out any, required ...string) error {
	body := StripCodeFences(raw)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	for _, name := range required {
		if _, ok := fields[name]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingField, name)
		}
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}
