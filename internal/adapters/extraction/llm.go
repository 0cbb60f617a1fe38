package extraction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/plotpath/internal/domain/model"
	"github.com/okian/plotpath/internal/domain/research"
)

const researchPrompt = `You are researching an employer for a job seeker.

Employer: %s
Factor: %s
Instructions: %s

Score the employer on this factor from 1 (very poor) to 10 (excellent).
Return a JSON object with this exact structure:
{
  "score": integer between 1 and 10,
  "evidence": "short summary of what supports the score",
  "source": "where the evidence came from"
}
Return ONLY valid JSON, no commentary.`

const requirementsPrompt = `You are a skills extraction expert. Analyze the job posting below and extract all skills mentioned.

Return a JSON object with this exact structure:
{
  "title": "Job title",
  "company": "Company name",
  "required_skills": ["skill1", "skill2"],
  "preferred_skills": ["skill1", "skill2"]
}

Rules:
- Skills should be specific and atomic (e.g., "Python" not "programming languages")
- Separate clearly required skills from preferred or nice-to-have skills
- Include both technical and soft skills
- Normalize skill names (e.g., "React.js" becomes "React", "Javascript" becomes "JavaScript")
- Return ONLY valid JSON, no commentary

Job posting:
%s`

// LLMResearcher asks a Generator to score a factor.
type LLMResearcher struct {
	gen    Generator
	source string
	now    func() time.Time
}

// NewLLMResearcher wraps gen. source labels the findings it produces.
func NewLLMResearcher(gen Generator, source string) *LLMResearcher {
	return &LLMResearcher{gen: gen, source: source, now: time.Now}
}

type researchAnswer struct {
	Score    int    `json:"score"`
	Evidence string `json:"evidence"`
	Source   string `json:"source"`
}

// Research implements Researcher. The returned finding is not validated here.
func (r *LLMResearcher) Research(ctx context.Context, t model.Task) (research.Finding, error) {
	out, err := r.gen.GenerateContent(ctx, fmt.Sprintf(researchPrompt, t.Entity, t.Factor, t.Instructions))
	if err != nil {
		return research.Finding{}, fmt.Errorf("research %s/%s: %w", t.Entity, t.Factor, err)
	}
	var ans researchAnswer
	if err := DecodeObject(out, &ans, "score", "evidence"); err != nil {
		return research.Finding{}, err
	}
	source := strings.TrimSpace(ans.Source)
	if source == "" {
		source = r.source
	}
	return research.Finding{
		Entity:     t.Entity,
		Factor:     t.Factor,
		Score:      ans.Score,
		Evidence:   strings.TrimSpace(ans.Evidence),
		Source:     source,
		CapturedAt: r.now().UTC(),
	}, nil
}

// LLMExtractor asks a Generator for the skills in a posting.
type LLMExtractor struct {
	gen     Generator
	maxText int
}

// NewLLMExtractor wraps gen. Posting text longer than maxText runes is cut; zero keeps it whole.
func NewLLMExtractor(gen Generator, maxText int) *LLMExtractor {
	return &LLMExtractor{gen: gen, maxText: maxText}
}

// ExtractRequirements implements RequirementExtractor.
func (e *LLMExtractor) ExtractRequirements(ctx context.Context, text string) (Posting, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Posting{}, ErrEmptyText
	}
	if e.maxText > 0 {
		if r := []rune(text); len(r) > e.maxText {
			text = string(r[:e.maxText])
		}
	}
	out, err := e.gen.GenerateContent(ctx, fmt.Sprintf(requirementsPrompt, text))
	if err != nil {
		return Posting{}, fmt.Errorf("extract requirements: %w", err)
	}
	var p Posting
	if err := DecodeObject(out, &p, "title", "company", "required_skills", "preferred_skills"); err != nil {
		return Posting{}, err
	}
	return p, nil
}
