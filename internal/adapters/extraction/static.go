package extraction

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/okian/plotpath/internal/domain/model"
	"github.com/okian/plotpath/internal/domain/research"
)

// StaticResearcher answers from a fixed table. It backs offline runs and tests.
type StaticResearcher struct {
	mu     sync.RWMutex
	scores map[string]research.Finding
	now    func() time.Time
}

// NewStaticResearcher returns an empty table.
func NewStaticResearcher() *StaticResearcher {
	return &StaticResearcher{scores: make(map[string]research.Finding), now: time.Now}
}

// SetClock sets the time stamped on answers.
func (s *StaticResearcher) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Set registers the answer for (entity, factor).
func (s *StaticResearcher) Set(entity, factor string, score int, evidence string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[model.TaskKey(entity, factor)] = research.Finding{
		Entity:   entity,
		Factor:   factor,
		Score:    score,
		Evidence: evidence,
		Source:   "static",
	}
}

// Research implements Researcher.
func (s *StaticResearcher) Research(ctx context.Context, t model.Task) (research.Finding, error) {
	if err := ctx.Err(); err != nil {
		return research.Finding{}, err
	}
	s.mu.RLock()
	f, ok := s.scores[t.Key()]
	now := s.now
	s.mu.RUnlock()
	if !ok {
		return research.Finding{}, fmt.Errorf("%w: %s/%s", ErrNoData, t.Entity, t.Factor)
	}
	f.CapturedAt = now().UTC()
	return f, nil
}

// LineExtractor reads requirements from plain text lines of the form
// "required: Go, Docker" and "preferred: Kubernetes". Other lines are ignored,
// except "title:" and "company:".
type LineExtractor struct{}

// ExtractRequirements implements RequirementExtractor.
func (LineExtractor) ExtractRequirements(_ context.Context, text string) (Posting, error) {
	if strings.TrimSpace(text) == "" {
		return Posting{}, ErrEmptyText
	}
	var p Posting
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "title":
			p.Title = strings.TrimSpace(value)
		case "company":
			p.Company = strings.TrimSpace(value)
		case "required":
			p.Required = append(p.Required, splitList(value)...)
		case "preferred":
			p.Preferred = append(p.Preferred, splitList(value)...)
		}
	}
	if err := sc.Err(); err != nil {
		return Posting{}, err
	}
	if len(p.Required)+len(p.Preferred) == 0 {
		return Posting{}, fmt.Errorf("%w: no required or preferred lines", ErrNoData)
	}
	return p, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
