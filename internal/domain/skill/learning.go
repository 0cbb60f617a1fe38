package skill

import (
	"fmt"
	"strings"
)

// Status tracks progress on a skill. The order of the constants is the only
// allowed direction of travel, except for an explicit Reset.
type Status int

const (
	StatusToDo Status = iota
	StatusLearning
	StatusProficient
	StatusMastered
)

var statusNames = [...]string{"TO_DO", "LEARNING", "PROFICIENT", "MASTERED"}

func (s Status) String() string {
	if s < StatusToDo || s > StatusMastered {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

// ParseStatus accepts the names printed by String in any casing.
func ParseStatus(s string) (Status, error) {
	u := strings.ToUpper(strings.TrimSpace(s))
	for i, name := range statusNames {
		if u == name {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Met reports whether the status satisfies a requirement.
func (s Status) Met() bool { return s >= StatusProficient }

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if s < StatusToDo || s > StatusMastered {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStatus, int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Score bounds for ease, demand and passion.
const (
	MinRating = 1
	MaxRating = 10
)

// Learning is the user's record for one skill.
type Learning struct {
	Skill   string
	Status  Status
	Ease    *int
	Demand  *int
	Passion *int
}

// Validate checks the status and rating ranges.
func (l Learning) Validate() error {
	if strings.TrimSpace(l.Skill) == "" {
		return ErrEmptyName
	}
	if l.Status < StatusToDo || l.Status > StatusMastered {
		return fmt.Errorf("%w: %d", ErrInvalidStatus, int(l.Status))
	}
	ratings := []struct {
		name string
		v    *int
	}{{"ease", l.Ease}, {"demand", l.Demand}, {"passion", l.Passion}}
	for _, r := range ratings {
		if r.v != nil && (*r.v < MinRating || *r.v > MaxRating) {
			return fmt.Errorf("%w: %s=%d", ErrInvalidRating, r.name, *r.v)
		}
	}
	return nil
}

// Advance moves the record to next. Moving backwards is rejected; staying put is allowed.
func (l *Learning) Advance(next Status) error {
	if next < StatusToDo || next > StatusMastered {
		return fmt.Errorf("%w: %d", ErrInvalidStatus, int(next))
	}
	if next < l.Status {
		return fmt.Errorf("%w: %s -> %s", ErrStatusRegression, l.Status, next)
	}
	l.Status = next
	return nil
}

// Reset returns the record to TO_DO.
func (l *Learning) Reset() { l.Status = StatusToDo }

// Priority is demand*passion/max(ease,1). It is unknown unless all three ratings are set.
func (l Learning) Priority() (float64, bool) {
	if l.Ease == nil || l.Demand == nil || l.Passion == nil {
		return 0, false
	}
	ease := *l.Ease
	if ease < 1 {
		ease = 1
	}
	return float64(*l.Demand) * float64(*l.Passion) / float64(ease), true
}
