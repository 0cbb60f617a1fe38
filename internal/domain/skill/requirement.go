package skill

import (
	"fmt"
	"strings"
)

// Level says how strongly a role asks for a skill.
type Level string

const (
	Required  Level = "REQUIRED"
	Preferred Level = "PREFERRED"
)

// ParseLevel accepts any casing of REQUIRED or PREFERRED.
func ParseLevel(s string) (Level, error) {
	switch l := Level(strings.ToUpper(strings.TrimSpace(s))); l {
	case Required, Preferred:
		return l, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidLevel, s)
	}
}

// Requirement links a role to a skill. It is unique per (role, skill).
type Requirement struct {
	Role  string
	Skill string
	Level Level
}

// BuildRequirements turns extracted name lists into requirements for role.
// Blank names are skipped, names are normalized, and a skill listed as both
// required and preferred is kept once as required.
func BuildRequirements(role string, required, preferred []string) []Requirement {
	out := make([]Requirement, 0, len(required)+len(preferred))
	index := make(map[string]int, cap(out))
	add := func(name string, level Level) {
		if strings.TrimSpace(name) == "" {
			return
		}
		name = Normalize(name)
		k := Key(name)
		if i, ok := index[k]; ok {
			if level == Required {
				out[i].Level = Required
			}
			return
		}
		index[k] = len(out)
		out = append(out, Requirement{Role: role, Skill: name, Level: level})
	}
	for _, n := range required {
		add(n, Required)
	}
	for _, n := range preferred {
		add(n, Preferred)
	}
	return out
}

// ValidateRequirements checks levels and (role, skill) uniqueness.
func ValidateRequirements(reqs []Requirement) error {
	seen := make(map[string]struct{}, len(reqs))
	for _, r := range reqs {
		if strings.TrimSpace(r.Skill) == "" {
			return ErrEmptyName
		}
		if r.Level != Required && r.Level != Preferred {
			return fmt.Errorf("%w: %q", ErrInvalidLevel, r.Level)
		}
		k := r.Role + "\x00" + Key(r.Skill)
		if _, dup := seen[k]; dup {
			return fmt.Errorf("%w: %s/%s", ErrDuplicateRequirement, r.Role, r.Skill)
		}
		seen[k] = struct{}{}
	}
	return nil
}

// Role ties a set of requirements to the employer whose desirability decides the verdict.
type Role struct {
	Name         string
	Entity       string
	Requirements []Requirement
}
