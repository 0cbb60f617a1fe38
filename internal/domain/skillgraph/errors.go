package skillgraph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCycle        = errors.New("prerequisite cycle")
	ErrUnknownSkill = errors.New("unknown skill")
)

// CycleError names the skills forming a cycle, starting and ending with the same skill.
// Each skill in Path requires the next one.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCycle, strings.Join(e.Path, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrCycle }

// UnknownSkillError reports a reference to a skill that is not in the graph.
type UnknownSkillError struct {
	Skill string
}

func (e *UnknownSkillError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnknownSkill, e.Skill)
}

func (e *UnknownSkillError) Unwrap() error { return ErrUnknownSkill }
