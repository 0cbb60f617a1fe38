// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Task asks the research pipeline to score one factor for one entity.
type Task struct {
	ID           string
	Entity       string
	Factor       string
	Instructions string
	RequestedAt  time.Time
}

// NewTask builds a task with a fresh random id.
func NewTask(entity, factor, instructions string, now time.Time) Task {
	return Task{
		ID:           uuid.NewString(),
		Entity:       entity,
		Factor:       factor,
		Instructions: instructions,
		RequestedAt:  now,
	}
}

// Key identifies the (entity, factor) pair a task covers.
func (t Task) Key() string {
	return TaskKey(t.Entity, t.Factor)
}

// TaskKey joins entity and factor into the in-flight key.
func TaskKey(entity, factor string) string {
	return entity + "\x00" + factor
}
