// Package event defines the generation events published after every
// generate request, successful or not.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	GenerationSucceeded = "generation_succeeded"
	GenerationFailed    = "generation_failed"
)

// Statuses stored with a generation run.
const (
	StatusSucceeded = "succeeded"
	StatusRejected  = "rejected" // input failed validation
	StatusFailed    = "failed"   // render, check or commit failed
)

// GenerationEvent carries the outcome of one generate request.
type GenerationEvent struct {
	ID           string        `json:"id"`
	EventType    string        `json:"eventType"`
	OccurredAt   time.Time     `json:"occurredAt"`
	UID          string        `json:"uid,omitempty"`
	TemplateName string        `json:"templateName,omitempty"`
	Module       string        `json:"module,omitempty"` // route segment
	Status       string        `json:"status"`
	Artifacts    int           `json:"artifacts"`
	Paths        []string      `json:"paths,omitempty"`
	Duration     time.Duration `json:"duration"`
	Error        string        `json:"error,omitempty"`
}

func newID() string { return uuid.New().String() }

// ModuleInfo identifies the module a generation targeted. Fields are empty
// when the input could not be decoded.
type ModuleInfo struct {
	UID          string
	TemplateName string
	Module       string
}

// NewGenerationSucceeded builds the event for a committed module.
func NewGenerationSucceeded(m ModuleInfo, paths []string, took time.Duration) GenerationEvent {
	return GenerationEvent{
		ID:           newID(),
		EventType:    GenerationSucceeded,
		OccurredAt:   time.Now().UTC(),
		UID:          m.UID,
		TemplateName: m.TemplateName,
		Module:       m.Module,
		Status:       StatusSucceeded,
		Artifacts:    len(paths),
		Paths:        paths,
		Duration:     took,
	}
}

// NewGenerationFailed builds the event for a rejected or failed request.
// status is StatusRejected or StatusFailed.
func NewGenerationFailed(m ModuleInfo, status string, err error, took time.Duration) GenerationEvent {
	evt := GenerationEvent{
		ID:           newID(),
		EventType:    GenerationFailed,
		OccurredAt:   time.Now().UTC(),
		UID:          m.UID,
		TemplateName: m.TemplateName,
		Module:       m.Module,
		Status:       status,
		Duration:     took,
	}
	if err != nil {
		evt.Error = err.Error()
	}
	return evt
}
