// Package audit provides audit logging for plan execution: chameleon
// execute records every controller Step, with or without a live network
// (pkg/liveadapter), as one Event.
package audit

import (
	"fmt"
	"time"
)

// Event represents one auditable plan-execution step.
type Event struct {
	ID          string        `json:"id"`
	Timestamp   time.Time     `json:"timestamp"`
	User        string        `json:"user"`
	Scenario    string        `json:"scenario"`
	Stage       string        `json:"stage"` // setup/update-before/main/update-after/cleanup/finished
	Round       int           `json:"round"`
	Router      int           `json:"router"`
	Prefix      string        `json:"prefix,omitempty"`
	Kind        string        `json:"kind"`
	Success     bool          `json:"success"`
	Error       string        `json:"error,omitempty"`
	ExecuteMode bool          `json:"execute_mode"` // true if -x was used
	DryRun      bool          `json:"dry_run"`
	Duration    time.Duration `json:"duration"`
	SessionID   string        `json:"session_id,omitempty"`
}

// Filter defines criteria for querying audit events.
type Filter struct {
	Scenario    string
	User        string
	Stage       string
	Router      int
	StartTime   time.Time
	EndTime     time.Time
	SuccessOnly bool
	FailureOnly bool
	Limit       int
	Offset      int
}

// NewEvent creates a new audit event for one plan-execution step.
func NewEvent(user, scenario, stage string) *Event {
	return &Event{
		ID:        generateID(),
		Timestamp: time.Now(),
		User:      user,
		Scenario:  scenario,
		Stage:     stage,
	}
}

func (e *Event) WithRound(round int) *Event {
	e.Round = round
	return e
}

func (e *Event) WithRouter(router int) *Event {
	e.Router = router
	return e
}

func (e *Event) WithPrefix(prefix string) *Event {
	e.Prefix = prefix
	return e
}

func (e *Event) WithKind(kind string) *Event {
	e.Kind = kind
	return e
}

func (e *Event) WithSuccess() *Event {
	e.Success = true
	return e
}

func (e *Event) WithError(err error) *Event {
	e.Success = false
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

func (e *Event) WithDuration(d time.Duration) *Event {
	e.Duration = d
	return e
}

func (e *Event) WithExecuteMode(execute bool) *Event {
	e.ExecuteMode = execute
	e.DryRun = !execute
	return e
}

func (e *Event) WithSessionID(id string) *Event {
	e.SessionID = id
	return e
}

func generateID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}
