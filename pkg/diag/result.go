// Package diag defines the uniform result record produced by every machine
// check and the runner that wraps check operations with retry bookkeeping.
package diag

import (
	"context"
	"encoding/json"
	"math"
	"time"
)

// Status is the outcome of a check.
type Status string

const (
	StatusPassed Status = "passed"
	StatusFailed Status = "failed"
	StatusError  Status = "error"
)

// OK reports whether the status is passed.
func (s Status) OK() bool {
	return s == StatusPassed
}

func (s Status) String() string {
	return string(s)
}

// Valid reports whether s is one of the three known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPassed, StatusFailed, StatusError:
		return true
	}
	return false
}

// noDetails is substituted when a check operation returns no details.
const noDetails = "Check function did not provide details."

// Outcome is the raw, unwrapped result of a single check attempt.
// An empty Status is treated as failed; an empty Details as "no details".
type Outcome struct {
	Status      Status
	Details     string
	CommandsRun []string
}

// Operation is a check bound to one machine. A returned error (or a panic) is a
// fault, as opposed to a logical failure reported through Outcome.Status.
type Operation func(ctx context.Context) (Outcome, error)

// Record is the finalized, retry-aware outcome of one check. Records are
// created by Runner and never mutated afterwards.
type Record struct {
	CheckName   string        `json:"check"`
	Status      Status        `json:"status"`
	Duration    time.Duration `json:"-"`
	Details     string        `json:"details"`
	CommandsRun []string      `json:"commands_run"`
	Attempts    int           `json:"attempts"`
}

// DurationSeconds returns the duration of the final attempt in seconds,
// rounded to milliseconds.
func (r Record) DurationSeconds() float64 {
	return math.Round(r.Duration.Seconds()*1000) / 1000
}

// Commands returns a copy of the commands run by the final attempt.
func (r Record) Commands() []string {
	out := make([]string, len(r.CommandsRun))
	copy(out, r.CommandsRun)
	return out
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	r.CommandsRun = r.Commands()
	return r
}

// MarshalJSON renders the duration as seconds alongside the other fields.
func (r Record) MarshalJSON() ([]byte, error) {
	type plain Record
	return json.Marshal(struct {
		plain
		DurationSec float64 `json:"duration_sec"`
	}{plain(r.Clone()), r.DurationSeconds()})
}
