package orchestrator

import (
	"time"

	"github.com/yungbote/storyforge-backend/internal/domain/coursegen"
)

// FailurePolicy decides what one failed unit does to the rest of its stage.
type FailurePolicy string

const (
	// FailFast aborts the stage on the first unit error.
	FailFast FailurePolicy = "fail_fast"
	// FailIsolated records the failure on the unit and keeps going.
	FailIsolated FailurePolicy = "fail_isolated"
)

var DefaultPolicies = map[coursegen.Stage]FailurePolicy{
	coursegen.StageBlueprint:         FailFast,
	coursegen.StageModulePlanning:    FailFast,
	coursegen.StageEpisodeContent:    FailFast,
	coursegen.StageCharacterProfiles: FailIsolated,
	coursegen.StageExercises:         FailIsolated,
	coursegen.StageMedia:             FailIsolated,
}

// PolicyFor falls back to FailFast for stages missing from the table.
func PolicyFor(policies map[coursegen.Stage]FailurePolicy, stage coursegen.Stage) FailurePolicy {
	if p, ok := policies[stage]; ok {
		return p
	}
	return FailFast
}

type UnitStatus string

const (
	UnitPending   UnitStatus = "pending"
	UnitRunning   UnitStatus = "running"
	UnitSucceeded UnitStatus = "succeeded"
	UnitFailed    UnitStatus = "failed"
	UnitSkipped   UnitStatus = "skipped"
)

type UnitResult struct {
	Key        string     `json:"key"`
	Status     UnitStatus `json:"status"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
}

type StageReport struct {
	Stage      coursegen.Stage `json:"stage"`
	Policy     FailurePolicy   `json:"policy"`
	Units      []UnitResult    `json:"units"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

func (r *StageReport) count(s UnitStatus) int {
	n := 0
	for _, u := range r.Units {
		if u.Status == s {
			n++
		}
	}
	return n
}

func (r *StageReport) Succeeded() int { return r.count(UnitSucceeded) }
func (r *StageReport) Failed() int    { return r.count(UnitFailed) }
func (r *StageReport) Skipped() int   { return r.count(UnitSkipped) }

// Completeness is the proceed predicate of a stage over its units' statuses.
type Completeness struct {
	// AllowFailedUnits treats FAILED units as settled.
	AllowFailedUnits bool
}

// Satisfied reports whether exactly expected units exist and all of them are settled.
// A negative expected skips the count check.
func (c Completeness) Satisfied(statuses []coursegen.Status, expected int) bool {
	if expected >= 0 && len(statuses) != expected {
		return false
	}
	for _, s := range statuses {
		switch {
		case s == coursegen.StatusCompleted:
		case s == coursegen.StatusFailed && c.AllowFailedUnits:
		default:
			return false
		}
	}
	return true
}

// CompletenessFor is lenient for fail-isolated stages unless strict is set.
// Fail-fast stages never accept failed units.
func CompletenessFor(policies map[coursegen.Stage]FailurePolicy, stage coursegen.Stage, strict bool) Completeness {
	if PolicyFor(policies, stage) == FailIsolated {
		return Completeness{AllowFailedUnits: !strict}
	}
	return Completeness{}
}
