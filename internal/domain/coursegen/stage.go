package coursegen

import (
	"github.com/google/uuid"
)

// Stage is a workflow phase. The order of StageOrder is fixed.
type Stage string

const (
	StageBlueprint         Stage = "BLUEPRINT"
	StageModulePlanning    Stage = "MODULE_PLANNING"
	StageEpisodeContent    Stage = "EPISODE_CONTENT"
	StageCharacterProfiles Stage = "CHARACTER_PROFILES"
	StageExercises         Stage = "EXERCISES"
	StageMedia             Stage = "MEDIA"
	StageCompleted         Stage = "COMPLETED"
	StageFailed            Stage = "FAILED"
)

var StageOrder = []Stage{
	StageBlueprint,
	StageModulePlanning,
	StageEpisodeContent,
	StageCharacterProfiles,
	StageExercises,
	StageMedia,
	StageCompleted,
}

// Index returns the position of s in StageOrder, or -1 for FAILED and unknown values.
func (s Stage) Index() int {
	for i, st := range StageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Next returns the stage after s. Terminal stages have no successor.
func (s Stage) Next() (Stage, bool) {
	i := s.Index()
	if i < 0 || i >= len(StageOrder)-1 {
		return "", false
	}
	return StageOrder[i+1], true
}

func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageFailed
}

func (s Stage) Valid() bool {
	return s == StageFailed || s.Index() >= 0
}

// Status is the lifecycle of a single generated unit.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// Settled reports whether a unit reached a terminal status.
func (s Status) Settled() bool {
	return s == StatusCompleted || s == StatusFailed
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
