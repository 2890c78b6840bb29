package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/storyforge-backend/internal/data/repos"
	types "github.com/yungbote/storyforge-backend/internal/domain"
	"github.com/yungbote/storyforge-backend/internal/jobs/orchestrator"
)

type StageProgress struct {
	Stage      types.Stage `json:"stage"`
	Expected   int         `json:"expected"`
	Total      int         `json:"total"`
	Pending    int         `json:"pending"`
	InProgress int         `json:"in_progress"`
	Completed  int         `json:"completed"`
	Failed     int         `json:"failed"`
}

type Progress struct {
	WorkflowID        uuid.UUID       `json:"workflow_id"`
	CurrentStage      types.Stage     `json:"current_stage"`
	FailedStage       types.Stage     `json:"failed_stage,omitempty"`
	ErrorMessage      string          `json:"error_message,omitempty"`
	AutoMode          bool            `json:"auto_mode"`
	CanProceed        bool            `json:"can_proceed"`
	PublishedCourseID *uuid.UUID      `json:"published_course_id,omitempty"`
	Stages            []StageProgress `json:"stages"`
}

// Stage returns the counts of one stage, or nil when it is not tracked.
func (p *Progress) Stage(stage types.Stage) *StageProgress {
	for i := range p.Stages {
		if p.Stages[i].Stage == stage {
			return &p.Stages[i]
		}
	}
	return nil
}

type stageStatuses struct {
	statuses []types.Status
	expected int
	// extra holds predicates the status list cannot express, such as the roster size.
	extra bool
}

// progressCalculator derives per-stage counts and the proceed predicate from stored rows.
type progressCalculator struct {
	repos    repos.Set
	policies map[types.Stage]orchestrator.FailurePolicy
	strict   bool
}

func (c progressCalculator) compute(ctx context.Context, wf *types.Workflow) (*Progress, error) {
	bp, err := c.repos.Blueprint.GetByWorkflowID(ctx, nil, wf.ID)
	if err != nil {
		return nil, err
	}
	chars, err := c.repos.Character.GetByWorkflowID(ctx, nil, wf.ID)
	if err != nil {
		return nil, err
	}
	modules, err := c.repos.ModulePlan.GetByWorkflowID(ctx, nil, wf.ID)
	if err != nil {
		return nil, err
	}
	plans, err := c.repos.EpisodePlan.GetByWorkflowID(ctx, nil, wf.ID)
	if err != nil {
		return nil, err
	}

	episodes := wf.ModuleCount * wf.EpisodesPerModule
	byStage := map[types.Stage]stageStatuses{
		types.StageBlueprint: {
			statuses: []types.Status{bp.Status},
			expected: 1,
			extra:    len(chars) >= 2,
		},
		types.StageModulePlanning: {
			statuses: moduleStatuses(modules),
			expected: wf.ModuleCount,
			extra:    episodesPerModuleMatch(modules, plans, wf.EpisodesPerModule),
		},
		types.StageEpisodeContent: {
			statuses: unitStatuses(plans, repos.UnitContent),
			expected: episodes,
			extra:    true,
		},
		types.StageCharacterProfiles: {
			statuses: profileStatuses(chars),
			expected: -1,
			extra:    len(chars) > 0,
		},
		types.StageExercises: {
			statuses: unitStatuses(plans, repos.UnitExercises),
			expected: episodes,
			extra:    true,
		},
		types.StageMedia: {
			statuses: unitStatuses(plans, repos.UnitMedia),
			expected: episodes,
			extra:    true,
		},
	}

	p := &Progress{
		WorkflowID:        wf.ID,
		CurrentStage:      wf.CurrentStage,
		FailedStage:       wf.FailedStage,
		ErrorMessage:      wf.ErrorMessage,
		AutoMode:          wf.AutoMode,
		PublishedCourseID: wf.PublishedCourseID,
	}
	for _, stage := range types.StageOrder {
		st, ok := byStage[stage]
		if !ok {
			continue
		}
		sp := StageProgress{Stage: stage, Expected: st.expected, Total: len(st.statuses)}
		if st.expected < 0 {
			sp.Expected = len(st.statuses)
		}
		for _, s := range st.statuses {
			switch s {
			case types.StatusCompleted:
				sp.Completed++
			case types.StatusFailed:
				sp.Failed++
			case types.StatusInProgress:
				sp.InProgress++
			default:
				sp.Pending++
			}
		}
		p.Stages = append(p.Stages, sp)
	}

	if st, ok := byStage[wf.CurrentStage]; ok && !wf.CurrentStage.Terminal() {
		pred := orchestrator.CompletenessFor(c.policies, wf.CurrentStage, c.strict)
		p.CanProceed = st.extra && pred.Satisfied(st.statuses, st.expected)
	}
	return p, nil
}

func moduleStatuses(modules []*types.ModulePlan) []types.Status {
	out := make([]types.Status, 0, len(modules))
	for _, m := range modules {
		out = append(out, m.Status)
	}
	return out
}

func profileStatuses(chars []*types.Character) []types.Status {
	out := make([]types.Status, 0, len(chars))
	for _, c := range chars {
		out = append(out, c.ProfileStatus)
	}
	return out
}

func unitStatuses(plans []*types.EpisodePlan, unit repos.UnitColumn) []types.Status {
	out := make([]types.Status, 0, len(plans))
	for _, p := range plans {
		switch unit {
		case repos.UnitContent:
			out = append(out, p.ContentStatus)
		case repos.UnitExercises:
			out = append(out, p.ExercisesStatus)
		case repos.UnitMedia:
			out = append(out, p.MediaStatus)
		}
	}
	return out
}

// episodesPerModuleMatch checks that every module plan owns exactly perModule episode plans.
func episodesPerModuleMatch(modules []*types.ModulePlan, plans []*types.EpisodePlan, perModule int) bool {
	counts := map[uuid.UUID]int{}
	for _, p := range plans {
		counts[p.ModulePlanID]++
	}
	for _, m := range modules {
		if counts[m.ID] != perModule {
			return false
		}
	}
	return len(plans) == len(modules)*perModule
}
