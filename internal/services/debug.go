package services

import (
	"context"

	"github.com/google/uuid"

	types "github.com/yungbote/storyforge-backend/internal/domain"
	"github.com/yungbote/storyforge-backend/internal/jobs/orchestrator"
)

// DebugSnapshot is every stored entity of a workflow, raw model responses included.
type DebugSnapshot struct {
	Workflow         *types.Workflow                           `json:"workflow"`
	Progress         *Progress                                 `json:"progress"`
	Blueprint        *types.Blueprint                          `json:"blueprint"`
	GrammarRules     []*types.GrammarRule                      `json:"grammar_rules"`
	Characters       []*types.Character                        `json:"characters"`
	DevelopmentNotes []*types.CharacterDevelopmentNote         `json:"development_notes"`
	ModulePlans      []*types.ModulePlan                       `json:"module_plans"`
	EpisodePlans     []*types.EpisodePlan                      `json:"episode_plans"`
	EpisodeContents  []*types.EpisodeContent                   `json:"episode_contents"`
	Exercises        []*types.EpisodeExercises                 `json:"exercises"`
	Media            []*types.Media                            `json:"media"`
	VocabularyLinks  []*types.EpisodeVocabularyLink            `json:"vocabulary_links"`
	StageReports     map[types.Stage]*orchestrator.StageReport `json:"stage_reports,omitempty"`
}

func (s *courseGenerationService) GetDebugSnapshot(ctx context.Context, workflowID uuid.UUID) (*DebugSnapshot, error) {
	wf, err := s.repos.Workflow.GetByID(ctx, nil, workflowID)
	if err != nil {
		return nil, err
	}
	snap := &DebugSnapshot{Workflow: wf, StageReports: s.lastReports(workflowID)}

	if snap.Progress, err = s.progress.compute(ctx, wf); err != nil {
		return nil, err
	}
	if snap.Blueprint, err = s.repos.Blueprint.GetByWorkflowID(ctx, nil, workflowID); err != nil {
		return nil, err
	}
	if snap.GrammarRules, err = s.repos.GrammarRule.GetByScope(ctx, nil, wf.LanguageCode, wf.Level); err != nil {
		return nil, err
	}
	if snap.Characters, err = s.repos.Character.GetByWorkflowID(ctx, nil, workflowID); err != nil {
		return nil, err
	}
	if snap.DevelopmentNotes, err = s.repos.DevelopmentNote.GetByWorkflowID(ctx, nil, workflowID); err != nil {
		return nil, err
	}
	if snap.ModulePlans, err = s.repos.ModulePlan.GetByWorkflowID(ctx, nil, workflowID); err != nil {
		return nil, err
	}
	if snap.EpisodePlans, err = s.repos.EpisodePlan.GetByWorkflowID(ctx, nil, workflowID); err != nil {
		return nil, err
	}
	if snap.EpisodeContents, err = s.repos.EpisodeContent.GetByWorkflowID(ctx, nil, workflowID); err != nil {
		return nil, err
	}
	if snap.Exercises, err = s.repos.EpisodeExercises.GetByWorkflowID(ctx, nil, workflowID); err != nil {
		return nil, err
	}
	if snap.Media, err = s.repos.Media.GetByWorkflowID(ctx, nil, workflowID); err != nil {
		return nil, err
	}
	if snap.VocabularyLinks, err = s.repos.VocabularyLink.GetByWorkflowID(ctx, nil, workflowID); err != nil {
		return nil, err
	}
	return snap, nil
}
