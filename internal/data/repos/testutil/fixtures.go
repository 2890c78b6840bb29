package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	types "github.com/yungbote/storyforge-backend/internal/domain"
	"gorm.io/gorm"
)

func SeedWorkflow(tb testing.TB, ctx context.Context, tx *gorm.DB, lang, level string, modules, episodes int) *types.Workflow {
	tb.Helper()
	w := &types.Workflow{
		LanguageCode:      lang,
		Level:             level,
		ModuleCount:       modules,
		EpisodesPerModule: episodes,
		CurrentStage:      types.StageBlueprint,
	}
	if err := tx.WithContext(ctx).Create(w).Error; err != nil {
		tb.Fatalf("seed workflow: %v", err)
	}
	return w
}

func SeedCharacter(tb testing.TB, ctx context.Context, tx *gorm.DB, workflowID uuid.UUID, name, gender string) *types.Character {
	tb.Helper()
	c := &types.Character{
		WorkflowID: workflowID,
		Name:       name,
		Role:       "supporting",
		Gender:     gender,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed character: %v", err)
	}
	return c
}

func SeedModulePlan(tb testing.TB, ctx context.Context, tx *gorm.DB, workflowID uuid.UUID, number int) *types.ModulePlan {
	tb.Helper()
	m := &types.ModulePlan{
		WorkflowID:   workflowID,
		ModuleNumber: number,
		Title:        "module",
		Status:       types.StatusCompleted,
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed module plan: %v", err)
	}
	return m
}

func SeedEpisodePlan(tb testing.TB, ctx context.Context, tx *gorm.DB, mp *types.ModulePlan, number int, kind string, characterIDs ...uuid.UUID) *types.EpisodePlan {
	tb.Helper()
	e := &types.EpisodePlan{
		WorkflowID:    mp.WorkflowID,
		ModulePlanID:  mp.ID,
		ModuleNumber:  mp.ModuleNumber,
		EpisodeNumber: number,
		Title:         "episode",
		EpisodeType:   kind,
		CharacterIDs:  characterIDs,
		Status:        types.StatusCompleted,
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed episode plan: %v", err)
	}
	return e
}
