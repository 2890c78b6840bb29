package coursegen

import (
	"context"
	"testing"

	"github.com/yungbote/storyforge-backend/internal/data/repos/testutil"
	types "github.com/yungbote/storyforge-backend/internal/domain"
)

func TestEpisodePlanRepoOrderingAndUnitStatus(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewEpisodePlanRepo(db, testutil.Logger(t))

	w := testutil.SeedWorkflow(t, ctx, tx, "fr", "A1", 2, 2)
	m2 := testutil.SeedModulePlan(t, ctx, tx, w.ID, 2)
	m1 := testutil.SeedModulePlan(t, ctx, tx, w.ID, 1)
	testutil.SeedEpisodePlan(t, ctx, tx, m2, 2, types.EpisodeTypeStory)
	testutil.SeedEpisodePlan(t, ctx, tx, m1, 2, types.EpisodeTypeDialogue)
	first := testutil.SeedEpisodePlan(t, ctx, tx, m1, 1, types.EpisodeTypeDialogue)
	testutil.SeedEpisodePlan(t, ctx, tx, m2, 1, types.EpisodeTypeDialogue)

	rows, err := repo.GetByWorkflowID(ctx, tx, w.ID)
	if err != nil {
		t.Fatalf("GetByWorkflowID: %v", err)
	}
	var refs []string
	for _, r := range rows {
		refs = append(refs, r.Ref())
	}
	want := []string{"M1E1", "M1E2", "M2E1", "M2E2"}
	for i := range want {
		if refs[i] != want[i] {
			t.Fatalf("order: want=%v got=%v", want, refs)
		}
	}
	if rows[0].ContentStatus != types.StatusPending || rows[0].MediaStatus != types.StatusPending {
		t.Fatalf("default unit statuses: %+v", rows[0])
	}

	if err := repo.SetUnitStatus(ctx, tx, first.ID, UnitExercises, types.StatusFailed, "bad json"); err != nil {
		t.Fatalf("SetUnitStatus: %v", err)
	}
	got, err := repo.GetByID(ctx, tx, first.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.ExercisesStatus != types.StatusFailed || got.ExercisesError != "bad json" {
		t.Fatalf("SetUnitStatus: unexpected row %+v", got)
	}

	if err := repo.ResetUnitStatus(ctx, tx, w.ID, UnitExercises); err != nil {
		t.Fatalf("ResetUnitStatus: %v", err)
	}
	got, _ = repo.GetByID(ctx, tx, first.ID)
	if got.ExercisesStatus != types.StatusPending || got.ExercisesError != "" {
		t.Fatalf("ResetUnitStatus: unexpected row %+v", got)
	}

	if err := repo.SetUnitStatus(ctx, tx, first.ID, UnitColumn("bogus"), types.StatusFailed, ""); err == nil {
		t.Fatalf("SetUnitStatus bogus column: want error")
	}
}
