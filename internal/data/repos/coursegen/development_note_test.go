package coursegen

import (
	"context"
	"testing"

	"github.com/yungbote/storyforge-backend/internal/data/repos/testutil"
	types "github.com/yungbote/storyforge-backend/internal/domain"
)

func TestDevelopmentNoteRepoAppendIsMonotonic(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewDevelopmentNoteRepo(db, testutil.Logger(t))

	w := testutil.SeedWorkflow(t, ctx, tx, "fr", "A1", 1, 2)
	claire := testutil.SeedCharacter(t, ctx, tx, w.ID, "Claire", "female")
	mp := testutil.SeedModulePlan(t, ctx, tx, w.ID, 1)
	ep1 := testutil.SeedEpisodePlan(t, ctx, tx, mp, 1, types.EpisodeTypeDialogue)
	ep2 := testutil.SeedEpisodePlan(t, ctx, tx, mp, 2, types.EpisodeTypeDialogue)

	if _, err := repo.Append(ctx, tx, []*types.CharacterDevelopmentNote{
		{WorkflowID: w.ID, CharacterID: claire.ID, EpisodePlanID: ep1.ID, EpisodeRef: ep1.Ref(), Note: "arrives in Lyon"},
		{WorkflowID: w.ID, CharacterID: claire.ID, EpisodePlanID: ep1.ID, EpisodeRef: ep1.Ref(), Note: "finds a flat"},
	}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := repo.Append(ctx, tx, []*types.CharacterDevelopmentNote{
		{WorkflowID: w.ID, CharacterID: claire.ID, EpisodePlanID: ep2.ID, EpisodeRef: ep2.Ref(), Note: "meets Hugo"},
	}); err != nil {
		t.Fatalf("Append second: %v", err)
	}

	rows, err := repo.GetByWorkflowID(ctx, tx, w.ID)
	if err != nil {
		t.Fatalf("GetByWorkflowID: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("GetByWorkflowID: want=3 got=%d", len(rows))
	}
	for i, r := range rows {
		if r.Sequence != i+1 {
			t.Fatalf("sequence[%d]: want=%d got=%d", i, i+1, r.Sequence)
		}
	}
	if rows[2].Note != "meets Hugo" || rows[2].EpisodeRef != "M1E2" {
		t.Fatalf("last note: unexpected %+v", rows[2])
	}

	if err := repo.DeleteByWorkflowID(ctx, tx, w.ID); err != nil {
		t.Fatalf("DeleteByWorkflowID: %v", err)
	}
	if rows, err := repo.GetByWorkflowID(ctx, tx, w.ID); err != nil || len(rows) != 0 {
		t.Fatalf("after delete: err=%v len=%d", err, len(rows))
	}
}
