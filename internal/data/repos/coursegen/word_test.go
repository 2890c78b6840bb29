package coursegen

import (
	"context"
	"testing"

	"github.com/yungbote/storyforge-backend/internal/data/repos/testutil"
	types "github.com/yungbote/storyforge-backend/internal/domain"
)

func TestWordRepoLookups(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewWordRepo(db, testutil.Logger(t))

	if _, err := repo.Create(ctx, nil, []*types.Word{
		{LanguageCode: "fr", Text: "Boulangerie", NormalizedText: "boulangerie"},
		{LanguageCode: "fr", Text: "boulanger", NormalizedText: "boulanger"},
		{LanguageCode: "es", Text: "panadería", NormalizedText: "panadería"},
		{LanguageCode: "fr", Text: "100%", NormalizedText: "100%"},
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	exact, err := repo.FindExact(ctx, "fr", "boulangerie")
	if err != nil || len(exact) != 1 {
		t.Fatalf("FindExact: err=%v len=%d", err, len(exact))
	}
	if rows, _ := repo.FindExact(ctx, "es", "boulangerie"); len(rows) != 0 {
		t.Fatalf("FindExact: language scope ignored")
	}

	found, err := repo.Search(ctx, "fr", "Boulang")
	if err != nil || len(found) != 2 {
		t.Fatalf("Search: err=%v len=%d", err, len(found))
	}
	if found[0].NormalizedText != "boulanger" {
		t.Fatalf("Search: want shortest first got %q", found[0].NormalizedText)
	}
	if rows, _ := repo.Search(ctx, "fr", "%"); len(rows) != 1 {
		t.Fatalf("Search: wildcard should be escaped, got %d rows", len(rows))
	}
}
