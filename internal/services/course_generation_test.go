package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/storyforge-backend/internal/domain"
	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/content"
	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/prompts"
	apperr "github.com/yungbote/storyforge-backend/internal/pkg/errors"
)

func frenchA1(modules, episodes int, auto bool) WorkflowConfig {
	return WorkflowConfig{LanguageCode: "fr", Level: "A1", ModuleCount: modules, EpisodesPerModule: episodes, AutoMode: auto}
}

func TestStartAndAdvanceThroughEpisodeContent(t *testing.T) {
	f := newFixture(t)
	f.scriptFullRun(2)

	wf := f.start(frenchA1(2, 1, false))
	require.Equal(t, types.StageBlueprint, wf.CurrentStage)

	bp, err := f.repos.Blueprint.GetByWorkflowID(f.ctx, nil, wf.ID)
	require.NoError(t, err)
	require.Equal(t, types.StatusCompleted, bp.Status)
	chars, err := f.repos.Character.GetByWorkflowID(f.ctx, nil, wf.ID)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chars), 2)
	require.LessOrEqual(t, len(chars), 4)

	progress, err := f.svc.GetProgress(f.ctx, wf.ID)
	require.NoError(t, err)
	require.True(t, progress.CanProceed)

	wf = f.advance(wf)
	require.Equal(t, types.StageModulePlanning, wf.CurrentStage)
	modules, err := f.repos.ModulePlan.GetByWorkflowID(f.ctx, nil, wf.ID)
	require.NoError(t, err)
	require.Len(t, modules, 2)
	plans, err := f.repos.EpisodePlan.GetByWorkflowID(f.ctx, nil, wf.ID)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	require.NotEqual(t, plans[0].ModulePlanID, plans[1].ModulePlanID)

	wf = f.advance(wf)
	require.Equal(t, types.StageEpisodeContent, wf.CurrentStage)
	for _, ep := range plans {
		body, err := f.repos.EpisodeContent.GetByEpisodePlanID(f.ctx, nil, ep.ID)
		require.NoError(t, err)
		require.NotNil(t, body)
		require.NotEmpty(t, body.Summary)
	}

	require.Equal(t, 3, f.events(EventStageChanged))
	require.Equal(t, 3, f.events(EventStageReported))
}

func TestAutoModeCompletesAndPublishes(t *testing.T) {
	f := newFixture(t)
	f.scriptFullRun(1)

	wf := f.start(frenchA1(1, 1, true))
	require.Equal(t, types.StageCompleted, wf.CurrentStage)

	progress, err := f.svc.GetProgress(f.ctx, wf.ID)
	require.NoError(t, err)
	require.False(t, progress.CanProceed)
	for _, st := range progress.Stages {
		require.Zero(t, st.Failed, "stage %s", st.Stage)
		require.Equal(t, st.Expected, st.Completed, "stage %s", st.Stage)
	}

	_, err = f.repos.Word.Create(f.ctx, nil, []*types.Word{{LanguageCode: "fr", Text: "bonjour", NormalizedText: "bonjour"}})
	require.NoError(t, err)
	links, err := f.svc.LinkVocabulary(f.ctx, wf.ID)
	require.NoError(t, err)
	require.Len(t, links, 2)

	course, err := f.svc.Publish(f.ctx, wf.ID)
	require.NoError(t, err)
	require.Equal(t, "Un été à Lyon", course.Title)

	episodes, err := f.repos.Catalog.GetEpisodesByCourseID(f.ctx, nil, course.ID)
	require.NoError(t, err)
	require.Len(t, episodes, 1)
	require.Contains(t, episodes[0].Text, "Claire: Bonjour Hugo")
	require.NotEmpty(t, episodes[0].AudioURL)
	require.Len(t, episodes[0].ImageURLs, 3)

	got, err := f.svc.GetProgress(f.ctx, wf.ID)
	require.NoError(t, err)
	require.NotNil(t, got.PublishedCourseID)
	require.Equal(t, course.ID, *got.PublishedCourseID)

	_, err = f.svc.Publish(f.ctx, wf.ID)
	require.True(t, errors.Is(err, apperr.ErrState))
}

func TestStageFailureMarksWorkflowFailed(t *testing.T) {
	f := newFixture(t)
	f.ai.queue(prompts.PromptBlueprint, blueprintJSON(t, 2))
	f.ai.queue(prompts.PromptModulePlan, modulePlanJSON(t, "Arrivée", 0))

	wf := f.start(frenchA1(2, 1, false))
	_, err := f.svc.Advance(f.ctx, wf.ID)
	require.Error(t, err)
	require.True(t, errors.Is(err, apperr.ErrGenerationParse), "got %v", err)

	progress, err := f.svc.GetProgress(f.ctx, wf.ID)
	require.NoError(t, err)
	require.Equal(t, types.StageFailed, progress.CurrentStage)
	require.Equal(t, types.StageModulePlanning, progress.FailedStage)
	require.NotEmpty(t, progress.ErrorMessage)
	require.False(t, progress.CanProceed)

	_, err = f.svc.Advance(f.ctx, wf.ID)
	require.True(t, errors.Is(err, apperr.ErrState))
	_, err = f.svc.RegenerateCurrent(f.ctx, wf.ID, "again")
	require.True(t, errors.Is(err, apperr.ErrState))
	_, err = f.svc.LinkVocabulary(f.ctx, wf.ID)
	require.True(t, errors.Is(err, apperr.ErrState))
	require.Equal(t, 1, f.events(EventWorkflowFailed))
}

func TestCallerDisconnectDoesNotFailWorkflow(t *testing.T) {
	f := newFixture(t)
	f.scriptFullRun(1)
	wf := f.start(frenchA1(1, 1, false))

	ctx, cancel := context.WithCancel(f.ctx)
	defer cancel()
	f.ai.onText = func(name prompts.PromptName) {
		if name == prompts.PromptModulePlan {
			cancel()
		}
	}
	got, err := f.svc.Advance(ctx, wf.ID)
	require.NoError(t, err)
	require.Equal(t, types.StageModulePlanning, got.CurrentStage)
	f.ai.onText = nil

	progress, err := f.svc.GetProgress(f.ctx, wf.ID)
	require.NoError(t, err)
	require.Equal(t, types.StageModulePlanning, progress.CurrentStage)
	require.Empty(t, progress.ErrorMessage)
	require.True(t, progress.CanProceed)

	_, err = f.svc.RegenerateCurrent(f.ctx, wf.ID, "shorter titles")
	require.NoError(t, err)
}

func TestAdvanceRequiresCompleteStage(t *testing.T) {
	f := newFixture(t)
	f.ai.queue(prompts.PromptBlueprint, blueprintJSON(t, 1))
	wf := f.start(frenchA1(1, 1, false))

	bp, err := f.repos.Blueprint.GetByWorkflowID(f.ctx, nil, wf.ID)
	require.NoError(t, err)
	bp.Status = types.StatusInProgress
	require.NoError(t, f.repos.Blueprint.Save(f.ctx, nil, bp))

	_, err = f.svc.Advance(f.ctx, wf.ID)
	require.True(t, errors.Is(err, apperr.ErrState))
	progress, err := f.svc.GetProgress(f.ctx, wf.ID)
	require.NoError(t, err)
	require.Equal(t, types.StageBlueprint, progress.CurrentStage)
}

func TestRegenerateModulePlanningReplacesPlans(t *testing.T) {
	f := newFixture(t)
	f.scriptFullRun(2)
	wf := f.start(frenchA1(2, 1, false))
	wf = f.advance(wf)

	before, err := f.repos.EpisodePlan.GetByWorkflowID(f.ctx, nil, wf.ID)
	require.NoError(t, err)

	f.ai.replace(prompts.PromptModulePlan, modulePlanJSON(t, "Retour", 3))
	wf, err = f.svc.RegenerateCurrent(f.ctx, wf.ID, "More cats please")
	require.NoError(t, err)
	require.Equal(t, types.StageModulePlanning, wf.CurrentStage)

	modules, err := f.repos.ModulePlan.GetByWorkflowID(f.ctx, nil, wf.ID)
	require.NoError(t, err)
	require.Len(t, modules, 2)
	after, err := f.repos.EpisodePlan.GetByWorkflowID(f.ctx, nil, wf.ID)
	require.NoError(t, err)
	require.Len(t, after, 2)
	old := map[uuid.UUID]bool{}
	for _, p := range before {
		old[p.ID] = true
	}
	for _, p := range after {
		require.False(t, old[p.ID], "plan %s survived regeneration", p.Ref())
		require.Equal(t, "Retour episode", p.Title)
	}

	sent := f.ai.promptsFor(prompts.PromptModulePlan)
	require.Len(t, sent, 4)
	require.True(t, containsAll(sent[3].System+sent[3].User, "More cats please"))
}

func TestRegenerateCharacterProfilesClearsPreviousValues(t *testing.T) {
	f := newFixture(t)
	f.scriptFullRun(1)
	wf := f.start(frenchA1(1, 1, false))
	wf = f.advance(wf)
	wf = f.advance(wf)
	wf = f.advance(wf)
	require.Equal(t, types.StageCharacterProfiles, wf.CurrentStage)

	chars, err := f.repos.Character.GetByWorkflowID(f.ctx, nil, wf.ID)
	require.NoError(t, err)
	for _, c := range chars {
		require.Equal(t, types.StatusCompleted, c.ProfileStatus)
		require.NotEmpty(t, c.ReferenceImageURL)
	}
	portraits, err := f.repos.Media.GetByWorkflowID(f.ctx, nil, wf.ID, types.MediaCharacterImage)
	require.NoError(t, err)
	require.Len(t, portraits, len(chars))

	f.ai.imageFail = true
	wf, err = f.svc.RegenerateCurrent(f.ctx, wf.ID, "")
	require.NoError(t, err)
	require.Equal(t, types.StageCharacterProfiles, wf.CurrentStage)

	chars, err = f.repos.Character.GetByWorkflowID(f.ctx, nil, wf.ID)
	require.NoError(t, err)
	for _, c := range chars {
		require.Equal(t, types.StatusFailed, c.ProfileStatus)
		require.Empty(t, c.ReferenceImageURL)
	}
	portraits, err = f.repos.Media.GetByWorkflowID(f.ctx, nil, wf.ID, types.MediaCharacterImage)
	require.NoError(t, err)
	for _, m := range portraits {
		require.Equal(t, types.StatusFailed, m.Status)
	}
	require.Len(t, f.blobs.deleted, len(chars))

	progress, err := f.svc.GetProgress(f.ctx, wf.ID)
	require.NoError(t, err)
	require.True(t, progress.CanProceed, "failed profiles settle a fail-isolated stage")
}

func TestRegenerateEpisodeContentClearsDerivedRecords(t *testing.T) {
	f := newFixture(t)
	f.scriptFullRun(1)
	wf := f.start(frenchA1(1, 1, false))
	wf = f.advance(wf)
	wf = f.advance(wf)
	require.Equal(t, types.StageEpisodeContent, wf.CurrentStage)

	_, err := f.repos.Word.Create(f.ctx, nil, []*types.Word{{LanguageCode: "fr", Text: "bonjour", NormalizedText: "bonjour"}})
	require.NoError(t, err)
	links, err := f.svc.LinkVocabulary(f.ctx, wf.ID)
	require.NoError(t, err)
	require.NotEmpty(t, links)

	before, err := f.repos.EpisodeContent.GetByWorkflowID(f.ctx, nil, wf.ID)
	require.NoError(t, err)
	require.Len(t, before, 1)
	notes, err := f.repos.DevelopmentNote.GetByWorkflowID(f.ctx, nil, wf.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)

	f.ai.replace(prompts.PromptEpisodeDialogue, mustJSON(t, content.DialogueResponse{
		Lines: []content.DialogueLine{
			{Speaker: "Claire", Text: "Merci Hugo.", Translation: "Thanks Hugo."},
			{Speaker: "Hugo", Text: "Au revoir Claire.", Translation: "Goodbye Claire."},
		},
		Summary:          "They say goodbye.",
		DevelopmentNotes: []content.CharacterNote{{Character: "Hugo", Note: "Hugo is shy."}},
	}))
	wf, err = f.svc.RegenerateCurrent(f.ctx, wf.ID, "")
	require.NoError(t, err)
	require.Equal(t, types.StageEpisodeContent, wf.CurrentStage)

	after, err := f.repos.EpisodeContent.GetByWorkflowID(f.ctx, nil, wf.ID)
	require.NoError(t, err)
	require.Len(t, after, 1)
	require.NotEqual(t, before[0].ID, after[0].ID)
	require.Equal(t, "They say goodbye.", after[0].Summary)

	notes, err = f.repos.DevelopmentNote.GetByWorkflowID(f.ctx, nil, wf.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	require.Equal(t, "Hugo is shy.", notes[0].Note)

	links, err = f.repos.VocabularyLink.GetByWorkflowID(f.ctx, nil, wf.ID)
	require.NoError(t, err)
	require.Empty(t, links)

	plans, err := f.repos.EpisodePlan.GetByWorkflowID(f.ctx, nil, wf.ID)
	require.NoError(t, err)
	require.Equal(t, types.StatusCompleted, plans[0].ContentStatus)
}

func TestRegenerateExercisesReplacesSets(t *testing.T) {
	f := newFixture(t)
	f.scriptFullRun(1)
	wf := f.start(frenchA1(1, 1, false))
	for i := 0; i < 4; i++ {
		wf = f.advance(wf)
	}
	require.Equal(t, types.StageExercises, wf.CurrentStage)

	sets, err := f.repos.EpisodeExercises.GetByWorkflowID(f.ctx, nil, wf.ID)
	require.NoError(t, err)
	require.Len(t, sets, 1)
	first := sets[0].ID

	wf, err = f.svc.RegenerateCurrent(f.ctx, wf.ID, "Harder questions")
	require.NoError(t, err)
	sets, err = f.repos.EpisodeExercises.GetByWorkflowID(f.ctx, nil, wf.ID)
	require.NoError(t, err)
	require.Len(t, sets, 1)
	require.NotEqual(t, first, sets[0].ID)
	sent := f.ai.promptsFor(prompts.PromptExercises)
	require.True(t, containsAll(sent[len(sent)-1].User, "Harder questions"))

	f.ai.replace(prompts.PromptExercises, "not json")
	wf, err = f.svc.RegenerateCurrent(f.ctx, wf.ID, "")
	require.NoError(t, err, "exercise failures are isolated per episode")
	sets, err = f.repos.EpisodeExercises.GetByWorkflowID(f.ctx, nil, wf.ID)
	require.NoError(t, err)
	require.Empty(t, sets)
	plans, err := f.repos.EpisodePlan.GetByWorkflowID(f.ctx, nil, wf.ID)
	require.NoError(t, err)
	require.Equal(t, types.StatusFailed, plans[0].ExercisesStatus)
}

func TestCancelDeletesWorkflowAndBlobs(t *testing.T) {
	f := newFixture(t)
	f.scriptFullRun(1)
	wf := f.start(frenchA1(1, 1, true))
	require.Equal(t, types.StageCompleted, wf.CurrentStage)
	require.Positive(t, f.blobs.count())

	require.NoError(t, f.svc.Cancel(f.ctx, wf.ID))

	_, err := f.svc.GetProgress(f.ctx, wf.ID)
	require.True(t, errors.Is(err, apperr.ErrConfiguration))
	plans, err := f.repos.EpisodePlan.GetByWorkflowID(f.ctx, nil, wf.ID)
	require.NoError(t, err)
	require.Empty(t, plans)
	media, err := f.repos.Media.GetByWorkflowID(f.ctx, nil, wf.ID)
	require.NoError(t, err)
	require.Empty(t, media)
	chars, err := f.repos.Character.GetByWorkflowID(f.ctx, nil, wf.ID)
	require.NoError(t, err)
	require.Empty(t, chars)
	require.Zero(t, f.blobs.count())

	require.True(t, errors.Is(f.svc.Cancel(f.ctx, wf.ID), apperr.ErrConfiguration))
}

func TestBusyWorkflowIsRejected(t *testing.T) {
	f := newFixture(t)
	f.ai.queue(prompts.PromptBlueprint, blueprintJSON(t, 1))
	wf := f.start(frenchA1(1, 1, false))

	release, err := f.locker.Acquire(context.Background(), wf.ID)
	require.NoError(t, err)
	_, err = f.svc.Advance(f.ctx, wf.ID)
	require.True(t, errors.Is(err, apperr.ErrWorkflowBusy))
	require.True(t, errors.Is(f.svc.Cancel(f.ctx, wf.ID), apperr.ErrWorkflowBusy))
	release()

	_, err = f.svc.GetProgress(f.ctx, wf.ID)
	require.NoError(t, err)
}

func TestDebugSnapshotCarriesRawResponses(t *testing.T) {
	f := newFixture(t)
	f.scriptFullRun(1)
	wf := f.start(frenchA1(1, 1, false))
	wf = f.advance(wf)

	snap, err := f.svc.GetDebugSnapshot(f.ctx, wf.ID)
	require.NoError(t, err)
	require.NotEmpty(t, snap.Blueprint.RawResponse)
	require.Len(t, snap.ModulePlans, 1)
	require.NotEmpty(t, snap.ModulePlans[0].RawResponse)
	require.Len(t, snap.GrammarRules, 2)
	require.Contains(t, snap.StageReports, types.StageModulePlanning)
	require.Equal(t, 1, snap.StageReports[types.StageModulePlanning].Succeeded())
}

func TestStartRejectsInvalidConfig(t *testing.T) {
	f := newFixture(t)
	cases := []WorkflowConfig{
		{LanguageCode: "", Level: "A1", ModuleCount: 1, EpisodesPerModule: 1},
		{LanguageCode: "fr", Level: "Z9", ModuleCount: 1, EpisodesPerModule: 1},
		{LanguageCode: "fr", Level: "A1", ModuleCount: 0, EpisodesPerModule: 1},
		{LanguageCode: "fr", Level: "A1", ModuleCount: 1, EpisodesPerModule: MaxEpisodesPerModule + 1},
	}
	for _, cfg := range cases {
		_, err := f.svc.Start(f.ctx, cfg)
		require.True(t, errors.Is(err, apperr.ErrInvalidArgument), "cfg %+v: %v", cfg, err)
	}
}

func TestWorkflowConfigNormalize(t *testing.T) {
	got, err := WorkflowConfig{LanguageCode: " fr-FR ", Level: "b1", ModuleCount: 3, EpisodesPerModule: 2, ThemeHint: "  jazz "}.Normalize()
	require.NoError(t, err)
	require.Equal(t, "fr", got.LanguageCode)
	require.Equal(t, "B1", got.Level)
	require.Equal(t, "jazz", got.ThemeHint)
}
