package steps

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/storyforge-backend/internal/data/repos"
	types "github.com/yungbote/storyforge-backend/internal/domain"
	"github.com/yungbote/storyforge-backend/internal/jobs/orchestrator"
	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/content"
	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/prompts"
	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/roster"
	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/validation"
	apperr "github.com/yungbote/storyforge-backend/internal/pkg/errors"
	"github.com/yungbote/storyforge-backend/internal/platform/logger"
)

const (
	dialogueSpeakers = 2
	maxScenePrompts  = 4
	scrubbedName     = "a person"
)

type EpisodeContentGenerator struct {
	deps Deps
	log  *logger.Logger
}

func NewEpisodeContentGenerator(deps Deps) *EpisodeContentGenerator {
	return &EpisodeContentGenerator{deps: deps, log: deps.Log.With("step", "EpisodeContent")}
}

func (g *EpisodeContentGenerator) Stage() types.Stage { return types.StageEpisodeContent }

// episodeContext is loaded once per stage call and shared by every unit.
type episodeContext struct {
	wf        *types.Workflow
	blueprint *types.Blueprint
	cast      *roster.Roster
	plans     []*types.EpisodePlan
	feedback  string
}

func (g *EpisodeContentGenerator) Units(ctx context.Context, wf *types.Workflow, feedback string) ([]orchestrator.Unit, error) {
	const op = "episode_content.units"
	bp, err := g.deps.Repos.Blueprint.GetByWorkflowID(ctx, nil, wf.ID)
	if err != nil {
		return nil, err
	}
	chars, err := g.deps.Repos.Character.GetByWorkflowID(ctx, nil, wf.ID)
	if err != nil {
		return nil, err
	}
	cast := roster.New(chars)
	if cast.Len() < dialogueSpeakers {
		return nil, apperr.Newf(apperr.ErrConfiguration, op, "roster has %d characters", cast.Len())
	}
	plans, err := g.deps.Repos.EpisodePlan.GetByWorkflowID(ctx, nil, wf.ID)
	if err != nil {
		return nil, err
	}
	if want := wf.ModuleCount * wf.EpisodesPerModule; len(plans) != want {
		return nil, apperr.Newf(apperr.ErrConfiguration, op, "want %d episode plans, got %d", want, len(plans))
	}

	ec := &episodeContext{wf: wf, blueprint: bp, cast: cast, plans: plans, feedback: feedback}
	units := make([]orchestrator.Unit, 0, len(plans))
	for _, plan := range plans {
		ep := plan
		if ep.ContentStatus == types.StatusCompleted {
			continue
		}
		units = append(units, orchestrator.Unit{
			Key: ep.Ref(),
			Run: func(ctx context.Context) error { return g.generate(ctx, ec, ep) },
			Fail: func(ctx context.Context, cause error) error {
				return g.failEpisode(ctx, ep, cause)
			},
		})
	}
	return units, nil
}

// failEpisode marks the episode and its owning module plan FAILED.
func (g *EpisodeContentGenerator) failEpisode(ctx context.Context, ep *types.EpisodePlan, cause error) error {
	msg := errText(cause)
	return g.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := g.deps.Repos.EpisodePlan.SetUnitStatus(ctx, tx, ep.ID, repos.UnitContent, types.StatusFailed, msg); err != nil {
			return err
		}
		return g.deps.Repos.ModulePlan.SetStatus(ctx, tx, ep.ModulePlanID, types.StatusFailed, ep.Ref()+": "+msg)
	})
}

func (g *EpisodeContentGenerator) generate(ctx context.Context, ec *episodeContext, ep *types.EpisodePlan) error {
	op := "episode_content.generate[" + ep.Ref() + "]"
	if err := g.deps.Repos.EpisodePlan.SetUnitStatus(ctx, nil, ep.ID, repos.UnitContent, types.StatusInProgress, ""); err != nil {
		return err
	}

	if ep.IsDialogue() {
		ids, changed, err := repairSpeakers(ep, ec.cast, ec.plans)
		if err != nil {
			return apperr.Wrap(apperr.ErrConfiguration, op, err)
		}
		if changed {
			g.log.Warn("Repaired dialogue speakers", "episode", ep.Ref(), "before", len(ep.CharacterIDs), "after", len(ids))
			ep.CharacterIDs = datatypes.JSONSlice[uuid.UUID](ids)
			if err := g.deps.Repos.EpisodePlan.Save(ctx, nil, ep); err != nil {
				return err
			}
		}
	}
	characters := ec.cast.Characters(ep.CharacterIDs)

	history, err := g.storyHistory(ctx, ec, ep)
	if err != nil {
		return err
	}
	notes, err := g.deps.Repos.DevelopmentNote.GetByWorkflowID(ctx, nil, ec.wf.ID)
	if err != nil {
		return err
	}
	byChar := notesByCharacter(notes)
	profiles := make([]string, 0, len(characters))
	speakers := make([]string, 0, len(characters))
	for _, c := range characters {
		profiles = append(profiles, profileText(c, byChar[c.ID]))
		speakers = append(speakers, c.Name)
	}

	name := prompts.PromptEpisodeStory
	if ep.IsDialogue() {
		name = prompts.PromptEpisodeDialogue
	}
	in := prompts.Input{
		LanguageCode:      ec.wf.LanguageCode,
		LanguageName:      LanguageName(ec.wf.LanguageCode),
		Level:             ec.wf.Level,
		CourseTitle:       ec.blueprint.Title,
		Setting:           ec.blueprint.Setting,
		Premise:           ec.blueprint.Premise,
		EpisodeRef:        ep.Ref(),
		EpisodeTitle:      ep.Title,
		SceneDescription:  ep.SceneDescription,
		EpisodeType:       ep.EpisodeType,
		TargetVocabulary:  strings.Join(ep.TargetVocabulary, ", "),
		TargetGrammar:     strings.Join(ep.TargetGrammar, ", "),
		PlotPoints:        bullets(ep.PlotPoints),
		Speakers:          strings.Join(speakers, " and "),
		CharacterProfiles: strings.Join(profiles, "\n\n"),
		StoryHistory:      history,
		Feedback:          ec.feedback,
	}

	var (
		row      *types.EpisodeContent
		report   validation.Report
		resNotes []content.CharacterNote
	)
	for attempt := 1; attempt <= g.deps.Config.ContentAttempts; attempt++ {
		p, err := prompts.Build(name, in)
		if err != nil {
			return apperr.Wrap(apperr.ErrConfiguration, op, err)
		}
		raw, err := g.deps.AI.GenerateText(ctx, p)
		if err != nil {
			return err
		}
		row, resNotes, report, err = parseEpisode(op, ep, raw, speakers)
		if err != nil {
			return err
		}
		if report.IsValid() {
			break
		}
		g.log.Warn("Episode content failed validation", "episode", ep.Ref(), "attempt", attempt, "issues", len(report.Blocking()))
		in.RetryIssues = report.Summary()
	}
	if !report.IsValid() {
		return apperr.Newf(apperr.ErrGenerationParse, op, "content invalid after %d attempts:\n%s", g.deps.Config.ContentAttempts, report.Summary())
	}

	row.WorkflowID = ec.wf.ID
	used, missing := content.Coverage(ep.TargetVocabulary, row.Text)
	row.VocabularyUsed = datatypes.JSONSlice[string](used)
	row.VocabularyMissing = datatypes.JSONSlice[string](missing)
	row.Validation = datatypes.JSONSlice[types.IssueRecord](report.Records())
	row.Status = types.StatusCompleted

	devNotes := make([]*types.CharacterDevelopmentNote, 0, len(resNotes))
	for _, n := range resNotes {
		c, ok := ec.cast.Lookup(n.Character)
		note := strings.TrimSpace(n.Note)
		if !ok || note == "" {
			continue
		}
		row.DevelopmentNotes = append(row.DevelopmentNotes, types.DevelopmentNote{Character: c.Name, Note: note})
		devNotes = append(devNotes, &types.CharacterDevelopmentNote{
			WorkflowID:    ec.wf.ID,
			CharacterID:   c.ID,
			EpisodePlanID: ep.ID,
			EpisodeRef:    ep.Ref(),
			Note:          note,
		})
	}

	scenes, err := orchestrator.BestEffort(ctx, func(ctx context.Context) ([]string, error) {
		return g.scenePrompts(ctx, ec, ep, row.Text)
	})
	if err != nil {
		g.log.Warn("Scene prompts skipped", "episode", ep.Ref(), "error", err)
	}
	row.ScenePrompts = datatypes.JSONSlice[string](scenes)

	return g.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := g.deps.Repos.EpisodeContent.Create(ctx, tx, row); err != nil {
			return err
		}
		if _, err := g.deps.Repos.DevelopmentNote.Append(ctx, tx, devNotes); err != nil {
			return err
		}
		return g.deps.Repos.EpisodePlan.SetUnitStatus(ctx, tx, ep.ID, repos.UnitContent, types.StatusCompleted, "")
	})
}

// parseEpisode decodes a dialogue or story response and validates it. A decode
// failure is an error; validation findings are returned in the report.
func parseEpisode(op string, ep *types.EpisodePlan, raw string, speakers []string) (*types.EpisodeContent, []content.CharacterNote, validation.Report, error) {
	row := &types.EpisodeContent{EpisodePlanID: ep.ID, RawResponse: raw}
	var report validation.Report
	if ep.IsDialogue() {
		resp, err := content.Decode[content.DialogueResponse](op, raw)
		if err != nil {
			return nil, nil, report, err
		}
		for _, l := range resp.Lines {
			row.Turns = append(row.Turns, types.DialogueTurn{
				Speaker:     strings.TrimSpace(l.Speaker),
				Text:        strings.TrimSpace(l.Text),
				Translation: strings.TrimSpace(l.Translation),
			})
		}
		row.Text = content.FlattenDialogue(row.Turns)
		row.Summary = strings.TrimSpace(resp.Summary)
		report = validation.ValidateDialogue(row.Turns)
		report.Merge(validation.ValidateSpeakers(row.Turns, speakers))
		report.Merge(validation.ValidateSummary(row.Summary))
		return row, resp.DevelopmentNotes, report, nil
	}
	resp, err := content.Decode[content.StoryResponse](op, raw)
	if err != nil {
		return nil, nil, report, err
	}
	row.Text = strings.TrimSpace(resp.Text)
	row.Summary = strings.TrimSpace(resp.Summary)
	report = validation.ValidateStory(row.Text)
	report.Merge(validation.ValidateSummary(row.Summary))
	return row, resp.DevelopmentNotes, report, nil
}

// storyHistory renders summaries of the episodes before ep, oldest first. When
// the whole history exceeds the token budget the most recent summaries are kept.
func (g *EpisodeContentGenerator) storyHistory(ctx context.Context, ec *episodeContext, ep *types.EpisodePlan) (string, error) {
	contents, err := g.deps.Repos.EpisodeContent.GetByWorkflowID(ctx, nil, ec.wf.ID)
	if err != nil {
		return "", err
	}
	byPlan := make(map[uuid.UUID]*types.EpisodeContent, len(contents))
	for _, c := range contents {
		byPlan[c.EpisodePlanID] = c
	}
	var lines []string
	for _, p := range ec.plans {
		if p.ID == ep.ID {
			break
		}
		if c, ok := byPlan[p.ID]; ok && c.Summary != "" {
			lines = append(lines, fmt.Sprintf("[%s] %s: %s", p.Ref(), p.Title, c.Summary))
		}
	}
	return fitBudget(lines, g.deps.Tokens, g.deps.Config.SummaryTokenBudget), nil
}

func fitBudget(lines []string, counter TokenCounter, budget int) string {
	used := 0
	start := len(lines)
	for i := len(lines) - 1; i >= 0; i-- {
		n := counter.Count(lines[i])
		if used+n > budget {
			break
		}
		used += n
		start = i
	}
	return strings.Join(lines[start:], "\n")
}

// repairSpeakers makes a dialogue plan reference exactly two distinct roster
// characters. Extra ids are dropped; missing ones are filled from the
// protagonists, then the characters of the same module, then the rest of the roster.
func repairSpeakers(ep *types.EpisodePlan, cast *roster.Roster, plans []*types.EpisodePlan) ([]uuid.UUID, bool, error) {
	seen := map[uuid.UUID]bool{}
	ids := make([]uuid.UUID, 0, dialogueSpeakers)
	add := func(id uuid.UUID) {
		if len(ids) >= dialogueSpeakers || seen[id] {
			return
		}
		c, ok := cast.ByID(id)
		if !ok || strings.EqualFold(c.Name, types.NarratorName) {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	}
	for _, id := range ep.CharacterIDs {
		add(id)
	}
	for _, c := range cast.All() {
		if c.Role == types.RoleProtagonist {
			add(c.ID)
		}
	}
	for _, p := range plans {
		if p.ModuleNumber != ep.ModuleNumber {
			continue
		}
		for _, id := range p.CharacterIDs {
			add(id)
		}
	}
	for _, c := range cast.All() {
		add(c.ID)
	}
	if len(ids) < dialogueSpeakers {
		return nil, false, fmt.Errorf("episode %s: need %d speakers, roster offers %d", ep.Ref(), dialogueSpeakers, len(ids))
	}
	changed := len(ep.CharacterIDs) != len(ids)
	for i := 0; !changed && i < len(ids); i++ {
		changed = ep.CharacterIDs[i] != ids[i]
	}
	return ids, changed, nil
}

func (g *EpisodeContentGenerator) scenePrompts(ctx context.Context, ec *episodeContext, ep *types.EpisodePlan, text string) ([]string, error) {
	const op = "episode_content.scene_prompts"
	p, err := prompts.Build(prompts.PromptScenePrompts, prompts.Input{
		Setting:          ec.blueprint.Setting,
		SceneDescription: ep.SceneDescription,
		EpisodeText:      text,
	})
	if err != nil {
		return nil, err
	}
	raw, err := g.deps.AI.GenerateText(ctx, p)
	if err != nil {
		return nil, err
	}
	resp, err := content.Decode[content.ScenePromptsResponse](op, raw)
	if err != nil {
		return nil, err
	}
	names := ec.cast.Names()
	out := make([]string, 0, maxScenePrompts)
	for _, s := range resp.Prompts {
		if s = content.ScrubNames(s, names, scrubbedName); s == "" {
			continue
		}
		out = append(out, s)
		if len(out) == maxScenePrompts {
			break
		}
	}
	return out, nil
}

// Clear drops contents, the development log and vocabulary links, and resets content statuses.
func (g *EpisodeContentGenerator) Clear(ctx context.Context, tx *gorm.DB, wf *types.Workflow) error {
	if err := g.deps.Repos.EpisodeContent.DeleteByWorkflowID(ctx, tx, wf.ID); err != nil {
		return err
	}
	if err := g.deps.Repos.DevelopmentNote.DeleteByWorkflowID(ctx, tx, wf.ID); err != nil {
		return err
	}
	if err := g.deps.Repos.VocabularyLink.DeleteByWorkflowID(ctx, tx, wf.ID); err != nil {
		return err
	}
	return g.deps.Repos.EpisodePlan.ResetUnitStatus(ctx, tx, wf.ID, repos.UnitContent)
}
