package steps

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/storyforge-backend/internal/domain"
	"github.com/yungbote/storyforge-backend/internal/jobs/orchestrator"
	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/prompts"
	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/roster"
	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/voices"
	"github.com/yungbote/storyforge-backend/internal/normalization"
	apperr "github.com/yungbote/storyforge-backend/internal/pkg/errors"
	"github.com/yungbote/storyforge-backend/internal/platform/logger"
)

const maxCharacterLines = 40

type CharacterProfileGenerator struct {
	deps Deps
	log  *logger.Logger
}

func NewCharacterProfileGenerator(deps Deps) *CharacterProfileGenerator {
	return &CharacterProfileGenerator{deps: deps, log: deps.Log.With("step", "CharacterProfiles")}
}

func (g *CharacterProfileGenerator) Stage() types.Stage { return types.StageCharacterProfiles }

func (g *CharacterProfileGenerator) Units(ctx context.Context, wf *types.Workflow, feedback string) ([]orchestrator.Unit, error) {
	const op = "character_profiles.units"
	bp, err := g.deps.Repos.Blueprint.GetByWorkflowID(ctx, nil, wf.ID)
	if err != nil {
		return nil, err
	}
	chars, err := g.deps.Repos.Character.GetByWorkflowID(ctx, nil, wf.ID)
	if err != nil {
		return nil, err
	}
	if len(chars) == 0 {
		return nil, apperr.Newf(apperr.ErrConfiguration, op, "workflow %s has no characters", wf.ID)
	}
	plans, err := g.deps.Repos.EpisodePlan.GetByWorkflowID(ctx, nil, wf.ID)
	if err != nil {
		return nil, err
	}
	contents, err := g.deps.Repos.EpisodeContent.GetByWorkflowID(ctx, nil, wf.ID)
	if err != nil {
		return nil, err
	}
	notes, err := g.deps.Repos.DevelopmentNote.GetByWorkflowID(ctx, nil, wf.ID)
	if err != nil {
		return nil, err
	}
	byChar := notesByCharacter(notes)
	lines := attributedLines(plans, contents, roster.New(chars))

	units := make([]orchestrator.Unit, 0, len(chars))
	for _, c := range chars {
		ch := c
		if ch.ProfileStatus == types.StatusCompleted {
			continue
		}
		units = append(units, orchestrator.Unit{
			Key: ch.Name,
			Run: func(ctx context.Context) error {
				return g.consolidate(ctx, wf, bp, ch, byChar[ch.ID], lines[ch.ID], feedback)
			},
			Fail: func(ctx context.Context, cause error) error {
				ch.ProfileStatus = types.StatusFailed
				ch.ProfileError = errText(cause)
				return g.deps.Repos.Character.Save(ctx, nil, ch)
			},
		})
	}
	return units, nil
}

// attributedLines collects each character's dialogue lines, and story sentences
// naming them, in episode order.
func attributedLines(plans []*types.EpisodePlan, contents []*types.EpisodeContent, cast *roster.Roster) map[uuid.UUID][]string {
	byPlan := make(map[uuid.UUID]*types.EpisodeContent, len(contents))
	for _, c := range contents {
		byPlan[c.EpisodePlanID] = c
	}
	out := map[uuid.UUID][]string{}
	push := func(id uuid.UUID, line string) {
		if len(out[id]) < maxCharacterLines {
			out[id] = append(out[id], line)
		}
	}
	for _, p := range plans {
		c, ok := byPlan[p.ID]
		if !ok {
			continue
		}
		if len(c.Turns) > 0 {
			for _, t := range c.Turns {
				if ch, ok := cast.Lookup(t.Speaker); ok {
					push(ch.ID, fmt.Sprintf("[%s] %s", p.Ref(), t.Text))
				}
			}
			continue
		}
		for _, sentence := range strings.FieldsFunc(c.Text, func(r rune) bool { return r == '.' || r == '!' || r == '?' || r == '\n' }) {
			for _, ch := range cast.All() {
				if normalization.ContainsFold(sentence, ch.Name) {
					push(ch.ID, fmt.Sprintf("[%s] %s", p.Ref(), strings.TrimSpace(sentence)))
				}
			}
		}
	}
	return out
}

func (g *CharacterProfileGenerator) consolidate(ctx context.Context, wf *types.Workflow, bp *types.Blueprint, ch *types.Character, notes []*types.CharacterDevelopmentNote, lines []string, feedback string) error {
	op := "character_profiles.consolidate[" + ch.Name + "]"
	ch.ProfileStatus = types.StatusInProgress
	ch.ProfileError = ""
	if err := g.deps.Repos.Character.Save(ctx, nil, ch); err != nil {
		return err
	}

	p, err := prompts.Build(prompts.PromptCharacterAppearance, prompts.Input{
		LanguageCode:      wf.LanguageCode,
		LanguageName:      LanguageName(wf.LanguageCode),
		Setting:           bp.Setting,
		CharacterName:     ch.Name,
		CharacterGender:   ch.Gender,
		CharacterAge:      ch.AgeRange,
		CharacterProfiles: profileText(ch, notes),
		CharacterLines:    strings.Join(lines, "\n"),
		Feedback:          feedback,
	})
	if err != nil {
		return apperr.Wrap(apperr.ErrConfiguration, op, err)
	}
	raw, err := g.deps.AI.GenerateText(ctx, p)
	if err != nil {
		return err
	}
	appearance := strings.Join(strings.Fields(strings.Trim(strings.TrimSpace(raw), "`\"")), " ")
	if appearance == "" {
		return apperr.Newf(apperr.ErrGenerationParse, op, "empty appearance description")
	}
	ch.AppearanceDescription = appearance
	ch.VoiceID = voices.Assign(g.deps.Voices, wf.LanguageCode, ch.Gender, appearance)
	if err := g.deps.Repos.Character.Save(ctx, nil, ch); err != nil {
		return err
	}

	charID := ch.ID
	res, _, err := generateImage(ctx, g.deps.AI, portraitPrompt(ch, bp), nil)
	if err != nil {
		if _, merr := g.deps.Repos.Media.Create(ctx, nil, &types.Media{
			WorkflowID:   wf.ID,
			Type:         types.MediaCharacterImage,
			CharacterID:  &charID,
			Status:       types.StatusFailed,
			ErrorMessage: errText(err),
		}); merr != nil {
			g.log.Error("Recording failed portrait failed", "character", ch.Name, "error", merr)
		}
		return err
	}

	data, mime, ext := encodedImage(res)
	key := fmt.Sprintf("characters/%s/%s-%s.%s", wf.ID, ch.ID, ksuid.New().String(), ext)
	url, err := g.deps.Blobs.Upload(ctx, key, data, mime)
	if err != nil {
		return apperr.Wrap(apperr.ErrExternalService, op, err)
	}

	ch.ReferenceImageURL = url
	ch.ProfileStatus = types.StatusCompleted
	return g.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := g.deps.Repos.Media.Create(ctx, tx, &types.Media{
			WorkflowID:  wf.ID,
			Type:        types.MediaCharacterImage,
			CharacterID: &charID,
			URL:         url,
			StorageKey:  key,
			MimeType:    mime,
			Metadata:    datatypes.JSONMap{"character": ch.Name, "voice_id": ch.VoiceID},
			Status:      types.StatusCompleted,
		}); err != nil {
			return err
		}
		return g.deps.Repos.Character.Save(ctx, tx, ch)
	})
}

func portraitPrompt(ch *types.Character, bp *types.Blueprint) string {
	return fmt.Sprintf("Photorealistic head-and-shoulders portrait photograph of a %s %s. %s Setting: %s. Natural lighting, plain background, no text.",
		ch.AgeRange, ch.Gender, ch.AppearanceDescription, bp.Setting)
}

// Clear drops every consolidated value and the portraits. Blob deletion is best effort.
func (g *CharacterProfileGenerator) Clear(ctx context.Context, tx *gorm.DB, wf *types.Workflow) error {
	media, err := g.deps.Repos.Media.GetByWorkflowID(ctx, tx, wf.ID, types.MediaCharacterImage)
	if err != nil {
		return err
	}
	if err := g.deps.Repos.Character.ClearProfilesByWorkflowID(ctx, tx, wf.ID); err != nil {
		return err
	}
	if err := g.deps.Repos.Media.DeleteByWorkflowID(ctx, tx, wf.ID, types.MediaCharacterImage); err != nil {
		return err
	}
	deleteBlobs(ctx, g.deps.Blobs, g.log, media)
	return nil
}

func deleteBlobs(ctx context.Context, blobs BlobStore, log *logger.Logger, media []*types.Media) {
	for _, m := range media {
		if m.StorageKey == "" {
			continue
		}
		if err := blobs.Delete(ctx, m.StorageKey); err != nil {
			log.Warn("Blob delete failed", "key", m.StorageKey, "error", err)
		}
	}
}
