package steps

import (
	"context"
	"fmt"

	"github.com/segmentio/ksuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/storyforge-backend/internal/data/repos"
	types "github.com/yungbote/storyforge-backend/internal/domain"
	"github.com/yungbote/storyforge-backend/internal/jobs/orchestrator"
	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/content"
	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/roster"
	apperr "github.com/yungbote/storyforge-backend/internal/pkg/errors"
	"github.com/yungbote/storyforge-backend/internal/platform/logger"
)

type MediaGenerator struct {
	deps Deps
	log  *logger.Logger
}

func NewMediaGenerator(deps Deps) *MediaGenerator {
	return &MediaGenerator{deps: deps, log: deps.Log.With("step", "Media")}
}

func (g *MediaGenerator) Stage() types.Stage { return types.StageMedia }

func (g *MediaGenerator) Units(ctx context.Context, wf *types.Workflow, feedback string) ([]orchestrator.Unit, error) {
	plans, contents, err := plansWithContent(ctx, g.deps, wf)
	if err != nil {
		return nil, err
	}
	chars, err := g.deps.Repos.Character.GetByWorkflowID(ctx, nil, wf.ID)
	if err != nil {
		return nil, err
	}
	cast := roster.New(chars)

	units := make([]orchestrator.Unit, 0, len(plans))
	for _, plan := range plans {
		ep := plan
		if ep.MediaStatus == types.StatusCompleted {
			continue
		}
		body := contents[ep.ID]
		units = append(units, orchestrator.Unit{
			Key: ep.Ref(),
			Run: func(ctx context.Context) error { return g.generate(ctx, wf, ep, body, cast, feedback) },
			Fail: func(ctx context.Context, cause error) error {
				return g.deps.Repos.EpisodePlan.SetUnitStatus(ctx, nil, ep.ID, repos.UnitMedia, types.StatusFailed, errText(cause))
			},
		})
	}
	return units, nil
}

func (g *MediaGenerator) generate(ctx context.Context, wf *types.Workflow, ep *types.EpisodePlan, body *types.EpisodeContent, cast *roster.Roster, feedback string) error {
	if err := g.deps.Repos.EpisodePlan.SetUnitStatus(ctx, nil, ep.ID, repos.UnitMedia, types.StatusInProgress, ""); err != nil {
		return err
	}
	characters := cast.Characters(ep.CharacterIDs)
	if err := g.audio(ctx, wf, ep, body, characters, feedback); err != nil {
		return err
	}

	var refs []string
	for _, c := range characters {
		if c.ReferenceImageURL != "" {
			refs = append(refs, c.ReferenceImageURL)
		}
	}
	for i, prompt := range body.ScenePrompts {
		g.sceneImage(ctx, wf, ep, i, prompt, refs)
	}
	return g.deps.Repos.EpisodePlan.SetUnitStatus(ctx, nil, ep.ID, repos.UnitMedia, types.StatusCompleted, "")
}

// AudioSpeakers picks the TTS voices for an episode. Dialogue uses up to two
// character voices, falling back by position to the language's default pair;
// every other form is read by the narrator voice.
func (g *MediaGenerator) AudioSpeakers(wf *types.Workflow, ep *types.EpisodePlan, characters []*types.Character) []Speaker {
	if !ep.IsDialogue() {
		return []Speaker{{Name: types.NarratorName, Voice: g.deps.Voices.NarratorVoice(wf.LanguageCode)}}
	}
	pair := g.deps.Voices.DefaultPair(wf.LanguageCode)
	out := make([]Speaker, 0, dialogueSpeakers)
	for i, c := range characters {
		if i == dialogueSpeakers {
			break
		}
		voice := c.VoiceID
		if voice == "" {
			voice = pair[i]
		}
		if i == 1 && voice == out[0].Voice {
			// two speakers on one voice are indistinguishable
			voice = pair[1]
			if voice == out[0].Voice {
				voice = pair[0]
			}
		}
		out = append(out, Speaker{Name: c.Name, Voice: voice})
	}
	return out
}

func (g *MediaGenerator) audio(ctx context.Context, wf *types.Workflow, ep *types.EpisodePlan, body *types.EpisodeContent, characters []*types.Character, feedback string) error {
	op := "media.audio[" + ep.Ref() + "]"
	epID := ep.ID
	transcript := body.Text
	if len(body.Turns) > 0 {
		transcript = content.FlattenDialogue(body.Turns)
	}
	speakers := g.AudioSpeakers(wf, ep, characters)
	style := fmt.Sprintf("Read clearly and a little slower than natural speech for %s learners at level %s.", LanguageName(wf.LanguageCode), wf.Level)
	if feedback != "" {
		style += " " + feedback
	}
	key := fmt.Sprintf("audio/%s/%s-%s.wav", wf.ID, ep.Ref(), ksuid.New().String())

	res, err := g.deps.AI.GenerateAudio(ctx, AudioRequest{Key: key, Transcript: transcript, Speakers: speakers, Style: style})
	if err != nil {
		if _, merr := g.deps.Repos.Media.Create(ctx, nil, &types.Media{
			WorkflowID:    wf.ID,
			Type:          types.MediaEpisodeAudio,
			EpisodePlanID: &epID,
			Status:        types.StatusFailed,
			ErrorMessage:  errText(err),
		}); merr != nil {
			g.log.Error("Recording failed audio failed", "episode", ep.Ref(), "error", merr)
		}
		return apperr.Wrap(apperr.ErrExternalService, op, err)
	}

	voices := make([]any, 0, len(speakers))
	for _, s := range speakers {
		voices = append(voices, map[string]any{"name": s.Name, "voice": s.Voice})
	}
	_, err = g.deps.Repos.Media.Create(ctx, nil, &types.Media{
		WorkflowID:    wf.ID,
		Type:          types.MediaEpisodeAudio,
		EpisodePlanID: &epID,
		URL:           res.URL,
		StorageKey:    res.StorageKey,
		MimeType:      res.MimeType,
		Metadata:      datatypes.JSONMap{"episode_ref": ep.Ref(), "speakers": voices},
		Status:        types.StatusCompleted,
	})
	return err
}

// sceneImage records one SCENE_IMAGE row, FAILED when generation or upload fails.
func (g *MediaGenerator) sceneImage(ctx context.Context, wf *types.Workflow, ep *types.EpisodePlan, index int, prompt string, refs []string) {
	epID := ep.ID
	row := &types.Media{
		WorkflowID:    wf.ID,
		Type:          types.MediaSceneImage,
		EpisodePlanID: &epID,
		Metadata:      datatypes.JSONMap{"episode_ref": ep.Ref(), "scene": index + 1, "prompt": prompt},
	}
	res, usedRefs, err := generateImage(ctx, g.deps.AI, prompt, refs)
	if err == nil {
		data, mime, ext := encodedImage(res)
		key := fmt.Sprintf("scenes/%s/%s-%d-%s.%s", wf.ID, ep.Ref(), index+1, ksuid.New().String(), ext)
		var url string
		url, err = g.deps.Blobs.Upload(ctx, key, data, mime)
		if err == nil {
			row.URL, row.StorageKey, row.MimeType = url, key, mime
			row.Metadata["used_references"] = usedRefs
		}
	}
	if err != nil {
		row.Status = types.StatusFailed
		row.ErrorMessage = errText(err)
		g.log.Warn("Scene image failed", "episode", ep.Ref(), "scene", index+1, "error", err)
	} else {
		row.Status = types.StatusCompleted
	}
	if _, err := g.deps.Repos.Media.Create(ctx, nil, row); err != nil {
		g.log.Error("Recording scene image failed", "episode", ep.Ref(), "error", err)
	}
}

// Clear drops episode audio and scene images and resets media statuses.
func (g *MediaGenerator) Clear(ctx context.Context, tx *gorm.DB, wf *types.Workflow) error {
	media, err := g.deps.Repos.Media.GetByWorkflowID(ctx, tx, wf.ID, types.MediaEpisodeAudio, types.MediaSceneImage)
	if err != nil {
		return err
	}
	if err := g.deps.Repos.Media.DeleteByWorkflowID(ctx, tx, wf.ID, types.MediaEpisodeAudio, types.MediaSceneImage); err != nil {
		return err
	}
	if err := g.deps.Repos.EpisodePlan.ResetUnitStatus(ctx, tx, wf.ID, repos.UnitMedia); err != nil {
		return err
	}
	deleteBlobs(ctx, g.deps.Blobs, g.log, media)
	return nil
}
