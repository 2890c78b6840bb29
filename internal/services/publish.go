package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/storyforge-backend/internal/data/repos"
	types "github.com/yungbote/storyforge-backend/internal/domain"
	apperr "github.com/yungbote/storyforge-backend/internal/pkg/errors"
	"github.com/yungbote/storyforge-backend/internal/platform/logger"
)

// CatalogPublisher copies a finished workflow into the learner-facing catalog tables.
type CatalogPublisher interface {
	Publish(ctx context.Context, tx *gorm.DB, wf *types.Workflow) (*types.CatalogCourse, error)
}

type catalogPublisher struct {
	log   *logger.Logger
	repos repos.Set
}

func NewCatalogPublisher(baseLog *logger.Logger, set repos.Set) CatalogPublisher {
	return &catalogPublisher{log: baseLog.With("service", "CatalogPublisher"), repos: set}
}

// Publish must run inside tx; every read and write goes through it.
func (p *catalogPublisher) Publish(ctx context.Context, tx *gorm.DB, wf *types.Workflow) (*types.CatalogCourse, error) {
	const op = "catalog.publish"
	if tx == nil {
		return nil, fmt.Errorf("%s: transaction required", op)
	}
	bp, err := p.repos.Blueprint.GetByWorkflowID(ctx, tx, wf.ID)
	if err != nil {
		return nil, err
	}
	modules, err := p.repos.ModulePlan.GetByWorkflowID(ctx, tx, wf.ID)
	if err != nil {
		return nil, err
	}
	plans, err := p.repos.EpisodePlan.GetByWorkflowID(ctx, tx, wf.ID)
	if err != nil {
		return nil, err
	}
	contents, err := p.repos.EpisodeContent.GetByWorkflowID(ctx, tx, wf.ID)
	if err != nil {
		return nil, err
	}
	exercises, err := p.repos.EpisodeExercises.GetByWorkflowID(ctx, tx, wf.ID)
	if err != nil {
		return nil, err
	}
	media, err := p.repos.Media.GetByWorkflowID(ctx, tx, wf.ID, types.MediaEpisodeAudio, types.MediaSceneImage)
	if err != nil {
		return nil, err
	}
	if len(modules) == 0 || len(plans) == 0 {
		return nil, apperr.Newf(apperr.ErrState, op, "workflow %s has no module plans", wf.ID)
	}

	contentByPlan := map[uuid.UUID]*types.EpisodeContent{}
	for _, c := range contents {
		contentByPlan[c.EpisodePlanID] = c
	}
	exercisesByPlan := map[uuid.UUID]*types.EpisodeExercises{}
	for _, e := range exercises {
		exercisesByPlan[e.EpisodePlanID] = e
	}
	audioByPlan, imagesByPlan := indexEpisodeMedia(media)

	course, err := p.repos.Catalog.CreateCourse(ctx, tx, &types.CatalogCourse{
		WorkflowID:   wf.ID,
		LanguageCode: wf.LanguageCode,
		Level:        wf.Level,
		Title:        bp.Title,
		Description:  bp.Description,
		Setting:      bp.Setting,
	})
	if err != nil {
		return nil, err
	}

	catalogModules := make([]*types.CatalogModule, 0, len(modules))
	for _, m := range modules {
		catalogModules = append(catalogModules, &types.CatalogModule{
			CourseID:    course.ID,
			Position:    m.ModuleNumber,
			Title:       m.Title,
			Theme:       m.Theme,
			Description: m.Description,
			Objectives:  m.Objectives,
		})
	}
	if _, err := p.repos.Catalog.CreateModules(ctx, tx, catalogModules); err != nil {
		return nil, err
	}
	moduleIDs := map[int]uuid.UUID{}
	for _, m := range catalogModules {
		moduleIDs[m.Position] = m.ID
	}

	episodes := make([]*types.CatalogEpisode, 0, len(plans))
	for i, ep := range plans {
		moduleID, ok := moduleIDs[ep.ModuleNumber]
		if !ok {
			return nil, apperr.Newf(apperr.ErrState, op, "episode %s has no module", ep.Ref())
		}
		body, ok := contentByPlan[ep.ID]
		if !ok {
			return nil, apperr.Newf(apperr.ErrState, op, "episode %s has no content", ep.Ref())
		}
		row := &types.CatalogEpisode{
			CourseID:   course.ID,
			ModuleID:   moduleID,
			Position:   i + 1,
			Title:      ep.Title,
			Kind:       ep.EpisodeType,
			Text:       episodeText(ep, body),
			Summary:    body.Summary,
			Vocabulary: ep.TargetVocabulary,
			AudioURL:   audioByPlan[ep.ID],
			ImageURLs:  datatypes.JSONSlice[string](imagesByPlan[ep.ID]),
			Exercises:  datatypes.JSON("[]"),
		}
		if ep.IsDialogue() {
			raw, err := json.Marshal(body.Turns)
			if err != nil {
				return nil, err
			}
			row.ContentJSON = datatypes.JSON(raw)
		}
		if ex, ok := exercisesByPlan[ep.ID]; ok && len(ex.Items) > 0 {
			row.Exercises = ex.Items
		}
		if row.ImageURLs == nil {
			row.ImageURLs = datatypes.JSONSlice[string]{}
		}
		episodes = append(episodes, row)
	}
	if _, err := p.repos.Catalog.CreateEpisodes(ctx, tx, episodes); err != nil {
		return nil, err
	}

	p.log.Info("Workflow published",
		"workflow_id", wf.ID,
		"course_id", course.ID,
		"modules", len(catalogModules),
		"episodes", len(episodes),
	)
	return course, nil
}

// episodeText renders a dialogue as "Speaker: line" rows; stories keep their prose.
func episodeText(ep *types.EpisodePlan, body *types.EpisodeContent) string {
	if !ep.IsDialogue() {
		return body.Text
	}
	var b strings.Builder
	for i, t := range body.Turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(t.Speaker)
		b.WriteString(": ")
		b.WriteString(t.Text)
	}
	return b.String()
}

// indexEpisodeMedia keeps completed media only. Scene images are ordered by their
// "scene" metadata, falling back to creation order.
func indexEpisodeMedia(media []*types.Media) (map[uuid.UUID]string, map[uuid.UUID][]string) {
	audio := map[uuid.UUID]string{}
	scenes := map[uuid.UUID][]*types.Media{}
	for _, m := range media {
		if m.EpisodePlanID == nil || m.Status != types.StatusCompleted || m.URL == "" {
			continue
		}
		switch m.Type {
		case types.MediaEpisodeAudio:
			audio[*m.EpisodePlanID] = m.URL
		case types.MediaSceneImage:
			scenes[*m.EpisodePlanID] = append(scenes[*m.EpisodePlanID], m)
		}
	}
	images := make(map[uuid.UUID][]string, len(scenes))
	for id, list := range scenes {
		sort.SliceStable(list, func(i, j int) bool {
			si, okI := sceneIndex(list[i])
			sj, okJ := sceneIndex(list[j])
			if okI && okJ {
				return si < sj
			}
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		})
		urls := make([]string, 0, len(list))
		for _, m := range list {
			urls = append(urls, m.URL)
		}
		images[id] = urls
	}
	return audio, images
}

func sceneIndex(m *types.Media) (int, bool) {
	switch v := m.Metadata["scene"].(type) {
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	}
	return 0, false
}
