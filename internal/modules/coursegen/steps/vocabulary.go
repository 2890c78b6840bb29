package steps

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/storyforge-backend/internal/domain"
	"github.com/yungbote/storyforge-backend/internal/normalization"
	"github.com/yungbote/storyforge-backend/internal/platform/logger"
)

// VocabularyLinker matches every episode's target phrases to dictionary words.
// It runs on demand, outside the stage sequence.
type VocabularyLinker struct {
	deps Deps
	log  *logger.Logger
}

func NewVocabularyLinker(deps Deps) (*VocabularyLinker, error) {
	deps = deps.withDefaults()
	if deps.DB == nil || deps.Log == nil || deps.Dictionary == nil || deps.Repos.VocabularyLink == nil {
		return nil, fmt.Errorf("vocabulary_linker: missing deps")
	}
	return &VocabularyLinker{deps: deps, log: deps.Log.With("step", "VocabularyLinker")}, nil
}

// Link replaces the workflow's links. Exact normalized matches win over search
// hits; phrases with neither are recorded with MatchNone.
func (l *VocabularyLinker) Link(ctx context.Context, wf *types.Workflow) ([]*types.EpisodeVocabularyLink, error) {
	plans, _, err := plansWithContent(ctx, l.deps, wf)
	if err != nil {
		return nil, err
	}
	links := []*types.EpisodeVocabularyLink{}
	for _, ep := range plans {
		seen := map[string]bool{}
		for _, phrase := range ep.TargetVocabulary {
			key := normalization.Phrase(phrase)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			link, err := l.match(ctx, wf.LanguageCode, phrase, key)
			if err != nil {
				return nil, err
			}
			link.WorkflowID = wf.ID
			link.EpisodePlanID = ep.ID
			links = append(links, link)
		}
	}

	err = l.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := l.deps.Repos.VocabularyLink.DeleteByWorkflowID(ctx, tx, wf.ID); err != nil {
			return err
		}
		_, err := l.deps.Repos.VocabularyLink.Create(ctx, tx, links)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.log.Info("Vocabulary linked", "workflow_id", wf.ID, "links", len(links))
	return links, nil
}

func (l *VocabularyLinker) match(ctx context.Context, lang, phrase, normalized string) (*types.EpisodeVocabularyLink, error) {
	link := &types.EpisodeVocabularyLink{Phrase: phrase, MatchKind: types.MatchNone}
	words, err := l.deps.Dictionary.FindExact(ctx, lang, normalized)
	if err != nil {
		return nil, err
	}
	if len(words) > 0 {
		id := words[0].ID
		link.WordID, link.MatchKind = &id, types.MatchExact
		return link, nil
	}
	words, err = l.deps.Dictionary.Search(ctx, lang, phrase)
	if err != nil {
		return nil, err
	}
	if len(words) > 0 {
		id := words[0].ID
		link.WordID, link.MatchKind = &id, types.MatchSearch
	}
	return link, nil
}
