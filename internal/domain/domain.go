package domain

import (
	"github.com/yungbote/storyforge-backend/internal/domain/catalog"
	"github.com/yungbote/storyforge-backend/internal/domain/coursegen"
)

type (
	Stage     = coursegen.Stage
	Status    = coursegen.Status
	MediaType = coursegen.MediaType

	Workflow                 = coursegen.Workflow
	Blueprint                = coursegen.Blueprint
	GrammarRule              = coursegen.GrammarRule
	Character                = coursegen.Character
	CharacterDevelopmentNote = coursegen.CharacterDevelopmentNote
	ModulePlan               = coursegen.ModulePlan
	EpisodePlan              = coursegen.EpisodePlan
	EpisodeContent           = coursegen.EpisodeContent
	EpisodeExercises         = coursegen.EpisodeExercises
	DialogueTurn             = coursegen.DialogueTurn
	DevelopmentNote          = coursegen.DevelopmentNote
	IssueRecord              = coursegen.IssueRecord
	Media                    = coursegen.Media
	Word                     = coursegen.Word
	EpisodeVocabularyLink    = coursegen.EpisodeVocabularyLink

	CatalogCourse  = catalog.Course
	CatalogModule  = catalog.Module
	CatalogEpisode = catalog.Episode
)

const (
	StageBlueprint         = coursegen.StageBlueprint
	StageModulePlanning    = coursegen.StageModulePlanning
	StageEpisodeContent    = coursegen.StageEpisodeContent
	StageCharacterProfiles = coursegen.StageCharacterProfiles
	StageExercises         = coursegen.StageExercises
	StageMedia             = coursegen.StageMedia
	StageCompleted         = coursegen.StageCompleted
	StageFailed            = coursegen.StageFailed

	StatusPending    = coursegen.StatusPending
	StatusInProgress = coursegen.StatusInProgress
	StatusCompleted  = coursegen.StatusCompleted
	StatusFailed     = coursegen.StatusFailed

	MediaEpisodeAudio   = coursegen.MediaEpisodeAudio
	MediaCharacterImage = coursegen.MediaCharacterImage
	MediaSceneImage     = coursegen.MediaSceneImage

	EpisodeTypeDialogue = coursegen.EpisodeTypeDialogue
	EpisodeTypeStory    = coursegen.EpisodeTypeStory

	NarratorName = coursegen.NarratorName

	RoleProtagonist = coursegen.RoleProtagonist
	RoleSupporting  = coursegen.RoleSupporting
	RoleMinor       = coursegen.RoleMinor
	RoleRecurring   = coursegen.RoleRecurring
	GenderFemale    = coursegen.GenderFemale
	GenderMale      = coursegen.GenderMale

	MatchExact  = coursegen.MatchExact
	MatchSearch = coursegen.MatchSearch
	MatchNone   = coursegen.MatchNone
)

var StageOrder = coursegen.StageOrder
