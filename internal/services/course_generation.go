package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/yungbote/storyforge-backend/internal/data/repos"
	types "github.com/yungbote/storyforge-backend/internal/domain"
	"github.com/yungbote/storyforge-backend/internal/jobs/orchestrator"
	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/steps"
	"github.com/yungbote/storyforge-backend/internal/observability"
	apperr "github.com/yungbote/storyforge-backend/internal/pkg/errors"
	"github.com/yungbote/storyforge-backend/internal/platform/logger"
)

const (
	MaxModuleCount       = 12
	MaxEpisodesPerModule = 10
)

var cefrLevels = map[string]bool{"A1": true, "A2": true, "B1": true, "B2": true, "C1": true, "C2": true}

// WorkflowConfig is the input of Start.
type WorkflowConfig struct {
	LanguageCode      string `json:"language_code"`
	Level             string `json:"level"`
	ModuleCount       int    `json:"module_count"`
	EpisodesPerModule int    `json:"episodes_per_module"`
	ThemeHint         string `json:"theme_hint,omitempty"`
	AutoMode          bool   `json:"auto_mode"`
}

// Normalize validates the config and canonicalizes the language code and level.
func (c WorkflowConfig) Normalize() (WorkflowConfig, error) {
	const op = "workflow.config"
	tag, err := language.Parse(strings.TrimSpace(c.LanguageCode))
	if err != nil {
		return c, apperr.Newf(apperr.ErrInvalidArgument, op, "language_code %q: %v", c.LanguageCode, err)
	}
	base, conf := tag.Base()
	if conf == language.No {
		return c, apperr.Newf(apperr.ErrInvalidArgument, op, "language_code %q is not a language", c.LanguageCode)
	}
	c.LanguageCode = base.String()
	c.Level = strings.ToUpper(strings.TrimSpace(c.Level))
	if !cefrLevels[c.Level] {
		return c, apperr.Newf(apperr.ErrInvalidArgument, op, "level %q is not a CEFR level", c.Level)
	}
	if c.ModuleCount < 1 || c.ModuleCount > MaxModuleCount {
		return c, apperr.Newf(apperr.ErrInvalidArgument, op, "module_count must be in 1..%d", MaxModuleCount)
	}
	if c.EpisodesPerModule < 1 || c.EpisodesPerModule > MaxEpisodesPerModule {
		return c, apperr.Newf(apperr.ErrInvalidArgument, op, "episodes_per_module must be in 1..%d", MaxEpisodesPerModule)
	}
	c.ThemeHint = strings.TrimSpace(c.ThemeHint)
	return c, nil
}

type CourseGenerationService interface {
	Start(ctx context.Context, cfg WorkflowConfig) (*types.Workflow, error)
	Advance(ctx context.Context, workflowID uuid.UUID) (*types.Workflow, error)
	RegenerateCurrent(ctx context.Context, workflowID uuid.UUID, feedback string) (*types.Workflow, error)
	GetProgress(ctx context.Context, workflowID uuid.UUID) (*Progress, error)
	Cancel(ctx context.Context, workflowID uuid.UUID) error
	GetDebugSnapshot(ctx context.Context, workflowID uuid.UUID) (*DebugSnapshot, error)
	LinkVocabulary(ctx context.Context, workflowID uuid.UUID) ([]*types.EpisodeVocabularyLink, error)
	Publish(ctx context.Context, workflowID uuid.UUID) (*types.CatalogCourse, error)
}

type CourseGenerationConfig struct {
	// StrictCompleteness stops fail-isolated stages from advancing past FAILED units.
	StrictCompleteness bool
	Policies           map[types.Stage]orchestrator.FailurePolicy
}

type courseGenerationService struct {
	db     *gorm.DB
	log    *logger.Logger
	tracer trace.Tracer

	repos      repos.Set
	generators map[types.Stage]steps.Generator
	linker     *steps.VocabularyLinker
	publisher  CatalogPublisher
	runner     *orchestrator.Runner
	progress   progressCalculator

	locker   WorkflowLocker
	notifier WorkflowNotifier
	blobs    steps.BlobStore

	mu      sync.Mutex
	reports map[uuid.UUID]map[types.Stage]*orchestrator.StageReport
}

func NewCourseGenerationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	set repos.Set,
	generators map[types.Stage]steps.Generator,
	linker *steps.VocabularyLinker,
	publisher CatalogPublisher,
	locker WorkflowLocker,
	notifier WorkflowNotifier,
	blobs steps.BlobStore,
	cfg CourseGenerationConfig,
) CourseGenerationService {
	policies := cfg.Policies
	if policies == nil {
		policies = orchestrator.DefaultPolicies
	}
	if locker == nil {
		locker = NewLocalWorkflowLocker()
	}
	if notifier == nil {
		notifier = NewWorkflowNotifier(nil, baseLog)
	}
	return &courseGenerationService{
		db:         db,
		log:        baseLog.With("service", "CourseGenerationService"),
		tracer:     otel.Tracer("storyforge/coursegen"),
		repos:      set,
		generators: generators,
		linker:     linker,
		publisher:  publisher,
		runner:     orchestrator.NewRunner(policies, baseLog),
		progress:   progressCalculator{repos: set, policies: policies, strict: cfg.StrictCompleteness},
		locker:     locker,
		notifier:   notifier,
		blobs:      blobs,
		reports:    map[uuid.UUID]map[types.Stage]*orchestrator.StageReport{},
	}
}

func (s *courseGenerationService) startSpan(ctx context.Context, name string, id uuid.UUID) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "coursegen."+name, trace.WithAttributes(attribute.String("workflow_id", id.String())))
}

// detach keeps request values but drops request cancellation. A stage that has
// started runs to the end even when the caller goes away; only Cancel stops a workflow.
func detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *courseGenerationService) Start(ctx context.Context, cfg WorkflowConfig) (wf *types.Workflow, err error) {
	ctx = detach(ctx)
	cfg, err = cfg.Normalize()
	if err != nil {
		return nil, err
	}

	wf = &types.Workflow{
		LanguageCode:      cfg.LanguageCode,
		Level:             cfg.Level,
		ModuleCount:       cfg.ModuleCount,
		EpisodesPerModule: cfg.EpisodesPerModule,
		ThemeHint:         cfg.ThemeHint,
		AutoMode:          cfg.AutoMode,
		CurrentStage:      types.StageBlueprint,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.repos.Workflow.Create(ctx, tx, wf); err != nil {
			return err
		}
		_, err := s.repos.Blueprint.Create(ctx, tx, &types.Blueprint{WorkflowID: wf.ID, Status: types.StatusPending})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create workflow: %w", err)
	}

	ctx, span := s.startSpan(ctx, "start", wf.ID)
	defer func() { endSpan(span, err) }()

	release, err := s.locker.Acquire(ctx, wf.ID)
	if err != nil {
		return wf, err
	}
	defer release()

	s.log.Info("Workflow started",
		"workflow_id", wf.ID,
		"language", wf.LanguageCode,
		"level", wf.Level,
		"modules", wf.ModuleCount,
		"episodes_per_module", wf.EpisodesPerModule,
		"auto_mode", wf.AutoMode,
	)
	s.notifier.StageChanged(ctx, wf, "", types.StageBlueprint)

	if err := s.runStage(ctx, wf, types.StageBlueprint, ""); err != nil {
		return s.reload(ctx, wf), err
	}
	if wf.AutoMode {
		if err := s.autoAdvance(ctx, wf); err != nil {
			return s.reload(ctx, wf), err
		}
	}
	return s.reload(ctx, wf), nil
}

// autoAdvance walks forward until the workflow is terminal or a stage cannot proceed.
func (s *courseGenerationService) autoAdvance(ctx context.Context, wf *types.Workflow) error {
	for {
		cur, err := s.repos.Workflow.GetByID(ctx, nil, wf.ID)
		if err != nil {
			return err
		}
		if cur.CurrentStage.Terminal() {
			return nil
		}
		p, err := s.progress.compute(ctx, cur)
		if err != nil {
			return err
		}
		if !p.CanProceed {
			s.log.Info("Auto mode paused", "workflow_id", wf.ID, "stage", cur.CurrentStage)
			return nil
		}
		if err := s.advanceLocked(ctx, cur); err != nil {
			return err
		}
	}
}

func (s *courseGenerationService) Advance(ctx context.Context, workflowID uuid.UUID) (wf *types.Workflow, err error) {
	ctx, span := s.startSpan(detach(ctx), "advance", workflowID)
	defer func() { endSpan(span, err) }()

	release, err := s.locker.Acquire(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	defer release()

	wf, err = s.repos.Workflow.GetByID(ctx, nil, workflowID)
	if err != nil {
		return nil, err
	}
	if wf.CurrentStage.Terminal() {
		return wf, apperr.Newf(apperr.ErrState, "workflow.advance", "workflow is %s", wf.CurrentStage)
	}
	p, err := s.progress.compute(ctx, wf)
	if err != nil {
		return nil, err
	}
	if !p.CanProceed {
		return wf, apperr.Newf(apperr.ErrState, "workflow.advance", "stage %s is not complete", wf.CurrentStage)
	}
	if err := s.advanceLocked(ctx, wf); err != nil {
		return s.reload(ctx, wf), err
	}
	return s.reload(ctx, wf), nil
}

// advanceLocked moves current_stage forward before the next generator runs.
func (s *courseGenerationService) advanceLocked(ctx context.Context, wf *types.Workflow) error {
	from := wf.CurrentStage
	next, ok := from.Next()
	if !ok {
		return apperr.Newf(apperr.ErrState, "workflow.advance", "stage %s has no successor", from)
	}
	if err := s.repos.Workflow.UpdateFields(ctx, nil, wf.ID, map[string]interface{}{
		"current_stage": next,
	}); err != nil {
		return err
	}
	wf.CurrentStage = next
	s.log.Info("Stage advanced", "workflow_id", wf.ID, "from", from, "to", next)
	s.notifier.StageChanged(ctx, wf, from, next)

	if next == types.StageCompleted {
		return nil
	}
	return s.runStage(ctx, wf, next, "")
}

func (s *courseGenerationService) RegenerateCurrent(ctx context.Context, workflowID uuid.UUID, feedback string) (wf *types.Workflow, err error) {
	ctx, span := s.startSpan(detach(ctx), "regenerate", workflowID)
	defer func() { endSpan(span, err) }()

	release, err := s.locker.Acquire(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	defer release()

	wf, err = s.repos.Workflow.GetByID(ctx, nil, workflowID)
	if err != nil {
		return nil, err
	}
	if wf.CurrentStage.Terminal() {
		return wf, apperr.Newf(apperr.ErrState, "workflow.regenerate", "workflow is %s", wf.CurrentStage)
	}
	gen, ok := s.generators[wf.CurrentStage]
	if !ok {
		return wf, apperr.Newf(apperr.ErrState, "workflow.regenerate", "stage %s has no generator", wf.CurrentStage)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return gen.Clear(ctx, tx, wf)
	})
	if err != nil {
		return wf, fmt.Errorf("clear %s: %w", wf.CurrentStage, err)
	}
	s.log.Info("Stage cleared for regeneration", "workflow_id", wf.ID, "stage", wf.CurrentStage, "has_feedback", strings.TrimSpace(feedback) != "")

	if err := s.runStage(ctx, wf, wf.CurrentStage, strings.TrimSpace(feedback)); err != nil {
		return s.reload(ctx, wf), err
	}
	return s.reload(ctx, wf), nil
}

// runStage runs every unit of stage and flips the workflow to FAILED on error.
func (s *courseGenerationService) runStage(ctx context.Context, wf *types.Workflow, stage types.Stage, feedback string) error {
	gen, ok := s.generators[stage]
	if !ok {
		return s.fail(ctx, wf, stage, apperr.Newf(apperr.ErrConfiguration, "workflow.run", "no generator for stage %s", stage))
	}
	units, err := gen.Units(ctx, wf, feedback)
	if err != nil {
		return s.fail(ctx, wf, stage, err)
	}
	started := time.Now()
	report, err := s.runner.Run(ctx, stage, units)
	observeStage(stage, report, err, time.Since(started))
	s.storeReport(wf.ID, report)
	s.notifier.StageReported(ctx, wf, report)
	if err != nil {
		return s.fail(ctx, wf, stage, err)
	}
	s.log.Info("Stage finished",
		"workflow_id", wf.ID,
		"stage", stage,
		"succeeded", report.Succeeded(),
		"failed", report.Failed(),
	)
	return nil
}

func observeStage(stage types.Stage, report *orchestrator.StageReport, err error, dur time.Duration) {
	m := observability.Current()
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	statuses := map[string]int{}
	if report != nil {
		for _, u := range report.Units {
			statuses[string(u.Status)]++
		}
	}
	m.ObserveStage(string(stage), outcome, dur, statuses)
}

func (s *courseGenerationService) fail(ctx context.Context, wf *types.Workflow, stage types.Stage, cause error) error {
	msg := cause.Error()
	// The FAILED mark must survive a cancelled request context.
	if err := s.repos.Workflow.UpdateFields(context.WithoutCancel(ctx), nil, wf.ID, map[string]interface{}{
		"current_stage": types.StageFailed,
		"failed_stage":  stage,
		"error_message": msg,
	}); err != nil {
		s.log.Error("Failed to mark workflow failed", "workflow_id", wf.ID, "stage", stage, "error", err)
	}
	wf.CurrentStage, wf.FailedStage, wf.ErrorMessage = types.StageFailed, stage, msg
	s.log.Warn("Workflow failed", "workflow_id", wf.ID, "stage", stage, "error", cause)
	s.notifier.WorkflowFailed(ctx, wf, stage, msg)
	return cause
}

func (s *courseGenerationService) reload(ctx context.Context, wf *types.Workflow) *types.Workflow {
	cur, err := s.repos.Workflow.GetByID(context.WithoutCancel(ctx), nil, wf.ID)
	if err != nil {
		return wf
	}
	return cur
}

func (s *courseGenerationService) GetProgress(ctx context.Context, workflowID uuid.UUID) (*Progress, error) {
	wf, err := s.repos.Workflow.GetByID(ctx, nil, workflowID)
	if err != nil {
		return nil, err
	}
	return s.progress.compute(ctx, wf)
}

// Cancel deletes the workflow with everything it owns. Stored blobs are removed afterwards
// on a best-effort basis; published catalog rows are kept.
func (s *courseGenerationService) Cancel(ctx context.Context, workflowID uuid.UUID) (err error) {
	ctx, span := s.startSpan(ctx, "cancel", workflowID)
	defer func() { endSpan(span, err) }()

	release, err := s.locker.Acquire(ctx, workflowID)
	if err != nil {
		return err
	}
	defer release()

	if _, err := s.repos.Workflow.GetByID(ctx, nil, workflowID); err != nil {
		return err
	}
	media, err := s.repos.Media.GetByWorkflowID(ctx, nil, workflowID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deletes := []func() error{
			func() error { return s.repos.VocabularyLink.DeleteByWorkflowID(ctx, tx, workflowID) },
			func() error { return s.repos.EpisodeExercises.DeleteByWorkflowID(ctx, tx, workflowID) },
			func() error { return s.repos.EpisodeContent.DeleteByWorkflowID(ctx, tx, workflowID) },
			func() error { return s.repos.Media.DeleteByWorkflowID(ctx, tx, workflowID) },
			func() error { return s.repos.DevelopmentNote.DeleteByWorkflowID(ctx, tx, workflowID) },
			func() error { return s.repos.EpisodePlan.DeleteByWorkflowID(ctx, tx, workflowID) },
			func() error { return s.repos.ModulePlan.DeleteByWorkflowID(ctx, tx, workflowID) },
			func() error { return s.repos.Character.DeleteByWorkflowID(ctx, tx, workflowID) },
			func() error { return s.repos.Blueprint.DeleteByWorkflowID(ctx, tx, workflowID) },
			func() error { return s.repos.Workflow.DeleteByID(ctx, tx, workflowID) },
		}
		for _, del := range deletes {
			if err := del(); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cancel workflow: %w", err)
	}

	s.mu.Lock()
	delete(s.reports, workflowID)
	s.mu.Unlock()

	deleted := 0
	for _, m := range media {
		if m.StorageKey == "" || s.blobs == nil {
			continue
		}
		if err := s.blobs.Delete(ctx, m.StorageKey); err != nil {
			s.log.Warn("Blob delete failed", "workflow_id", workflowID, "key", m.StorageKey, "error", err)
			continue
		}
		deleted++
	}
	s.log.Info("Workflow cancelled", "workflow_id", workflowID, "blobs_deleted", deleted)
	return nil
}

func (s *courseGenerationService) LinkVocabulary(ctx context.Context, workflowID uuid.UUID) (links []*types.EpisodeVocabularyLink, err error) {
	ctx, span := s.startSpan(ctx, "link_vocabulary", workflowID)
	defer func() { endSpan(span, err) }()

	if s.linker == nil {
		return nil, apperr.Newf(apperr.ErrConfiguration, "workflow.link_vocabulary", "vocabulary linker not configured")
	}
	release, err := s.locker.Acquire(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	defer release()

	wf, err := s.repos.Workflow.GetByID(ctx, nil, workflowID)
	if err != nil {
		return nil, err
	}
	if wf.CurrentStage == types.StageFailed {
		return nil, apperr.Newf(apperr.ErrState, "workflow.link_vocabulary", "workflow is FAILED")
	}
	plans, err := s.repos.EpisodePlan.GetByWorkflowID(ctx, nil, workflowID)
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, apperr.Newf(apperr.ErrState, "workflow.link_vocabulary", "workflow has no episodes")
	}
	for _, p := range plans {
		if p.ContentStatus != types.StatusCompleted {
			return nil, apperr.Newf(apperr.ErrState, "workflow.link_vocabulary", "episode %s content is %s", p.Ref(), p.ContentStatus)
		}
	}
	return s.linker.Link(ctx, wf)
}

func (s *courseGenerationService) Publish(ctx context.Context, workflowID uuid.UUID) (course *types.CatalogCourse, err error) {
	ctx, span := s.startSpan(ctx, "publish", workflowID)
	defer func() { endSpan(span, err) }()

	if s.publisher == nil {
		return nil, apperr.Newf(apperr.ErrConfiguration, "workflow.publish", "publisher not configured")
	}
	release, err := s.locker.Acquire(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	defer release()

	wf, err := s.repos.Workflow.GetByID(ctx, nil, workflowID)
	if err != nil {
		return nil, err
	}
	if wf.CurrentStage != types.StageCompleted {
		return nil, apperr.Newf(apperr.ErrState, "workflow.publish", "workflow is %s", wf.CurrentStage)
	}
	if wf.PublishedCourseID != nil {
		return nil, apperr.Newf(apperr.ErrState, "workflow.publish", "workflow already published as %s", *wf.PublishedCourseID)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.publisher.Publish(ctx, tx, wf)
		if err != nil {
			return err
		}
		course = c
		return s.repos.Workflow.UpdateFields(ctx, tx, wf.ID, map[string]interface{}{
			"published_course_id": c.ID,
		})
	})
	if err != nil {
		if apperr.KindOf(err) != nil {
			return nil, err
		}
		return nil, fmt.Errorf("publish workflow: %w", err)
	}
	return course, nil
}

func (s *courseGenerationService) storeReport(id uuid.UUID, report *orchestrator.StageReport) {
	if report == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reports[id] == nil {
		s.reports[id] = map[types.Stage]*orchestrator.StageReport{}
	}
	s.reports[id][report.Stage] = report
}

func (s *courseGenerationService) lastReports(id uuid.UUID) map[types.Stage]*orchestrator.StageReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[types.Stage]*orchestrator.StageReport, len(s.reports[id]))
	for k, v := range s.reports[id] {
		out[k] = v
	}
	return out
}
