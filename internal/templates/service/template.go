package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"visitscheduler/internal/eligibility"
	templateserrors "visitscheduler/internal/templates/errors"
	"visitscheduler/internal/templates/repository"
	"visitscheduler/internal/templates/validator"
	"visitscheduler/pkg/client"
	"visitscheduler/pkg/config"
	apperrors "visitscheduler/pkg/errors"
	"visitscheduler/pkg/model"
	"visitscheduler/pkg/sanitizer"
)

type SnapshotProvider interface {
	GetEligibilitySnapshot(ctx context.Context, prisonerID string) (*model.PrisonerEligibilitySnapshot, error)
}

// VisitStatsProvider reports booked visits per date for a template.
type VisitStatsProvider interface {
	StatsForTemplate(ctx context.Context, templateRef string, from time.Time) (*model.SessionTemplateVisitStats, error)
}

type TemplateService interface {
	Create(ctx context.Context, tpl *model.SessionTemplate) error
	GetByReference(ctx context.Context, reference string) (*model.SessionTemplate, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.SessionTemplate, int64, error)
	ListActive(ctx context.Context, prisonCode string, from, to time.Time) ([]*model.SessionTemplate, error)
	EligibleSessions(ctx context.Context, prisonCode, prisonerID string, from, to time.Time) ([]model.SessionOccurrence, error)
	ValidateMigration(ctx context.Context, req *model.MigrationRequest) (*model.MigrationResult, error)
}

type templateService struct {
	repo      repository.TemplateRepository
	snapshots SnapshotProvider
	stats     VisitStatsProvider
	validator *validator.TemplateValidator
	migration *validator.MigrationValidator
	cfg       *config.Config
}

func NewTemplateService(
	repo repository.TemplateRepository,
	snapshots SnapshotProvider,
	stats VisitStatsProvider,
	validator *validator.TemplateValidator,
	migration *validator.MigrationValidator,
	cfg *config.Config,
) TemplateService {
	return &templateService{
		repo:      repo,
		snapshots: snapshots,
		stats:     stats,
		validator: validator,
		migration: migration,
		cfg:       cfg,
	}
}

func (s *templateService) Create(ctx context.Context, tpl *model.SessionTemplate) error {
	s.sanitize(tpl)
	s.applyDefaults(tpl)

	if err := s.validator.Validate(tpl); err != nil {
		s.cfg.Log.Warn("Session template validation failed",
			"reference", tpl.Reference,
			"prison_code", tpl.PrisonCode,
			"error", err,
		)
		return apperrors.Validation("Session template validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	if err := s.repo.Create(ctx, tpl); err != nil {
		if errors.Is(err, templateserrors.ErrDuplicateReference) {
			return apperrors.Conflict("Session template with the same reference already exists")
		}
		s.cfg.Log.Error("Failed to create session template",
			"reference", tpl.Reference,
			"error", err,
		)
		return apperrors.Internal("Failed to create session template", err)
	}

	s.cfg.Log.Info("Session template created successfully",
		"reference", tpl.Reference,
		"prison_code", tpl.PrisonCode,
		"day_of_week", tpl.DayOfWeek,
		"start_time", tpl.StartTime,
	)
	return nil
}

func (s *templateService) GetByReference(ctx context.Context, reference string) (*model.SessionTemplate, error) {
	reference = sanitizer.NormalizeCode(reference)
	if reference == "" {
		return nil, apperrors.InvalidInput("Session template reference cannot be empty")
	}

	tpl, err := s.repo.FindByReference(ctx, reference)
	if err != nil {
		return nil, s.mapFindError(reference, err)
	}
	return tpl, nil
}

func (s *templateService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.SessionTemplate, int64, error) {
	if limit <= 0 {
		limit = config.DefaultPaginationLimit
	}
	if limit > config.MaxPaginationLimit {
		limit = config.MaxPaginationLimit
	}
	if offset < 0 {
		offset = 0
	}

	var count int64
	var templates []*model.SessionTemplate

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		count, err = s.repo.Count(gctx)
		if err != nil {
			s.cfg.Log.Error("Failed to count session templates", "error", err)
			return apperrors.Internal("Failed to count session templates", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		templates, err = s.repo.FindAll(gctx, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to list session templates", "error", err)
			return apperrors.Internal("Failed to retrieve session templates", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	return templates, count, nil
}

func (s *templateService) ListActive(ctx context.Context, prisonCode string, from, to time.Time) ([]*model.SessionTemplate, error) {
	prisonCode = sanitizer.NormalizeCode(prisonCode)
	if prisonCode == "" {
		return nil, apperrors.InvalidInput("Prison code cannot be empty")
	}

	templates, err := s.repo.FindActiveForPrison(ctx, prisonCode, model.DateOf(from), model.DateOf(to))
	if err != nil {
		s.cfg.Log.Error("Failed to list active session templates",
			"prison_code", prisonCode,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve session templates", err)
	}

	s.cfg.Log.Debug("Active session templates listed",
		"prison_code", prisonCode,
		"count", len(templates),
	)
	return templates, nil
}

// EligibleSessions lists dated sessions in [from, to] at the prison that the
// prisoner may book. A prisoner unknown to the prisoner service only sees
// unrestricted templates; a prisoner held elsewhere sees none.
func (s *templateService) EligibleSessions(ctx context.Context, prisonCode, prisonerID string, from, to time.Time) ([]model.SessionOccurrence, error) {
	prisonCode = sanitizer.NormalizeCode(prisonCode)
	prisonerID = sanitizer.NormalizeID(prisonerID)
	if prisonCode == "" || prisonerID == "" {
		return nil, apperrors.InvalidInput("Prison code and prisoner ID are required")
	}

	var templates []*model.SessionTemplate
	var snapshot *model.PrisonerEligibilitySnapshot

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		templates, err = s.ListActive(gctx, prisonCode, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		snapshot, err = s.loadSnapshot(gctx, prisonerID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	occurrences := []model.SessionOccurrence{}
	if snapshot != nil && snapshot.PrisonCode != "" && snapshot.PrisonCode != prisonCode {
		s.cfg.Log.Debug("Prisoner held at a different prison",
			"prisoner_id", prisonerID,
			"prison_code", prisonCode,
			"held_at", snapshot.PrisonCode,
		)
		return occurrences, nil
	}

	for _, tpl := range eligibility.EligibleTemplates(templates, snapshot) {
		for _, d := range tpl.Occurrences(from, to) {
			occurrences = append(occurrences, model.SessionOccurrence{
				SessionTemplateReference: tpl.Reference,
				PrisonCode:               tpl.PrisonCode,
				SessionDate:              d,
				StartTime:                tpl.StartTime,
				EndTime:                  tpl.EndTime,
				OpenCapacity:             tpl.OpenCapacity,
				ClosedCapacity:           tpl.ClosedCapacity,
			})
		}
	}
	return occurrences, nil
}

func (s *templateService) ValidateMigration(ctx context.Context, req *model.MigrationRequest) (*model.MigrationResult, error) {
	req.FromReference = sanitizer.NormalizeCode(req.FromReference)
	req.ToReference = sanitizer.NormalizeCode(req.ToReference)
	if err := s.validator.ValidateMigrationRequest(req); err != nil {
		return nil, apperrors.Validation("Migration request validation failed", map[string]any{
			"error": err.Error(),
		})
	}
	effectiveFrom, err := model.ParseDate(req.EffectiveFrom)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid effective_from date: " + req.EffectiveFrom)
	}

	var from, to *model.SessionTemplate
	var fromStats, toStats *model.SessionTemplateVisitStats

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		from, err = s.repo.FindByReference(gctx, req.FromReference)
		if err != nil {
			return s.mapFindError(req.FromReference, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		to, err = s.repo.FindByReference(gctx, req.ToReference)
		if err != nil {
			return s.mapFindError(req.ToReference, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		fromStats, err = s.stats.StatsForTemplate(gctx, req.FromReference, effectiveFrom)
		if err != nil {
			return apperrors.Internal("Failed to load visit stats", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		toStats, err = s.stats.StatsForTemplate(gctx, req.ToReference, effectiveFrom)
		if err != nil {
			return apperrors.Internal("Failed to load visit stats", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.cfg.Log.Error("Failed to load migration inputs",
			"from_reference", req.FromReference,
			"to_reference", req.ToReference,
			"error", err,
		)
		return nil, err
	}

	reasons := s.migration.ValidateMigration(from, fromStats, to, toStats, effectiveFrom)

	s.cfg.Log.Info("Session template migration validated",
		"from_reference", req.FromReference,
		"to_reference", req.ToReference,
		"effective_from", req.EffectiveFrom,
		"blocking_reasons", len(reasons),
	)
	return &model.MigrationResult{
		FromReference:   req.FromReference,
		ToReference:     req.ToReference,
		EffectiveFrom:   model.FormatDate(effectiveFrom),
		Safe:            len(reasons) == 0,
		BlockingReasons: reasons,
	}, nil
}

// --- Helpers ---

func (s *templateService) loadSnapshot(ctx context.Context, prisonerID string) (*model.PrisonerEligibilitySnapshot, error) {
	snapshot, err := s.snapshots.GetEligibilitySnapshot(ctx, prisonerID)
	if err != nil {
		if errors.Is(err, client.ErrPrisonerNotFound) {
			return nil, nil
		}
		s.cfg.Log.Error("Failed to load prisoner eligibility snapshot",
			"prisoner_id", prisonerID,
			"error", err,
		)
		return nil, apperrors.Unavailable("prisoner service").WithCause(err)
	}
	if snapshot != nil {
		snapshot.PrisonCode = sanitizer.NormalizeCode(snapshot.PrisonCode)
		snapshot.Category = sanitizer.NormalizeCode(snapshot.Category)
		snapshot.IncentiveLevel = sanitizer.NormalizeCode(snapshot.IncentiveLevel)
		snapshot.Location = sanitizer.NormalizeLocation(snapshot.Location)
	}
	return snapshot, nil
}

func (s *templateService) mapFindError(reference string, err error) error {
	if errors.Is(err, templateserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Session template", reference)
	}
	s.cfg.Log.Error("Failed to get session template",
		"reference", reference,
		"error", err,
	)
	return apperrors.Internal("Failed to retrieve session template", err)
}

func (s *templateService) sanitize(tpl *model.SessionTemplate) {
	tpl.Reference = sanitizer.NormalizeCode(tpl.Reference)
	tpl.Name = sanitizer.NormalizeName(tpl.Name)
	tpl.PrisonCode = sanitizer.NormalizeCode(tpl.PrisonCode)
	tpl.DayOfWeek = model.DayOfWeek(sanitizer.NormalizeCode(string(tpl.DayOfWeek)))
	tpl.ValidFrom = model.DateOf(tpl.ValidFrom)
	if tpl.ValidTo != nil {
		d := model.DateOf(*tpl.ValidTo)
		tpl.ValidTo = &d
	}
	for i := range tpl.LocationGroups {
		g := &tpl.LocationGroups[i]
		g.Name = sanitizer.NormalizeName(g.Name)
		g.Locations = sanitizer.NormalizeLocations(g.Locations)
	}
	for i := range tpl.CategoryGroups {
		g := &tpl.CategoryGroups[i]
		g.Name = sanitizer.NormalizeName(g.Name)
		g.Categories = sanitizer.NormalizeCodes(g.Categories)
	}
	for i := range tpl.IncentiveLevelGroups {
		g := &tpl.IncentiveLevelGroups[i]
		g.Name = sanitizer.NormalizeName(g.Name)
		g.Levels = sanitizer.NormalizeCodes(g.Levels)
	}
}

func (s *templateService) applyDefaults(tpl *model.SessionTemplate) {
	if tpl.ID == "" {
		tpl.ID = uuid.NewString()
	}
	if tpl.Reference == "" {
		tpl.Reference = sanitizer.NormalizeCode(uuid.NewString())
	}
	if tpl.WeeklyFrequency == 0 {
		tpl.WeeklyFrequency = 1
	}
	for i := range tpl.LocationGroups {
		if tpl.LocationGroups[i].Reference == "" {
			tpl.LocationGroups[i].Reference = uuid.NewString()
		}
	}
	for i := range tpl.CategoryGroups {
		if tpl.CategoryGroups[i].Reference == "" {
			tpl.CategoryGroups[i].Reference = uuid.NewString()
		}
	}
	for i := range tpl.IncentiveLevelGroups {
		if tpl.IncentiveLevelGroups[i].Reference == "" {
			tpl.IncentiveLevelGroups[i].Reference = uuid.NewString()
		}
	}
}
