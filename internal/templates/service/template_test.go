package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	templateserrors "visitscheduler/internal/templates/errors"
	"visitscheduler/internal/templates/validator"
	"visitscheduler/pkg/client"
	"visitscheduler/pkg/config"
	apperrors "visitscheduler/pkg/errors"
	"visitscheduler/pkg/logger"
	"visitscheduler/pkg/model"
)

type mockTemplateRepository struct {
	mu          sync.Mutex
	templates   map[string]*model.SessionTemplate
	createFunc  func(ctx context.Context, tpl *model.SessionTemplate) error
	findAllFunc func(ctx context.Context, limit int, offset int64) ([]*model.SessionTemplate, error)
	countFunc   func(ctx context.Context) (int64, error)
}

func newMockTemplateRepository(templates ...*model.SessionTemplate) *mockTemplateRepository {
	m := &mockTemplateRepository{templates: map[string]*model.SessionTemplate{}}
	for _, tpl := range templates {
		m.templates[tpl.Reference] = tpl
	}
	return m
}

func (m *mockTemplateRepository) Create(ctx context.Context, tpl *model.SessionTemplate) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, tpl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[tpl.Reference]; ok {
		return templateserrors.ErrDuplicateReference
	}
	m.templates[tpl.Reference] = tpl
	return nil
}

func (m *mockTemplateRepository) FindByReference(ctx context.Context, reference string) (*model.SessionTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tpl, ok := m.templates[reference]
	if !ok {
		return nil, templateserrors.ErrNotFound
	}
	return tpl, nil
}

func (m *mockTemplateRepository) FindActiveForPrison(ctx context.Context, prisonCode string, from, to time.Time) ([]*model.SessionTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.SessionTemplate
	for _, tpl := range m.templates {
		if tpl.PrisonCode != prisonCode || tpl.ValidFrom.After(to) {
			continue
		}
		if tpl.ValidTo != nil && tpl.ValidTo.Before(from) {
			continue
		}
		out = append(out, tpl)
	}
	return out, nil
}

func (m *mockTemplateRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.SessionTemplate, error) {
	if m.findAllFunc != nil {
		return m.findAllFunc(ctx, limit, offset)
	}
	return []*model.SessionTemplate{}, nil
}

func (m *mockTemplateRepository) Count(ctx context.Context) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx)
	}
	return int64(len(m.templates)), nil
}

type mockSnapshots struct {
	snapshot *model.PrisonerEligibilitySnapshot
	err      error
}

func (m *mockSnapshots) GetEligibilitySnapshot(ctx context.Context, prisonerID string) (*model.PrisonerEligibilitySnapshot, error) {
	return m.snapshot, m.err
}

type mockStats struct {
	byRef map[string]*model.SessionTemplateVisitStats
	err   error
}

func (m *mockStats) StatsForTemplate(ctx context.Context, templateRef string, from time.Time) (*model.SessionTemplateVisitStats, error) {
	if m.err != nil {
		return nil, m.err
	}
	if s, ok := m.byRef[templateRef]; ok {
		return s, nil
	}
	return &model.SessionTemplateVisitStats{TemplateReference: templateRef}, nil
}

func mustDate(s string) time.Time {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTemplate(ref string) *model.SessionTemplate {
	return &model.SessionTemplate{
		Reference:       ref,
		Name:            "Monday morning",
		PrisonCode:      "MDI",
		DayOfWeek:       model.Monday,
		StartTime:       "10:00",
		EndTime:         "11:00",
		WeeklyFrequency: 1,
		ValidFrom:       mustDate("2025-01-06"),
		OpenCapacity:    2,
		ClosedCapacity:  1,
	}
}

func newTestService(repo *mockTemplateRepository, snapshots *mockSnapshots, stats *mockStats) *templateService {
	log := logger.New(logger.Config{Output: io.Discard, Service: "test"})
	cfg := &config.Config{Log: log, ReadTimeout: 5 * time.Second}
	return &templateService{
		repo:      repo,
		snapshots: snapshots,
		stats:     stats,
		validator: validator.NewTemplateValidator(log),
		migration: validator.NewMigrationValidator(time.Hour),
		cfg:       cfg,
	}
}

func TestCreate_SanitizesAndDefaults(t *testing.T) {
	repo := newMockTemplateRepository()
	svc := newTestService(repo, &mockSnapshots{}, &mockStats{})

	tpl := &model.SessionTemplate{
		Name:           "  Monday   morning ",
		PrisonCode:     " mdi ",
		DayOfWeek:      "monday",
		StartTime:      "10:00",
		EndTime:        "11:00",
		ValidFrom:      time.Date(2025, 1, 6, 15, 30, 0, 0, time.UTC),
		OpenCapacity:   2,
		CategoryGroups: []model.CategoryGroup{{Name: "cats", Categories: []string{"b", " B", "c"}}},
	}
	require.NoError(t, svc.Create(context.Background(), tpl))

	assert.NotEmpty(t, tpl.ID)
	assert.NotEmpty(t, tpl.Reference)
	assert.Equal(t, "Monday morning", tpl.Name)
	assert.Equal(t, "MDI", tpl.PrisonCode)
	assert.Equal(t, model.Monday, tpl.DayOfWeek)
	assert.Equal(t, 1, tpl.WeeklyFrequency)
	assert.Equal(t, mustDate("2025-01-06"), tpl.ValidFrom)
	assert.Equal(t, []string{"B", "C"}, tpl.CategoryGroups[0].Categories)
	assert.NotEmpty(t, tpl.CategoryGroups[0].Reference)
}

func TestCreate_ValidationAndConflict(t *testing.T) {
	repo := newMockTemplateRepository(newTemplate("AAA-BBB"))
	svc := newTestService(repo, &mockSnapshots{}, &mockStats{})

	bad := newTemplate("CCC-DDD")
	bad.EndTime = "09:00"
	err := svc.Create(context.Background(), bad)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	err = svc.Create(context.Background(), newTemplate("aaa-bbb"))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
}

func TestGetByReference(t *testing.T) {
	repo := newMockTemplateRepository(newTemplate("AAA-BBB"))
	svc := newTestService(repo, &mockSnapshots{}, &mockStats{})

	tpl, err := svc.GetByReference(context.Background(), " aaa-bbb ")
	require.NoError(t, err)
	assert.Equal(t, "AAA-BBB", tpl.Reference)

	_, err = svc.GetByReference(context.Background(), "zzz-zzz")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	_, err = svc.GetByReference(context.Background(), "  ")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
}

func TestGetAll_ClampsLimitAndRunsConcurrently(t *testing.T) {
	repo := newMockTemplateRepository()
	var gotLimit int
	repo.findAllFunc = func(ctx context.Context, limit int, offset int64) ([]*model.SessionTemplate, error) {
		gotLimit = limit
		time.Sleep(5 * time.Millisecond)
		return []*model.SessionTemplate{newTemplate("AAA-BBB")}, nil
	}
	repo.countFunc = func(ctx context.Context) (int64, error) {
		time.Sleep(5 * time.Millisecond)
		return 42, nil
	}
	svc := newTestService(repo, &mockSnapshots{}, &mockStats{})

	templates, count, err := svc.GetAll(context.Background(), 1000, -5)
	require.NoError(t, err)
	assert.Equal(t, config.MaxPaginationLimit, gotLimit)
	assert.Equal(t, int64(42), count)
	assert.Len(t, templates, 1)

	repo.countFunc = func(ctx context.Context) (int64, error) { return 0, errors.New("mongo down") }
	_, _, err = svc.GetAll(context.Background(), 0, 0)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInternal))
}

func TestEligibleSessions(t *testing.T) {
	open := newTemplate("OPEN-ALL")
	wingA := newTemplate("WING-A")
	wingA.IncludeLocationGroupType = true
	wingA.LocationGroups = []model.LocationGroup{{Name: "A", Locations: []model.Location{{LevelOneCode: "A"}}}}
	enhanced := newTemplate("ENH-ONLY")
	enhanced.IncentiveLevelGroups = []model.IncentiveLevelGroup{{Name: "enh", Levels: []string{"ENH"}}}
	repo := newMockTemplateRepository(open, wingA, enhanced)

	from, to := mustDate("2025-03-10"), mustDate("2025-03-17")

	refs := func(sessions []model.SessionOccurrence) map[string]int {
		out := map[string]int{}
		for _, s := range sessions {
			out[s.SessionTemplateReference]++
		}
		return out
	}

	t.Run("prisoner on wing A standard", func(t *testing.T) {
		snaps := &mockSnapshots{snapshot: &model.PrisonerEligibilitySnapshot{
			PrisonerID: "A1234BC", PrisonCode: "mdi",
			Location:       &model.Location{LevelOneCode: "a", LevelTwoCode: "1"},
			IncentiveLevel: "std",
		}}
		svc := newTestService(repo, snaps, &mockStats{})
		sessions, err := svc.EligibleSessions(context.Background(), "MDI", "a1234bc", from, to)
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"OPEN-ALL": 2, "WING-A": 2}, refs(sessions))
	})

	t.Run("unknown prisoner sees unrestricted only", func(t *testing.T) {
		svc := newTestService(repo, &mockSnapshots{err: client.ErrPrisonerNotFound}, &mockStats{})
		sessions, err := svc.EligibleSessions(context.Background(), "MDI", "A1234BC", from, to)
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"OPEN-ALL": 2}, refs(sessions))
	})

	t.Run("prisoner held elsewhere sees nothing", func(t *testing.T) {
		snaps := &mockSnapshots{snapshot: &model.PrisonerEligibilitySnapshot{PrisonerID: "A1234BC", PrisonCode: "LEI"}}
		svc := newTestService(repo, snaps, &mockStats{})
		sessions, err := svc.EligibleSessions(context.Background(), "MDI", "A1234BC", from, to)
		require.NoError(t, err)
		assert.Empty(t, sessions)
	})

	t.Run("prisoner service failure", func(t *testing.T) {
		svc := newTestService(repo, &mockSnapshots{err: errors.New("connection refused")}, &mockStats{})
		_, err := svc.EligibleSessions(context.Background(), "MDI", "A1234BC", from, to)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeUnavailable))
	})
}

func TestValidateMigration_LoadsStatsAndReports(t *testing.T) {
	from := newTemplate("FROM-REF")
	to := newTemplate("TO-REF")
	to.OpenCapacity = 1
	repo := newMockTemplateRepository(from, to)
	stats := &mockStats{byRef: map[string]*model.SessionTemplateVisitStats{
		"FROM-REF": {TemplateReference: "FROM-REF", VisitCount: 1, VisitsByDate: []model.DateVisitCount{{Date: mustDate("2025-03-10"), Open: 1}}},
		"TO-REF":   {TemplateReference: "TO-REF", VisitCount: 1, VisitsByDate: []model.DateVisitCount{{Date: mustDate("2025-03-10"), Open: 1}}},
	}}
	svc := newTestService(repo, &mockSnapshots{}, stats)

	result, err := svc.ValidateMigration(context.Background(), &model.MigrationRequest{
		FromReference: "from-ref", ToReference: "to-ref", EffectiveFrom: "2025-03-01",
	})
	require.NoError(t, err)
	assert.False(t, result.Safe)
	require.Len(t, result.BlockingReasons, 1)
	assert.Equal(t, validator.ReasonOpenCapacityExceeded, result.BlockingReasons[0].Code)

	delete(stats.byRef, "TO-REF")
	result, err = svc.ValidateMigration(context.Background(), &model.MigrationRequest{
		FromReference: "FROM-REF", ToReference: "TO-REF", EffectiveFrom: "2025-03-01",
	})
	require.NoError(t, err)
	assert.True(t, result.Safe)
	assert.Empty(t, result.BlockingReasons)
}

func TestValidateMigration_Errors(t *testing.T) {
	repo := newMockTemplateRepository(newTemplate("FROM-REF"))
	svc := newTestService(repo, &mockSnapshots{}, &mockStats{})

	_, err := svc.ValidateMigration(context.Background(), &model.MigrationRequest{
		FromReference: "FROM-REF", ToReference: "MISSING", EffectiveFrom: "2025-03-01",
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	_, err = svc.ValidateMigration(context.Background(), &model.MigrationRequest{
		FromReference: "FROM-REF", ToReference: "MISSING", EffectiveFrom: "March",
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}
