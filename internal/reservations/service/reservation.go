package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"visitscheduler/internal/capacity"
	"visitscheduler/internal/eligibility"
	reservationserrors "visitscheduler/internal/reservations/errors"
	"visitscheduler/internal/reservations/events"
	"visitscheduler/internal/reservations/repository"
	"visitscheduler/internal/reservations/validator"
	templateserrors "visitscheduler/internal/templates/errors"
	"visitscheduler/pkg/client"
	"visitscheduler/pkg/config"
	mongotx "visitscheduler/pkg/db/mongo"
	apperrors "visitscheduler/pkg/errors"
	"visitscheduler/pkg/model"
	"visitscheduler/pkg/sanitizer"
)

type TemplateFinder interface {
	FindByReference(ctx context.Context, reference string) (*model.SessionTemplate, error)
}

type SnapshotProvider interface {
	GetEligibilitySnapshot(ctx context.Context, prisonerID string) (*model.PrisonerEligibilitySnapshot, error)
}

type ReservationService interface {
	Reserve(ctx context.Context, req *model.ReservationRequest) (*model.Application, error)
	Amend(ctx context.Context, id string, update *model.ApplicationUpdate) (*model.Application, error)
	Complete(ctx context.Context, id string) (*model.Visit, error)
	Abandon(ctx context.Context, id string) error
	GetApplication(ctx context.Context, id string) (*model.Application, error)
	// SweepExpired deletes uncompleted applications untouched for longer than
	// window. A non-positive window uses the configured validity window.
	SweepExpired(ctx context.Context, window time.Duration) (int64, error)
	CancelVisit(ctx context.Context, id string) (*model.Visit, error)
	GetVisit(ctx context.Context, id string) (*model.Visit, error)
}

type reservationService struct {
	templates    TemplateFinder
	snapshots    SnapshotProvider
	applications repository.ApplicationRepository
	visits       repository.VisitRepository
	slots        repository.SlotRepository
	locker       repository.SlotLocker
	txManager    mongotx.TransactionManager
	accountant   *capacity.Accountant
	publisher    events.Publisher
	validator    *validator.ApplicationValidator
	cfg          *config.Config
	now          func() time.Time
}

func NewReservationService(
	templates TemplateFinder,
	snapshots SnapshotProvider,
	applications repository.ApplicationRepository,
	visits repository.VisitRepository,
	slots repository.SlotRepository,
	locker repository.SlotLocker,
	txManager mongotx.TransactionManager,
	accountant *capacity.Accountant,
	publisher events.Publisher,
	validator *validator.ApplicationValidator,
	cfg *config.Config,
) ReservationService {
	return &reservationService{
		templates:    templates,
		snapshots:    snapshots,
		applications: applications,
		visits:       visits,
		slots:        slots,
		locker:       locker,
		txManager:    txManager,
		accountant:   accountant,
		publisher:    publisher,
		validator:    validator,
		cfg:          cfg,
		now:          storageNow,
	}
}

// storageNow matches the millisecond precision MongoDB keeps for dates.
func storageNow() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func (s *reservationService) Reserve(ctx context.Context, req *model.ReservationRequest) (*model.Application, error) {
	s.sanitizeRequest(req)
	if err := s.validator.ValidateReservation(req); err != nil {
		s.cfg.Log.Warn("Reservation request validation failed",
			"prisoner_id", req.PrisonerID,
			"session_template_reference", req.SessionTemplateReference,
			"error", err,
		)
		return nil, apperrors.Validation("Reservation request validation failed", map[string]any{
			"error": err.Error(),
		})
	}
	date, err := model.ParseDate(req.SessionDate)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid session_date: " + req.SessionDate)
	}

	tpl, snapshot, err := s.loadTemplateAndSnapshot(ctx, req.SessionTemplateReference, req.PrisonerID)
	if err != nil {
		return nil, err
	}
	if err := s.checkSession(tpl, date); err != nil {
		return nil, err
	}
	if err := s.checkEligibility(tpl, snapshot, req.PrisonerID); err != nil {
		return nil, err
	}

	lockIDs := []string{
		prisonerLockID(req.PrisonerID, date),
		poolLockID(tpl.Reference, date, req.Restriction),
	}

	slot, err := s.resolveSlot(ctx, tpl, date)
	if err != nil {
		return nil, err
	}

	var app *model.Application
	err = s.withLocks(ctx, lockIDs, func() error {
		return s.txManager.ExecuteTransaction(ctx, func(txCtx context.Context) error {
			now := s.now()
			if err := s.checkDuplicate(txCtx, req.PrisonerID, date, ""); err != nil {
				return err
			}
			if err := s.checkCapacity(txCtx, tpl, slot, req.Restriction, ""); err != nil {
				return err
			}

			id := uuid.NewString()
			app = &model.Application{
				ID:                       id,
				Reference:                id,
				PrisonerID:               req.PrisonerID,
				PrisonCode:               tpl.PrisonCode,
				SessionSlotID:            slot.ID,
				SessionTemplateReference: tpl.Reference,
				SessionDate:              date,
				Restriction:              req.Restriction,
				ReservedSlot:             true,
				CreatedAt:                now,
				ModifyTimestamp:          now,
			}
			if err := s.applications.Create(txCtx, app); err != nil {
				return apperrors.Internal("Failed to create application", err)
			}
			return nil
		})
	})
	if err != nil {
		s.logRejection("Reservation rejected", err,
			"prisoner_id", req.PrisonerID,
			"session_template_reference", tpl.Reference,
			"session_date", req.SessionDate,
			"restriction", req.Restriction,
		)
		return nil, err
	}

	s.cfg.Log.Info("Application reserved successfully",
		"application_id", app.ID,
		"prisoner_id", app.PrisonerID,
		"session_slot_id", app.SessionSlotID,
		"session_date", req.SessionDate,
		"restriction", app.Restriction,
	)
	s.publish(ctx, events.TypeApplicationReserved, app.ID, events.FromApplication(app, app.ModifyTimestamp))
	return app, nil
}

// Amend changes the restriction or session of a live application. Leaving
// the pool unchanged only refreshes the modify timestamp; moving to another
// pool re-runs admission without counting the application itself.
func (s *reservationService) Amend(ctx context.Context, id string, update *model.ApplicationUpdate) (*model.Application, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperrors.InvalidInput("Application ID cannot be empty")
	}
	s.sanitizeUpdate(update)
	if err := s.validator.ValidateUpdate(update); err != nil {
		s.cfg.Log.Warn("Application update validation failed", "application_id", id, "error", err)
		return nil, apperrors.Validation("Application update validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	current, err := s.loadOpenApplication(ctx, id)
	if err != nil {
		return nil, err
	}

	target := *current
	if update.Restriction != nil {
		target.Restriction = *update.Restriction
	}
	if update.SessionTemplateReference != nil && update.SessionDate != nil {
		date, err := model.ParseDate(*update.SessionDate)
		if err != nil {
			return nil, apperrors.InvalidInput("invalid session_date: " + *update.SessionDate)
		}
		target.SessionTemplateReference = *update.SessionTemplateReference
		target.SessionDate = date
	}

	if samePool(current, &target) {
		return s.touch(ctx, current)
	}

	sessionChanged := target.SessionTemplateReference != current.SessionTemplateReference ||
		!target.SessionDate.Equal(current.SessionDate)

	var tpl *model.SessionTemplate
	if sessionChanged {
		var snapshot *model.PrisonerEligibilitySnapshot
		tpl, snapshot, err = s.loadTemplateAndSnapshot(ctx, target.SessionTemplateReference, current.PrisonerID)
		if err != nil {
			return nil, err
		}
		if err := s.checkSession(tpl, target.SessionDate); err != nil {
			return nil, err
		}
		if err := s.checkEligibility(tpl, snapshot, current.PrisonerID); err != nil {
			return nil, err
		}
	} else {
		tpl, err = s.loadTemplate(ctx, target.SessionTemplateReference)
		if err != nil {
			return nil, err
		}
	}

	var lockIDs []string
	if !target.SessionDate.Equal(current.SessionDate) {
		lockIDs = append(lockIDs, prisonerLockID(current.PrisonerID, target.SessionDate))
	}
	lockIDs = append(lockIDs, poolLockID(tpl.Reference, target.SessionDate, target.Restriction))

	slot, err := s.resolveSlot(ctx, tpl, target.SessionDate)
	if err != nil {
		return nil, err
	}

	var amended *model.Application
	err = s.withLocks(ctx, lockIDs, func() error {
		return s.txManager.ExecuteTransaction(ctx, func(txCtx context.Context) error {
			app, err := s.loadOpenApplication(txCtx, id)
			if err != nil {
				return err
			}
			if !target.SessionDate.Equal(app.SessionDate) {
				if err := s.checkDuplicate(txCtx, app.PrisonerID, target.SessionDate, app.ID); err != nil {
					return err
				}
			}
			if err := s.checkCapacity(txCtx, tpl, slot, target.Restriction, app.ID); err != nil {
				return err
			}

			app.SessionSlotID = slot.ID
			app.SessionTemplateReference = tpl.Reference
			app.SessionDate = target.SessionDate
			app.Restriction = target.Restriction
			app.ModifyTimestamp = s.now()
			if err := s.applications.UpdateReservation(txCtx, app); err != nil {
				return s.mapApplicationError(app.ID, err, "Failed to amend application")
			}
			amended = app
			return nil
		})
	})
	if err != nil {
		s.logRejection("Application amendment rejected", err,
			"application_id", id,
			"session_template_reference", target.SessionTemplateReference,
			"restriction", target.Restriction,
		)
		return nil, err
	}

	s.cfg.Log.Info("Application amended successfully",
		"application_id", amended.ID,
		"session_slot_id", amended.SessionSlotID,
		"restriction", amended.Restriction,
	)
	s.publish(ctx, events.TypeApplicationAmended, amended.ID, events.FromApplication(amended, amended.ModifyTimestamp))
	return amended, nil
}

// Complete converts a live application into a booked visit. The conditional
// update on completed=false runs first inside the transaction so a concurrent
// completion aborts before a second visit is written.
func (s *reservationService) Complete(ctx context.Context, id string) (*model.Visit, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperrors.InvalidInput("Application ID cannot be empty")
	}

	current, err := s.loadOpenApplication(ctx, id)
	if err != nil {
		return nil, err
	}

	lockIDs := []string{poolLockID(current.SessionTemplateReference, current.SessionDate, current.Restriction)}

	var visit *model.Visit
	err = s.withLocks(ctx, lockIDs, func() error {
		return s.txManager.ExecuteTransaction(ctx, func(txCtx context.Context) error {
			app, err := s.loadOpenApplication(txCtx, id)
			if err != nil {
				return err
			}

			now := s.now()
			visitID := uuid.NewString()
			if err := s.applications.MarkCompleted(txCtx, app.ID, visitID, now); err != nil {
				return s.mapApplicationError(app.ID, err, "Failed to complete application")
			}

			visit = &model.Visit{
				ID:                       visitID,
				Reference:                visitID,
				ApplicationID:            app.ID,
				PrisonerID:               app.PrisonerID,
				PrisonCode:               app.PrisonCode,
				SessionSlotID:            app.SessionSlotID,
				SessionTemplateReference: app.SessionTemplateReference,
				SessionDate:              app.SessionDate,
				Restriction:              app.Restriction,
				Status:                   model.VisitBooked,
				CreatedAt:                now,
			}
			if err := s.visits.Create(txCtx, visit); err != nil {
				return apperrors.Internal("Failed to create visit", err)
			}
			return nil
		})
	})
	if err != nil {
		s.logRejection("Application completion rejected", err, "application_id", id)
		return nil, err
	}

	s.cfg.Log.Info("Application completed successfully",
		"application_id", id,
		"visit_id", visit.ID,
		"session_slot_id", visit.SessionSlotID,
	)
	booked := *current
	booked.VisitID = visit.ID
	booked.Completed = true
	s.publish(ctx, events.TypeApplicationBooked, id, events.FromApplication(&booked, visit.CreatedAt))
	return visit, nil
}

func (s *reservationService) Abandon(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperrors.InvalidInput("Application ID cannot be empty")
	}

	app, err := s.GetApplication(ctx, id)
	if err != nil {
		return err
	}
	if app.Completed {
		return reservationserrors.AlreadyCompleted(app.ID, app.VisitID)
	}

	if err := s.applications.Delete(ctx, id); err != nil {
		return s.mapApplicationError(id, err, "Failed to delete application")
	}

	s.cfg.Log.Info("Application abandoned", "application_id", id, "prisoner_id", app.PrisonerID)
	s.publish(ctx, events.TypeApplicationAbandoned, id, events.FromApplication(app, s.now()))
	return nil
}

func (s *reservationService) GetApplication(ctx context.Context, id string) (*model.Application, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperrors.InvalidInput("Application ID cannot be empty")
	}

	app, err := s.applications.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapApplicationError(id, err, "Failed to retrieve application")
	}
	return app, nil
}

func (s *reservationService) SweepExpired(ctx context.Context, window time.Duration) (int64, error) {
	if window <= 0 {
		window = s.accountant.Window()
	}
	now := s.now()
	cutoff := now.Add(-window)

	deleted, err := s.applications.DeleteExpired(ctx, cutoff)
	if err != nil {
		s.cfg.Log.Error("Failed to sweep expired applications", "cutoff", cutoff, "error", err)
		return 0, apperrors.Internal("Failed to sweep expired applications", err)
	}

	s.cfg.Log.Info("Expired applications swept", "deleted", deleted, "cutoff", cutoff)
	if deleted > 0 {
		s.publish(ctx, events.TypeApplicationsExpired, cutoff.Format(time.RFC3339), events.SweepEvent{
			Deleted:    deleted,
			Cutoff:     cutoff,
			OccurredAt: now,
		})
	}
	return deleted, nil
}

// CancelVisit frees the visit's capacity unit. Cancelling an already
// cancelled visit returns it unchanged.
func (s *reservationService) CancelVisit(ctx context.Context, id string) (*model.Visit, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperrors.InvalidInput("Visit ID cannot be empty")
	}

	visit, changed, err := s.visits.Cancel(ctx, id, s.now())
	if err != nil {
		return nil, s.mapVisitError(id, err, "Failed to cancel visit")
	}
	if !changed {
		s.cfg.Log.Debug("Visit already cancelled", "visit_id", id)
		return visit, nil
	}

	s.cfg.Log.Info("Visit cancelled", "visit_id", id, "session_slot_id", visit.SessionSlotID)
	s.publish(ctx, events.TypeVisitCancelled, id, events.VisitCancelled{VisitID: id})
	return visit, nil
}

func (s *reservationService) GetVisit(ctx context.Context, id string) (*model.Visit, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperrors.InvalidInput("Visit ID cannot be empty")
	}

	visit, err := s.visits.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapVisitError(id, err, "Failed to retrieve visit")
	}
	return visit, nil
}

// --- Helpers ---

// touch refreshes a hold under its pool lock. Reserve excludes a lapsed hold
// from demand, so the refresh must not land after another request has taken
// the unit.
func (s *reservationService) touch(ctx context.Context, current *model.Application) (*model.Application, error) {
	lockIDs := []string{poolLockID(current.SessionTemplateReference, current.SessionDate, current.Restriction)}

	var touched *model.Application
	err := s.withLocks(ctx, lockIDs, func() error {
		return s.txManager.ExecuteTransaction(ctx, func(txCtx context.Context) error {
			app, err := s.loadOpenApplication(txCtx, current.ID)
			if err != nil {
				return err
			}
			now := s.now()
			if err := s.applications.Touch(txCtx, app.ID, now, now.Add(-s.accountant.Window())); err != nil {
				return s.mapApplicationError(app.ID, err, "Failed to refresh application")
			}
			app.ModifyTimestamp = now
			touched = app
			return nil
		})
	})
	if err != nil {
		s.logRejection("Application refresh rejected", err, "application_id", current.ID)
		return nil, err
	}

	s.cfg.Log.Debug("Application refreshed", "application_id", touched.ID)
	s.publish(ctx, events.TypeApplicationAmended, touched.ID, events.FromApplication(touched, touched.ModifyTimestamp))
	return touched, nil
}

// loadOpenApplication returns an application that can still change state.
func (s *reservationService) loadOpenApplication(ctx context.Context, id string) (*model.Application, error) {
	app, err := s.applications.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapApplicationError(id, err, "Failed to retrieve application")
	}
	if app.Completed {
		return nil, reservationserrors.AlreadyCompleted(app.ID, app.VisitID)
	}
	if s.accountant.IsExpired(app.ModifyTimestamp) {
		return nil, reservationserrors.Expired(app.ID)
	}
	return app, nil
}

func (s *reservationService) loadTemplate(ctx context.Context, reference string) (*model.SessionTemplate, error) {
	tpl, err := s.templates.FindByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, templateserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Session template", reference)
		}
		s.cfg.Log.Error("Failed to get session template", "reference", reference, "error", err)
		return nil, apperrors.Internal("Failed to retrieve session template", err)
	}
	return tpl, nil
}

func (s *reservationService) loadTemplateAndSnapshot(ctx context.Context, reference, prisonerID string) (*model.SessionTemplate, *model.PrisonerEligibilitySnapshot, error) {
	var tpl *model.SessionTemplate
	var snapshot *model.PrisonerEligibilitySnapshot

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tpl, err = s.loadTemplate(gctx, reference)
		return err
	})
	g.Go(func() error {
		var err error
		snapshot, err = s.snapshots.GetEligibilitySnapshot(gctx, prisonerID)
		if err != nil {
			if errors.Is(err, client.ErrPrisonerNotFound) {
				snapshot = nil
				return nil
			}
			s.cfg.Log.Error("Failed to load prisoner eligibility snapshot",
				"prisoner_id", prisonerID,
				"error", err,
			)
			return apperrors.Unavailable("prisoner service").WithCause(err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	if snapshot != nil {
		snapshot.PrisonCode = sanitizer.NormalizeCode(snapshot.PrisonCode)
		snapshot.Category = sanitizer.NormalizeCode(snapshot.Category)
		snapshot.IncentiveLevel = sanitizer.NormalizeCode(snapshot.IncentiveLevel)
		snapshot.Location = sanitizer.NormalizeLocation(snapshot.Location)
	}
	return tpl, snapshot, nil
}

// resolveSlot materialises the slot before any transaction starts. A
// duplicate key on the natural key aborts a MongoDB transaction, so the
// upsert race between pools is settled outside one.
func (s *reservationService) resolveSlot(ctx context.Context, tpl *model.SessionTemplate, date time.Time) (*model.SessionSlot, error) {
	slot, err := s.slots.GetOrCreate(ctx, tpl, date)
	if err != nil {
		s.cfg.Log.Error("Failed to resolve session slot",
			"session_template_reference", tpl.Reference,
			"session_date", model.FormatDate(date),
			"error", err,
		)
		return nil, apperrors.Internal("Failed to resolve session slot", err)
	}
	return slot, nil
}

func (s *reservationService) checkSession(tpl *model.SessionTemplate, date time.Time) error {
	if !tpl.ActiveOn(date) {
		return reservationserrors.InvalidSession(tpl.Reference, model.FormatDate(date))
	}
	return nil
}

func (s *reservationService) checkEligibility(tpl *model.SessionTemplate, snapshot *model.PrisonerEligibilitySnapshot, prisonerID string) error {
	if snapshot != nil && snapshot.PrisonCode != "" && snapshot.PrisonCode != tpl.PrisonCode {
		return reservationserrors.Ineligible(prisonerID, tpl.Reference, "prison")
	}
	decision := eligibility.Evaluate(tpl, snapshot)
	if !decision.Eligible {
		return reservationserrors.Ineligible(prisonerID, tpl.Reference, string(decision.Failed))
	}
	return nil
}

func (s *reservationService) checkDuplicate(ctx context.Context, prisonerID string, date time.Time, excludeID string) error {
	since := s.now().Add(-s.accountant.Window())
	existing, err := s.applications.FindLiveByPrisonerAndDate(ctx, prisonerID, date, since, excludeID)
	if err != nil {
		if errors.Is(err, reservationserrors.ErrNotFound) {
			return nil
		}
		return apperrors.Internal("Failed to check existing reservations", err)
	}
	return reservationserrors.DuplicateReservation(prisonerID, model.FormatDate(date), existing.Reference)
}

func (s *reservationService) checkCapacity(ctx context.Context, tpl *model.SessionTemplate, slot *model.SessionSlot, r model.Restriction, excludeID string) error {
	headroom, err := s.accountant.Check(ctx, tpl, slot, r, excludeID)
	if err != nil {
		return apperrors.Internal("Failed to compute session slot demand", err)
	}
	if !headroom.Available() {
		return reservationserrors.CapacityExceeded(slot.ID, string(r), headroom.Capacity, headroom.Demand)
	}
	return nil
}

// withLocks holds every lock in order while fn runs and releases them in
// reverse. Locks are released even when ctx has been cancelled.
func (s *reservationService) withLocks(ctx context.Context, lockIDs []string, fn func() error) error {
	type held struct{ id, token string }
	acquired := make([]held, 0, len(lockIDs))

	defer func() {
		releaseCtx := context.WithoutCancel(ctx)
		for i := len(acquired) - 1; i >= 0; i-- {
			if err := s.locker.Release(releaseCtx, acquired[i].id, acquired[i].token); err != nil {
				s.cfg.Log.Warn("Failed to release slot lock", "lock_id", acquired[i].id, "error", err)
			}
		}
	}()

	for _, id := range lockIDs {
		token, err := repository.AcquireWithRetry(ctx, s.locker, id, s.cfg.SlotLockTTL, s.cfg.SlotLockWaitTimeout)
		if err != nil {
			if errors.Is(err, reservationserrors.ErrLockHeld) ||
				errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				s.cfg.Log.Warn("Timed out waiting for slot lock", "lock_id", id, "error", err)
				return apperrors.Timeout("Timed out waiting for session slot, please retry")
			}
			s.cfg.Log.Error("Failed to acquire slot lock", "lock_id", id, "error", err)
			return apperrors.Internal("Failed to acquire session slot lock", err)
		}
		acquired = append(acquired, held{id: id, token: token})
	}

	return fn()
}

func (s *reservationService) publish(ctx context.Context, eventType, key string, payload any) {
	if err := s.publisher.Publish(ctx, eventType, key, payload); err != nil {
		s.cfg.Log.Warn("Failed to publish event", "event_type", eventType, "key", key, "error", err)
	}
}

// logRejection logs business outcomes at warn and infrastructure failures
// at error.
func (s *reservationService) logRejection(msg string, err error, args ...any) {
	args = append(args, "error", err)
	if apperrors.AsAppError(err).StatusCode() < 500 {
		s.cfg.Log.Warn(msg, args...)
		return
	}
	s.cfg.Log.Error(msg, args...)
}

func (s *reservationService) mapApplicationError(id string, err error, message string) error {
	if apperrors.IsAppError(err) {
		return err
	}
	if errors.Is(err, reservationserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Application", id)
	}
	if errors.Is(err, reservationserrors.ErrAlreadyCompleted) {
		return reservationserrors.AlreadyCompleted(id, "")
	}
	if errors.Is(err, reservationserrors.ErrExpired) {
		return reservationserrors.Expired(id)
	}
	s.cfg.Log.Error(message, "application_id", id, "error", err)
	return apperrors.Internal(message, err)
}

func (s *reservationService) mapVisitError(id string, err error, message string) error {
	if errors.Is(err, reservationserrors.ErrVisitNotFound) {
		return apperrors.NotFoundWithID("Visit", id)
	}
	s.cfg.Log.Error(message, "visit_id", id, "error", err)
	return apperrors.Internal(message, err)
}

func (s *reservationService) sanitizeRequest(req *model.ReservationRequest) {
	req.PrisonerID = sanitizer.NormalizeID(req.PrisonerID)
	req.SessionTemplateReference = sanitizer.NormalizeCode(req.SessionTemplateReference)
	req.SessionDate = strings.TrimSpace(req.SessionDate)
	req.Restriction = model.Restriction(sanitizer.NormalizeCode(string(req.Restriction)))
}

func (s *reservationService) sanitizeUpdate(update *model.ApplicationUpdate) {
	if update.Restriction != nil {
		r := model.Restriction(sanitizer.NormalizeCode(string(*update.Restriction)))
		update.Restriction = &r
	}
	if update.SessionTemplateReference != nil {
		ref := sanitizer.NormalizeCode(*update.SessionTemplateReference)
		update.SessionTemplateReference = &ref
	}
	if update.SessionDate != nil {
		date := strings.TrimSpace(*update.SessionDate)
		update.SessionDate = &date
	}
}

func samePool(a, b *model.Application) bool {
	return a.SessionTemplateReference == b.SessionTemplateReference &&
		a.SessionDate.Equal(b.SessionDate) &&
		a.Restriction == b.Restriction
}

func prisonerLockID(prisonerID string, date time.Time) string {
	return fmt.Sprintf("prisoner:%s:%s", prisonerID, model.FormatDate(date))
}

func poolLockID(templateRef string, date time.Time, r model.Restriction) string {
	return fmt.Sprintf("slot:%s:%s:%s", templateRef, model.FormatDate(date), r)
}
