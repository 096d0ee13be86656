package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"visitscheduler/internal/capacity"
	reservationserrors "visitscheduler/internal/reservations/errors"
	"visitscheduler/pkg/config"
	mongotx "visitscheduler/pkg/db/mongo"
	"visitscheduler/pkg/model"
)

const (
	ApplicationsCollection = "Applications"
)

type ApplicationRepository interface {
	Create(ctx context.Context, app *model.Application) error
	FindByID(ctx context.Context, id string) (*model.Application, error)
	// FindLiveByPrisonerAndDate returns ErrNotFound when the prisoner holds no
	// uncompleted application modified at or after modifiedSince on date.
	FindLiveByPrisonerAndDate(ctx context.Context, prisonerID string, date time.Time, modifiedSince time.Time, excludeID string) (*model.Application, error)
	CountLive(ctx context.Context, q capacity.DemandQuery) (int, error)
	UpdateReservation(ctx context.Context, app *model.Application) error
	// Touch refreshes modify_timestamp only while it is at or after
	// liveSince. A lapsed application gets ErrExpired.
	Touch(ctx context.Context, id string, at time.Time, liveSince time.Time) error
	MarkCompleted(ctx context.Context, id string, visitID string, at time.Time) error
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

type mongoApplicationRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoApplicationRepository(cfg *config.Config) ApplicationRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoApplicationRepository{
		cfg:        cfg,
		collection: db.Collection(ApplicationsCollection),
	}
}

func (r *mongoApplicationRepository) Create(ctx context.Context, app *model.Application) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, app); err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	return nil
}

func (r *mongoApplicationRepository) FindByID(ctx context.Context, id string) (*model.Application, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var app model.Application
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&app)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reservationserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find application: %w", err)
	}
	return &app, nil
}

func (r *mongoApplicationRepository) FindLiveByPrisonerAndDate(ctx context.Context, prisonerID string, date time.Time, modifiedSince time.Time, excludeID string) (*model.Application, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"prisoner_id":      prisonerID,
		"session_date":     date,
		"reserved_slot":    true,
		"completed":        false,
		"modify_timestamp": bson.M{"$gte": modifiedSince},
	}
	if excludeID != "" {
		filter["_id"] = bson.M{"$ne": excludeID}
	}

	var app model.Application
	err := r.collection.FindOne(ctx, filter).Decode(&app)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reservationserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find live application: %w", err)
	}
	return &app, nil
}

func (r *mongoApplicationRepository) CountLive(ctx context.Context, q capacity.DemandQuery) (int, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"session_slot_id":  q.SessionSlotID,
		"restriction":      q.Restriction,
		"reserved_slot":    true,
		"completed":        false,
		"modify_timestamp": bson.M{"$gte": q.ModifiedSince},
	}
	if q.ExcludeApplicationID != "" {
		filter["_id"] = bson.M{"$ne": q.ExcludeApplicationID}
	}

	n, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count live applications: %w", err)
	}
	return int(n), nil
}

// UpdateReservation moves an uncompleted application to the slot, date and
// restriction held in app and refreshes its modify timestamp.
func (r *mongoApplicationRepository) UpdateReservation(ctx context.Context, app *model.Application) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": app.ID, "completed": false}
	update := bson.M{
		"$set": bson.M{
			"session_slot_id":            app.SessionSlotID,
			"session_template_reference": app.SessionTemplateReference,
			"session_date":               app.SessionDate,
			"restriction":                app.Restriction,
			"modify_timestamp":           app.ModifyTimestamp,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update application: %w", err)
	}
	if result.MatchedCount == 0 {
		return r.missOrCompleted(ctx, app.ID, reservationserrors.ErrNotFound)
	}
	return nil
}

func (r *mongoApplicationRepository) Touch(ctx context.Context, id string, at time.Time, liveSince time.Time) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "completed": false, "modify_timestamp": bson.M{"$gte": liveSince}},
		bson.M{"$set": bson.M{"modify_timestamp": at}},
	)
	if err != nil {
		return fmt.Errorf("failed to touch application: %w", err)
	}
	if result.MatchedCount == 0 {
		return r.missOrCompleted(ctx, id, reservationserrors.ErrExpired)
	}
	return nil
}

// MarkCompleted flips completed only while it is still false, so a second
// caller gets ErrAlreadyCompleted instead of overwriting the visit link.
func (r *mongoApplicationRepository) MarkCompleted(ctx context.Context, id string, visitID string, at time.Time) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "completed": false},
		bson.M{"$set": bson.M{
			"completed":        true,
			"reserved_slot":    false,
			"visit_id":         visitID,
			"modify_timestamp": at,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to complete application: %w", err)
	}
	if result.MatchedCount == 0 {
		return r.missOrCompleted(ctx, id, reservationserrors.ErrNotFound)
	}
	return nil
}

func (r *mongoApplicationRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "completed": false})
	if err != nil {
		return fmt.Errorf("failed to delete application: %w", err)
	}
	if result.DeletedCount == 0 {
		return r.missOrCompleted(ctx, id, reservationserrors.ErrNotFound)
	}
	return nil
}

func (r *mongoApplicationRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteMany(ctx, bson.M{
		"completed":        false,
		"modify_timestamp": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired applications: %w", err)
	}
	return result.DeletedCount, nil
}

// missOrCompleted tells a conditional write that matched nothing apart: the
// document is gone, it is completed, or it is still open and failed the
// write's other conditions, which is reported as open.
func (r *mongoApplicationRepository) missOrCompleted(ctx context.Context, id string, open error) error {
	opts := options.FindOne().SetProjection(bson.M{"completed": 1})
	var doc struct {
		Completed bool `bson:"completed"`
	}
	err := r.collection.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return reservationserrors.ErrNotFound
		}
		return fmt.Errorf("failed to reload application: %w", err)
	}
	if doc.Completed {
		return reservationserrors.ErrAlreadyCompleted
	}
	return open
}
