package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	reservationserrors "visitscheduler/internal/reservations/errors"
	"visitscheduler/pkg/config"
	mongotx "visitscheduler/pkg/db/mongo"
	"visitscheduler/pkg/model"
)

const (
	VisitsCollection = "Visits"
)

type VisitRepository interface {
	Create(ctx context.Context, visit *model.Visit) error
	FindByID(ctx context.Context, id string) (*model.Visit, error)
	FindByApplicationID(ctx context.Context, applicationID string) (*model.Visit, error)
	CountBooked(ctx context.Context, sessionSlotID string, restriction model.Restriction) (int, error)
	// Cancel sets status CANCELLED. changed is false when the visit was
	// already cancelled.
	Cancel(ctx context.Context, id string, at time.Time) (visit *model.Visit, changed bool, err error)
	StatsForTemplate(ctx context.Context, templateRef string, from time.Time) (*model.SessionTemplateVisitStats, error)
}

type mongoVisitRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoVisitRepository(cfg *config.Config) VisitRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoVisitRepository{
		cfg:        cfg,
		collection: db.Collection(VisitsCollection),
	}
}

func (r *mongoVisitRepository) Create(ctx context.Context, visit *model.Visit) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, visit); err != nil {
		return fmt.Errorf("failed to create visit: %w", err)
	}
	return nil
}

func (r *mongoVisitRepository) FindByID(ctx context.Context, id string) (*model.Visit, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoVisitRepository) FindByApplicationID(ctx context.Context, applicationID string) (*model.Visit, error) {
	return r.findOne(ctx, bson.M{"application_id": applicationID})
}

func (r *mongoVisitRepository) findOne(ctx context.Context, filter bson.M) (*model.Visit, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var visit model.Visit
	err := r.collection.FindOne(ctx, filter).Decode(&visit)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reservationserrors.ErrVisitNotFound
		}
		return nil, fmt.Errorf("failed to find visit: %w", err)
	}
	return &visit, nil
}

func (r *mongoVisitRepository) CountBooked(ctx context.Context, sessionSlotID string, restriction model.Restriction) (int, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	n, err := r.collection.CountDocuments(ctx, bson.M{
		"session_slot_id": sessionSlotID,
		"restriction":     restriction,
		"status":          model.VisitBooked,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count booked visits: %w", err)
	}
	return int(n), nil
}

func (r *mongoVisitRepository) Cancel(ctx context.Context, id string, at time.Time) (*model.Visit, bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var visit model.Visit
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": model.VisitBooked},
		bson.M{"$set": bson.M{"status": model.VisitCancelled, "cancelled_at": at}},
		opts,
	).Decode(&visit)
	if err == nil {
		return &visit, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, fmt.Errorf("failed to cancel visit: %w", err)
	}

	existing, findErr := r.FindByID(ctx, id)
	if findErr != nil {
		return nil, false, findErr
	}
	return existing, false, nil
}

type dateCountRow struct {
	Date   time.Time `bson:"_id"`
	Open   int       `bson:"open"`
	Closed int       `bson:"closed"`
}

// StatsForTemplate aggregates booked visits per session date on or after from.
func (r *mongoVisitRepository) StatsForTemplate(ctx context.Context, templateRef string, from time.Time) (*model.SessionTemplateVisitStats, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	countOf := func(restriction model.Restriction) bson.M {
		return bson.M{"$sum": bson.M{"$cond": bson.A{
			bson.M{"$eq": bson.A{"$restriction", restriction}}, 1, 0,
		}}}
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"session_template_reference": templateRef,
			"status":                     model.VisitBooked,
			"session_date":               bson.M{"$gte": model.DateOf(from)},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":    "$session_date",
			"open":   countOf(model.RestrictionOpen),
			"closed": countOf(model.RestrictionClosed),
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate visit stats: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []dateCountRow
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode visit stats: %w", err)
	}

	stats := &model.SessionTemplateVisitStats{
		TemplateReference: templateRef,
		VisitsByDate:      make([]model.DateVisitCount, 0, len(rows)),
	}
	for _, row := range rows {
		c := model.DateVisitCount{Date: row.Date.UTC(), Open: row.Open, Closed: row.Closed}
		stats.VisitCount += c.Total()
		stats.VisitsByDate = append(stats.VisitsByDate, c)
	}
	return stats, nil
}
