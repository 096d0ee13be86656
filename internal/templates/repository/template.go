package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	templateserrors "visitscheduler/internal/templates/errors"
	"visitscheduler/pkg/config"
	mongotx "visitscheduler/pkg/db/mongo"
	"visitscheduler/pkg/model"
)

const (
	CollectionName = "Session_templates"
)

type TemplateRepository interface {
	Create(ctx context.Context, tpl *model.SessionTemplate) error
	FindByReference(ctx context.Context, reference string) (*model.SessionTemplate, error)
	// FindActiveForPrison returns templates whose valid range overlaps [from, to].
	FindActiveForPrison(ctx context.Context, prisonCode string, from, to time.Time) ([]*model.SessionTemplate, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.SessionTemplate, error)
	Count(ctx context.Context) (int64, error)
}

type mongoTemplateRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoTemplateRepository(cfg *config.Config) TemplateRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoTemplateRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoTemplateRepository) Create(ctx context.Context, tpl *model.SessionTemplate) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	tpl.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if _, err := r.collection.InsertOne(ctx, tpl); err != nil {
		if mongotx.IsDuplicateKey(err) {
			return fmt.Errorf("%w: %s", templateserrors.ErrDuplicateReference, tpl.Reference)
		}
		return fmt.Errorf("failed to create session template: %w", err)
	}
	return nil
}

func (r *mongoTemplateRepository) FindByReference(ctx context.Context, reference string) (*model.SessionTemplate, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var tpl model.SessionTemplate
	err := r.collection.FindOne(ctx, bson.M{"reference": reference}).Decode(&tpl)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, templateserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find session template: %w", err)
	}
	return &tpl, nil
}

func (r *mongoTemplateRepository) FindActiveForPrison(ctx context.Context, prisonCode string, from, to time.Time) ([]*model.SessionTemplate, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"prison_code": prisonCode,
		"valid_from":  bson.M{"$lte": to},
		"$or": bson.A{
			bson.M{"valid_to": bson.M{"$exists": false}},
			bson.M{"valid_to": nil},
			bson.M{"valid_to": bson.M{"$gte": model.DateOf(from)}},
		},
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "day_of_week", Value: 1},
		{Key: "start_time", Value: 1},
	})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find session templates: %w", err)
	}
	defer cursor.Close(ctx)

	var templates []*model.SessionTemplate
	if err = cursor.All(ctx, &templates); err != nil {
		return nil, fmt.Errorf("failed to decode session templates: %w", err)
	}
	return templates, nil
}

func (r *mongoTemplateRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.SessionTemplate, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "prison_code", Value: 1}, {Key: "reference", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find session templates: %w", err)
	}
	defer cursor.Close(ctx)

	var templates []*model.SessionTemplate
	if err = cursor.All(ctx, &templates); err != nil {
		return nil, fmt.Errorf("failed to decode session templates: %w", err)
	}
	return templates, nil
}

func (r *mongoTemplateRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count session templates: %w", err)
	}
	return count, nil
}
