package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	reservationserrors "visitscheduler/internal/reservations/errors"
	"visitscheduler/pkg/config"
	mongotx "visitscheduler/pkg/db/mongo"
	"visitscheduler/pkg/model"
)

const (
	SessionSlotsCollection = "Session_slots"
)

type SlotRepository interface {
	// GetOrCreate returns the slot for the template's session on date,
	// creating it on first use. Concurrent callers get the same slot. Call it
	// outside transactions: the duplicate-key fallback cannot run in an
	// aborted one.
	GetOrCreate(ctx context.Context, tpl *model.SessionTemplate, date time.Time) (*model.SessionSlot, error)
	FindByID(ctx context.Context, id string) (*model.SessionSlot, error)
}

type mongoSlotRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoSlotRepository(cfg *config.Config) SlotRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSlotRepository{
		cfg:        cfg,
		collection: db.Collection(SessionSlotsCollection),
	}
}

func slotKey(tpl *model.SessionTemplate, date time.Time) bson.M {
	return bson.M{
		"session_template_reference": tpl.Reference,
		"slot_date":                  model.DateOf(date),
		"start_time":                 tpl.StartTime,
		"end_time":                   tpl.EndTime,
	}
}

func (r *mongoSlotRepository) GetOrCreate(ctx context.Context, tpl *model.SessionTemplate, date time.Time) (*model.SessionSlot, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	id := uuid.NewString()
	filter := slotKey(tpl, date)
	update := bson.M{"$setOnInsert": bson.M{
		"_id":         id,
		"reference":   id,
		"prison_code": tpl.PrisonCode,
		"created_at":  time.Now().UTC().Truncate(time.Millisecond),
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var slot model.SessionSlot
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&slot)
	if err == nil {
		return &slot, nil
	}
	// two upserts racing on the unique natural key: the loser reads the winner
	if !mongotx.IsDuplicateKey(err) {
		return nil, fmt.Errorf("failed to get or create session slot: %w", err)
	}
	if err := r.collection.FindOne(ctx, filter).Decode(&slot); err != nil {
		return nil, fmt.Errorf("failed to reload session slot: %w", err)
	}
	return &slot, nil
}

func (r *mongoSlotRepository) FindByID(ctx context.Context, id string) (*model.SessionSlot, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var slot model.SessionSlot
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&slot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reservationserrors.ErrSlotNotFound
		}
		return nil, fmt.Errorf("failed to find session slot: %w", err)
	}
	return &slot, nil
}
