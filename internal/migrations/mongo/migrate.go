package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"visitscheduler/internal/migrations/mongo/validators"
	reservationsrepo "visitscheduler/internal/reservations/repository"
	templatesrepo "visitscheduler/internal/templates/repository"
	"visitscheduler/pkg/logger"
)

var (
	SessionTemplatesIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "reference", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{
			{Key: "prison_code", Value: 1},
			{Key: "valid_from", Value: 1},
			{Key: "valid_to", Value: 1},
		}},
	}

	SessionSlotsIndexes = []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "session_template_reference", Value: 1},
				{Key: "slot_date", Value: 1},
				{Key: "start_time", Value: 1},
				{Key: "end_time", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "reference", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	ApplicationsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "session_slot_id", Value: 1},
			{Key: "restriction", Value: 1},
			{Key: "completed", Value: 1},
			{Key: "modify_timestamp", Value: 1},
		}},
		{Keys: bson.D{
			{Key: "prisoner_id", Value: 1},
			{Key: "session_date", Value: 1},
			{Key: "completed", Value: 1},
		}},
		{Keys: bson.D{
			{Key: "completed", Value: 1},
			{Key: "modify_timestamp", Value: 1},
		}},
	}

	VisitsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "session_slot_id", Value: 1},
			{Key: "restriction", Value: 1},
			{Key: "status", Value: 1},
		}},
		{Keys: bson.D{
			{Key: "session_template_reference", Value: 1},
			{Key: "status", Value: 1},
			{Key: "session_date", Value: 1},
		}},
		{
			Keys:    bson.D{{Key: "application_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	// Mongo removes expired locks on its own; Acquire still checks expires_at
	// because the TTL monitor only runs once a minute.
	SlotLocksIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}
)

type CollectionDef struct {
	Name      string
	Indexes   []mongo.IndexModel
	Validator bson.M
}

func Collections() []CollectionDef {
	return []CollectionDef{
		{Name: templatesrepo.CollectionName, Indexes: SessionTemplatesIndexes, Validator: validators.SessionTemplateValidator},
		{Name: reservationsrepo.SessionSlotsCollection, Indexes: SessionSlotsIndexes, Validator: validators.SessionSlotValidator},
		{Name: reservationsrepo.ApplicationsCollection, Indexes: ApplicationsIndexes, Validator: validators.ApplicationValidator},
		{Name: reservationsrepo.VisitsCollection, Indexes: VisitsIndexes, Validator: validators.VisitValidator},
		{Name: reservationsrepo.SlotLocksCollection, Indexes: SlotLocksIndexes, Validator: validators.SlotLockValidator},
	}
}

func RunMigration(ctx context.Context, db *mongo.Database, log *logger.Logger) error {
	log.Info("Running Mongo migrations", "database", db.Name())

	for _, def := range Collections() {
		if err := ensureCollection(ctx, db, def.Name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", def.Name, err)
		}
		if err := ensureIndexes(ctx, db, def.Name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", def.Name, err)
		}
	}

	log.Info("All migrations applied successfully")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	log.Info("Collection already exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	if len(models) == 0 {
		return nil
	}
	names, err := db.Collection(name).Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "indexes", names)
	return nil
}
