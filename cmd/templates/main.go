package main

import (
	"context"

	"visitscheduler/internal/reservations/repository"
	"visitscheduler/internal/templates/handler"
	templatesrepo "visitscheduler/internal/templates/repository"
	"visitscheduler/internal/templates/service"
	"visitscheduler/internal/templates/validator"
	"visitscheduler/pkg/app"
	"visitscheduler/pkg/client"
	"visitscheduler/pkg/config"
)

const ServiceName = "session-templates"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting Session Templates service")
	templateService := initServices(cfg)
	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		map[string]app.Pinger{
			"mongo": func(ctx context.Context) error {
				return cfg.Client.Mongo.Ping(ctx, nil)
			},
		},
		handler.NewTemplateHandler(templateService, cfg.Log, cfg.MaxSessionLookaheadDays),
	)
	serverApp.Run()
}

func initServices(cfg *config.Config) service.TemplateService {
	templateService := service.NewTemplateService(
		templatesrepo.NewMongoTemplateRepository(cfg),
		client.NewPrisonerClient(client.NewHttpClient(cfg.PrisonerServiceURL, cfg.PrisonerServiceTimeout)),
		repository.NewMongoVisitRepository(cfg),
		validator.NewTemplateValidator(cfg.Log),
		validator.NewMigrationValidator(cfg.MigrationStartTimeTolerance),
		cfg,
	)

	cfg.Log.Info("Session template service initialized", "database", cfg.MongoDatabaseName)
	return templateService
}
