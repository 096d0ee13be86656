package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"visitscheduler/internal/capacity"
	"visitscheduler/internal/reservations/events"
	"visitscheduler/internal/reservations/repository"
	"visitscheduler/internal/reservations/service"
	"visitscheduler/internal/reservations/validator"
	templatesrepo "visitscheduler/internal/templates/repository"
	"visitscheduler/pkg/client"
	"visitscheduler/pkg/config"
	mongotx "visitscheduler/pkg/db/mongo"
)

const JobName = "application-sweeper"

func main() {
	cfg := config.Load(JobName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	sweeper := initServices(cfg)

	scheduler := cron.New(cron.WithLocation(time.UTC))
	_, err := scheduler.AddFunc(cfg.SweepSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
		defer cancel()
		if _, err := sweeper.SweepExpired(ctx, 0); err != nil {
			cfg.Log.Error("Sweep of expired applications failed", "error", err)
		}
	})
	if err != nil {
		cfg.Log.Fatal("Invalid sweep schedule", "schedule", cfg.SweepSchedule, "error", err)
	}

	cfg.Log.Info("Starting application sweeper",
		"schedule", cfg.SweepSchedule,
		"window", cfg.ApplicationValidityWindow,
	)
	scheduler.Start()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	sig := <-shutdown
	cfg.Log.Info("Shutdown signal received", "signal", sig)

	// Wait for a running sweep to finish.
	<-scheduler.Stop().Done()
	cfg.Log.Info("Application sweeper stopped")
}

// initServices builds the reservation service. Only SweepExpired is used
// here, so no events are published.
func initServices(cfg *config.Config) service.ReservationService {
	applicationRepo := repository.NewMongoApplicationRepository(cfg)
	visitRepo := repository.NewMongoVisitRepository(cfg)

	return service.NewReservationService(
		templatesrepo.NewMongoTemplateRepository(cfg),
		client.NewPrisonerClient(client.NewHttpClient(cfg.PrisonerServiceURL, cfg.PrisonerServiceTimeout)),
		applicationRepo,
		visitRepo,
		repository.NewMongoSlotRepository(cfg),
		repository.NewMongoSlotLocker(cfg),
		mongotx.NewTransactionManager(cfg.Client.Mongo),
		capacity.NewAccountant(applicationRepo, visitRepo, cfg.ApplicationValidityWindow),
		events.NoopPublisher{},
		validator.NewApplicationValidator(cfg.Log),
		cfg,
	)
}
