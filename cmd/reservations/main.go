package main

import (
	"context"

	"visitscheduler/internal/capacity"
	"visitscheduler/internal/reservations/events"
	"visitscheduler/internal/reservations/handler"
	"visitscheduler/internal/reservations/repository"
	"visitscheduler/internal/reservations/service"
	"visitscheduler/internal/reservations/validator"
	templatesrepo "visitscheduler/internal/templates/repository"
	"visitscheduler/pkg/app"
	"visitscheduler/pkg/client"
	"visitscheduler/pkg/config"
	mongotx "visitscheduler/pkg/db/mongo"
	"visitscheduler/pkg/kafka"
	kafka_config "visitscheduler/pkg/kafka/config"
	kafka_middleware "visitscheduler/pkg/kafka/middleware"
)

const ServiceName = "reservations"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	if cfg.LockBackend == config.LockBackendRedis {
		cfg.SetRedis()
	}

	cfg.Log.Info("Starting Reservations service")
	serverApp := app.NewApplication(cfg)

	publisher := initPublisher(cfg, serverApp)
	reservationService := initServices(cfg, publisher)
	initVisitCancelledConsumer(cfg, serverApp, reservationService)

	serverApp.SetApp(healthChecks(cfg), handler.NewReservationHandler(reservationService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config, publisher events.Publisher) service.ReservationService {
	applicationRepo := repository.NewMongoApplicationRepository(cfg)
	visitRepo := repository.NewMongoVisitRepository(cfg)
	slotRepo := repository.NewMongoSlotRepository(cfg)

	var locker repository.SlotLocker
	if cfg.LockBackend == config.LockBackendRedis {
		locker = repository.NewRedisSlotLocker(cfg.Client.Redis)
	} else {
		locker = repository.NewMongoSlotLocker(cfg)
	}

	prisoners := client.NewPrisonerClient(client.NewHttpClient(cfg.PrisonerServiceURL, cfg.PrisonerServiceTimeout))

	reservationService := service.NewReservationService(
		templatesrepo.NewMongoTemplateRepository(cfg),
		prisoners,
		applicationRepo,
		visitRepo,
		slotRepo,
		locker,
		mongotx.NewTransactionManager(cfg.Client.Mongo),
		capacity.NewAccountant(applicationRepo, visitRepo, cfg.ApplicationValidityWindow),
		publisher,
		validator.NewApplicationValidator(cfg.Log),
		cfg,
	)

	cfg.Log.Info("Reservation service initialized",
		"database", cfg.MongoDatabaseName,
		"lock_backend", cfg.LockBackend,
	)
	return reservationService
}

func initPublisher(cfg *config.Config, serverApp *app.Application) events.Publisher {
	if !cfg.KafkaEnabled {
		cfg.Log.Info("Kafka disabled, application events will not be published")
		return events.NoopPublisher{}
	}

	kafkaCfg := loadKafkaConfig(cfg)
	producer, err := kafka.NewProducer(kafkaCfg, kafkaCfg.ApplicationEventsTopic, kafkaCfg.ApplicationEventsDLQ, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}

	var metrics *kafka_middleware.Metrics
	if kafkaCfg.EnableMiddleware {
		metrics = kafka_middleware.NewMetrics()
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		producer.Use(kafka_middleware.MetricsProducerMiddleware(metrics))
	}

	serverApp.OnShutdown(func(ctx context.Context) {
		if metrics != nil {
			metrics.LogMetrics(cfg.Log)
		}
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	})

	return events.NewKafkaPublisher(producer)
}

func initVisitCancelledConsumer(cfg *config.Config, serverApp *app.Application, canceller events.VisitCanceller) {
	if !cfg.KafkaEnabled {
		return
	}

	kafkaCfg := loadKafkaConfig(cfg)
	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		kafkaCfg.VisitCancelledTopic,
		kafkaCfg.ConsumerGroupID,
		kafkaCfg.VisitCancelledDLQ,
		events.NewVisitCancelledHandler(canceller, cfg.Log),
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
			cfg.Log.Error("Visit cancelled consumer stopped", "error", err)
		}
	}()

	serverApp.OnShutdown(func(context.Context) {
		cancel()
		if err := consumer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka consumer", "error", err)
		}
	})
}

func loadKafkaConfig(cfg *config.Config) *kafka_config.Config {
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)
	return kafkaCfg
}

func healthChecks(cfg *config.Config) map[string]app.Pinger {
	checks := map[string]app.Pinger{
		"mongo": func(ctx context.Context) error {
			return cfg.Client.Mongo.Ping(ctx, nil)
		},
	}
	if cfg.Client.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return cfg.Client.Redis.Ping(ctx).Err()
		}
	}
	return checks
}
