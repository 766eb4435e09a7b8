package main

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"

	"arkham-nexus/internal/clock"
	"arkham-nexus/internal/config"
	"arkham-nexus/internal/domain/availability"
	"arkham-nexus/internal/domain/outbox"
	"arkham-nexus/internal/domain/poll"
	"arkham-nexus/internal/domain/schedule"
	"arkham-nexus/internal/domain/user"
	"arkham-nexus/internal/events"
	"arkham-nexus/internal/handler"
	outboxproc "arkham-nexus/internal/outbox"
	"arkham-nexus/internal/recurrence"
	"arkham-nexus/internal/repository"
	"arkham-nexus/internal/scheduler"
	"arkham-nexus/internal/server"
	"arkham-nexus/internal/services"
	"arkham-nexus/pkg/database"
	"arkham-nexus/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	l := logger.New(cfg.Server.Environment)
	logger.SetGlobalLogger(l)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := database.ApplyRawMigrations(db, "migrations"); err != nil {
		log.Fatalf("Failed to apply raw migrations: %v", err)
	}
	if err := db.AutoMigrate(
		&user.User{},
		&user.Group{},
		&user.GroupMember{},
		&schedule.Series{},
		&schedule.Occurrence{},
		&schedule.Session{},
		&poll.DatePoll{},
		&poll.DatePollOption{},
		&poll.DatePollVote{},
		&poll.DatePollComment{},
		&availability.SessionAvailability{},
		&outbox.OutboxEvent{},
	); err != nil {
		log.Fatalf("Failed to apply GORM migrations: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	bus := events.NewRedisBus(redisClient)

	clk := clock.NewSystem(cfg.Scheduler.Timezone)
	resolver := recurrence.NewResolver(clk.Location())

	userRepo := repository.NewUserRepository(db)
	seriesRepo := repository.NewSeriesRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	pollRepo := repository.NewPollRepository(db)
	availRepo := repository.NewAvailabilityRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)

	authService := services.NewAuthService(userRepo, cfg)
	groupService := services.NewGroupService(userRepo)
	seriesService := services.NewSeriesService(seriesRepo, sessionRepo, groupService, resolver, clk)
	sessionService := services.NewSessionService(sessionRepo, groupService)
	pollService := services.NewPollService(pollRepo, userRepo, groupService, clk, l)
	availService := services.NewAvailabilityService(availRepo, sessionRepo, seriesRepo, groupService)
	orchestrator := services.NewOrchestrator(seriesRepo, resolver, l, cfg.Scheduler.DefaultHorizonWeeks)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	processor := outboxproc.DefaultProcessor(outboxRepo, bus, l)
	processor.Start(ctx)

	hub := server.NewHub(bus, userRepo)
	go hub.Run(ctx)

	ticker := scheduler.NewTicker(orchestrator, pollService, clk, l, cfg.Scheduler.TickSpec)
	if err := ticker.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	srv := server.New(cfg, l, db)
	srv.SetupRoutes(&server.Handlers{
		Auth:         handler.NewAuthHandler(authService),
		Group:        handler.NewGroupHandler(groupService, sessionService),
		Series:       handler.NewSeriesHandler(seriesService, orchestrator, clk),
		Session:      handler.NewSessionHandler(sessionService),
		Poll:         handler.NewPollHandler(pollService),
		Availability: handler.NewAvailabilityHandler(availService),
		Stream:       server.NewWebSocketHandler(hub, authService),
	}, authService)

	if err := srv.Start(); err != nil {
		l.Errorf("Server exited with error: %s", err)
	}

	ticker.Stop()
	hub.Stop()
}
