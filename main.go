package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	api "pushboard-backend/cmd/api"
	boardUsecase "pushboard-backend/internal/board/usecase"
	dispatchdomain "pushboard-backend/internal/dispatch/domain"
	dispatchRepo "pushboard-backend/internal/dispatch/repository"
	dispatchUsecase "pushboard-backend/internal/dispatch/usecase"
	"pushboard-backend/pkg/config"
	"pushboard-backend/pkg/database"
	"pushboard-backend/pkg/metrics"
	"pushboard-backend/pkg/realtime"

	"github.com/google/uuid"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg := config.Load()

	// The VAPID identity must be complete and a real key pair before serving
	if err := cfg.Vapid.Verify(); err != nil {
		log.Fatal("Invalid web push configuration: ", err)
	}
	log.Printf("[Push] VAPID identity loaded for %s", cfg.Vapid.ContactURI)

	m := metrics.New()

	// Delivery log: postgres when configured, in-memory otherwise
	var deliveryLog dispatchRepo.DeliveryLogRepository
	if cfg.DatabaseURL != "" {
		db, err := database.NewPostgresConnection(cfg)
		if err != nil {
			log.Fatal("Failed to connect to database:", err)
		}
		if err := db.AutoMigrate(&dispatchdomain.DeliveryRecord{}); err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		deliveryLog = dispatchRepo.NewDeliveryLogRepository(db)
	} else {
		log.Printf("[WARN] DATABASE_URL not configured, delivery log kept in memory")
		deliveryLog = dispatchRepo.NewMemoryDeliveryLog(0)
	}

	// Realtime bus: Pub/Sub when a project is configured
	var bus realtime.Bus
	if cfg.GoogleProjectID != "" {
		client, err := realtime.NewPubSubClient(ctx, cfg.GoogleProjectID, cfg.GoogleCredentials)
		if err != nil {
			log.Fatal("Failed to initialize Pub/Sub: ", err)
		}
		pubsubBus := realtime.NewPubSubBus(client, uuid.New().String()[:8])
		if err := pubsubBus.Listen(ctx, cfg.BoardChannel); err != nil {
			log.Fatal("Failed to listen on board channel: ", err)
		}
		bus = pubsubBus
		log.Printf("[PubSub] Board relayed through project %s", cfg.GoogleProjectID)
	} else {
		log.Printf("[WARN] GOOGLE_PROJECT_ID not configured, board runs in-process only")
		bus = realtime.NewBroadcaster()
	}
	// Initialize use cases (dependency injection)
	dispatchUc := dispatchUsecase.NewDispatchUsecase(cfg.Vapid, dispatchUsecase.Options{
		TTL:     cfg.PushTTL,
		Urgency: cfg.PushUrgency,
		Topic:   cfg.PushTopic,
		Timeout: cfg.PushTimeout,
	}, deliveryLog, m)
	boardUc := boardUsecase.NewBoardUsecase(bus, cfg.BoardChannel, cfg.BoardEvent, m)

	// Initialize HTTP handler
	handler := api.NewHandler(dispatchUc, boardUc, m, cfg)

	log.Printf("Server starting on port %s", cfg.Port)
	err := handler.Start(ctx, ":"+cfg.Port)

	// Removes this instance's Pub/Sub subscriptions
	if closeErr := bus.Close(); closeErr != nil {
		log.Printf("[WARN] Failed to close realtime bus: %v", closeErr)
	}
	if err != nil {
		log.Fatal("Failed to start server:", err)
	}
	log.Printf("Server stopped")
}
