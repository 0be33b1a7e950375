package bootstrap

import (
	"context"
	"log"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"draco-chat-be/internal/config"
	"draco-chat-be/internal/controller"
	"draco-chat-be/internal/pkg/logger"
	"draco-chat-be/internal/repository/memory"
	"draco-chat-be/internal/repository/unitofwork"
	"draco-chat-be/internal/service"
	"draco-chat-be/internal/websocket"

	pktNats "draco-chat-be/pkg/nats"
)

type Container struct {
	// Controllers
	ModelController controller.IModelController
	ChatController  controller.IChatController
	DebugController controller.IDebugController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets
	WebSocketHub *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 2.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// WebSocket Hub
	wsHub := websocket.NewHub(rdb, sysLogger)
	go wsHub.Run()

	// In-Memory Stores
	providerCache := memory.NewProviderCache()
	runRegistry := memory.NewRunRegistry()

	// 3. Services
	publisherService := service.NewPublisherService(cfg.App.PersistTopicName, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.App.PersistTopicName,
		uowFactory,
		natsPub,
	)

	modelService := service.NewModelService(&cfg.Models, providerCache, rdb, sysLogger)
	chatService := service.NewChatService(uowFactory, modelService, natsPub, sysLogger)
	debugService := service.NewDebugService(
		&cfg.Models,
		uowFactory,
		modelService,
		publisherService,
		runRegistry,
		wsHub,
		sysLogger,
	)

	// 4. Controllers
	return &Container{
		ModelController: controller.NewModelController(modelService),
		ChatController:  controller.NewChatController(chatService),
		DebugController: controller.NewDebugController(debugService, wsHub, sysLogger),
		ConsumerService: consumerService,
		WebSocketHub:    wsHub,
	}
}
