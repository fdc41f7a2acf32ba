package bootstrap

import (
	"context"

	"ai-assistant-client/internal/config"
	"ai-assistant-client/internal/controller"
	"ai-assistant-client/internal/pkg/logger"
	"ai-assistant-client/internal/pkg/serverutils"
	"ai-assistant-client/internal/repository/memory"
	"ai-assistant-client/internal/service"
	"ai-assistant-client/internal/websocket"
	"ai-assistant-client/pkg/events"
	"ai-assistant-client/pkg/nats"
)

type Container struct {
	// Controllers
	AssistantController controller.IAssistantController
	FileController      controller.IFileController
	JobController       controller.IJobController
	SpaceController     controller.ISpaceController
	PromptController    controller.IPromptController
	TemplateController  controller.ITemplateController
	SocketController    controller.ISocketController

	Store        *memory.Store
	Bus          *events.Bus
	WebSocketHub *websocket.Hub
	Credentials  serverutils.Credentials

	cancel  context.CancelFunc
	closers []func()
}

// NewContainer wires a seeded in-memory backend. The hub runs until Close.
func NewContainer(cfg *config.Config, sysLogger logger.ILogger) *Container {
	sysLogger = logger.OrNop(sysLogger)

	// 1. Storage
	store := memory.NewStore()
	memory.Seed(store)

	// 2. Event Bus
	bus := events.NewBus(sysLogger)

	ctx, cancel := context.WithCancel(context.Background())
	var closers []func()

	// 3. Services
	var channelBus service.EventPublisher = bus
	if cfg.DevServer.NatsURL != "" {
		if relay, stop, err := natsRelay(ctx, cfg.DevServer.NatsURL, bus, sysLogger); err != nil {
			sysLogger.Error("Container", "NATS relay disabled", map[string]interface{}{"error": err.Error()})
		} else {
			channelBus = relay
			closers = append(closers, stop)
		}
	}
	publisher := service.NewPublisherService(channelBus, sysLogger)
	assistantService := service.NewAssistantService(store)
	chatService := service.NewChatService(store, publisher)
	fileService := service.NewFileService(store)
	jobService := service.NewJobService(store, publisher, cfg.DevServer.JobDuration, sysLogger)
	spaceService := service.NewSpaceService(store)
	promptService := service.NewPromptService(store)
	templateService := service.NewTemplateService(store)

	// 4. WebSocket Hub
	wsHub := websocket.NewHub(bus, sysLogger)
	go func() {
		if err := wsHub.Run(ctx); err != nil {
			sysLogger.Error("Container", "WebSocket hub stopped", map[string]interface{}{"error": err.Error()})
		}
	}()

	creds := serverutils.Credentials{APIKey: cfg.DevServer.APIKey, JWTSecret: cfg.DevServer.JWTSecret}

	// 5. Controllers
	return &Container{
		AssistantController: controller.NewAssistantController(assistantService, chatService, creds, cfg.DevServer.ChunkDelay, sysLogger),
		FileController:      controller.NewFileController(fileService, creds),
		JobController:       controller.NewJobController(jobService, creds),
		SpaceController:     controller.NewSpaceController(spaceService, creds),
		PromptController:    controller.NewPromptController(promptService, creds),
		TemplateController:  controller.NewTemplateController(templateService, creds),
		SocketController:    controller.NewSocketController(wsHub, creds, sysLogger),

		Store:        store,
		Bus:          bus,
		WebSocketHub: wsHub,
		Credentials:  creds,
		cancel:       cancel,
		closers:      closers,
	}
}

// natsRelay publishes channel messages to NATS and feeds the ones of every
// instance into the local bus.
func natsRelay(ctx context.Context, url string, bus *events.Bus, log logger.ILogger) (service.EventPublisher, func(), error) {
	pub, err := nats.NewPublisher(url, log)
	if err != nil {
		return nil, nil, err
	}
	sub, err := nats.NewSubscriber(url, log)
	if err != nil {
		pub.Close()
		return nil, nil, err
	}
	if err := sub.Forward(ctx, bus, events.TypeChannelMessage); err != nil {
		pub.Close()
		sub.Close()
		return nil, nil, err
	}
	return pub, func() {
		sub.Close()
		pub.Close()
	}, nil
}

// Close stops the hub and the event bus.
func (c *Container) Close() error {
	c.cancel()
	for _, stop := range c.closers {
		stop()
	}
	return c.Bus.Close()
}
