package bootstrap

import (
	"context"
	"time"

	"podcast-studio-be/internal/config"
	"podcast-studio-be/internal/controller"
	"podcast-studio-be/internal/handler"
	"podcast-studio-be/internal/pkg/logger"
	"podcast-studio-be/internal/repository/implementation"
	"podcast-studio-be/internal/repository/memory"
	"podcast-studio-be/internal/service"
	"podcast-studio-be/internal/websocket"
	"podcast-studio-be/pkg/contentapi"
	"podcast-studio-be/pkg/events"
	pktNats "podcast-studio-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ComposerController controller.IComposerController

	// WebSockets
	ComposerWsHandler *handler.ComposerWsHandler
	WebSocketHub      *websocket.Hub

	// Background Services (started by Start)
	AggregateRelay service.IAggregateRelayService
	PodcastLedger  service.IPodcastLedgerService

	logger  logger.ILogger
	closers []func()
}

func NewContainer(db *gorm.DB, cfg *config.Config, sysLogger logger.ILogger) *Container {
	c := &Container{logger: sysLogger}

	// 1. Upstream content API
	contentClient := contentapi.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.Token, cfg.Upstream.Timeout)

	// 2. In-process bus for live aggregates
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. NATS (submission events). Without it the ledger is written directly.
	var publisher events.Publisher
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		sysLogger.Warn("Container", "Failed to connect NATS publisher", map[string]interface{}{"error": err.Error()})
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := natsPub.EnsureStream(ctx); err != nil {
			sysLogger.Warn("Container", "Failed to ensure NATS stream", map[string]interface{}{"error": err.Error()})
		}
		cancel()
		publisher = natsPub
		c.closers = append(c.closers, natsPub.Close)
	}

	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL, func(subject string, err error) {
		sysLogger.Warn("NatsSubscriber", "Event handling failed", map[string]interface{}{
			"subject": subject,
			"error":   err.Error(),
		})
	})
	if err != nil {
		sysLogger.Warn("Container", "Failed to connect NATS subscriber", map[string]interface{}{"error": err.Error()})
		natsSub = nil
	} else {
		c.closers = append(c.closers, natsSub.Close)
	}

	// 4. Redis for cross-instance websocket fan-out
	rdb := newRedisClient(cfg.App.RedisURL, sysLogger)
	if rdb != nil {
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	// 5. WebSocket hub with its dedicated logger
	wsLogger := logger.NewIsolatedLogger(cfg.App.WsLogFilePath)
	c.WebSocketHub = websocket.NewHub(rdb, wsLogger)

	// 6. Services
	sessionRepo := memory.NewSessionRepository(cfg.Composer.SessionTTL)
	submissionRepo := implementation.NewPodcastSubmissionRepository(db)

	c.AggregateRelay = service.NewAggregateRelayService(pubSub, cfg.Composer.AggregateTopic, c.WebSocketHub, wsLogger)
	c.PodcastLedger = service.NewPodcastLedgerService(submissionRepo, natsSub, sysLogger)

	composerService := service.NewComposerService(
		contentClient,
		sessionRepo,
		c.AggregateRelay,
		publisher,
		c.PodcastLedger,
		cfg.Composer,
		sysLogger,
	)

	// 7. Transport
	c.ComposerController = controller.NewComposerController(composerService)
	c.ComposerWsHandler = handler.NewComposerWsHandler(composerService, c.WebSocketHub, wsLogger)

	return c
}

// Start runs the background workers until ctx is cancelled.
func (c *Container) Start(ctx context.Context) error {
	go c.WebSocketHub.Run(ctx)

	if err := c.AggregateRelay.Consume(ctx); err != nil {
		return err
	}

	if err := c.PodcastLedger.Start(ctx); err != nil {
		c.logger.Warn("Container", "Podcast ledger consumer not started, recording directly", map[string]interface{}{"error": err.Error()})
	}
	return nil
}

func (c *Container) Close() {
	c.PodcastLedger.Stop()
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func newRedisClient(url string, log logger.ILogger) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Warn("Container", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("Container", "Redis unavailable, websocket fan-out is local only", map[string]interface{}{"error": err.Error()})
		_ = rdb.Close()
		return nil
	}
	return rdb
}
