package bootstrap

import (
	"context"
	"log"

	"essay-coach-be/internal/config"
	"essay-coach-be/internal/constant"
	"essay-coach-be/internal/controller"
	"essay-coach-be/internal/pkg/logger"
	"essay-coach-be/internal/pkg/serverutils"
	"essay-coach-be/internal/repository/cache"
	"essay-coach-be/internal/repository/memory"
	"essay-coach-be/internal/repository/unitofwork"
	"essay-coach-be/internal/service"
	"essay-coach-be/pkg/coach/prompt"
	"essay-coach-be/pkg/coach/session"
	"essay-coach-be/pkg/events"
	"essay-coach-be/pkg/identity"
	"essay-coach-be/pkg/llm/factory"
	"essay-coach-be/pkg/metrics"
	"essay-coach-be/pkg/timefmt"

	pktNats "essay-coach-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AuthController  controller.IAuthController
	ChatController  controller.IChatController
	AdminController controller.IAdminController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	Logger logger.ILogger

	closers []func()
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	llmLogger := logger.NewIsolatedLogger(cfg.App.LLMLogFilePath)

	clock, err := timefmt.NewFormatter(cfg.App.Timezone)
	if err != nil {
		log.Fatalf("[FATAL] Invalid APP_TIMEZONE %q: %v", cfg.App.Timezone, err)
	}

	c := &Container{Logger: sysLogger}

	// 2. Event Bus
	bus := events.NewBus(watermill.NewStdLogger(false, false))
	c.closers = append(c.closers, func() { _ = bus.Close() })
	publisher := events.Fanout{bus}

	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(context.Background(), cfg.App.NatsURL)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to connect to NATS Publisher", map[string]interface{}{"error": err.Error()})
		} else {
			publisher = append(publisher, natsPub)
			c.closers = append(c.closers, natsPub.Close)
		}
	}

	// 3. Conversation list cache
	var listCache cache.ConversationListCache
	if cfg.Cache.Driver == "redis" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb := redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to connect to Redis, falling back to memory cache", map[string]interface{}{"error": err.Error()})
			_ = rdb.Close()
			listCache = cache.NewMemoryListCache(cfg.Cache.ConversationTTL)
		} else {
			listCache = cache.NewRedisListCache(rdb, cfg.Cache.ConversationTTL, sysLogger)
			c.closers = append(c.closers, func() { _ = rdb.Close() })
		}
	} else {
		listCache = cache.NewMemoryListCache(cfg.Cache.ConversationTTL)
	}

	// 4. Model provider
	llmProvider, err := factory.NewLLMProvider(factory.Config{
		Provider:      cfg.Ai.LLMProvider,
		Model:         cfg.Ai.LLMModel,
		OpenAIKey:     cfg.Keys.OpenAI,
		OpenAIBaseURL: cfg.Keys.OpenAIBaseURL,
		OllamaBaseURL: cfg.Ai.OllamaBaseURL,
	})
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	sysLogger.Info("BOOTSTRAP", "LLM provider ready", map[string]interface{}{"provider": llmProvider.Name()})

	assembler := prompt.NewAssembler(prompt.Config{
		PersonaInstructions: constant.CoachPersonaInstructions,
		ReviewInstructions:  constant.CoachReviewInstructions,
		Greeting:            constant.CoachGreeting,
		Disclaimer:          constant.ReviewDisclaimer,
		Keywords:            cfg.Ai.ReviewKeywords,
		Coaching:            prompt.Budget{MaxTokens: cfg.Ai.CoachingMaxTokens, WindowTurns: cfg.Ai.CoachingWindowTurns},
		Review:              prompt.Budget{MaxTokens: cfg.Ai.ReviewMaxTokens, WindowTurns: cfg.Ai.ReviewWindowTurns},
	})

	// 5. Services
	m := metrics.NewMetrics(prometheus.DefaultRegisterer)
	sessions := session.NewManager(
		uowFactory,
		memory.NewSessionRepository(cfg.Chat.SessionTTL),
		listCache,
		clock,
		publisher,
		m,
		sysLogger,
		session.Config{
			Greeting:   constant.CoachGreeting,
			PageSize:   cfg.Chat.ConversationsPerPage,
			TitleWords: cfg.Ai.TitleWords,
		},
	)

	authService := service.NewAuthService(identity.NewLocalProvider(uowFactory), sessions, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, sysLogger)
	chatService := service.NewChatService(sessions, assembler, llmProvider, clock, publisher, m, sysLogger, llmLogger,
		service.ChatOptions{Model: cfg.Ai.LLMModel, Timeout: cfg.Ai.Timeout})
	adminService := service.NewAdminService(uowFactory, sessions, clock, publisher, m, sysLogger)

	// 6. Controllers
	authMw := serverutils.JwtMiddleware(cfg.Auth.JWTSecret)
	rateLimit := serverutils.RateLimiter(cfg.Chat.RateLimitRPS, cfg.Chat.RateLimitBurst)

	c.AuthController = controller.NewAuthController(authService, authMw)
	c.ChatController = controller.NewChatController(chatService, authMw, rateLimit)
	c.AdminController = controller.NewAdminController(adminService, authMw)
	c.ConsumerService = service.NewConsumerService(bus, sessions, sysLogger)

	return c
}

// Close releases broker and cache connections, newest first.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}
