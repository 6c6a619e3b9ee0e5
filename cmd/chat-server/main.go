package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sovanra-ruos/chat-service/internal/auth"
	"github.com/sovanra-ruos/chat-service/internal/cache"
	"github.com/sovanra-ruos/chat-service/internal/config"
	"github.com/sovanra-ruos/chat-service/internal/domain"
	"github.com/sovanra-ruos/chat-service/internal/handler"
	"github.com/sovanra-ruos/chat-service/internal/hub"
	"github.com/sovanra-ruos/chat-service/internal/ident"
	"github.com/sovanra-ruos/chat-service/internal/ingress"
	"github.com/sovanra-ruos/chat-service/internal/kafka"
	"github.com/sovanra-ruos/chat-service/internal/pipeline"
	"github.com/sovanra-ruos/chat-service/internal/repository"
	"github.com/sovanra-ruos/chat-service/internal/service"
	"github.com/sovanra-ruos/chat-service/internal/session"
	"github.com/sovanra-ruos/chat-service/pkg/database"
	"github.com/sovanra-ruos/chat-service/pkg/jwt"
	"github.com/sovanra-ruos/chat-service/pkg/log"
	"github.com/sovanra-ruos/chat-service/pkg/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log.Init(log.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty,
		ServiceName: "chat-service",
	})
	l := log.L()
	l.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("starting chat service")

	// Database
	db, err := database.New(&cfg.Database)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := db.AutoMigrate(
		&domain.UserModel{},
		&domain.RoomModel{},
		&domain.ParticipantModel{},
		&domain.MessageModel{},
	); err != nil {
		l.Fatal().Err(err).Msg("failed to run migrations")
	}

	users := repository.NewGormUserRepository(db)
	rooms := repository.NewGormRoomRepository(db)
	messages := repository.NewGormMessageRepository(db)

	// Cache
	store, err := cache.NewRedisStore(cache.Config{
		Address:     cfg.Redis.Address,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		PresenceTTL: cfg.Cache.PresenceTTL,
		RecentTTL:   cfg.Cache.RecentTTL,
		MarkerTTL:   cfg.Cache.MarkerTTL,
		RecentLimit: cfg.Cache.RecentLimit,
	})
	if err != nil {
		l.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer store.Close()
	l.Info().Str("address", cfg.Redis.Address).Msg("connected to redis")

	// Kafka producer
	producer, err := kafka.NewConfluentProducer(cfg.Kafka.Brokers, cfg.Kafka.ChatTopic, cfg.Kafka.PresenceTopic, cfg.Kafka.Partitions)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to create kafka producer")
	}
	defer producer.Close()
	l.Info().Str("brokers", cfg.Kafka.Brokers).Msg("connected to kafka")

	// Tokens and auth
	manager, err := jwt.NewManager(cfg.JWT.AccessDuration, cfg.JWT.RefreshDuration, cfg.JWT.Issuer)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to create jwt manager")
	}
	authSvc := auth.NewService(users, manager)
	resolver := auth.NewJWTResolver(manager)
	authMW := middleware.NewAuthMiddleware(manager)

	// Session registry and ingress validation
	registry := session.NewMemoryRegistry()
	validator := ingress.NewValidator(registry, store)

	// Event ids
	gen, err := ident.New(cfg.IDs.Scheme)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to create id generator")
	}

	// Hub
	wsHub := hub.NewHub(cfg.WebSocket)
	go wsHub.Run()

	// Services
	chatSvc := service.NewChatService(resolver, registry, validator, producer, store, rooms, messages, gen)
	roomSvc := service.NewRoomService(rooms)

	// Consumer pipeline
	processor := pipeline.NewProcessor(cfg.Kafka.ChatTopic, cfg.Kafka.PresenceTopic, messages, store, wsHub)
	consumer, err := kafka.NewConfluentConsumer(kafka.ConsumerConfig{
		Brokers:             cfg.Kafka.Brokers,
		GroupID:             cfg.Kafka.GroupID,
		Topics:              []string{cfg.Kafka.ChatTopic, cfg.Kafka.PresenceTopic},
		AutoOffsetReset:     cfg.Kafka.AutoOffsetReset,
		SessionTimeoutMs:    cfg.Kafka.SessionTimeoutMs,
		HeartbeatIntervalMs: cfg.Kafka.HeartbeatIntervalMs,
		MaxPollIntervalMs:   cfg.Kafka.MaxPollIntervalMs,
		FetchMinBytes:       cfg.Kafka.FetchMinBytes,
		FetchMaxWaitMs:      cfg.Kafka.FetchMaxWaitMs,
	}, processor)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to create kafka consumer")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := consumer.Run(ctx); err != nil {
			l.Error().Err(err).Msg("kafka consumer stopped with error")
		}
	}()

	// HTTP and WebSocket surface
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(log.GinMiddleware(l))

	handler.NewHTTPHandler(authSvc, roomSvc, chatSvc, authMW).RegisterRoutes(router)
	handler.NewWSHandler(wsHub, chatSvc, cfg.WebSocket).RegisterRoutes(router)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		l.Info().Str("addr", server.Addr).Msg("chat service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info().Msg("shutting down chat service")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("server forced to shutdown")
	}

	l.Info().Msg("chat service stopped")
}
