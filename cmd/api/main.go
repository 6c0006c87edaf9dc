package main

import (
	"context"
	"log"

	"supporthub/config"
	"supporthub/internal/domain/channel"
	"supporthub/internal/events"
	"supporthub/internal/handler"
	"supporthub/internal/platform"
	"supporthub/internal/platform/graph"
	"supporthub/internal/redis"
	"supporthub/internal/repository"
	"supporthub/internal/server"
	"supporthub/internal/services"
	"supporthub/internal/storage"
	"supporthub/internal/webhook"
	"supporthub/internal/websocket"
	"supporthub/pkg/database"
	"supporthub/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	mode := logger.DevelopmentMode
	if cfg.AppMode == server.ReleaseMode {
		mode = logger.ProductionMode
	}
	l := logger.New(mode)

	database.Connect(cfg)
	store := repository.NewStore(database.DB)

	redisClient := redis.NewClient(redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()

	dedup := redis.NewDedupStore(redisClient, redis.DefaultDedupConfig())

	bus := events.NewRedisBus(redisClient)

	var blobs storage.BlobStore
	if cfg.S3Bucket != "" {
		s3Client, err := storage.NewClient(context.Background(), storage.S3Config{
			Region:     cfg.S3Region,
			Bucket:     cfg.S3Bucket,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			Endpoint:   cfg.S3Endpoint,
			PublicBase: cfg.S3PublicBase,
		})
		if err != nil {
			log.Fatalf("Failed to set up blob storage: %v", err)
		}
		blobs = s3Client
	} else {
		l.Warnf("S3_BUCKET not set, agent attachment uploads are disabled")
	}

	// One Graph client serves both platforms; the channel kind only
	// changes which flow the token dance follows.
	graphClient := graph.NewClient(graph.Config{
		BaseURL:   cfg.MetaGraphBase,
		AppID:     cfg.MetaAppID,
		AppSecret: cfg.MetaAppSecret,
		Timeout:   cfg.PlatformHTTPTimeout,
	})
	profiles := map[channel.Kind]platform.ProfileAPI{
		channel.KindInstagram: graphClient,
		channel.KindMessenger: graphClient,
	}
	senders := map[channel.Kind]platform.SendAPI{
		channel.KindInstagram: graphClient,
		channel.KindMessenger: graphClient,
	}
	oauth := map[channel.Kind]platform.OAuthAPI{
		channel.KindInstagram: graphClient,
		channel.KindMessenger: graphClient,
	}

	registry := webhook.NewRegistry()
	registry.MustRegister(webhook.NewInstagramNormalizer())
	registry.MustRegister(webhook.NewMessengerNormalizer())

	tokens := services.NewTokenService(store, oauth, bus, l)
	contacts := services.NewContactResolver(store, profiles, tokens, l)
	conversations := services.NewConversationResolver(l)
	builder := services.NewMessageBuilder(blobs, l)
	ingest := services.NewIngestService(store, registry, contacts, conversations, builder, dedup, bus, l)
	delivery := services.NewDeliveryService(store, senders, tokens, bus, l)
	replies := services.NewReplyService(store, builder, bus, l)

	hub := websocket.NewHub()
	push := websocket.Bridge(hub, l)
	bus.Subscribe(events.TypeMessageCreated, push)
	bus.Subscribe(events.TypeMessageUpdated, push)
	bus.Subscribe(events.TypeConversationCreated, push)
	bus.Subscribe(events.TypeChannelReauthorization, push)
	if err := bus.Start(); err != nil {
		log.Fatalf("Failed to start event bus: %v", err)
	}
	defer bus.Stop()

	worker := services.NewTaskWorker(store, delivery, l)
	worker.Start()
	defer worker.Stop()

	// Batches ack before they are processed; drain in-flight batches on
	// shutdown before the worker and bus go down.
	defer ingest.Wait()

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{
		Webhook:   handler.NewWebhookHandler(ingest, cfg.WebhookVerifyToken, l),
		OAuth:     handler.NewOAuthHandler(tokens, cfg.OAuthRedirectURI, l),
		Reply:     handler.NewReplyHandler(replies),
		WebSocket: websocket.NewHandler(hub, cfg.JWTSecret, l),
	}, redisClient)

	if err := srv.Start(); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}
}
