package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ChatWave/server/internal/config"
	"ChatWave/server/internal/crypto"
	"ChatWave/server/internal/db"
	"ChatWave/server/internal/handlers"
	"ChatWave/server/internal/realtime"
	"ChatWave/server/internal/services"
	"ChatWave/server/internal/storage/postgres"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Invalid REDIS_URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Printf("Redis unavailable, presence mirroring disabled: %v", err)
			redisClient = nil
		}
	}

	cipher, err := crypto.NewCipher(cfg.EncryptionKey)
	if err != nil {
		log.Fatalf("Failed to initialize message cipher: %v", err)
	}

	store := postgres.New(pool)
	clock := clockwork.NewRealClock()

	hub := realtime.NewHub()
	presence := realtime.NewPresence(store, hub, redisClient, clock, cfg.AwayTimeout, cfg.OfflineGrace, cfg.PresenceTTL)
	typing := realtime.NewTypingTracker(hub, clock, cfg.TypingTimeout)
	gateway := realtime.NewGateway(hub, presence, typing, store)

	jwtSecret := []byte(cfg.JWTSecret)
	userService := services.NewUserService(store, jwtSecret, cfg.TokenTTL)
	chatService := services.NewChatService(store, cipher, hub)
	friendService := services.NewFriendService(store, hub)
	groupService := services.NewGroupService(store, hub, chatService)

	router := handlers.NewRouter(handlers.Deps{
		Auth:      handlers.NewAuthHandler(userService),
		Users:     handlers.NewUserHandler(userService),
		Chats:     handlers.NewChatHandler(chatService),
		Messages:  handlers.NewMessageHandler(chatService),
		Friends:   handlers.NewFriendHandler(friendService),
		Groups:    handlers.NewGroupHandler(groupService),
		WebSocket: handlers.NewWebSocketHandler(gateway, jwtSecret),
		JWTSecret: jwtSecret,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Server started on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Stopping the server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}
	if redisClient != nil {
		redisClient.Close()
	}
	log.Println("Server has been successfully stopped")
}
