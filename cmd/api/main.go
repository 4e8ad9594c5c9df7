package main

import (
	"context"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"plantai/api/internal/accounts"
	"plantai/api/internal/app"
	"plantai/api/internal/augment"
	"plantai/api/internal/classify"
	"plantai/api/internal/config"
	"plantai/api/internal/session"
	"plantai/api/internal/storage"
	"plantai/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	var dataStore store.Store
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database connection failed: %v", err)
		}
		defer db.Close()

		if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
			log.Fatalf("migrations failed: %v", err)
		}
		dataStore = store.NewPostgresStore(db)
	} else {
		log.Printf("DATABASE_URL not set, using in-memory store")
		dataStore = store.NewMemoryStore()
	}

	var sessions store.SessionStore = dataStore
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for refresh token storage")
		redisStore, err := session.NewRedisStore(cfg.RedisURL, dataStore)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisStore.Close()
		sessions = redisStore
	}

	var images storage.ImageStore
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		log.Printf("Using MinIO for image storage")
		minioStore, err := storage.NewMinioStore(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatalf("minio connection failed: %v", err)
		}
		images = minioStore
	} else {
		localStore, err := storage.NewLocalStore(cfg.UploadDir)
		if err != nil {
			log.Fatalf("upload dir setup failed: %v", err)
		}
		images = localStore
	}

	var augmenter augment.Augmenter
	if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		gemini, err := augment.NewGeminiAugmenter(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Fatalf("gemini client failed: %v", err)
		}
		augmenter = gemini
	} else {
		log.Printf("GEMINI_API_KEY not set, AI augmentation disabled")
	}

	classifier := classify.NewMockClassifier(rand.New(rand.NewSource(time.Now().UnixNano())))
	accountsSvc := accounts.NewService(dataStore)
	service := app.New(cfg, dataStore, sessions, accountsSvc, classifier, augmenter, images)

	uploadsDir := ""
	if strings.TrimSpace(cfg.MinioEndpoint) == "" {
		uploadsDir = cfg.UploadDir
	}
	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin, uploadsDir, cfg.UploadMaxBytes)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("PlantAI API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
