package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"plate-recipe-api/internal/api"
	"plate-recipe-api/internal/core/gigachat"
	"plate-recipe-api/internal/core/match"
	"plate-recipe-api/internal/core/recipe"
	"plate-recipe-api/internal/core/safety"
	"plate-recipe-api/internal/infrastructure/config"
	"plate-recipe-api/internal/pkg/common"
	"plate-recipe-api/internal/storage"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("configuration loaded",
		zap.String("gigachat_auth_key", config.MaskKey(cfg.GigaChat.AuthKey)),
		zap.String("gigachat_model", cfg.GigaChat.Model),
		zap.String("redis_addr", cfg.Redis.Addr),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	store, err := storage.NewRedisStore(ctx, storage.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	cancel()
	if err != nil {
		common.LogFatal("Failed to connect to recipe store", zap.Error(err))
	}
	defer store.Close()

	generator := gigachat.NewClient(gigachat.Config{
		OAuthURL:           cfg.GigaChat.OAuthURL,
		APIURL:             cfg.GigaChat.APIURL,
		Scope:              cfg.GigaChat.Scope,
		AuthKey:            cfg.GigaChat.AuthKey,
		Model:              cfg.GigaChat.Model,
		Timeout:            cfg.GigaChat.Timeout,
		MaxRetries:         cfg.GigaChat.MaxRetries,
		InsecureSkipVerify: !cfg.GigaChat.SSLVerify,
	}, safety.NewFilter())

	svc := recipe.NewService(store, generator, recipe.ServiceOptions{
		UserWindowLimit:   cfg.Match.UserWindowLimit,
		GlobalWindowLimit: cfg.Match.GlobalWindowLimit,
		Match: match.Options{
			MinJaccard:      cfg.Match.MinJaccard,
			MinIntersection: cfg.Match.MinIntersection,
		},
	})

	router := api.SetupRouter(cfg, svc, store)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		common.LogInfo("starting application",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogError("Failed to start server", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
		os.Exit(1)
	}

	common.LogInfo("Server exited")
}
