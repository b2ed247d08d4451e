package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/quantenergx/filing-gateway/internal/console/handler"
	"github.com/quantenergx/filing-gateway/internal/console/server"
	"github.com/quantenergx/filing-gateway/internal/console/service"
	"github.com/quantenergx/filing-gateway/internal/infra"
	"github.com/quantenergx/filing-gateway/internal/infra/auth"
	"github.com/quantenergx/filing-gateway/internal/repository/postgres"
)

func main() {
	// 1. Конфигурация и логгер
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	if cfg.Database.URL == "" {
		logger.Fatal("database url is required for console api")
	}
	if cfg.Redis.Addr == "" {
		logger.Fatal("redis addr is required for console api")
	}

	// 2. Инициализация ресурсов
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	userRepo := postgres.NewUserRepo(cfg.Database.URL)
	auditRepo := postgres.NewAuditRepo(cfg.Database.URL)

	// Проверяем соединение с таймаутом
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := userRepo.Ping(pingCtx); err != nil {
		logger.Fatal("database unreachable", zap.Error(err))
	}
	pingCancel()

	// 3. Ключи RS256: консоль подписывает приватным, проверяет публичным
	privKey, err := auth.ParseRSAPrivateKey(cfg.Auth.PrivateKey)
	if err != nil {
		logger.Fatal("failed to parse auth private key", zap.Error(err))
	}
	pubKey, err := auth.ParseRSAPublicKey(cfg.Auth.PublicKey)
	if err != nil {
		logger.Fatal("failed to parse auth public key", zap.Error(err))
	}
	validator := auth.NewBaseValidator(pubKey)

	// 4. Инициализация слоев (Dependency Injection)
	authService := service.NewAuthService(userRepo, privKey, cfg.Auth.TokenTTL)
	regulatorService := service.NewRegulatorService(rdb, validator, logger)
	auditService := service.NewAuditService(auditRepo)

	consoleSrv := server.NewConsoleServer(
		cfg,
		logger,
		regulatorService,
		handler.NewAuthHandler(authService),
		handler.NewRegulatorHandler(regulatorService),
		handler.NewAuditHandler(auditService),
	)

	// 5. Запуск сервера
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      consoleSrv,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info("console api started", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("listen failed", zap.Error(err))
	}
}
