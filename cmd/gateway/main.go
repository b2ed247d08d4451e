package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/quantenergx/filing-gateway/internal/audit"
	"github.com/quantenergx/filing-gateway/internal/domain"
	"github.com/quantenergx/filing-gateway/internal/engine"
	"github.com/quantenergx/filing-gateway/internal/infra"
	"github.com/quantenergx/filing-gateway/internal/infra/auth"
	"github.com/quantenergx/filing-gateway/internal/regulator"
	"github.com/quantenergx/filing-gateway/internal/repository/postgres"
	retrypolicy "github.com/quantenergx/filing-gateway/internal/retry"
	"github.com/quantenergx/filing-gateway/internal/risk"
	"github.com/quantenergx/filing-gateway/internal/server"
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

	// Контекст для управления жизненным циклом фоновых горутин
	// При SIGTERM cancel() остановит слушателей
	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Метрики
	reg := prometheus.NewRegistry()
	metrics := engine.NewMetrics(reg)

	// 3. Аудит: оперативный леджер + наблюдатели
	ledger := audit.NewLedger(cfg.Audit.AdminToken, logger)

	// Каждое событие дублируем в структурированный лог
	auditLog := logger.Named("audit")
	ledger.Subscribe(func(e audit.Entry) {
		auditLog.Info("audit event",
			zap.String("id", e.ID),
			zap.String("action", e.Action),
			zap.String("user_id", e.UserID),
			zap.String("region", e.Region))
	})

	// Долговременный архив: подключаем конвейер только при настроенной базе
	var pipeline *audit.Pipeline
	if cfg.Database.URL != "" {
		auditStorage := postgres.NewAuditRepo(cfg.Database.URL)
		pingCtx, pingCancel := context.WithTimeout(appCtx, 5*time.Second)
		if err := auditStorage.Ping(pingCtx); err != nil {
			logger.Fatal("audit archive unreachable", zap.Error(err))
		}
		pingCancel()

		pipeline = audit.NewPipeline(auditStorage, logger, cfg.Audit.BufferSize, cfg.Audit.BatchSize, cfg.Audit.FlushInterval)
		pipeline.Start()
		ledger.Subscribe(pipeline.Log)

		// Заполненность буфера конвейера для алертов о backpressure
		go func() {
			ticker := time.NewTicker(5 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-appCtx.Done():
					return
				case <-ticker.C:
					metrics.AuditBufferFill.Set(float64(pipeline.Len()) / float64(cfg.Audit.BufferSize))
				}
			}
		}()
	} else {
		logger.Warn("database url is empty, audit archive disabled")
	}

	// 4. Control Plane: заморозка регуляторов через Redis
	var freeze engine.FreezeChecker
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		fm := engine.NewFreezeManager(rdb, logger)
		if err := fm.Init(appCtx); err != nil {
			logger.Fatal("failed to init freeze manager", zap.Error(err))
		}
		go fm.StartListener(appCtx)
		freeze = fm

		// Зеркалим аудит-события во внешний канал для подписчиков
		mirror := logger.Named("audit-mirror")
		ledger.Subscribe(func(e audit.Entry) {
			payload, err := json.Marshal(e)
			if err != nil {
				return
			}
			if err := rdb.Publish(appCtx, infra.RedisChanAuditMirror, payload).Err(); err != nil {
				mirror.Warn("audit mirror publish failed", zap.Error(err))
			}
		})
	} else {
		logger.Warn("redis addr is empty, freeze control disabled")
	}

	// 5. Клиенты регуляторов. Ошибка конфигурации одного регулятора не
	// валит шлюз: он поднимется, а подачи к этому регулятору будут
	// отклоняться с причиной из healthcheck
	regulators := make([]engine.Regulator, 0, len(cfg.Regulators))
	for name, rc := range cfg.Regulators {
		r := engine.Regulator{Name: name, Region: rc.Region}
		client, err := regulator.NewHTTPClient(name, regulator.Config{
			BaseURL:        rc.BaseURL,
			Timeout:        rc.Timeout,
			APIKey:         rc.APIKey,
			ClientCertPath: rc.ClientCertPath,
			ClientKeyPath:  rc.ClientKeyPath,
			CACertPath:     rc.CACertPath,
		}, logger)
		if err != nil {
			logger.Error("regulator client misconfigured",
				zap.String("regulator", name), zap.Error(err))
			r.ConfigError = err.Error()
		} else {
			r.Client = client
		}
		regulators = append(regulators, r)
	}

	// 6. Сборка движка
	policy := retrypolicy.Policy{
		BaseDelay:   cfg.Engine.RetryBaseDelay,
		Multiplier:  cfg.Engine.RetryMultiplier,
		MaxDelay:    cfg.Engine.RetryMaxDelay,
		MaxAttempts: cfg.Engine.RetryMaxAttempts,
	}
	rs := engine.ReliabilitySettings{
		CBMaxRequests: cfg.Engine.CBMaxRequests,
		CBInterval:    cfg.Engine.CBInterval,
		CBTimeout:     cfg.Engine.CBTimeout,
		CBMaxFailures: cfg.Engine.CBMaxFailures,
		RateLimit:     cfg.Engine.RateLimit,
		RateBurst:     cfg.Engine.RateBurst,
	}
	var analyzer *risk.Analyzer
	if len(cfg.Risk.PositionLimits) > 0 {
		limits := make(map[domain.Commodity]float64, len(cfg.Risk.PositionLimits))
		for commodity, threshold := range cfg.Risk.PositionLimits {
			limits[domain.Commodity(commodity)] = threshold
		}
		analyzer = risk.NewAnalyzer(limits, logger)
	}

	eng := engine.NewEngine(regulators, policy, rs, ledger, freeze, analyzer, metrics, logger)

	// 7. HTTP Server с проверкой RS256 токенов
	pubKey, err := auth.ParseRSAPublicKey(cfg.Auth.PublicKey)
	if err != nil {
		logger.Fatal("failed to parse auth public key", zap.Error(err))
	}
	validator := auth.NewBaseValidator(pubKey)

	gatewaySrv := server.NewGatewayServer(logger, eng, validator,
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      gatewaySrv,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 8. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("filing gateway started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	<-stop // Ждем сигнал
	logger.Info("filing gateway stopping")

	// Даем 5 секунд на завершение запросов
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}

	// Дожимаем хвост аудита в архив после остановки трафика
	cancel()
	if pipeline != nil {
		pipeline.Stop()
	}
	logger.Info("filing gateway exited properly")
}
