package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sentinelai/compliance-console/internal/agent"
	"github.com/sentinelai/compliance-console/internal/audittrail"
	"github.com/sentinelai/compliance-console/internal/console/handler"
	"github.com/sentinelai/compliance-console/internal/console/server"
	"github.com/sentinelai/compliance-console/internal/console/service"
	"github.com/sentinelai/compliance-console/internal/infra"
	"github.com/sentinelai/compliance-console/internal/repository/postgres"
)

func main() {
	// 1. Конфигурация и логгер
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	if cfg.Database.URL == "" {
		logger.Fatal("DATABASE_URL is required")
	}

	// Контекст жизненного цикла фоновых горутин:
	// cancel() останавливает слушателя сигналов при завершении
	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Инфраструктура и ресурсы
	repo, err := postgres.Open(cfg.Database)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer repo.Close()

	// Ждем базу: контейнер Postgres может стартовать дольше консоли
	if err := repo.WaitReady(appCtx, 10); err != nil {
		logger.Fatal("database unreachable", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// 3. Журнал запусков (batching, асинхронная запись в audit_runs)
	trail := audittrail.NewRecorder(repo, logger)
	trail.Start()

	// 4. Метрики
	reg := prometheus.NewRegistry()
	metrics := agent.NewMetrics(reg)

	// 5. Шлюз запуска аудит-агента + слой надежности
	runner := agent.NewRunner(cfg.Agent, logger)
	safeRunner := agent.NewReliableRunner(runner, cfg.Agent, metrics)

	// Слушатель завершений: считает сигналы от всех реплик консоли
	go agent.ListenCompletionsResilient(appCtx, rdb, logger.Named("completion-listener"),
		infra.RedisChanAuditCompleted,
		func(requirementID, accountID string, ok bool) {
			outcome := "failed"
			if ok {
				outcome = "ok"
			}
			metrics.CompletionsTotal.WithLabelValues(outcome).Inc()
			logger.Debug("audit completion observed",
				zap.String("requirement_id", requirementID),
				zap.String("aws_account_id", accountID),
				zap.Bool("ok", ok))
		})

	// 6. Инициализация слоев (Dependency Injection)
	dashService := service.NewDashboardService(repo, logger)
	auditService := service.NewAuditService(safeRunner, rdb, trail, cfg.Agent.DefaultAccountID, logger)

	dashHandler := handler.NewDashboardHandler(dashService, logger)
	auditHandler := handler.NewAuditHandler(auditService, logger)

	consoleSrv := server.NewConsoleServer(logger, dashHandler, auditHandler, reg)

	// 7. HTTP Server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      consoleSrv,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 8. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("console API started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	<-stop // Ждем сигнал
	logger.Info("console API stopping...")

	// Даем 5 секунд на завершение запросов
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}

	cancel()     // Останавливаем слушателя завершений
	trail.Stop() // Финальный flush журнала запусков
	logger.Info("console API exited properly")
}
