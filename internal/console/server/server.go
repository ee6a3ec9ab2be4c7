package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sentinelai/compliance-console/internal/console/handler"
	"github.com/sentinelai/compliance-console/internal/infra"
	"go.uber.org/zap"
)

type ConsoleServer struct {
	router *chi.Mux
	logger *zap.Logger

	// Обработчики бизнес-доменов
	dashHandler  *handler.DashboardHandler // /api/v1/dashboard, /api/v1/accounts
	auditHandler *handler.AuditHandler     // /run-compliance-agent

	metricsRegistry *prometheus.Registry
}

// NewConsoleServer инициализирует сервер дашборда со всеми зависимостями.
// Таймауты и адрес живут на уровне http.Server в main: здесь только роутинг.
func NewConsoleServer(
	logger *zap.Logger,
	dashH *handler.DashboardHandler,
	auditH *handler.AuditHandler,
	reg *prometheus.Registry,
) *ConsoleServer {
	s := &ConsoleServer{
		router:          chi.NewRouter(),
		logger:          logger.Named("console-api"),
		dashHandler:     dashH,
		auditHandler:    auditH,
		metricsRegistry: reg,
	}

	s.routes()
	return s
}

func (s *ConsoleServer) routes() {
	r := s.router

	// --- Глобальные инфраструктурные Middleware (для всех) ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(infra.TracingMiddleware)
	r.Use(middleware.Recoverer)

	// Healthcheck для мониторинга
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Prometheus-метрики с приватного реестра
	r.Handle("/metrics", promhttp.HandlerFor(s.metricsRegistry, promhttp.HandlerOpts{}))

	// Триггер аудита. Путь исторический, фронт ходит именно сюда.
	r.Post("/run-compliance-agent", s.auditHandler.Run)
	r.Get("/run-compliance-agent", s.auditHandler.MethodNotAllowed)

	// Данные дашборда
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/accounts", s.dashHandler.ListAccounts)
		r.Get("/auditors/{auditorID}/accounts", s.dashHandler.AuditorAccounts)
		r.Get("/dashboard", s.dashHandler.GetDashboard)
	})
}

// ServeHTTP позволяет использовать ConsoleServer как стандартный http.Handler
func (s *ConsoleServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
