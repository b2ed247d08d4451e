package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/quantenergx/filing-gateway/internal/engine"
	"github.com/quantenergx/filing-gateway/internal/infra/auth"
)

// Скоупы токена, гейтящие операции шлюза
const (
	ScopeFilingsSubmit = "filings:submit"
	ScopeAuditRead     = "audit:read"
	ScopeAuditAdmin    = "audit:admin"
)

// GatewayServer — HTTP-фасад движка подач.
type GatewayServer struct {
	router    *chi.Mux
	logger    *zap.Logger
	validator auth.TokenValidator

	filingHandler *FilingHandler
	auditHandler  *AuditHandler

	// /metrics для Prometheus, nil выключает эндпоинт
	metricsHandler http.Handler
}

// NewGatewayServer собирает роутер со всеми зависимостями
func NewGatewayServer(
	logger *zap.Logger,
	eng *engine.Engine,
	validator auth.TokenValidator,
	metricsHandler http.Handler,
) *GatewayServer {
	s := &GatewayServer{
		router:         chi.NewRouter(),
		logger:         logger.Named("gateway-api"),
		validator:      validator,
		filingHandler:  NewFilingHandler(eng, logger),
		auditHandler:   NewAuditHandler(eng.Ledger(), logger),
		metricsHandler: metricsHandler,
	}

	s.routes()
	return s
}

func (s *GatewayServer) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware (для всех) ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// --- 2. ПУБЛИЧНЫЕ РОУТЫ (Открыты для всех) ---
	r.Group(func(r chi.Router) {
		// Liveness для оркестратора контейнеров
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		if s.metricsHandler != nil {
			r.Handle("/metrics", s.metricsHandler)
		}
	})

	// --- 3. ЗАЩИЩЕННЫЙ ПЕРИМЕТР (Требуют RS256 токен) ---
	r.Group(func(r chi.Router) {
		r.Use(auth.NewMiddleware(s.validator, s.logger))

		// Подача отчетности и статус
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireScope(ScopeFilingsSubmit))
			r.Post("/v1/filings/{regulator}", s.filingHandler.Submit)
			r.Get("/v1/submissions/{id}/status", s.filingHandler.Status)
		})

		// Детальный health: состояние регуляторов и аудит-лога
		r.Get("/v1/health", s.filingHandler.Health)

		// Аудит (Observability)
		r.With(auth.RequireScope(ScopeAuditRead)).Get("/v1/audit", s.auditHandler.GetLogs)
		r.With(auth.RequireScope(ScopeAuditAdmin)).Post("/v1/audit/clear", s.auditHandler.Clear)
	})
}

// ServeHTTP позволяет использовать GatewayServer как стандартный http.Handler
func (s *GatewayServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
