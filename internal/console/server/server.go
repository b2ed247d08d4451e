package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/quantenergx/filing-gateway/internal/console/handler"
	"github.com/quantenergx/filing-gateway/internal/infra"
	"github.com/quantenergx/filing-gateway/internal/infra/auth"
)

// Скоуп оператора: заморозки и чтение архива требуют операторских прав
const ScopeOps = "console:ops"

type ConsoleServer struct {
	router *chi.Mux
	logger *zap.Logger
	cfg    *infra.Config

	// Интерфейс для проверки токенов (RS256)
	// Реализуется через embedding BaseValidator в RegulatorService
	authValidator auth.TokenValidator

	// Обработчики бизнес-доменов
	authHandler      *handler.AuthHandler      // /auth/token
	regulatorHandler *handler.RegulatorHandler // /v1/regulators
	auditHandler     *handler.AuditHandler     // /v1/audit (Archive)
}

// NewConsoleServer инициализирует сервер консоли со всеми зависимостями
func NewConsoleServer(
	cfg *infra.Config,
	logger *zap.Logger,
	validator auth.TokenValidator,
	authH *handler.AuthHandler,
	regulatorH *handler.RegulatorHandler,
	auditH *handler.AuditHandler,
) *ConsoleServer {
	s := &ConsoleServer{
		router:           chi.NewRouter(),
		logger:           logger.Named("console-api"),
		cfg:              cfg,
		authValidator:    validator,
		authHandler:      authH,
		regulatorHandler: regulatorH,
		auditHandler:     auditH,
	}

	s.routes()
	return s
}

func (s *ConsoleServer) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware (для всех) ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// --- 2. ПУБЛИЧНЫЕ РОУТЫ (Открыты для всех) ---
	r.Group(func(r chi.Router) {
		// Логин должен быть доступен без токена
		r.Post("/auth/token", s.authHandler.Login)

		// Healthcheck для мониторинга
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	// --- 3. ЗАЩИЩЕННЫЙ ПЕРИМЕТР (Требуют RS256 токен) ---
	r.Group(func(r chi.Router) {
		// Подключаем универсальный Middleware только для этой группы
		r.Use(auth.NewMiddleware(s.authValidator, s.logger))
		r.Use(auth.RequireScope(ScopeOps))

		// Dashboard & Stats
		r.Get("/api/v1/dashboard/stats", s.auditHandler.GetStats)

		// Оперативное управление регуляторами (Freeze)
		r.Route("/v1/regulators", func(r chi.Router) {
			r.Get("/frozen", s.regulatorHandler.ListFrozen)
			r.Route("/{name}", func(r chi.Router) {
				r.Post("/freeze", s.regulatorHandler.Freeze)     // Мгновенная остановка подач
				r.Post("/unfreeze", s.regulatorHandler.Unfreeze) // Возобновление
			})
		})

		// Архив аудита (Observability)
		r.Get("/v1/audit", s.auditHandler.GetLogs)
	})
}

// ServeHTTP позволяет использовать ConsoleServer как стандартный http.Handler
func (s *ConsoleServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
