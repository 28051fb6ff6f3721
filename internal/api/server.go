// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/portfolio-dashboard/internal/ledger"
	"github.com/portfolio-dashboard/internal/logging"
	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/service"
)

// Service interfaces for dependency injection and testing

// DashboardServiceInterface serves the portfolio record and its overview
type DashboardServiceInterface interface {
	Portfolio(ctx context.Context, user string) (*models.PortfolioData, error)
	SavePortfolio(ctx context.Context, user string, p *models.PortfolioData) error
	Overview(ctx context.Context, user string, limit int, strict bool) (*service.Overview, error)
}

// LedgerServiceInterface serves the transaction ledger
type LedgerServiceInterface interface {
	Transactions(ctx context.Context, user string) ([]models.Transaction, error)
	ReplaceTransactions(ctx context.Context, user string, txs []models.Transaction) error
	Query(ctx context.Context, user string, q ledger.Query) (*ledger.Page, error)
}

// AssistantServiceInterface serves the assistant conversation
type AssistantServiceInterface interface {
	Messages(ctx context.Context, user string) ([]models.ConversationMessage, error)
	Send(ctx context.Context, user, text string) ([]models.ConversationMessage, error)
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    float64
	RateLimitBurst  int
	// Tokens maps bearer tokens to users
	Tokens map[string]string
	// SharedLimiter adds a cross-instance budget on top of the local limit. Optional.
	SharedLimiter SharedLimiter
}

// Server represents the HTTP API server.
type Server struct {
	router     *mux.Router
	handler    http.Handler
	httpServer *http.Server
	config     *ServerConfig
	logger     *logging.Logger
	metrics    *Metrics
	now        func() time.Time

	dashboard DashboardServiceInterface
	ledger    LedgerServiceInterface
	assistant AssistantServiceInterface
}

// NewServer creates a new API server instance.
func NewServer(
	config *ServerConfig,
	dashboard DashboardServiceInterface,
	ledgerService LedgerServiceInterface,
	assistant AssistantServiceInterface,
	logger *logging.Logger,
) *Server {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	s := &Server{
		router:    mux.NewRouter(),
		config:    config,
		logger:    logger,
		metrics:   NewMetrics(),
		now:       time.Now,
		dashboard: dashboard,
		ledger:    ledgerService,
		assistant: assistant,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	// Route-aware middleware runs inside the router
	s.router.Use(s.metrics.Middleware)
	s.router.Use(CompressionMiddleware)

	s.setupRoutes()

	// Outer chain sees every request, including preflights and 404s
	s.handler = LoggingMiddleware(s.logger)(RecoveryMiddleware(CORSMiddleware(s.router)))

	s.httpServer = &http.Server{
		Addr:         s.config.Host + ":" + s.config.Port,
		Handler:      s.handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(NewAuthenticator(s.config.Tokens).Middleware)
	api.Use(RateLimitMiddleware(
		NewRateLimiter(s.config.RateLimitRPS, s.config.RateLimitBurst),
		s.config.SharedLimiter,
	))

	// Portfolio endpoints
	api.HandleFunc("/portfolio", s.handleGetPortfolio).Methods(http.MethodGet)
	api.HandleFunc("/portfolio", s.handleSavePortfolio).Methods(http.MethodPost)
	api.HandleFunc("/portfolio/overview", s.handleGetOverview).Methods(http.MethodGet)

	// Ledger endpoints
	api.HandleFunc("/transactions", s.handleGetTransactions).Methods(http.MethodGet)
	api.HandleFunc("/transactions", s.handleReplaceTransactions).Methods(http.MethodPost)
	api.HandleFunc("/transactions/query", s.handleQueryTransactions).Methods(http.MethodGet)

	// Assistant endpoints
	api.HandleFunc("/ai/messages", s.handleGetMessages).Methods(http.MethodGet)
	api.HandleFunc("/ai/messages", s.handleSendMessage).Methods(http.MethodPost)
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins serving and blocks until the server stops.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting API server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Timestamp: s.now().UTC()})
}
