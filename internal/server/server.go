package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"growthfund/internal/config"
	"growthfund/internal/handler"
	"growthfund/internal/notify"
	"growthfund/internal/repository"
	"growthfund/internal/service"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
)

// Server represents the HTTP server
type Server struct {
	router  *mux.Router
	server  *http.Server
	db      *sql.DB
	sweeper *service.Sweeper
	logger  *slog.Logger
	port    string
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	// Initialize database connection
	db, err := sql.Open("postgres", cfg.GetDBConnectionString())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Test database connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Successfully connected to database")

	// Initialize store (Unit of Work)
	store := repository.NewStore(db, logger)

	// Notification dispatcher: real provider when configured, logged fallback otherwise
	var mailer notify.Mailer
	if cfg.ResendAPIKey != "" {
		mailer = notify.NewResendMailer(cfg.ResendBaseURL, cfg.ResendAPIKey, cfg.EmailFrom, logger)
	} else {
		mailer = notify.NewLogMailer(logger)
	}

	// Initialize services
	otpService := service.NewOTPService(store, mailer, logger, cfg.OTPTTL, cfg.OTPResendCooldown)
	accountService := service.NewAccountService(store, logger)
	transactionService := service.NewTransactionService(store, otpService, logger, cfg.MinTransactionAmount)
	interestService := service.NewInterestService(store, logger, cfg.DefaultDailyRate)
	sweeper := service.NewSweeper(otpService, logger, cfg.OTPSweepInterval)

	// Initialize handlers
	accountHandler := handler.NewAccountHandler(accountService, transactionService, cfg.DefaultDailyRate)
	transactionHandler := handler.NewTransactionHandler(transactionService, otpService)
	otpHandler := handler.NewOTPHandler(otpService)
	interestHandler := handler.NewInterestHandler(interestService)
	webhookHandler := handler.NewWebhookHandler(transactionService, cfg.WebhookSecret)

	// Setup router
	router := mux.NewRouter()

	// Add middleware for logging
	router.Use(loggingMiddleware(logger))

	// Account routes
	router.HandleFunc("/accounts", accountHandler.CreateAccount).Methods("POST")
	router.HandleFunc("/accounts/{account_id}", accountHandler.GetAccount).Methods("GET")
	router.HandleFunc("/accounts/{account_id}/transactions", accountHandler.ListTransactions).Methods("GET")

	// OTP routes
	router.HandleFunc("/otp/send", otpHandler.Send).Methods("POST")
	router.HandleFunc("/otp/verify", otpHandler.Verify).Methods("POST")

	// Transaction routes
	router.HandleFunc("/transactions/initiate", transactionHandler.Initiate).Methods("POST")
	router.HandleFunc("/transactions/verify", transactionHandler.Verify).Methods("POST")

	// Interest accrual trigger (cadence owned by an external scheduler)
	router.HandleFunc("/interest/run", interestHandler.Run).Methods("POST")

	// Payment gateway callback
	router.HandleFunc("/webhooks/payment-gateway", webhookHandler.HandlePaymentGateway).Methods("POST")

	// Rate setting administration
	router.HandleFunc("/settings/interest-rate", accountHandler.GetInterestRate).Methods("GET")
	router.HandleFunc("/settings/interest-rate", accountHandler.UpdateInterestRate).Methods("PUT")

	// Health check
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": "database unavailable"})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}).Methods("GET")

	return &Server{
		router:  router,
		db:      db,
		sweeper: sweeper,
		logger:  logger,
	}, nil
}

// loggingMiddleware adds request logging
func loggingMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(ww, r)

			logger.Info("request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.statusCode,
				"duration", time.Since(start),
				"user_agent", r.UserAgent(),
			)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server on the specified port
func (s *Server) Start(port string) (string, error) {
	// Create listener first to get actual port
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return "", err
	}

	addr := listener.Addr().(*net.TCPAddr)
	s.port = strconv.Itoa(addr.Port)

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server", "port", s.port)

	s.sweeper.Start()

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Server failed to start", "error", err)
		}
	}()

	return s.port, nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	if s.sweeper != nil {
		s.sweeper.Stop()
	}

	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}

	if s.db != nil {
		s.db.Close()
	}

	return err
}

// GetPort returns the port the server is listening on
func (s *Server) GetPort() string {
	return s.port
}

// GetBaseURL returns the base URL for the server
func (s *Server) GetBaseURL() string {
	return "http://localhost:" + s.port
}

// GetRouter returns the router for testing purposes
func (s *Server) GetRouter() *mux.Router {
	return s.router
}

// StartServer starts the server with the given configuration
func StartServer(cfg *config.Config) (*Server, string, error) {
	// Use a discard logger for test servers on an ephemeral port
	var logger *slog.Logger
	if cfg.ServerPort == "0" {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	} else {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}

	server, err := NewServer(cfg, logger)
	if err != nil {
		return nil, "", err
	}

	port, err := server.Start(cfg.ServerPort)
	if err != nil {
		return nil, "", err
	}

	return server, port, nil
}
