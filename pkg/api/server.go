// Package api exposes the ledger over HTTP. It is glue: request decoding,
// error-to-status mapping and metrics; all invariants live in pkg/ledger.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"bank-ledger/pkg/ledger"
	"bank-ledger/pkg/logging"
	"bank-ledger/pkg/metrics"
	"bank-ledger/pkg/store"
)

// Server serves the ledger HTTP API.
type Server struct {
	ledger  *ledger.Ledger
	saver   *store.Saver
	metrics metrics.Collector
	logger  *logging.Logger
	server  *http.Server
	router  *mux.Router
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Addr is the listen address (e.g. ":8080").
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultServerConfig returns default HTTP settings.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:         ":8080",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// NewServer wires the routes. The saver may be nil when snapshot saving is
// handled entirely by the process lifecycle.
func NewServer(l *ledger.Ledger, saver *store.Saver, collector metrics.Collector, logger *logging.Logger, config ServerConfig) *Server {
	if collector == nil {
		collector = metrics.NoOp{}
	}
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}

	s := &Server{
		ledger:  l,
		saver:   saver,
		metrics: collector,
		logger:  logger.Named("api"),
	}

	r := mux.NewRouter()
	r.Use(s.metricsMiddleware)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	r.HandleFunc("/accounts", s.handleCreateAccount).Methods(http.MethodPost)
	r.HandleFunc("/accounts", s.handleListAccounts).Methods(http.MethodGet)
	r.HandleFunc("/accounts/{number}", s.handleGetAccount).Methods(http.MethodGet)
	r.HandleFunc("/accounts/{number}/deposit", s.handleDeposit).Methods(http.MethodPost)
	r.HandleFunc("/accounts/{number}/withdraw", s.handleWithdraw).Methods(http.MethodPost)
	r.HandleFunc("/accounts/{number}/pin", s.handleChangePIN).Methods(http.MethodPost)
	r.HandleFunc("/accounts/{number}/transactions", s.handleTransactions).Methods(http.MethodGet)
	r.HandleFunc("/accounts/{number}/statement.csv", s.handleStatementCSV).Methods(http.MethodGet)

	r.HandleFunc("/transfers", s.handleTransfer).Methods(http.MethodPost)

	// Admin surface, guarded by HTTP basic auth against the ledger's admin
	// credential.
	r.Handle("/accounts/{number}/freeze", s.adminOnly(s.handleFreeze(false))).Methods(http.MethodPost)
	r.Handle("/accounts/{number}/unfreeze", s.adminOnly(s.handleFreeze(true))).Methods(http.MethodPost)
	r.Handle("/accounts/{number}/transactions/{txID}/reverse", s.adminOnly(http.HandlerFunc(s.handleReverse))).Methods(http.MethodPost)
	r.Handle("/admin/summary", s.adminOnly(http.HandlerFunc(s.handleSummary))).Methods(http.MethodGet)
	r.Handle("/admin/password", s.adminOnly(http.HandlerFunc(s.handleSetAdminPassword))).Methods(http.MethodPut)
	r.Handle("/admin/save", s.adminOnly(http.HandlerFunc(s.handleSave))).Methods(http.MethodPost)

	s.router = r
	s.server = &http.Server{
		Addr:         config.Addr,
		Handler:      r,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return s
}

// Router exposes the handler for mounting extra routes (e.g. /metrics) and
// for tests.
func (s *Server) Router() *mux.Router { return s.router }

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	go func() {
		s.logger.Info("listening", zap.String("addr", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
