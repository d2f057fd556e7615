package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/flashbots/go-utils/httplogger"
	"github.com/gorilla/mux"
	"go.uber.org/atomic"

	"fleet-erp-backend/internal/config"
)

type ServerConfig struct {
	ListenAddr               string
	Log                      *slog.Logger
	ReadTimeout              time.Duration
	WriteTimeout             time.Duration
	GracefulShutdownDuration time.Duration
	DrainDuration            time.Duration
}

// Handlers groups everything the router dispatches to. Files is optional and
// only set for the local filesystem storage backend.
type Handlers struct {
	Staff  *StaffHandler
	Public *PublicHandler
	Files  *FilesHandler
	Auth   *AuthMiddleware
}

type Server struct {
	cfg     *ServerConfig
	isReady atomic.Bool
	log     *slog.Logger
	srv     *http.Server
}

func NewServer(cfg *ServerConfig, h Handlers) *Server {
	srv := &Server{
		cfg: cfg,
		log: cfg.Log,
	}
	srv.isReady.Store(true)

	srv.srv = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.getRouter(h),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return srv
}

// getRouter builds the route table. Every route is named; the name selects the
// security level applied by the auth middleware.
func (srv *Server) getRouter(h Handlers) http.Handler {
	r := mux.NewRouter()
	r.Use(h.Auth.Handler)

	r.HandleFunc("/livez", srv.handleLivenessCheck).Methods(http.MethodGet).Name(config.RouteLiveness)
	r.HandleFunc("/readyz", srv.handleReadinessCheck).Methods(http.MethodGet).Name(config.RouteReadiness)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/quotes/{quoteId:[0-9]+}/share", h.Staff.IssueShare).Methods(http.MethodPost).Name(config.RouteShareIssue)
	api.HandleFunc("/quotes/{quoteId:[0-9]+}/share", h.Staff.ListShares).Methods(http.MethodGet).Name(config.RouteShareList)
	api.HandleFunc("/quotes/{quoteId:[0-9]+}/share", h.Staff.RevokeShares).Methods(http.MethodDelete).Name(config.RouteShareRevoke)
	api.HandleFunc("/quotes/{quoteId:[0-9]+}/timeline", h.Staff.Timeline).Methods(http.MethodGet).Name(config.RouteTimeline)
	api.HandleFunc("/contracts/{contractId:[0-9]+}/pdf", h.Staff.StoreContractPDF).Methods(http.MethodPost).Name(config.RouteContractPDF)

	public := r.PathPrefix("/public").Subrouter()
	public.HandleFunc("/quote/{token}", h.Public.ViewQuote).Methods(http.MethodGet).Name(config.RoutePublicQuote)
	public.HandleFunc("/quote/{token}/sign", h.Public.Sign).Methods(http.MethodPost).Name(config.RoutePublicSign)
	public.HandleFunc("/contract/{token}/pdf", h.Public.ContractBundle).Methods(http.MethodGet).Name(config.RoutePublicBundle)
	public.HandleFunc("/contract/{token}/pdf", h.Public.StoreContractPDF).Methods(http.MethodPost).Name(config.RoutePublicPDFUpload)

	if h.Files != nil {
		r.HandleFunc("/files/{key:.+}", h.Files.Download).Methods(http.MethodGet).Name(config.RouteFileDownload)
	}

	return RequestID(httplogger.LoggingMiddlewareSlog(srv.log, r))
}

func (srv *Server) handleLivenessCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (srv *Server) handleReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if !srv.isReady.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// IsReady reports the readiness flag served on /readyz
func (srv *Server) IsReady() bool {
	return srv.isReady.Load()
}

func (srv *Server) RunInBackground() {
	go func() {
		srv.log.Info("Starting HTTP server", "listenAddress", srv.cfg.ListenAddr)
		if err := srv.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srv.log.Error("HTTP server failed", "err", err)
		}
	}()
}

// Shutdown flips readiness off, waits for load balancers to notice, then
// stops accepting requests and waits for in-flight ones
func (srv *Server) Shutdown() {
	if srv.isReady.Swap(false) && srv.cfg.DrainDuration > 0 {
		srv.log.Info("Server marked as not ready, draining", "duration", srv.cfg.DrainDuration)
		time.Sleep(srv.cfg.DrainDuration)
	}

	ctx, cancel := context.WithTimeout(context.Background(), srv.cfg.GracefulShutdownDuration)
	defer cancel()
	if err := srv.srv.Shutdown(ctx); err != nil {
		srv.log.Error("Graceful HTTP server shutdown failed", "err", err)
	} else {
		srv.log.Info("HTTP server gracefully stopped")
	}
}
