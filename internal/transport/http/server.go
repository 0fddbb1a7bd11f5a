package http

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	notifyService "github.com/reshetovitsme/sentry-telegram-notify/internal/modules/notify/service"
	routingService "github.com/reshetovitsme/sentry-telegram-notify/internal/modules/routing/service"
	"github.com/reshetovitsme/sentry-telegram-notify/internal/shared/config"
	sloghttp "github.com/samber/slog-http"
)

const maxWebhookBodySize = 1 << 20 // 1 MiB

// Server handles HTTP requests: the Sentry webhook entry point, config
// validation and health checks.
type Server struct {
	cfg           *config.Config
	notifyService *notifyService.Service
	logger        *slog.Logger
}

// New creates a new HTTP server
func New(cfg *config.Config, notify *notifyService.Service) *Server {
	return &Server{
		cfg:           cfg,
		notifyService: notify,
		logger:        slog.Default(),
	}
}

// SetLogger sets the logger
func (s *Server) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// Start starts the HTTP server
func (s *Server) Start() error {
	mux := http.NewServeMux()

	// Sentry webhook entry point
	mux.HandleFunc("POST /webhook", s.handleWebhook)

	// Channels config validation
	mux.HandleFunc("POST /config/validate", s.handleValidateConfig)

	// Health check endpoint
	mux.HandleFunc("GET /health", s.handleHealth)

	addr := fmt.Sprintf(":%s", s.cfg.HTTPPort)
	s.logger.Info("Webhook server starting", "addr", addr)

	// Use slog-http middleware with recovery
	handler := sloghttp.Recovery(mux)
	handler = sloghttp.New(s.logger)(handler)

	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodySize))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	group, event, err := decodeWebhook(body)
	if err != nil {
		s.logger.Error("Error decoding webhook payload", "error", err)
		http.Error(w, "Invalid webhook payload", http.StatusBadRequest)
		return
	}

	s.notifyService.NotifyUsers(r.Context(), group, event)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

type validateConfigRequest struct {
	APIOrigin          string `json:"api_origin"`
	ChannelsConfigJSON string `json:"channels_config_json"`
}

func (s *Server) handleValidateConfig(w http.ResponseWriter, r *http.Request) {
	var req validateConfigRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxWebhookBodySize)).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.APIOrigin != "" {
		if err := routingService.ValidateAPIOrigin(req.APIOrigin); err != nil {
			s.writeValidationError(w, err)
			return
		}
	}
	if err := routingService.ValidateChannelsConfigJSON(req.ChannelsConfigJSON); err != nil {
		s.writeValidationError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"valid":true}`))
}

func (s *Server) writeValidationError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]any{
		"valid": false,
		"error": err.Error(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
