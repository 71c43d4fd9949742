// Package api exposes email.Request sending over HTTP.
//
//	POST /v1/emails   body: email.Request as JSON, 202 on success
//	GET  /healthz     200 while the server is up
package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/pkg/errors"

	"github.com/pure-golang/emails/email"
	"github.com/pure-golang/emails/httpserver/middleware"
	"github.com/pure-golang/emails/logger"
)

const maxRequestBody = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

type sendResponse struct {
	Status string `json:"status"`
}

type HandlerOptions struct {
	Logger *slog.Logger
}

type handler struct {
	manager *email.Manager
	logger  *slog.Logger
}

// NewHandler routes the API to m, wrapped in the monitoring and recovery
// middleware.
func NewHandler(m *email.Manager, opts *HandlerOptions) http.Handler {
	if opts == nil {
		opts = &HandlerOptions{}
	}
	h := &handler{manager: m, logger: logger.Named(opts.Logger, "api")}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/emails", h.send)
	mux.HandleFunc("GET /healthz", h.health)

	return middleware.Monitoring(middleware.Recovery(mux))
}

func (h *handler) send(w http.ResponseWriter, r *http.Request) {
	var req email.Request
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}
	if err := req.Validate(); err != nil {
		h.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	}

	if err := req.Send(r.Context(), h.manager); err != nil {
		logger.FromContextWithErr(r.Context(), err).Error("failed to send email", "template", req.Template)
		h.writeJSON(w, http.StatusBadGateway, errorResponse{Error: errors.Cause(err).Error()})
		return
	}

	h.writeJSON(w, http.StatusAccepted, sendResponse{Status: "accepted"})
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, sendResponse{Status: "ok"})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("failed to write response", "error", err.Error())
	}
}
