package analytics

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cliossg/formkit/internal/feat/forms"
	"github.com/cliossg/formkit/pkg/cl/httpx"
	"github.com/cliossg/formkit/pkg/cl/logger"
)

type Handler struct {
	service Service
	log     logger.Logger
}

func NewHandler(service Service, log logger.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log,
	}
}

func (h *Handler) Start(ctx context.Context) error {
	h.log.Info("Analytics handler started")
	return nil
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	h.log.Info("Registering analytics routes")

	r.Group(func(r chi.Router) {
		r.Get("/api/v1/forms/{id}/stats", h.HandleStats)
		r.Get("/api/v1/dashboard", h.HandleDashboard)
	})
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.OK(w, r, stats)
}

func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.Dashboard(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.OK(w, r, o)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, forms.ErrFormNotFound) {
		httpx.Error(w, r, http.StatusNotFound, "not_found", "Form not found")
		return
	}
	h.log.Errorf("analytics request failed: %v", err)
	httpx.Internal(w, r)
}
