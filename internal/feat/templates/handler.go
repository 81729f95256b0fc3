package templates

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cliossg/formkit/pkg/cl/httpx"
	"github.com/cliossg/formkit/pkg/cl/logger"
	"github.com/cliossg/formkit/pkg/cl/validation"
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
	h.log.Info("Templates handler started")
	return nil
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	h.log.Info("Registering templates routes")

	r.Group(func(r chi.Router) {
		r.Get("/api/v1/templates", h.HandleList)
		r.Get("/api/v1/templates/categories", h.HandleCategories)
		r.Get("/api/v1/templates/{id}", h.HandleGet)
		r.Post("/api/v1/templates/{id}/instantiate", h.HandleInstantiate)
	})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	httpx.OK(w, r, h.service.Search(r.Context(), q.Get("q"), q.Get("category")))
}

func (h *Handler) HandleCategories(w http.ResponseWriter, r *http.Request) {
	categories := h.service.Categories(r.Context())
	if categories == nil {
		categories = []string{}
	}
	httpx.OK(w, r, categories)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.OK(w, r, t)
}

func (h *Handler) HandleInstantiate(w http.ResponseWriter, r *http.Request) {
	form, err := h.service.Instantiate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.Created(w, r, form)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if verrs, ok := validation.As(err); ok {
		httpx.ValidationError(w, r, verrs)
		return
	}
	if errors.Is(err, ErrTemplateNotFound) {
		httpx.Error(w, r, http.StatusNotFound, "not_found", "Template not found")
		return
	}
	h.log.Errorf("templates request failed: %v", err)
	httpx.Internal(w, r)
}
