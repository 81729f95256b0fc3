package responses

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cliossg/formkit/internal/feat/forms"
	"github.com/cliossg/formkit/pkg/cl/httpx"
	"github.com/cliossg/formkit/pkg/cl/logger"
)

// Handler implements response submission and the builder's response views.
type Handler struct {
	service  Service
	forms    FormLookup
	metadata *MetadataReader
	guard    func(http.Handler) http.Handler
	log      logger.Logger
}

// NewHandler creates a new responses handler. guard wraps the public
// submission route.
func NewHandler(service Service, forms FormLookup, metadata *MetadataReader, guard func(http.Handler) http.Handler, log logger.Logger) *Handler {
	return &Handler{
		service:  service,
		forms:    forms,
		metadata: metadata,
		guard:    guard,
		log:      log,
	}
}

// Start initializes the handler.
func (h *Handler) Start(ctx context.Context) error {
	h.log.Info("Responses handler started")
	return nil
}

// RegisterRoutes registers submission and listing routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	h.log.Info("Registering responses routes")

	// Public submission (CORS + rate limit)
	r.Group(func(r chi.Router) {
		r.Use(h.guard)
		r.Post("/api/v1/forms/{id}/responses", h.HandleSubmit)
		r.Options("/api/v1/forms/{id}/responses", func(w http.ResponseWriter, r *http.Request) {})
	})

	r.Group(func(r chi.Router) {
		r.Get("/api/v1/forms/{id}/responses", h.HandleListResponses)
		r.Get("/api/v1/forms/{id}/responses.csv", h.HandleExportCSV)
		r.Get("/api/v1/responses/{id}", h.HandleGetResponse)
	})
}

func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Answers  map[string]Answer `json:"answers"`
		Metadata Metadata          `json:"metadata"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.BadRequest(w, r, err)
		return
	}

	draft := Draft{
		FormID:  chi.URLParam(r, "id"),
		Answers: req.Answers,
		// The client only decides when the respondent started
		Metadata: h.metadata.Read(r, Metadata{StartedAt: req.Metadata.StartedAt}),
	}

	resp, err := h.service.Submit(r.Context(), draft)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.Created(w, r, resp)
}

func (h *Handler) HandleListResponses(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "id")
	if _, err := h.forms.GetForm(r.Context(), formID); err != nil {
		h.writeError(w, r, err)
		return
	}

	list, err := h.service.List(r.Context(), formID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.OK(w, r, list)
}

func (h *Handler) HandleExportCSV(w http.ResponseWriter, r *http.Request) {
	form, err := h.forms.GetForm(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	list, err := h.service.List(r.Context(), form.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-responses.csv"`, form.ID))
	if err := WriteCSV(w, form, list); err != nil {
		h.log.Errorf("cannot export responses for form %s: %v", form.ID, err)
	}
}

func (h *Handler) HandleGetResponse(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.OK(w, r, resp)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, forms.ErrFormNotFound):
		httpx.Error(w, r, http.StatusNotFound, "not_found", "Form not found")
	case errors.Is(err, ErrResponseNotFound):
		httpx.Error(w, r, http.StatusNotFound, "not_found", "Response not found")
	case errors.Is(err, ErrAlreadySubmitted):
		httpx.Error(w, r, http.StatusConflict, "already_submitted", "This form only accepts one response per respondent")
	default:
		h.log.Errorf("responses request failed: %v", err)
		httpx.Internal(w, r)
	}
}
