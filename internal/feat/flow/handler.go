package flow

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cliossg/formkit/internal/feat/forms"
	"github.com/cliossg/formkit/internal/feat/responses"
	"github.com/cliossg/formkit/pkg/cl/httpx"
	"github.com/cliossg/formkit/pkg/cl/logger"
)

// Guard supplies the public-route middleware. Middleware adds the per-address
// rate limit on top of CORS.
type Guard interface {
	CORS(next http.Handler) http.Handler
	Middleware(next http.Handler) http.Handler
}

// Handler serves the respondent session API.
type Handler struct {
	service  Service
	metadata *responses.MetadataReader
	guard    Guard
	log      logger.Logger
}

func NewHandler(service Service, metadata *responses.MetadataReader, guard Guard, log logger.Logger) *Handler {
	return &Handler{
		service:  service,
		metadata: metadata,
		guard:    guard,
		log:      log,
	}
}

func (h *Handler) Start(ctx context.Context) error {
	h.log.Info("Flow handler started")
	return nil
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	h.log.Info("Registering flow routes")

	preflight := func(w http.ResponseWriter, r *http.Request) {}

	// Opening and submitting a session are rate limited
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Middleware)
		r.Post("/api/v1/forms/{id}/sessions", h.HandleBegin)
		r.Options("/api/v1/forms/{id}/sessions", preflight)
		r.Post("/api/v1/sessions/{id}/submit", h.HandleSubmit)
		r.Options("/api/v1/sessions/{id}/submit", preflight)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.guard.CORS)
		r.Get("/api/v1/sessions/{id}", h.HandleGet)
		r.Put("/api/v1/sessions/{id}/active", h.HandleSetActive)
		r.Post("/api/v1/sessions/{id}/next", h.HandleNext)
		r.Post("/api/v1/sessions/{id}/previous", h.HandlePrevious)
		r.Put("/api/v1/sessions/{id}/answers/{question_id}", h.HandleAnswer)
		r.Options("/api/v1/sessions/*", preflight)
	})
}

func (h *Handler) HandleBegin(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Begin(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.Created(w, r, st)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r)(h.service.Get(r.Context(), chi.URLParam(r, "id")))
}

func (h *Handler) HandleSetActive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index *int `json:"index"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.BadRequest(w, r, err)
		return
	}
	if req.Index == nil {
		httpx.Error(w, r, http.StatusBadRequest, "invalid_request", "index is required")
		return
	}
	h.respond(w, r)(h.service.SetActive(r.Context(), chi.URLParam(r, "id"), *req.Index))
}

func (h *Handler) HandleNext(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r)(h.service.Next(r.Context(), chi.URLParam(r, "id")))
}

func (h *Handler) HandlePrevious(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r)(h.service.Previous(r.Context(), chi.URLParam(r, "id")))
}

func (h *Handler) HandleAnswer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value responses.Answer `json:"value"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.BadRequest(w, r, err)
		return
	}
	h.respond(w, r)(h.service.Answer(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "question_id"), req.Value))
}

func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Submit(r.Context(), chi.URLParam(r, "id"), h.metadata.Read(r, responses.Metadata{}))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.Created(w, r, resp)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request) func(*State, error) {
	return func(st *State, err error) {
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		httpx.OK(w, r, st)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		httpx.Error(w, r, http.StatusNotFound, "not_found", "Session not found")
	case errors.Is(err, forms.ErrFormNotFound):
		httpx.Error(w, r, http.StatusNotFound, "not_found", "Form not found")
	case errors.Is(err, forms.ErrQuestionNotFound):
		httpx.Error(w, r, http.StatusNotFound, "not_found", "Question not found")
	case errors.Is(err, ErrAnswerRequired):
		httpx.Error(w, r, http.StatusUnprocessableEntity, "answer_required", err.Error())
	case errors.Is(err, ErrSessionClosed):
		httpx.Error(w, r, http.StatusConflict, "session_closed", "This session was already submitted")
	case errors.Is(err, responses.ErrAlreadySubmitted):
		httpx.Error(w, r, http.StatusConflict, "already_submitted", "This form only accepts one response per respondent")
	default:
		h.log.Errorf("flow request failed: %v", err)
		httpx.Internal(w, r)
	}
}
