package forms

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cliossg/formkit/pkg/cl/httpx"
	"github.com/cliossg/formkit/pkg/cl/logger"
	"github.com/cliossg/formkit/pkg/cl/validation"
)

// Handler implements the form builder API.
type Handler struct {
	service Service
	log     logger.Logger
}

// NewHandler creates a new forms handler.
func NewHandler(service Service, log logger.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log,
	}
}

// Start initializes the handler.
func (h *Handler) Start(ctx context.Context) error {
	h.log.Info("Forms handler started")
	return nil
}

// RegisterRoutes registers the form and question routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	h.log.Info("Registering forms routes")

	r.Group(func(r chi.Router) {
		r.Get("/api/v1/forms", h.HandleListForms)
		r.Post("/api/v1/forms", h.HandleCreateForm)
		r.Get("/api/v1/forms/{id}", h.HandleGetForm)
		r.Patch("/api/v1/forms/{id}", h.HandleUpdateForm)
		r.Delete("/api/v1/forms/{id}", h.HandleDeleteForm)

		r.Post("/api/v1/forms/{id}/questions", h.HandleAddQuestion)
		r.Put("/api/v1/forms/{id}/questions/order", h.HandleReorderQuestions)
		r.Patch("/api/v1/forms/{id}/questions/{question_id}", h.HandleUpdateQuestion)
		r.Delete("/api/v1/forms/{id}/questions/{question_id}", h.HandleDeleteQuestion)

		r.Post("/api/v1/forms/{id}/questions/{question_id}/choices", h.HandleAddChoice)
		r.Patch("/api/v1/forms/{id}/questions/{question_id}/choices/{choice_id}", h.HandleRenameChoice)
		r.Delete("/api/v1/forms/{id}/questions/{question_id}/choices/{choice_id}", h.HandleRemoveChoice)
	})
}

// --- Forms ---

func (h *Handler) HandleListForms(w http.ResponseWriter, r *http.Request) {
	forms, err := h.service.SearchForms(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.OK(w, r, forms)
}

func (h *Handler) HandleCreateForm(w http.ResponseWriter, r *http.Request) {
	var draft FormDraft
	if err := httpx.Decode(r, &draft); err != nil {
		httpx.BadRequest(w, r, err)
		return
	}

	form, err := h.service.CreateForm(r.Context(), draft)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.Created(w, r, form)
}

func (h *Handler) HandleGetForm(w http.ResponseWriter, r *http.Request) {
	form, err := h.service.GetForm(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.OK(w, r, form)
}

func (h *Handler) HandleUpdateForm(w http.ResponseWriter, r *http.Request) {
	var patch FormPatch
	if err := httpx.Decode(r, &patch); err != nil {
		httpx.BadRequest(w, r, err)
		return
	}

	form, err := h.service.UpdateForm(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.OK(w, r, form)
}

func (h *Handler) HandleDeleteForm(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteForm(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.NoContent(w, r)
}

// --- Questions ---

func (h *Handler) HandleAddQuestion(w http.ResponseWriter, r *http.Request) {
	var draft QuestionDraft
	if err := httpx.Decode(r, &draft); err != nil {
		httpx.BadRequest(w, r, err)
		return
	}

	q, err := h.service.AddQuestion(r.Context(), chi.URLParam(r, "id"), draft)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.Created(w, r, q)
}

func (h *Handler) HandleUpdateQuestion(w http.ResponseWriter, r *http.Request) {
	var patch QuestionPatch
	if err := httpx.Decode(r, &patch); err != nil {
		httpx.BadRequest(w, r, err)
		return
	}

	q, err := h.service.UpdateQuestion(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "question_id"), patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.OK(w, r, q)
}

func (h *Handler) HandleReorderQuestions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Order []string `json:"order"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.BadRequest(w, r, err)
		return
	}

	formID := chi.URLParam(r, "id")
	if err := h.service.ReorderQuestions(r.Context(), formID, req.Order); err != nil {
		h.writeError(w, r, err)
		return
	}

	form, err := h.service.GetForm(r.Context(), formID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.OK(w, r, form)
}

func (h *Handler) HandleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteQuestion(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "question_id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.NoContent(w, r)
}

// --- Choices ---

func (h *Handler) HandleAddChoice(w http.ResponseWriter, r *http.Request) {
	var draft ChoiceDraft
	if r.ContentLength != 0 {
		if err := httpx.Decode(r, &draft); err != nil {
			httpx.BadRequest(w, r, err)
			return
		}
	}

	c, err := h.service.AddChoice(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "question_id"), draft)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.Created(w, r, c)
}

func (h *Handler) HandleRenameChoice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Label string `json:"label"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.BadRequest(w, r, err)
		return
	}

	c, err := h.service.RenameChoice(r.Context(),
		chi.URLParam(r, "id"), chi.URLParam(r, "question_id"), chi.URLParam(r, "choice_id"), req.Label)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.OK(w, r, c)
}

func (h *Handler) HandleRemoveChoice(w http.ResponseWriter, r *http.Request) {
	err := h.service.RemoveChoice(r.Context(),
		chi.URLParam(r, "id"), chi.URLParam(r, "question_id"), chi.URLParam(r, "choice_id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.NoContent(w, r)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if verrs, ok := validation.As(err); ok {
		httpx.ValidationError(w, r, verrs)
		return
	}

	switch {
	case errors.Is(err, ErrFormNotFound):
		httpx.Error(w, r, http.StatusNotFound, "not_found", "Form not found")
	case errors.Is(err, ErrQuestionNotFound):
		httpx.Error(w, r, http.StatusNotFound, "not_found", "Question not found")
	case errors.Is(err, ErrChoiceNotFound):
		httpx.Error(w, r, http.StatusNotFound, "not_found", "Choice not found")
	case errors.Is(err, ErrInvalidOrder):
		httpx.Error(w, r, http.StatusUnprocessableEntity, "invalid_order", err.Error())
	default:
		h.log.Errorf("forms request failed: %v", err)
		httpx.Internal(w, r)
	}
}
