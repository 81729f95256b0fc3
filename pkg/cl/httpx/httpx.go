// Package httpx holds the JSON response helpers shared by the feature handlers.
package httpx

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/render"

	"github.com/cliossg/formkit/pkg/cl/validation"
)

// ErrorBody is the error envelope returned by every JSON endpoint.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

func OK(w http.ResponseWriter, r *http.Request, data any) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, data)
}

func Created(w http.ResponseWriter, r *http.Request, data any) {
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, data)
}

func NoContent(w http.ResponseWriter, r *http.Request) {
	render.NoContent(w, r)
}

// Error writes the error envelope with the given status.
func Error(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorBody{Error: ErrorDetail{Code: code, Message: message}})
}

// ValidationError writes a 400 listing the messages per field.
func ValidationError(w http.ResponseWriter, r *http.Request, errs validation.ValidationErrors) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ErrorBody{Error: ErrorDetail{
		Code:    "validation_error",
		Message: errs.Error(),
		Fields:  errs.AsMap(),
	}})
}

// Decode reads a JSON request body into v. An empty body is a decode error.
func Decode(r *http.Request, v any) error {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return err
	}
	return nil
}

// BadRequest writes a 400 for an undecodable body.
func BadRequest(w http.ResponseWriter, r *http.Request, err error) {
	Error(w, r, http.StatusBadRequest, "invalid_request", "Invalid JSON body: "+err.Error())
}

// Internal writes a 500 without leaking err to the client.
func Internal(w http.ResponseWriter, r *http.Request) {
	Error(w, r, http.StatusInternalServerError, "internal_error", "Internal server error")
}
