package endpoints

import (
	"contacts-backend/internal/api"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

type HTTPError = api.HTTPError

type ApiMessageResponse struct {
	Message string `json:"message"`
}

const maxBodyBytes = 10 << 20

func WriteJSON(w http.ResponseWriter, status int, v any) error {
	return api.WriteJSON(w, status, v)
}

func MethodHandler(
	w http.ResponseWriter,
	r *http.Request,
	allowed map[string]func(http.ResponseWriter, *http.Request) error,
) error {
	if handler, ok := allowed[r.Method]; ok {
		return handler(w, r)
	}
	return &HTTPError{
		StatusCode: http.StatusMethodNotAllowed,
		Message:    "Method not allowed.",
		ErrorLog:   fmt.Errorf("method %s not allowed on %s", r.Method, r.URL.Path),
	}
}

// decodeJSON reads a single JSON document from the body. An empty body decodes to the zero value.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func invalidPayload(op string, err error) error {
	return &HTTPError{
		StatusCode: http.StatusBadRequest,
		Message:    "Invalid request payload",
		ErrorLog:   fmt.Errorf("decode %s request: %w", op, err),
	}
}

func badRequest(message string, err error) error {
	return &HTTPError{
		StatusCode: http.StatusBadRequest,
		Message:    message,
		ErrorLog:   err,
	}
}
