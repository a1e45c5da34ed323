package api

import (
	"contacts-backend/internal/api/middleware"
	"contacts-backend/internal/env"
	"contacts-backend/internal/logger"
	"contacts-backend/internal/queue"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

type apiFunc func(http.ResponseWriter, *http.Request) error

func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// defaultAllowedOrigins is the local dev origin plus the comma-separated WEB_URL list.
func defaultAllowedOrigins() []string {
	origins := []string{"http://localhost:3000"}
	for _, o := range strings.Split(env.Get(env.WebUrl), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func (s *APIServer) MakeHTTPHandleFunc(f apiFunc, authMiddleware ...middleware.Middleware) http.HandlerFunc {
	corsConfig := middleware.CORSConfig{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "OPTIONS", "DELETE"},
		AllowedHeaders:   []string{"Content-Type", "X-Requested-With", "X-Request-ID", "Authorization"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}

	baseHandler := func(w http.ResponseWriter, r *http.Request) {
		errc := make(chan error, 1)

		job := queue.Job{
			Fn: func() error {
				return f(w, r)
			},
			Errc: errc,
		}

		if err := s.requestQueueManager.EnqueueJob(r.Context(), job); err != nil {
			WriteJSON(w, http.StatusServiceUnavailable, ApiError{Error: "Server is busy"})
			return
		}

		err := <-errc
		if err != nil {
			log := logger.FromContext(r.Context())
			var httpErr *HTTPError
			if errors.As(err, &httpErr) {
				if httpErr.StatusCode >= http.StatusInternalServerError {
					log.Error("request failed", "status", httpErr.StatusCode, "error", httpErr.ErrorLog)
				} else {
					log.Debug("request rejected", "status", httpErr.StatusCode, "error", httpErr.ErrorLog)
				}
				WriteJSON(w, httpErr.StatusCode, ApiError{Error: httpErr.Message})
			} else {
				log.Error("request failed", "error", err)
				WriteJSON(w, http.StatusInternalServerError, ApiError{Error: "Internal server error"})
			}
		}
	}

	middlewares := []middleware.Middleware{
		middleware.CORS(corsConfig),
		middleware.Logging(),
	}

	finalHandler := func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		if len(authMiddleware) > 0 {
			middleware.Chain(baseHandler, authMiddleware...)(w, r)
		} else {
			baseHandler(w, r)
		}
	}

	return middleware.Chain(finalHandler, middlewares...)
}
