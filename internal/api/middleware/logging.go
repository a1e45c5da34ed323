package middleware

import (
	"bufio"
	"contacts-backend/internal/logger"
	"contacts-backend/utils"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := r.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, fmt.Errorf("statusRecorder: underlying ResponseWriter does not support hijacking")
}

// Logging emits one access-log record per request and hands the handler a
// request-scoped logger carrying the request id.
func Logging() Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}

			reqID := r.Header.Get("X-Request-ID")
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", reqID)

			reqLogger := logger.FromContext(r.Context()).With("request_id", reqID)
			next(rec, r.WithContext(logger.WithContext(r.Context(), reqLogger)))

			reqLogger.Info("http request",
				"method", r.Method,
				"uri", r.URL.RequestURI(),
				"status", rec.status,
				"size", rec.size,
				"duration", time.Since(start).String(),
				"client_ip", utils.RealClientIP(r),
				"user_agent", r.UserAgent(),
				"referer", r.Referer(),
			)
		}
	}
}
