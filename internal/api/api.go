package api

import (
	"contacts-backend/internal/database"
	"contacts-backend/internal/events"
	"contacts-backend/internal/logger"
	"contacts-backend/internal/queue"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type RouteRegistrar func(mux *http.ServeMux, s *APIServer)

type APIServer struct {
	listenAddr          string
	requestQueueManager *queue.RequestQueueManager
	db                  *database.Database
	publisher           events.Publisher
	routeRegistrars     []RouteRegistrar
	allowedOrigins      []string
	registry            *prometheus.Registry
	metrics             *metrics
}

func NewAPIServer(listenAddr string, rqm *queue.RequestQueueManager, db *database.Database, publisher events.Publisher, registrars ...RouteRegistrar) *APIServer {
	if publisher == nil {
		publisher = events.Discard{}
	}
	registry := prometheus.NewRegistry()

	return &APIServer{
		listenAddr:          listenAddr,
		requestQueueManager: rqm,
		db:                  db,
		publisher:           publisher,
		routeRegistrars:     registrars,
		allowedOrigins:      defaultAllowedOrigins(),
		registry:            registry,
		metrics:             newMetrics(registry, listenAddr, rqm),
	}
}

// Handler builds the routed and instrumented handler without listening.
func (s *APIServer) Handler() http.Handler {
	mux := http.NewServeMux()

	for _, reg := range s.routeRegistrars {
		reg(mux, s)
	}

	mux.Handle("/metrics", s.metrics.metricsHandler(s.registry))

	return s.metrics.instrument(mux)
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *APIServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", s.listenAddr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped", "addr", s.listenAddr)
	return nil
}

func (s *APIServer) Database() *database.Database {
	return s.db
}

func (s *APIServer) Publisher() events.Publisher {
	return s.publisher
}

func (s *APIServer) AllowedOrigins() []string {
	return s.allowedOrigins
}
