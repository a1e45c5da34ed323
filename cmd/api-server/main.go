package main

import (
	"contacts-backend/internal/api"
	"contacts-backend/internal/api/router"
	"contacts-backend/internal/database"
	"contacts-backend/internal/env"
	"contacts-backend/internal/events"
	"contacts-backend/internal/logger"
	"contacts-backend/internal/queue"
	contactsservice "contacts-backend/internal/service/contacts"
	"contacts-backend/internal/websocket"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

const prefix = "/api/v1"

func main() {
	env.Load()
	logger.Init(env.GetOrDefault(env.LogLevel, "info"), env.GetOrDefault(env.LogFormat, "json"))

	if err := run(); err != nil {
		logger.Error("api server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queueManager := queue.NewRequestQueueManager(env.GetInt(env.QueueSize, 100), env.GetInt(env.QueueWorkers, 10))
	defer queueManager.Shutdown()

	registrars := []api.RouteRegistrar{router.UtilsRoutes(prefix)}

	var (
		db        *database.Database
		publisher events.Publisher
	)

	switch storage := env.GetOrDefault(env.Storage, "dynamodb"); storage {
	case "dynamodb":
		if err := env.Require(env.ServerRequired...); err != nil {
			return err
		}
		var err error
		db, err = database.NewDatabase(ctx)
		if err != nil {
			return fmt.Errorf("db init failed: %w", err)
		}
		redisClient := websocket.NewRedisClient(env.Get(env.EventsRedisURL), env.Get(env.EventsRedisPass))
		defer redisClient.Close()
		publisher = websocket.NewRedisPublisher(redisClient)
		registrars = append(registrars, router.ContactsRoutes(prefix))

	case "memory":
		// One process serves both the API and the event stream.
		hub := websocket.NewHub()
		go hub.Run(ctx)
		publisher = websocket.NewHubPublisher(hub)
		service := contactsservice.NewWithRepository(contactsservice.NewMemoryRepository(), publisher, nil)
		registrars = append(registrars,
			router.ContactsServiceRoutes(prefix, service),
			router.EventsWebsocketRoutes("/api/ws/v1", hub),
		)
		logger.Warn("contacts are held in memory and lost on exit")

	default:
		return fmt.Errorf("unknown %s %q", env.Storage, storage)
	}

	server := api.NewAPIServer(
		env.GetOrDefault(env.ListenAddr, ":8080"),
		queueManager,
		db,
		publisher,
		registrars...,
	)

	return server.Run(ctx)
}
