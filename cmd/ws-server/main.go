package main

import (
	"contacts-backend/internal/api"
	"contacts-backend/internal/api/router"
	"contacts-backend/internal/env"
	"contacts-backend/internal/logger"
	"contacts-backend/internal/queue"
	"contacts-backend/internal/websocket"
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
)

const prefix = "/api/ws/v1"

func main() {
	env.Load()
	logger.Init(env.GetOrDefault(env.LogLevel, "info"), env.GetOrDefault(env.LogFormat, "json"))

	if err := run(); err != nil {
		logger.Error("websocket server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if err := env.Require(env.UserSecretKey, env.EventsRedisURL); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queueManager := queue.NewRequestQueueManager(env.GetInt(env.QueueSize, 100), env.GetInt(env.QueueWorkers, 10))
	defer queueManager.Shutdown()

	redisClient := websocket.NewRedisClient(env.Get(env.EventsRedisURL), env.Get(env.EventsRedisPass))
	defer redisClient.Close()

	hub := websocket.NewHub()

	server := api.NewAPIServer(
		env.GetOrDefault(env.ListenAddr, ":8083"),
		queueManager,
		nil,
		nil,
		router.UtilsRoutes(prefix),
		router.EventsWebsocketRoutes(prefix, hub),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		return websocket.Relay(ctx, redisClient, hub)
	})
	g.Go(func() error {
		return server.Run(ctx)
	})
	return g.Wait()
}
