package websocket

import (
	"contacts-backend/internal/api"
	"contacts-backend/internal/events"
	internaljwt "contacts-backend/internal/jwt"
	"contacts-backend/internal/logger"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewHandler accepts upgrades from allowedOrigins. Requests without an Origin
// header come from non-browser clients and are always accepted.
func NewHandler(hub *Hub, allowedOrigins []string) *Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}

	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				if _, ok := allowed["*"]; ok {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

// accessToken reads the user token from the Authorization header or, for
// browsers that cannot set headers on an upgrade, the token query parameter.
func accessToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// Events upgrades the request and joins the connection to its tenant's room.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) error {
	claims, err := internaljwt.ParseToken(accessToken(r), internaljwt.RoleUser)
	if err != nil {
		return &api.HTTPError{StatusCode: http.StatusUnauthorized, Message: "Unauthorized", ErrorLog: err}
	}
	user := internaljwt.UserFromClaims(claims)
	if user.Id == "" || user.TenantID == "" {
		return &api.HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Unauthorized",
			ErrorLog:   fmt.Errorf("token is missing user or tenant id"),
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written the error response.
		logger.FromContext(r.Context()).Debug("websocket upgrade failed", "error", err)
		return nil
	}

	cl := newClient(conn, uuid.NewString(), events.Channel(user.TenantID), user.Id)
	if !h.hub.join(cl) {
		conn.Close()
		return nil
	}

	go cl.keepAlive()
	go cl.writeMessage()
	go cl.readMessage(h.hub)

	logger.FromContext(r.Context()).Debug("websocket client joined", "client", cl.ID, "room", cl.RoomID)
	return nil
}

func (h *Handler) Rooms(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodGet {
		return &api.HTTPError{
			StatusCode: http.StatusMethodNotAllowed,
			Message:    "Method not allowed.",
			ErrorLog:   fmt.Errorf("method %s not allowed on %s", r.Method, r.URL.Path),
		}
	}
	rooms, err := h.hub.Rooms(r.Context())
	if err != nil {
		return err
	}
	return api.WriteJSON(w, http.StatusOK, rooms)
}

// Relay forwards every tenant channel published on Redis into the hub until
// ctx ends.
func Relay(ctx context.Context, client *redis.Client, hub *Hub) error {
	sub := client.PSubscribe(ctx, events.Channel("*"))
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("websocket relay: subscribe: %w", err)
	}
	logger.Info("websocket relay subscribed", "pattern", events.Channel("*"))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if err := hub.Deliver(ctx, msg.Channel, []byte(msg.Payload)); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("websocket relay: %w", err)
			}
		}
	}
}
