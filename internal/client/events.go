package client

import (
	"contacts-backend/internal/events"
	"contacts-backend/internal/logger"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const handshakeTimeout = 10 * time.Second

// Listen connects to the event stream at wsURL, for example
// "ws://localhost:8083/api/ws/v1/events", and calls fn for each tenant event
// until ctx ends or the connection drops. fn runs on the read loop.
func (c *Client) Listen(ctx context.Context, wsURL string, fn func(events.Event)) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)

	conn, resp, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("event stream: handshake: status %d: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("event stream: dial: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		conn.Close()
	})
	defer stop()

	log := logger.FromContext(ctx)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("event stream: read: %w", err)
		}

		var event events.Event
		if err := json.Unmarshal(data, &event); err != nil {
			log.Debug("dropping malformed event", "error", err)
			continue
		}
		fn(event)
	}
}

// IsClosed reports whether err ends a Listen call normally.
func IsClosed(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}
