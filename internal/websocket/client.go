package websocket

import (
	"contacts-backend/internal/logger"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pingInterval = 30 * time.Second
	writeWait    = 10 * time.Second
	sendBuffer   = 16
)

type WSClient struct {
	Conn     *websocket.Conn
	Message  chan *WSMessage
	ID       string
	RoomID   string
	UserID   string
	done     chan struct{} // closed when the read loop exits
	mu       sync.Mutex    // guards Conn writes
	isClosed bool
}

func newClient(conn *websocket.Conn, id, roomID, userID string) *WSClient {
	return &WSClient{
		Conn:    conn,
		Message: make(chan *WSMessage, sendBuffer),
		ID:      id,
		RoomID:  roomID,
		UserID:  userID,
		done:    make(chan struct{}),
	}
}

func (cl *WSClient) keepAlive() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cl.done:
			return
		case <-ticker.C:
			cl.mu.Lock()
			if cl.isClosed {
				cl.mu.Unlock()
				return
			}
			err := cl.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			cl.mu.Unlock()

			if err != nil {
				logger.Debug("websocket ping failed", "client", cl.ID, "error", err)
				return
			}
		}
	}
}

func (cl *WSClient) writeMessage() {
	defer func() {
		cl.mu.Lock()
		cl.isClosed = true
		cl.Conn.Close()
		cl.mu.Unlock()
	}()

	for {
		select {
		case <-cl.done:
			return
		case msg, ok := <-cl.Message:
			if !ok {
				cl.mu.Lock()
				_ = cl.Conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
				cl.mu.Unlock()
				return
			}

			cl.mu.Lock()
			if cl.isClosed {
				cl.mu.Unlock()
				return
			}
			_ = cl.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := cl.Conn.WriteMessage(websocket.TextMessage, msg.Payload)
			cl.mu.Unlock()

			if err != nil {
				logger.Warn("websocket write failed", "client", cl.ID, "room", cl.RoomID, "error", err)
				return
			}
		}
	}
}

// readMessage drains the connection so control frames are processed. The
// channel is push-only; anything the client sends is discarded.
func (cl *WSClient) readMessage(hub *Hub) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("websocket read loop panicked", "client", cl.ID, "panic", r)
		}

		close(cl.done)
		hub.leave(cl)
		logger.Debug("websocket client disconnected", "client", cl.ID, "room", cl.RoomID)
	}()

	cl.Conn.SetReadLimit(4 * 1024)

	for {
		if _, _, err := cl.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Debug("websocket read failed", "client", cl.ID, "error", err)
			}
			return
		}
	}
}
