package websocket

import (
	"context"
	"errors"
)

var ErrHubClosed = errors.New("websocket: hub is closed")

// Hub owns every room. All room state is touched only from Run.
type Hub struct {
	Register   chan *WSClient
	Unregister chan *WSClient
	Broadcast  chan *WSMessage

	rooms    map[string]*Room
	snapshot chan chan []RoomRes
	done     chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		Register:   make(chan *WSClient),
		Unregister: make(chan *WSClient),
		Broadcast:  make(chan *WSMessage),
		rooms:      make(map[string]*Room),
		snapshot:   make(chan chan []RoomRes),
		done:       make(chan struct{}),
	}
}

// Run serves registrations and broadcasts until ctx ends. Remaining clients
// have their send channels closed on the way out.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for _, room := range h.rooms {
				for _, client := range room.Clients {
					close(client.Message)
					decConnections()
				}
			}
			h.rooms = make(map[string]*Room)
			setRooms(0)
			return

		case client := <-h.Register:
			room, ok := h.rooms[client.RoomID]
			if !ok {
				room = &Room{
					ID:      client.RoomID,
					Clients: make(map[string]*WSClient),
				}
				h.rooms[client.RoomID] = room
				setRooms(len(h.rooms))
			}
			room.Clients[client.ID] = client
			incConnections()

		case client := <-h.Unregister:
			h.remove(client)

		case message := <-h.Broadcast:
			room, ok := h.rooms[message.RoomID]
			if !ok {
				continue
			}
			delivered := 0
			for _, client := range room.Clients {
				select {
				case client.Message <- message:
					delivered++
				default:
					incDropped()
					h.remove(client)
				}
			}
			if delivered > 0 {
				addDelivered(delivered)
			}

		case reply := <-h.snapshot:
			rooms := make([]RoomRes, 0, len(h.rooms))
			for _, room := range h.rooms {
				rooms = append(rooms, RoomRes{ID: room.ID, Clients: len(room.Clients)})
			}
			reply <- rooms
		}
	}
}

func (h *Hub) remove(client *WSClient) {
	room, ok := h.rooms[client.RoomID]
	if !ok {
		return
	}
	if current, ok := room.Clients[client.ID]; !ok || current != client {
		return
	}
	delete(room.Clients, client.ID)
	close(client.Message)
	decConnections()

	if len(room.Clients) == 0 {
		delete(h.rooms, room.ID)
		setRooms(len(h.rooms))
	}
}

// Deliver queues payload for every client in roomID.
func (h *Hub) Deliver(ctx context.Context, roomID string, payload []byte) error {
	select {
	case h.Broadcast <- &WSMessage{RoomID: roomID, Payload: payload}:
		return nil
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Rooms lists the open rooms and their connection counts.
func (h *Hub) Rooms(ctx context.Context) ([]RoomRes, error) {
	reply := make(chan []RoomRes, 1)
	select {
	case h.snapshot <- reply:
	case <-h.done:
		return nil, ErrHubClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return <-reply, nil
}

func (h *Hub) join(client *WSClient) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(client *WSClient) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}
