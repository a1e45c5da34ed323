package websocket

// Room holds the live connections of one tenant.
type Room struct {
	ID      string
	Clients map[string]*WSClient
}

// WSMessage is one text frame fanned out to every client in RoomID.
type WSMessage struct {
	RoomID  string
	Payload []byte
}

type RoomRes struct {
	ID      string `json:"id"`
	Clients int    `json:"clients"`
}
