package router

import (
	"contacts-backend/internal/api"
	"contacts-backend/internal/api/middleware"
	"contacts-backend/internal/websocket"
	"net/http"
)

// EventsWebsocketRoutes mounts the tenant event stream. The stream
// authenticates its own token because browsers pass it as a query parameter.
func EventsWebsocketRoutes(prefix string, hub *websocket.Hub) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		handler := websocket.NewHandler(hub, s.AllowedOrigins())
		mux.HandleFunc(prefix+"/events", s.MakeHTTPHandleFunc(handler.Events))
		mux.HandleFunc(prefix+"/rooms", s.MakeHTTPHandleFunc(handler.Rooms, middleware.ValidateAdminJWT))
	}
}
