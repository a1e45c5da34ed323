package websocket

import "github.com/prometheus/client_golang/prometheus"

var (
	wsConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "contacts_ws_connections",
			Help: "Current number of active websocket connections.",
		},
	)
	wsRooms = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "contacts_ws_rooms",
			Help: "Current number of tenant rooms with at least one connection.",
		},
	)
	wsMessagesDelivered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "contacts_ws_messages_delivered_total",
			Help: "Total websocket messages delivered to clients.",
		},
	)
	wsClientsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "contacts_ws_clients_dropped_total",
			Help: "Clients disconnected because their send buffer was full.",
		},
	)
)

func init() {
	prometheus.MustRegister(wsConnections, wsRooms, wsMessagesDelivered, wsClientsDropped)
}

func incConnections() {
	wsConnections.Inc()
}

func decConnections() {
	wsConnections.Dec()
}

func setRooms(count int) {
	wsRooms.Set(float64(count))
}

func addDelivered(count int) {
	wsMessagesDelivered.Add(float64(count))
}

func incDropped() {
	wsClientsDropped.Inc()
}
