package ws

import "expvar"

var (
	metricWSConnectionsTotal  = expvar.NewInt("ws_connections_total")
	metricWSConnectionsActive = expvar.NewInt("ws_connections_active")
	metricWSDroppedMessages   = expvar.NewInt("ws_dropped_messages_total")
	metricWSDisconnectLeaves  = expvar.NewInt("ws_disconnect_dequeues_total")
)
