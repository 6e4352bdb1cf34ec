package spectatorgateway

import "expvar"

var (
	metricSpectatorSSEConnectionsTotal  = expvar.NewInt("spectator_sse_connections_total")
	metricSpectatorSSEConnectionsActive = expvar.NewInt("spectator_sse_connections_active")
	// Matches started but not yet ended or failed.
	metricLiveMatches = expvar.NewInt("spectator_live_matches")
)
