package agentgateway

import "expvar"

var (
	metricAgentSSEConnectionsTotal  = expvar.NewInt("agent_sse_connections_total")
	metricAgentSSEConnectionsActive = expvar.NewInt("agent_sse_connections_active")
	metricInboxesActive             = expvar.NewInt("agent_inboxes_active")
)
