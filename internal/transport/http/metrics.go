package httptransport

import "expvar"

var (
	metricRegisterTotal  = expvar.NewInt("agent_register_total")
	metricShieldSubmits  = expvar.NewInt("shield_submit_total")
	metricQueueHTTPJoins = expvar.NewInt("queue_http_joins_total")

	metricMoltVerifyTotal    = expvar.NewInt("molt_verify_total")
	metricMoltVerifyFailures = expvar.NewInt("molt_verify_invalid_total")
)
