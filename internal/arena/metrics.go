package arena

import "expvar"

var (
	metricMatchesStarted   = expvar.NewInt("matches_started_total")
	metricMatchesCompleted = expvar.NewInt("matches_completed_total")
	metricMatchesFailed    = expvar.NewInt("matches_failed_total")
	metricMatchesRunning   = expvar.NewInt("matches_running")
	metricLastMatchMS      = expvar.NewInt("match_last_duration_ms")
)
