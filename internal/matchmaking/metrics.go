package matchmaking

import "expvar"

var (
	metricQueueJoinsTotal     = expvar.NewInt("queue_joins_total")
	metricQueueLeavesTotal    = expvar.NewInt("queue_leaves_total")
	metricQueueWaiting        = expvar.NewInt("queue_waiting")
	metricPairingsTotal       = expvar.NewInt("queue_pairings_total")
	metricForcedPairingsTotal = expvar.NewInt("queue_forced_pairings_total")
	metricTickErrorsTotal     = expvar.NewInt("queue_tick_errors_total")
	metricJobsQueued          = expvar.NewInt("match_jobs_queued")
	metricJobsFailedTotal     = expvar.NewInt("match_jobs_failed_total")
)
