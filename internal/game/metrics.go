package game

import "expvar"

var (
	metricExecutorFallbacks = expvar.NewInt("executor_fallbacks_total")
	metricExecutorFailures  = expvar.NewInt("executor_failures_total")
	metricStagesCompleted   = expvar.NewInt("match_stages_completed_total")
)
