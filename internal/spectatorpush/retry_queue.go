package spectatorpush

import "time"

// retryQueue re-dispatches a job after a delay unless the manager has
// stopped by then.
type retryQueue struct {
	dispatch func(pushJob) bool
	done     <-chan struct{}
}

func newRetryQueue(dispatch func(pushJob) bool, done <-chan struct{}) *retryQueue {
	return &retryQueue{dispatch: dispatch, done: done}
}

func (q *retryQueue) Enqueue(job pushJob, delay time.Duration) {
	if delay < 0 {
		delay = 0
	}
	time.AfterFunc(delay, func() {
		select {
		case <-q.done:
			return
		default:
		}
		if !q.dispatch(job) {
			metricPushRetryDroppedTotal.Add(1)
		}
	})
}
