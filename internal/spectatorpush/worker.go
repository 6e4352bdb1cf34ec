package spectatorpush

import (
	"context"
	"errors"

	"claw-colosseum/internal/spectatorpush/platforms"

	"github.com/rs/zerolog/log"
)

var errCircuitOpen = errors.New("circuit_open")

type panelCleaner interface {
	ForgetPanel(endpoint, panelKey string)
}

func (m *Manager) worker(ctx context.Context, jobs <-chan pushJob) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-jobs:
			m.processJob(ctx, job)
		}
	}
}

func (m *Manager) processJob(ctx context.Context, job pushJob) {
	adapter := m.adapters[job.Target.Platform]
	if adapter == nil {
		metricPushDroppedTotal.Add(1)
		return
	}

	if !m.breakerAllows(job.key()) {
		metricPushCircuitOpenTotal.Add(1)
		m.retryOrDrop(job, errCircuitOpen)
		return
	}

	if err := adapter.Send(ctx, job.Target.Endpoint, job.Target.Secret, toPlatformMessage(job.Formatted)); err != nil {
		metricPushFailedTotal.Add(1)
		m.afterFailure(job.key())
		m.retryOrDrop(job, err)
		return
	}

	metricPushSentTotal.Add(1)
	m.afterSuccess(job.key())
	if job.Terminal {
		if c, ok := adapter.(panelCleaner); ok {
			c.ForgetPanel(job.Target.Endpoint, job.Formatted.PanelKey)
		}
	}
}

// retryOrDrop backs off exponentially from RetryBase until RetryMax.
func (m *Manager) retryOrDrop(job pushJob, err error) {
	if job.Attempt >= m.cfg.RetryMax {
		metricPushRetryDroppedTotal.Add(1)
		log.Warn().Err(err).Str("platform", job.Target.Platform).Str("panel", job.Formatted.PanelKey).Msg("spectator push dropped")
		return
	}
	job.Attempt++
	metricPushRetryTotal.Add(1)
	m.retryQ.Enqueue(job, m.cfg.RetryBase<<(job.Attempt-1))
}

func (m *Manager) breakerAllows(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.breakerByKey[key]
	return st.openUntil.IsZero() || !m.now().Before(st.openUntil)
}

func (m *Manager) afterFailure(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.breakerByKey[key]
	st.consecutiveFailures++
	if st.consecutiveFailures >= m.cfg.FailureThreshold {
		st.openUntil = m.now().Add(m.cfg.CircuitOpenDuration)
		st.consecutiveFailures = 0
	}
	m.breakerByKey[key] = st
}

func (m *Manager) afterSuccess(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.breakerByKey, key)
}

func toPlatformMessage(msg FormattedMessage) platforms.Message {
	fields := make([]platforms.Field, 0, len(msg.Fields))
	for _, f := range msg.Fields {
		fields = append(fields, platforms.Field{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	return platforms.Message{
		PanelKey:    msg.PanelKey,
		Title:       msg.Title,
		Content:     msg.Content,
		Description: msg.Description,
		Color:       msg.Color,
		Timestamp:   msg.Timestamp,
		Footer:      msg.Footer,
		Fields:      fields,
	}
}
