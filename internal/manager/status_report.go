package manager

import (
	"time"

	"ovid/pkg/types"
)

// Status builds a detailed status response for /status.
func (m *Manager) Status() types.StatusResponse {
	m.mu.RLock()
	lastErr := m.lastErr
	m.mu.RUnlock()
	state := "idle"
	inflight := len(m.genCh)
	if inflight > 0 {
		state = "busy"
	}
	now := time.Now()
	return types.StatusResponse{
		State:            state,
		QueueLen:         len(m.queueCh),
		Inflight:         inflight,
		MaxQueueDepth:    cap(m.queueCh),
		Pipelines:        m.pipelines.Kinds(),
		GenerationsTotal: m.generations.Load(),
		FailuresTotal:    m.failures.Load(),
		LastError:        lastErr,
		UptimeSeconds:    int64(now.Sub(m.startTime).Seconds()),
		ServerTimeUnix:   now.Unix(),
	}
}
