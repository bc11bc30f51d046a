package manager

import (
	"context"
	"time"
)

// beginGeneration reserves a queue slot and then the single in-flight slot.
// Returns a release func to be deferred.
func (m *Manager) beginGeneration(ctx context.Context) (func(), error) {
	// Fast path: respect an already-canceled context
	if err := ctx.Err(); err != nil {
		return func() {}, canceled(err)
	}

	// One deadline covers both waits.
	timer := time.NewTimer(m.maxWait)
	defer timer.Stop()
	select {
	case m.queueCh <- struct{}{}:
		// reserved queue slot
	case <-ctx.Done():
		return func() {}, canceled(ctx.Err())
	case <-timer.C:
		return func() {}, m.tooBusy()
	}

	// Wait to acquire the single in-flight slot
	acquired := false
	defer func() {
		if !acquired {
			<-m.queueCh
		}
	}()
	select {
	case m.genCh <- struct{}{}:
		acquired = true
		return func() { <-m.genCh; <-m.queueCh }, nil
	case <-ctx.Done():
		return func() {}, canceled(ctx.Err())
	case <-timer.C:
		return func() {}, m.tooBusy()
	}
}

func (m *Manager) tooBusy() error {
	busyRejections.Inc()
	return &Error{Kind: KindBusy, Msg: "too busy: generation queue is full"}
}

func canceled(err error) error {
	return &Error{Kind: KindCanceled, Msg: "generation canceled: " + err.Error(), Err: err}
}
