package runner

import (
	"context"
	"sync"
	"time"

	"digital.vasic.harness/pkg/logging"
)

// livenessMonitor watches the step channel of a running test and
// cancels its context when no step is reported within the stale
// threshold. Long tests that keep reporting steps are left alone.
type livenessMonitor struct {
	steps          <-chan string
	staleThreshold time.Duration
	cancel         context.CancelFunc
	logger         logging.Logger
}

// startLivenessMonitor starts the monitor goroutine. The returned
// stop function must be called once the test body returns. When
// steps is nil or the threshold is zero the monitor is disabled and
// stuck is nil.
func startLivenessMonitor(
	steps <-chan string,
	staleThreshold time.Duration,
	cancel context.CancelFunc,
	logger logging.Logger,
) (stop func(), stuck <-chan struct{}) {
	if steps == nil || staleThreshold <= 0 {
		return func() {}, nil
	}
	if logger == nil {
		logger = logging.NullLogger{}
	}

	m := &livenessMonitor{
		steps:          steps,
		staleThreshold: staleThreshold,
		cancel:         cancel,
		logger:         logger,
	}

	stopCh := make(chan struct{})
	stuckCh := make(chan struct{})

	go m.run(stopCh, stuckCh)

	var once sync.Once
	return func() {
		once.Do(func() { close(stopCh) })
	}, stuckCh
}

func (m *livenessMonitor) run(
	stopCh <-chan struct{},
	stuckCh chan<- struct{},
) {
	timer := time.NewTimer(m.staleThreshold)
	defer timer.Stop()

	for {
		select {
		case <-stopCh:
			return

		case _, ok := <-m.steps:
			if !ok {
				return
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(m.staleThreshold)

		case <-timer.C:
			m.logger.Error("test stuck",
				logging.DurationField("stale_threshold", m.staleThreshold))
			close(stuckCh)
			m.cancel()
			return
		}
	}
}
