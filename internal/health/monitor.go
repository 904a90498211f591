// SPDX-License-Identifier: AGPL-3.0-only
package health

import (
	"context"
	"sync"
	"time"

	"github.com/RakeshReddy1602/m.s.organics-agent/internal/errors"
	"github.com/RakeshReddy1602/m.s.organics-agent/internal/logging"
	"github.com/robfig/cron/v3"
)

// Pinger probes every connected tool server and reports per-server errors.
type Pinger interface {
	Ping(ctx context.Context) map[string]error
}

// Status is the outcome of the most recent probe round.
type Status struct {
	CheckedAt time.Time
	// Failures maps server name to its probe error; healthy servers are absent.
	Failures map[string]string
}

// Healthy reports whether every server answered the last probe.
func (s Status) Healthy() bool {
	return len(s.Failures) == 0
}

// Monitor probes tool servers on a cron schedule.
type Monitor struct {
	pinger   Pinger
	schedule string
	cron     *cron.Cron
	logger   *logging.Logger

	mu     sync.RWMutex
	latest Status
}

// NewMonitor creates a monitor with the given cron schedule.
func NewMonitor(pinger Pinger, schedule string, logger *logging.Logger) *Monitor {
	if logger == nil {
		logger = logging.GetDefaultLogger()
	}

	cronOpts := cron.New(
		cron.WithParser(cron.NewParser(
			cron.SecondOptional|cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
		cron.WithChain(
			cron.Recover(cron.DefaultLogger),
		),
	)

	return &Monitor{
		pinger:   pinger,
		schedule: schedule,
		cron:     cronOpts,
		logger:   logger,
	}
}

// Start schedules probing and runs one immediate round.
// An empty schedule disables periodic probing.
func (m *Monitor) Start(ctx context.Context) error {
	m.Probe(ctx)

	if m.schedule == "" {
		m.logger.Debugf("Health probing disabled, no schedule configured")
		return nil
	}

	if _, err := m.cron.AddFunc(m.schedule, func() {
		m.Probe(context.Background())
	}); err != nil {
		return errors.InvalidInput("invalid health schedule: " + m.schedule)
	}
	m.cron.Start()
	m.logger.Infof("Tool server health probes scheduled: %s", m.schedule)

	go func() {
		<-ctx.Done()
		m.Stop()
	}()

	return nil
}

// Stop halts scheduled probing.
func (m *Monitor) Stop() {
	m.cron.Stop()
}

// Probe runs one probe round and records the result.
func (m *Monitor) Probe(ctx context.Context) Status {
	results := m.pinger.Ping(ctx)

	status := Status{CheckedAt: time.Now(), Failures: map[string]string{}}
	for server, err := range results {
		if err != nil {
			status.Failures[server] = err.Error()
			m.logger.Warnf("Tool server %s failed health probe: %v", server, err)
		}
	}
	if status.Healthy() {
		m.logger.Debugf("All %d tool servers healthy", len(results))
	}

	m.mu.Lock()
	m.latest = status
	m.mu.Unlock()
	return status
}

// Latest returns the most recent probe outcome.
func (m *Monitor) Latest() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}
