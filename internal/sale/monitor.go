// =============================
// File: internal/sale/monitor.go
// =============================

package sale

import (
	"context"
	"time"

	"github.com/launchpad-tools/quoter/internal/curve"
	"go.uber.org/zap"
)

// EventType classifies sale lifecycle notifications.
type EventType string

const (
	EventProgress       EventType = "progress"
	EventGraduated      EventType = "graduated"
	EventDeadlinePassed EventType = "deadline_passed"
)

// Event is one sale lifecycle notification.
type Event struct {
	Type        EventType
	ProgressBps int64
	Snapshot    *Snapshot
}

// telemetrySource is what the monitor needs from the client; narrowed for tests.
type telemetrySource interface {
	Telemetry(ctx context.Context) (*Snapshot, error)
	Invalidate()
}

// Monitor polls sale telemetry and reports phase changes. It only observes: the
// ACTIVE → FINALIZED transition happens on-chain and is one-way, so after a graduation
// event the monitor stops.
type Monitor struct {
	logger    *zap.Logger
	source    telemetrySource
	params    curve.Parameters
	interval  time.Duration
	eventChan chan Event

	deadlineSeen bool
}

func NewMonitor(source telemetrySource, params curve.Parameters, interval time.Duration, logger *zap.Logger) *Monitor {
	return &Monitor{
		logger:    logger.Named("sale-monitor"),
		source:    source,
		params:    params,
		interval:  interval,
		eventChan: make(chan Event, 10),
	}
}

// Start blocks until the context is cancelled or the sale graduates.
func (m *Monitor) Start(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	defer close(m.eventChan)

	m.logger.Info("Sale monitor started", zap.Duration("interval", m.interval))
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Sale monitor stopped")
			return
		case <-ticker.C:
			if done := m.poll(ctx); done {
				return
			}
		}
	}
}

func (m *Monitor) poll(ctx context.Context) bool {
	snap, err := m.source.Telemetry(ctx)
	if err != nil {
		m.logger.Warn("Telemetry poll failed", zap.Error(err))
		return false
	}
	if err := snap.Validate(m.params); err != nil {
		m.logger.Warn("Dropping inconsistent snapshot", zap.Error(err))
		return false
	}

	if snap.Status == curve.StatusFinalized {
		m.logger.Info("Sale graduated to pool trading")
		m.source.Invalidate()
		m.emit(ctx, Event{Type: EventGraduated, ProgressBps: snap.ProgressBps(m.params), Snapshot: snap})
		return true
	}

	if !m.deadlineSeen && snap.Expired(time.Now()) {
		m.deadlineSeen = true
		m.logger.Info("Sale deadline passed", zap.Time("deadline", snap.Deadline))
		m.emit(ctx, Event{Type: EventDeadlinePassed, ProgressBps: snap.ProgressBps(m.params), Snapshot: snap})
	}

	m.emit(ctx, Event{Type: EventProgress, ProgressBps: snap.ProgressBps(m.params), Snapshot: snap})
	return false
}

func (m *Monitor) emit(ctx context.Context, ev Event) {
	select {
	case m.eventChan <- ev:
	case <-ctx.Done():
	}
}

// Events exposes the notification stream. The channel closes when the monitor stops.
func (m *Monitor) Events() <-chan Event {
	return m.eventChan
}
