package sale

import (
	"context"
	"errors"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/launchpad-tools/quoter/internal/curve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// scriptedSource replays a fixed sequence of telemetry answers.
type scriptedSource struct {
	snapshots   []*Snapshot
	errs        []error
	calls       atomic.Int32
	invalidated atomic.Int32
}

func (s *scriptedSource) Telemetry(_ context.Context) (*Snapshot, error) {
	i := int(s.calls.Add(1)) - 1
	if i >= len(s.snapshots) {
		i = len(s.snapshots) - 1
	}
	if s.errs != nil && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return s.snapshots[i], nil
}

func (s *scriptedSource) Invalidate() {
	s.invalidated.Add(1)
}

func activeSnapshot(netSold *big.Int) *Snapshot {
	return &Snapshot{
		NetSold:      netSold,
		EthEscrowWei: big.NewInt(0),
		Status:       curve.StatusActive,
		FetchedAt:    time.Now(),
	}
}

func TestMonitorGraduationStops(t *testing.T) {
	params := testParams(t)
	source := &scriptedSource{snapshots: []*Snapshot{
		activeSnapshot(e18(100_000_000)),
		{
			NetSold:      e18(800_000_000),
			EthEscrowWei: e18(2),
			Status:       curve.StatusFinalized,
			FetchedAt:    time.Now(),
		},
	}}

	monitor := NewMonitor(source, params, time.Millisecond, zaptest.NewLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		monitor.Start(ctx)
		close(done)
	}()

	var events []Event
	for ev := range monitor.Events() {
		events = append(events, ev)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not stop after graduation")
	}

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, EventGraduated, last.Type)
	assert.EqualValues(t, 10000, last.ProgressBps)
	assert.EqualValues(t, 1, source.invalidated.Load(), "graduation drops the cached snapshot")

	for _, ev := range events[:len(events)-1] {
		assert.Equal(t, EventProgress, ev.Type)
	}
}

func TestMonitorDeadlineEmittedOnce(t *testing.T) {
	params := testParams(t)
	expired := activeSnapshot(e18(50_000_000))
	expired.Deadline = time.Now().Add(-time.Hour)
	source := &scriptedSource{snapshots: []*Snapshot{expired}}

	monitor := NewMonitor(source, params, time.Millisecond, zaptest.NewLogger(t))

	require.False(t, monitor.poll(context.Background()))
	require.False(t, monitor.poll(context.Background()))

	var deadlineEvents, progressEvents int
	for len(monitor.eventChan) > 0 {
		switch ev := <-monitor.eventChan; ev.Type {
		case EventDeadlinePassed:
			deadlineEvents++
		case EventProgress:
			progressEvents++
		}
	}
	assert.Equal(t, 1, deadlineEvents, "deadline crossing reported once")
	assert.Equal(t, 2, progressEvents)
}

func TestMonitorDropsBadTelemetry(t *testing.T) {
	params := testParams(t)
	overCap := activeSnapshot(new(big.Int).Add(params.SaleCap, big.NewInt(1)))
	source := &scriptedSource{
		snapshots: []*Snapshot{nil, overCap},
		errs:      []error{errors.New("rpc timeout"), nil},
	}

	monitor := NewMonitor(source, params, time.Millisecond, zaptest.NewLogger(t))

	assert.False(t, monitor.poll(context.Background()), "fetch error keeps polling")
	assert.False(t, monitor.poll(context.Background()), "inconsistent snapshot keeps polling")
	assert.Empty(t, monitor.eventChan, "no events for rejected telemetry")
	assert.Zero(t, source.invalidated.Load())
}
