// SPDX-License-Identifier: AGPL-3.0-only
package health

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/RakeshReddy1602/m.s.organics-agent/internal/logging"
)

type fakePinger struct {
	results map[string]error
	calls   atomic.Int64
}

func (f *fakePinger) Ping(_ context.Context) map[string]error {
	f.calls.Add(1)
	return f.results
}

func testLogger() *logging.Logger {
	return logging.New(logging.Options{Output: io.Discard, Level: logging.Error})
}

func TestProbeRecordsFailures(t *testing.T) {
	pinger := &fakePinger{results: map[string]error{
		"admin_agent": nil,
		"warehouse":   fmt.Errorf("connection refused"),
	}}
	monitor := NewMonitor(pinger, "", testLogger())

	status := monitor.Probe(context.Background())

	if status.Healthy() {
		t.Error("Expected unhealthy status with a failing server")
	}
	if status.Failures["warehouse"] != "connection refused" {
		t.Errorf("Expected warehouse failure recorded, got %v", status.Failures)
	}
	if _, ok := status.Failures["admin_agent"]; ok {
		t.Errorf("Expected healthy server to be absent from failures, got %v", status.Failures)
	}
}

func TestProbeAllHealthy(t *testing.T) {
	pinger := &fakePinger{results: map[string]error{"admin_agent": nil}}
	monitor := NewMonitor(pinger, "", testLogger())

	status := monitor.Probe(context.Background())
	if !status.Healthy() {
		t.Errorf("Expected healthy status, got %v", status.Failures)
	}
	if status.CheckedAt.IsZero() {
		t.Error("Expected CheckedAt to be set")
	}
}

func TestLatestReflectsLastProbe(t *testing.T) {
	pinger := &fakePinger{results: map[string]error{"admin_agent": fmt.Errorf("down")}}
	monitor := NewMonitor(pinger, "", testLogger())

	monitor.Probe(context.Background())

	pinger.results = map[string]error{"admin_agent": nil}
	monitor.Probe(context.Background())

	if !monitor.Latest().Healthy() {
		t.Errorf("Expected latest status to reflect recovery, got %v", monitor.Latest().Failures)
	}
}

func TestStartWithoutScheduleProbesOnce(t *testing.T) {
	pinger := &fakePinger{results: map[string]error{"admin_agent": nil}}
	monitor := NewMonitor(pinger, "", testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := monitor.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if pinger.calls.Load() != 1 {
		t.Errorf("Expected one immediate probe, got %d", pinger.calls.Load())
	}
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	pinger := &fakePinger{results: map[string]error{}}
	monitor := NewMonitor(pinger, "not a schedule", testLogger())

	if err := monitor.Start(context.Background()); err == nil {
		t.Fatal("Expected error for invalid cron schedule")
	}
}

func TestScheduledProbes(t *testing.T) {
	pinger := &fakePinger{results: map[string]error{"admin_agent": nil}}
	monitor := NewMonitor(pinger, "@every 100ms", testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := monitor.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer monitor.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if pinger.calls.Load() >= 2 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("Expected a scheduled probe to fire, got %d calls", pinger.calls.Load())
}
