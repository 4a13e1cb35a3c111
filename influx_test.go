package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/higorabreu/iot-eco-client/dashboard"
	"github.com/higorabreu/iot-eco-client/occupancy"
)

type fakeWriter struct {
	lines []string
	calls int
	err   error
}

func (f *fakeWriter) WriteRecord(_ context.Context, line ...string) error {
	f.calls++
	f.lines = append(f.lines, line...)
	return f.err
}

func TestHistogramLines(t *testing.T) {
	var h occupancy.Histogram
	h[9] = 4
	ts := time.Unix(1704189600, 0)

	lines := histogramLines(h, ts)
	if len(lines) != occupancy.Hours+1 {
		t.Fatalf("expected %d lines, got %d", occupancy.Hours+1, len(lines))
	}
	if lines[0] != "lighting_lampOnOccurrences,hour=00 count=0i 1704189600000000000" {
		t.Fatalf("line 0 %q", lines[0])
	}
	if lines[9] != "lighting_lampOnOccurrences,hour=09 count=4i 1704189600000000000" {
		t.Fatalf("line 9 %q", lines[9])
	}
	if lines[24] != "lighting_lampOnTotal24h count=4i 1704189600000000000" {
		t.Fatalf("total line %q", lines[24])
	}
}

func TestInfluxSinkObserve(t *testing.T) {
	w := &fakeWriter{}
	sink := &influxSink{api: w, timeout: time.Second, logger: zaptest.NewLogger(t).Sugar()}

	sink.observe(dashboard.State{Phase: dashboard.Loading})
	sink.observe(dashboard.State{Phase: dashboard.Failed, Err: errors.New("x")})
	if len(w.lines) != 0 {
		t.Fatalf("wrote lines for non-ready state: %v", w.lines)
	}

	sink.observe(dashboard.State{Phase: dashboard.Ready, Snapshot: &dashboard.Snapshot{FetchedAt: time.Unix(0, 0)}})
	if len(w.lines) != occupancy.Hours+1 {
		t.Fatalf("expected %d lines, got %d", occupancy.Hours+1, len(w.lines))
	}
}

func TestInfluxSinkWriteErrorIsLoggedOnce(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	w := &fakeWriter{err: errors.New("influx down")}
	sink := &influxSink{api: w, timeout: time.Second, logger: zap.New(core).Sugar()}

	sink.observe(dashboard.State{Phase: dashboard.Ready, LoadId: "a", Snapshot: &dashboard.Snapshot{FetchedAt: time.Unix(0, 0)}})

	if w.calls != 1 {
		t.Fatalf("expected a single write attempt, got %d", w.calls)
	}
	if len(w.lines) != occupancy.Hours+1 {
		t.Fatalf("expected %d lines attempted, got %d", occupancy.Hours+1, len(w.lines))
	}
	entries := logs.FilterMessage("Writing histogram to InfluxDB failed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one error log, got %d", logs.Len())
	}
	if got := entries[0].ContextMap()["loadId"]; got != "a" {
		t.Fatalf("loadId field %v", got)
	}
}
