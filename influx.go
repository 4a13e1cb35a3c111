package main

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"go.uber.org/zap"

	"github.com/higorabreu/iot-eco-client/dashboard"
	"github.com/higorabreu/iot-eco-client/occupancy"
)

// recordWriter is the part of api.WriteAPIBlocking the sink uses.
type recordWriter interface {
	WriteRecord(ctx context.Context, line ...string) error
}

type influxSink struct {
	api     recordWriter
	timeout time.Duration
	logger  *zap.SugaredLogger
}

// newInfluxSink connects to InfluxDB. The returned func closes the client.
func newInfluxSink(host, token, org, bucket string, logger *zap.SugaredLogger) (*influxSink, func()) {
	influxClient := influxdb2.NewClient(host, token)
	// Use blocking write client for writes to desired bucket
	writeApi := influxClient.WriteAPIBlocking(org, bucket)
	logger.Infof("Writing histograms to InfluxDB %s, bucket %s", host, bucket)
	return &influxSink{api: writeApi, timeout: 10 * time.Second, logger: logger}, influxClient.Close
}

// histogramLines renders one line per hour bucket plus the window total, all
// stamped with the load time.
func histogramLines(h occupancy.Histogram, ts time.Time) []string {
	ns := ts.UTC().UnixNano()
	lines := make([]string, 0, len(h)+1)
	for hour, c := range h {
		lines = append(lines, fmt.Sprintf("lighting_lampOnOccurrences,hour=%02d count=%di %d", hour, c, ns))
	}
	lines = append(lines, fmt.Sprintf("lighting_lampOnTotal24h count=%di %d", h.Sum(), ns))
	return lines
}

func (s *influxSink) observe(state dashboard.State) {
	if state.Phase != dashboard.Ready {
		return
	}
	lines := histogramLines(state.Snapshot.Histogram, state.Snapshot.FetchedAt)
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.api.WriteRecord(ctx, lines...); err != nil {
		s.logger.Errorw("Writing histogram to InfluxDB failed", "loadId", state.LoadId, "error", err)
		return
	}
	s.logger.Debugw("Histogram written to InfluxDB", "loadId", state.LoadId, "lines", len(lines))
}
