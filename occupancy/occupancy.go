// Package occupancy buckets lamp-on events into a 24-hour histogram.
package occupancy

import (
	"fmt"
	"time"

	"github.com/higorabreu/iot-eco-client/lighting-api/lightingStructs"
)

const (
	Hours  = 24
	Window = 24 * time.Hour
)

// Histogram counts lamp-on events by hour of day. Events from different
// calendar days in the window share a bucket.
type Histogram [Hours]int

func (h Histogram) Sum() (n int) {
	for _, c := range h {
		n += c
	}
	return
}

// Peak returns the busiest hour and its count; ties go to the earlier hour.
func (h Histogram) Peak() (hour, count int) {
	for i, c := range h {
		if c > count {
			hour, count = i, c
		}
	}
	return
}

var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
}

var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
}

// ParseTimestamp reads an ISO-8601 datetime. Timestamps without a zone are
// interpreted in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp %q", s)
}

// Aggregate counts the registers with state true inside [now-Window, now]
// by their hour of day in now's location. A timestamp that does not parse
// fails the whole aggregation.
func Aggregate(registers []lightingStructs.Register, now time.Time) (Histogram, error) {
	var h Histogram
	loc := now.Location()
	from := now.Add(-Window)

	for i, r := range registers {
		ts, err := ParseTimestamp(r.Timestamp, loc)
		if err != nil {
			return Histogram{}, &lightingStructs.DataError{Source: "registers", Index: i, Err: err}
		}
		if !r.State || ts.Before(from) || ts.After(now) {
			continue
		}
		h[ts.In(loc).Hour()]++
	}
	return h, nil
}

// CountOn counts every register with state true, regardless of time.
func CountOn(registers []lightingStructs.Register) (n int) {
	for _, r := range registers {
		if r.State {
			n++
		}
	}
	return
}
