package dashboard

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/higorabreu/iot-eco-client/lighting-api/lightingStructs"
	"github.com/higorabreu/iot-eco-client/occupancy"
	"golang.org/x/sync/errgroup"
)

const LatestRegisterCount = 10

type SummarySource interface {
	RegisterSource
	GetLampOnTime(ctx context.Context) (lightingStructs.LampOnTime, error)
	GetMonthlyConsumption(ctx context.Context) (lightingStructs.MonthlyConsumption, error)
}

type RegisterRow struct {
	Timestamp string `json:"timestamp"`
	State     string `json:"state"`
}

type Summary struct {
	TotalOnTime               string        `json:"totalOnTime"`
	OnCount                   int           `json:"onCount"`
	MonthlyAverageConsumption string        `json:"monthlyAverageConsumption"`
	MonthlyCost               string        `json:"monthlyCost"`
	LatestRegisters           []RegisterRow `json:"latestRegisters"`
}

// LoadSummary fetches the three summary endpoints concurrently. The first
// failure cancels the others and fails the whole summary.
func LoadSummary(ctx context.Context, src SummarySource, loc *time.Location) (Summary, error) {
	var (
		onTime      lightingStructs.LampOnTime
		registers   []lightingStructs.Register
		consumption lightingStructs.MonthlyConsumption
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		onTime, err = src.GetLampOnTime(gctx)
		return
	})
	g.Go(func() (err error) {
		registers, err = src.GetRegisters(gctx)
		return
	})
	g.Go(func() (err error) {
		consumption, err = src.GetMonthlyConsumption(gctx)
		return
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	return Summary{
		TotalOnTime:               FormatOnTime(onTime.TotalOnTimeLast24Hours),
		OnCount:                   occupancy.CountOn(registers),
		MonthlyAverageConsumption: fmt.Sprintf("%.5f", consumption.MonthlyAverageConsumption),
		MonthlyCost:               fmt.Sprintf("%.5f", consumption.MonthlyCost),
		LatestRegisters:           LatestRegisters(registers, LatestRegisterCount, loc),
	}, nil
}

// FormatOnTime renders a duration given in seconds as seconds, whole minutes
// or whole hours. A missing value reads as zero hours.
func FormatOnTime(seconds *float64) string {
	if seconds == nil {
		return "0 hours"
	}
	s := *seconds
	switch {
	case s < 60:
		return fmt.Sprintf("%v seconds", s)
	case s < 3600:
		return fmt.Sprintf("%d minutes", int64(math.Floor(s/60)))
	default:
		return fmt.Sprintf("%d hours", int64(math.Floor(s/3600)))
	}
}

// LatestRegisters returns the last n registers of the API's ordering, newest
// first. Timestamps that do not parse are shown as received.
func LatestRegisters(registers []lightingStructs.Register, n int, loc *time.Location) []RegisterRow {
	if loc == nil {
		loc = time.Local
	}
	start := len(registers) - n
	if start < 0 {
		start = 0
	}
	rows := make([]RegisterRow, 0, len(registers)-start)
	for i := len(registers) - 1; i >= start; i-- {
		r := registers[i]
		ts := r.Timestamp
		if t, err := occupancy.ParseTimestamp(r.Timestamp, loc); err == nil {
			ts = t.In(loc).Format("2006-01-02 15:04:05")
		}
		state := "Off"
		if r.State {
			state = "On"
		}
		rows = append(rows, RegisterRow{Timestamp: ts, State: state})
	}
	return rows
}
