// Package chart turns dashboard data into bar chart documents.
package chart

import (
	"fmt"
	"io"
	"strings"

	"github.com/higorabreu/iot-eco-client/lighting-api/lightingStructs"
	"github.com/higorabreu/iot-eco-client/occupancy"
)

const DefaultOccupancyTitle = "Lamp switched on in the last 24 hours"

type Bar struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

type Axis struct {
	Type        string `json:"type"`
	Title       string `json:"title,omitempty"`
	BeginAtZero bool   `json:"beginAtZero,omitempty"`
	// decimal places for tick labels, nil means automatic
	Precision *int `json:"precision,omitempty"`
}

type BarChart struct {
	Title string `json:"title"`
	Bars  []Bar  `json:"bars"`
	X     Axis   `json:"x"`
	Y     Axis   `json:"y"`
}

func HourLabels() []string {
	labels := make([]string, occupancy.Hours)
	for i := range labels {
		labels[i] = fmt.Sprintf("%d:00", i)
	}
	return labels
}

// Occupancy lays the histogram out as 24 bars labelled 0:00 to 23:00 with
// integer ticks on a zero-based y axis.
func Occupancy(h occupancy.Histogram, title string) BarChart {
	if title == "" {
		title = DefaultOccupancyTitle
	}
	precision := 0
	labels := HourLabels()
	bars := make([]Bar, len(h))
	for i, c := range h {
		bars[i] = Bar{Label: labels[i], Value: float64(c)}
	}
	return BarChart{
		Title: title,
		Bars:  bars,
		X:     Axis{Type: "category"},
		Y:     Axis{Type: "linear", BeginAtZero: true, Precision: &precision},
	}
}

// Devices charts one value per device, e.g. the temperature dataset keyed by
// "temperature".
func Devices(records []lightingStructs.Record, title, dataKey string) (BarChart, error) {
	bars := make([]Bar, 0, len(records))
	for i, r := range records {
		v, ok := r.Number(dataKey)
		if !ok {
			return BarChart{}, &lightingStructs.DataError{
				Source: title,
				Index:  i,
				Err:    fmt.Errorf("missing numeric field %q", dataKey),
			}
		}
		bars = append(bars, Bar{Label: r.DeviceId(), Value: v})
	}
	return BarChart{
		Title: title,
		Bars:  bars,
		X:     Axis{Type: "category", Title: "Device ID"},
		Y:     Axis{Type: "linear", Title: AxisTitle(dataKey), BeginAtZero: true},
	}, nil
}

// AxisTitle turns a field name like soil_moisture into SOIL MOISTURE.
func AxisTitle(dataKey string) string {
	return strings.ToUpper(strings.ReplaceAll(dataKey, "_", " "))
}

func (c BarChart) Labels() []string {
	out := make([]string, len(c.Bars))
	for i, b := range c.Bars {
		out[i] = b.Label
	}
	return out
}

func (c BarChart) Values() []float64 {
	out := make([]float64, len(c.Bars))
	for i, b := range c.Bars {
		out[i] = b.Value
	}
	return out
}

// Render writes a horizontal text bar chart. The longest bar is width
// characters wide.
func (c BarChart) Render(w io.Writer, width int) error {
	if width <= 0 {
		width = 40
	}
	top := 0.0
	for _, v := range c.Values() {
		if v > top {
			top = v
		}
	}
	labelWidth := 0
	for _, l := range c.Labels() {
		if len(l) > labelWidth {
			labelWidth = len(l)
		}
	}

	var sb strings.Builder
	sb.WriteString(c.Title)
	sb.WriteByte('\n')
	for _, b := range c.Bars {
		n := 0
		if top > 0 && b.Value > 0 {
			n = int(b.Value / top * float64(width))
			if n == 0 {
				n = 1
			}
		}
		fmt.Fprintf(&sb, "%*s | %s %s\n", labelWidth, b.Label, strings.Repeat("#", n), c.formatValue(b.Value))
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func (c BarChart) formatValue(v float64) string {
	if c.Y.Precision != nil {
		return fmt.Sprintf("%.*f", *c.Y.Precision, v)
	}
	return fmt.Sprintf("%g", v)
}
