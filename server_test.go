package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap/zaptest"

	"github.com/higorabreu/iot-eco-client/chart"
	"github.com/higorabreu/iot-eco-client/dashboard"
	"github.com/higorabreu/iot-eco-client/lighting-api/lightingStructs"
)

var testNow = time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)

type fakeApi struct {
	registers    []lightingStructs.Register
	registersErr error
	records      map[string][]lightingStructs.Record
}

func (f *fakeApi) GetRegisters(context.Context) ([]lightingStructs.Register, error) {
	return f.registers, f.registersErr
}

func (f *fakeApi) GetLampOnTime(context.Context) (lightingStructs.LampOnTime, error) {
	s := 90.0
	return lightingStructs.LampOnTime{TotalOnTimeLast24Hours: &s}, nil
}

func (f *fakeApi) GetMonthlyConsumption(context.Context) (lightingStructs.MonthlyConsumption, error) {
	return lightingStructs.MonthlyConsumption{MonthlyAverageConsumption: 2, MonthlyCost: 1.5}, nil
}

func (f *fakeApi) GetRecords(_ context.Context, path string) ([]lightingStructs.Record, error) {
	r, ok := f.records[path]
	if !ok {
		return nil, &lightingStructs.NetworkError{Url: "http://api/" + path, StatusCode: http.StatusNotFound}
	}
	return r, nil
}

func newTestServer(t *testing.T, api *fakeApi) (*server, http.Handler) {
	t.Helper()
	sugar := zaptest.NewLogger(t).Sugar()
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	view := dashboard.NewView(api, sugar,
		dashboard.WithClock(func() time.Time { return testNow }),
		dashboard.WithObserver(m.observe))
	s := &server{
		view: view,
		api:  api,
		sensors: map[string]sensorConfig{
			"temperature": {Path: "temperature-data", Key: "temperature", Title: "Temperature"},
			"light":       {Path: "light-sensor-data", Key: "light_level"},
		},
		loc:         time.UTC,
		loadTimeout: time.Second,
		reg:         reg,
		metrics:     m,
		logger:      sugar,
	}
	return s, newRouter(s)
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHealth(t *testing.T) {
	_, h := newTestServer(t, &fakeApi{})
	rec := do(t, h, http.MethodGet, "/health")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("health %d %s", rec.Code, rec.Body)
	}
}

func TestHistogramLifecycle(t *testing.T) {
	api := &fakeApi{registers: []lightingStructs.Register{
		{Timestamp: "2024-01-02T09:00:00Z", State: true},
		{Timestamp: "2024-01-01T09:00:00Z", State: true},
		{Timestamp: "2024-01-02T08:00:00Z", State: false},
	}}
	s, h := newTestServer(t, api)

	rec := do(t, h, http.MethodGet, "/api/histogram")
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "Loading...") {
		t.Fatalf("before load: %d %s", rec.Code, rec.Body)
	}

	s.view.Load(context.Background())
	rec = do(t, h, http.MethodGet, "/api/histogram")
	if rec.Code != http.StatusOK {
		t.Fatalf("after load: %d %s", rec.Code, rec.Body)
	}
	var c chart.BarChart
	if err := json.NewDecoder(rec.Body).Decode(&c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(c.Bars) != 24 || c.Bars[9].Value != 1 || c.Bars[9].Label != "9:00" {
		t.Fatalf("unexpected chart %#v", c)
	}
	if c.Title != chart.DefaultOccupancyTitle {
		t.Fatalf("title %q", c.Title)
	}

	rec = do(t, h, http.MethodGet, "/api/histogram.txt")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "9:00 | ") {
		t.Fatalf("text chart %d %s", rec.Code, rec.Body)
	}

	rec = do(t, h, http.MethodGet, "/api/state")
	if !strings.Contains(rec.Body.String(), `"phase":"ready"`) {
		t.Fatalf("state %s", rec.Body)
	}
}

func TestHistogramFailedAndReload(t *testing.T) {
	api := &fakeApi{registersErr: &lightingStructs.NetworkError{Url: "http://api/registers", StatusCode: 500}}
	_, h := newTestServer(t, api)

	rec := do(t, h, http.MethodPost, "/api/reload")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"phase":"failed"`) {
		t.Fatalf("reload %d %s", rec.Code, rec.Body)
	}
	rec = do(t, h, http.MethodGet, "/api/histogram")
	if rec.Code != http.StatusBadGateway || !strings.Contains(rec.Body.String(), "Error: request http://api/registers failed with status 500") {
		t.Fatalf("failed histogram %d %s", rec.Code, rec.Body)
	}

	api.registersErr = nil
	rec = do(t, h, http.MethodPost, "/api/reload")
	if !strings.Contains(rec.Body.String(), `"phase":"ready"`) {
		t.Fatalf("reload after recovery %s", rec.Body)
	}
	if rec = do(t, h, http.MethodGet, "/api/reload"); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET reload %d", rec.Code)
	}
}

func TestSummary(t *testing.T) {
	api := &fakeApi{registers: []lightingStructs.Register{{Timestamp: "2024-01-02T09:00:00Z", State: true}}}
	_, h := newTestServer(t, api)

	rec := do(t, h, http.MethodGet, "/api/summary")
	if rec.Code != http.StatusOK {
		t.Fatalf("summary %d %s", rec.Code, rec.Body)
	}
	var sum dashboard.Summary
	if err := json.NewDecoder(rec.Body).Decode(&sum); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sum.TotalOnTime != "1 minutes" || sum.OnCount != 1 || sum.MonthlyCost != "1.50000" {
		t.Fatalf("unexpected summary %#v", sum)
	}
	if len(sum.LatestRegisters) != 1 || sum.LatestRegisters[0] != (dashboard.RegisterRow{Timestamp: "2024-01-02 09:00:00", State: "On"}) {
		t.Fatalf("latest registers %#v", sum.LatestRegisters)
	}
}

func TestSensors(t *testing.T) {
	api := &fakeApi{records: map[string][]lightingStructs.Record{
		"temperature-data":  {{"device_id": float64(1), "temperature": 21.5}},
		"light-sensor-data": {{"device_id": float64(2)}},
		"alerts":            {{"message": "lamp offline"}},
	}}
	_, h := newTestServer(t, api)

	rec := do(t, h, http.MethodGet, "/api/sensors")
	if rec.Body.String() != `{"datasets":["light","temperature"]}`+"\n" {
		t.Fatalf("index %s", rec.Body)
	}

	rec = do(t, h, http.MethodGet, "/api/sensors/temperature")
	if rec.Code != http.StatusOK {
		t.Fatalf("temperature %d %s", rec.Code, rec.Body)
	}
	var c chart.BarChart
	if err := json.NewDecoder(rec.Body).Decode(&c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.Y.Title != "TEMPERATURE" || len(c.Bars) != 1 || c.Bars[0].Value != 21.5 {
		t.Fatalf("unexpected chart %#v", c)
	}

	if rec = do(t, h, http.MethodGet, "/api/sensors/light"); rec.Code != http.StatusBadGateway {
		t.Fatalf("light without values %d %s", rec.Code, rec.Body)
	}
	if rec = do(t, h, http.MethodGet, "/api/sensors/unknown"); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown dataset %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/api/alerts")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "lamp offline") {
		t.Fatalf("alerts %d %s", rec.Code, rec.Body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	api := &fakeApi{registers: []lightingStructs.Register{{Timestamp: "2024-01-02T09:00:00Z", State: true}}}
	s, h := newTestServer(t, api)
	s.view.Load(context.Background())
	do(t, h, http.MethodGet, "/health")

	rec := do(t, h, http.MethodGet, "/metrics")
	body := rec.Body.String()
	for _, want := range []string{
		`lamp_on_occurrences{hour="9"} 1`,
		`dashboard_state{phase="ready"} 1`,
		`http_request_duration_seconds_count{code="200",method="GET",route="/health"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}
}

func TestRefreshLoadsOnceWithoutInterval(t *testing.T) {
	api := &fakeApi{}
	s, _ := newTestServer(t, api)
	refresh(context.Background(), s.view, 0)
	if s.view.State().Phase != dashboard.Ready {
		t.Fatalf("phase %s", s.view.State().Phase)
	}
}
