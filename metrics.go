package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/higorabreu/iot-eco-client/dashboard"
	"github.com/higorabreu/iot-eco-client/lighting-api/lightingStructs"
)

type metrics struct {
	lampOnOccurrences *prometheus.GaugeVec
	lampOnLast24h     prometheus.Gauge
	lampOnPeakHour    prometheus.Gauge
	registers         prometheus.Gauge
	dashboardState    *prometheus.GaugeVec
	loads             *prometheus.CounterVec
	lastSuccess       prometheus.Gauge
	requestDuration   *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		lampOnOccurrences: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "lamp_on_occurrences",
				Help: "Times the lamp switched on in the last 24 hours, by hour of day.",
			},
			[]string{"hour"}),
		lampOnLast24h: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "lamp_on_occurrences_total_24h",
				Help: "Times the lamp switched on in the last 24 hours.",
			},
		),
		lampOnPeakHour: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "lamp_on_peak_hour",
				Help: "Hour of day with the most lamp-on events in the last 24 hours, -1 without events.",
			},
		),
		registers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "lamp_registers",
				Help: "Registers returned by the last successful load.",
			},
		),
		dashboardState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dashboard_state",
				Help: "1 for the current dashboard phase, 0 otherwise.",
			},
			[]string{"phase"},
		),
		loads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_loads_total",
				Help: "Finished dashboard loads by result.",
			},
			[]string{"result"},
		),
		lastSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "dashboard_last_success_timestamp_seconds",
				Help: "Unix time of the last successful load.",
			},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Request duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "code"},
		),
	}
	reg.MustRegister(m.lampOnOccurrences)
	reg.MustRegister(m.lampOnLast24h)
	reg.MustRegister(m.lampOnPeakHour)
	reg.MustRegister(m.registers)
	reg.MustRegister(m.dashboardState)
	reg.MustRegister(m.loads)
	reg.MustRegister(m.lastSuccess)
	reg.MustRegister(m.requestDuration)
	return m
}

// observe is registered as a dashboard observer.
func (m *metrics) observe(s dashboard.State) {
	for _, p := range dashboard.Phases() {
		v := 0.0
		if p == s.Phase {
			v = 1
		}
		m.dashboardState.WithLabelValues(p.String()).Set(v)
	}

	switch s.Phase {
	case dashboard.Ready:
		h := s.Snapshot.Histogram
		for hour, c := range h {
			m.lampOnOccurrences.WithLabelValues(strconv.Itoa(hour)).Set(float64(c))
		}
		m.lampOnLast24h.Set(float64(h.Sum()))
		if hour, count := h.Peak(); count > 0 {
			m.lampOnPeakHour.Set(float64(hour))
		} else {
			m.lampOnPeakHour.Set(-1)
		}
		m.registers.Set(float64(len(s.Snapshot.Registers)))
		m.lastSuccess.Set(float64(s.Snapshot.FetchedAt.Unix()))
		m.loads.WithLabelValues("ready").Inc()
	case dashboard.Failed:
		m.loads.WithLabelValues(failureKind(s.Err)).Inc()
	}
}

func failureKind(err error) string {
	var netErr *lightingStructs.NetworkError
	var dataErr *lightingStructs.DataError
	switch {
	case errors.As(err, &netErr):
		return "network_error"
	case errors.As(err, &dataErr):
		return "data_error"
	default:
		return "error"
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// instrument is a mux middleware timing each request by route template.
func (m *metrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{w, http.StatusOK}
		next.ServeHTTP(rw, r)

		route := r.URL.Path
		if cr := mux.CurrentRoute(r); cr != nil {
			if tpl, err := cr.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		m.requestDuration.WithLabelValues(r.Method, route, strconv.Itoa(rw.status)).Observe(time.Since(start).Seconds())
	})
}
