package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/higorabreu/iot-eco-client/chart"
	"github.com/higorabreu/iot-eco-client/dashboard"
	"github.com/higorabreu/iot-eco-client/lighting-api/lightingClient"
	"github.com/higorabreu/iot-eco-client/lighting-api/lightingStructs"
)

type lightingApi interface {
	dashboard.SummarySource
	GetRecords(ctx context.Context, path string) ([]lightingStructs.Record, error)
}

type server struct {
	view        *dashboard.View
	api         lightingApi
	sensors     map[string]sensorConfig
	title       string
	loc         *time.Location
	loadTimeout time.Duration
	reg         *prometheus.Registry
	metrics     *metrics
	logger      *zap.SugaredLogger
}

type stateResponse struct {
	Phase     dashboard.Phase `json:"phase"`
	Message   string          `json:"message,omitempty"`
	LoadId    string          `json:"loadId,omitempty"`
	FetchedAt *time.Time      `json:"fetchedAt,omitempty"`
}

func newRouter(s *server) *mux.Router {
	r := mux.NewRouter()
	r.Use(s.metrics.instrument)

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.HandleFunc("/api/state", s.state).Methods(http.MethodGet)
	r.HandleFunc("/api/histogram", s.histogram).Methods(http.MethodGet)
	r.HandleFunc("/api/histogram.txt", s.histogramText).Methods(http.MethodGet)
	r.HandleFunc("/api/reload", s.reload).Methods(http.MethodPost)
	r.HandleFunc("/api/summary", s.summary).Methods(http.MethodGet)
	r.HandleFunc("/api/sensors", s.sensorIndex).Methods(http.MethodGet)
	r.HandleFunc("/api/sensors/{dataset}", s.sensorChart).Methods(http.MethodGet)
	r.HandleFunc("/api/alerts", s.alerts).Methods(http.MethodGet)
	// Expose metrics and custom registry via the HandleFor function.
	r.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{Registry: s.reg})).Methods(http.MethodGet)
	return r
}

func writeJson(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJson(w, status, map[string]string{"error": msg})
}

// upstreamStatus maps a failed fetch to the status returned to our caller.
func upstreamStatus(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

func (s *server) health(w http.ResponseWriter, _ *http.Request) {
	writeJson(w, http.StatusOK, map[string]string{"status": "ok"})
}

func toStateResponse(st dashboard.State) stateResponse {
	resp := stateResponse{Phase: st.Phase, Message: st.Message(), LoadId: st.LoadId}
	if st.Snapshot != nil {
		t := st.Snapshot.FetchedAt
		resp.FetchedAt = &t
	}
	return resp
}

func (s *server) state(w http.ResponseWriter, _ *http.Request) {
	writeJson(w, http.StatusOK, toStateResponse(s.view.State()))
}

// phaseStatus is the status for a view that is not Ready.
func phaseStatus(st dashboard.State) int {
	if st.Phase == dashboard.Loading {
		return http.StatusServiceUnavailable
	}
	return upstreamStatus(st.Err)
}

func (s *server) histogram(w http.ResponseWriter, _ *http.Request) {
	st := s.view.State()
	if st.Phase != dashboard.Ready {
		writeError(w, phaseStatus(st), st.Message())
		return
	}
	writeJson(w, http.StatusOK, chart.Occupancy(st.Snapshot.Histogram, s.title))
}

func (s *server) histogramText(w http.ResponseWriter, _ *http.Request) {
	st := s.view.State()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if st.Phase != dashboard.Ready {
		w.WriteHeader(phaseStatus(st))
		_, _ = w.Write([]byte(st.Message() + "\n"))
		return
	}
	if err := chart.Occupancy(st.Snapshot.Histogram, s.title).Render(w, 40); err != nil {
		s.logger.Error(err)
	}
}

func (s *server) reload(w http.ResponseWriter, _ *http.Request) {
	// not tied to the request, a dropped connection must not fail the load
	ctx, cancel := context.WithTimeout(context.Background(), s.loadTimeout)
	defer cancel()
	writeJson(w, http.StatusOK, toStateResponse(s.view.Load(ctx)))
}

func (s *server) summary(w http.ResponseWriter, r *http.Request) {
	sum, err := dashboard.LoadSummary(r.Context(), s.api, s.loc)
	if err != nil {
		s.logger.Errorw("Loading summary failed", "error", err)
		writeError(w, upstreamStatus(err), "Error: "+err.Error())
		return
	}
	writeJson(w, http.StatusOK, sum)
}

func (s *server) sensorIndex(w http.ResponseWriter, _ *http.Request) {
	names := maps.Keys(s.sensors)
	slices.Sort(names)
	writeJson(w, http.StatusOK, map[string][]string{"datasets": names})
}

func (s *server) sensorChart(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["dataset"]
	sc, ok := s.sensors[name]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown dataset "+name)
		return
	}
	records, err := s.api.GetRecords(r.Context(), sc.Path)
	if err != nil {
		s.logger.Errorw("Fetching sensor data failed", "dataset", name, "error", err)
		writeError(w, upstreamStatus(err), "Error: "+err.Error())
		return
	}
	title := sc.Title
	if title == "" {
		title = name
	}
	c, err := chart.Devices(records, title, sc.Key)
	if err != nil {
		s.logger.Errorw("Charting sensor data failed", "dataset", name, "error", err)
		writeError(w, http.StatusBadGateway, "Error: "+err.Error())
		return
	}
	writeJson(w, http.StatusOK, c)
}

func (s *server) alerts(w http.ResponseWriter, r *http.Request) {
	records, err := s.api.GetRecords(r.Context(), lightingClient.AlertsPath)
	if err != nil {
		s.logger.Errorw("Fetching alerts failed", "error", err)
		writeError(w, upstreamStatus(err), "Error: "+err.Error())
		return
	}
	if records == nil {
		records = []lightingStructs.Record{}
	}
	writeJson(w, http.StatusOK, records)
}
