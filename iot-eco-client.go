package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/higorabreu/iot-eco-client/dashboard"
	"github.com/higorabreu/iot-eco-client/lighting-api/lightingClient"
)

var (
	logger     *zap.Logger
	sugar      *zap.SugaredLogger
	configPath string
	cfg        config
)

func NewLogger(logFile string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.OutputPaths = []string{"stdout"}
	if logFile != "" {
		zcfg.OutputPaths = append(zcfg.OutputPaths, logFile)
	}
	return zcfg.Build()
}

func initCliFlags() {
	flag.StringVar(&configPath, "configFile", "config.yaml", "Path to the config.yaml File.")
	flag.Parse()
}

func initLogger(logFile string) {
	l, err := NewLogger(logFile)
	if err != nil {
		// the log file is not writable, keep logging to stdout
		l, _ = NewLogger("")
		l.Sugar().Errorf("Cannot open log file %s: %v", logFile, err)
	}
	logger = l
	sugar = logger.Sugar()
}

// reopenLogger flushes the current logger and replaces it with one that also
// writes to logFile.
func reopenLogger(logFile string) {
	if logger != nil {
		_ = logger.Sync()
	}
	initLogger(logFile)
}

func initConfig() {
	raw, err := os.ReadFile(configPath)
	if err != nil {
		sugar.Info("No configuration file found. Using Default config")
	}
	cfg, err = loadConfig(viper.GetViper(), raw)
	if err != nil {
		sugar.Fatal(err)
	}
	sugar.Infof("Configuration from %v", viper.AllSettings())
}

// refresh loads the dashboard once and then on every tick of interval.
// A non-positive interval loads only once.
func refresh(ctx context.Context, view *dashboard.View, interval time.Duration) {
	view.Load(ctx)
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			view.Load(ctx)
		}
	}
}

func main() {
	initCliFlags()
	// stdout only until the configured log file is known
	initLogger("")
	initConfig()
	reopenLogger(cfg.Log.File)
	defer logger.Sync() // flushes buffer, if any

	sugar.Info("Starting Application")
	loc, err := cfg.location()
	if err != nil {
		sugar.Fatal(err)
	}

	apiClient := lightingClient.NewLightingApiClient(cfg.Api.Url, cfg.Api.Timeout, sugar)

	sugar.Info("Creating Metrics-Registry")
	// Create a non-global registry.
	reg := prometheus.NewRegistry()

	sugar.Info("Registering Metrics")
	reg.MustRegister(collectors.NewBuildInfoCollector())
	reg.MustRegister(collectors.NewGoCollector())
	m := NewMetrics(reg)

	opts := []dashboard.Option{
		dashboard.WithClock(func() time.Time { return time.Now().In(loc) }),
		dashboard.WithObserver(m.observe),
	}
	if cfg.Influxdb.Host != "" {
		sink, closeInflux := newInfluxSink(cfg.Influxdb.Host, cfg.Influxdb.Token, cfg.Influxdb.Org, cfg.Influxdb.Bucket, sugar)
		defer closeInflux()
		opts = append(opts, dashboard.WithObserver(sink.observe))
	}
	view := dashboard.NewView(apiClient, sugar, opts...)
	m.observe(view.State())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go refresh(ctx, view, cfg.Dashboard.Refresh)

	router := newRouter(&server{
		view:        view,
		api:         apiClient,
		sensors:     cfg.Sensors,
		title:       cfg.Dashboard.Title,
		loc:         loc,
		loadTimeout: cfg.Api.Timeout + 5*time.Second,
		reg:         reg,
		metrics:     m,
		logger:      sugar,
	})
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handlers.LoggingHandler(zap.NewStdLog(logger).Writer(), router),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		sugar.Info("Catch Keyboard interrupt")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			sugar.Error(err)
		}
	}()

	sugar.Infof("Dashboard served at: %v", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		sugar.Fatal(err)
	}
}
