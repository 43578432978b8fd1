// cmd/kvlogger/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tamzrod/kvlogger/internal/config"
	"github.com/tamzrod/kvlogger/internal/handlers"
	"github.com/tamzrod/kvlogger/internal/history"
	"github.com/tamzrod/kvlogger/internal/live"
	"github.com/tamzrod/kvlogger/internal/logger"
	"github.com/tamzrod/kvlogger/internal/orchestrator"
	"github.com/tamzrod/kvlogger/internal/poller"
	"github.com/tamzrod/kvlogger/internal/server"
	"github.com/tamzrod/kvlogger/internal/status"
	"github.com/tamzrod/kvlogger/internal/telemetry"
	"github.com/tamzrod/kvlogger/internal/writer"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: kvlogger <config.yaml>")
	}

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(os.Args[1])
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}
	config.Normalize(cfg)

	lg := logger.Get(cfg.Log.Level)
	defer func() { _ = lg.Sync() }()

	if cfg.Log.Level != logger.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --------------------
	// Device + poller
	// --------------------

	p, client, err := poller.Build(cfg, lg)
	if err != nil {
		lg.Fatalw("poller build failed", "err", err)
	}
	defer func() { _ = client.Disconnect() }()

	// Initial connect; failure is not fatal, the poller retries each tick.
	if err := client.Connect(ctx, cfg.Address()); err != nil {
		lg.Warnw("initial connect failed", "addr", cfg.Address().String(), "err", err)
	}

	// --------------------
	// Sinks
	// --------------------

	hub := live.NewHub(cfg.Poll.WindowSize)
	sinks := writer.NewFanout(hub)

	var (
		hist   handlers.History
		events orchestrator.EventRecorder
	)
	if cfg.History.Path != "" {
		db, err := history.InitDB(cfg.History.Path)
		if err != nil {
			lg.Fatalw("history init failed", "path", cfg.History.Path, "err", err)
		}
		defer db.Close()

		repo := history.NewSQLite(db)
		retention := time.Duration(cfg.History.RetentionDays) * 24 * time.Hour
		sinks.Add(history.NewSink(repo, retention, lg))
		hist = repo
		events = repo
	}

	if cfg.MQTT != nil {
		pub, err := telemetry.Connect(cfg.MQTT, cfg.Device.Name, lg)
		if err != nil {
			lg.Fatalw("mqtt connect failed", "broker", cfg.MQTT.Broker, "err", err)
		}
		defer pub.Close()
		sinks.Add(pub)
	}

	plan, err := writer.BuildPlan(cfg)
	if err != nil {
		lg.Fatalw("writer plan failed", "err", err)
	}

	var statusWriter writer.StatusWriter
	ep, err := writer.BuildEndpointClient(cfg)
	if err != nil {
		lg.Fatalw("modbus endpoint failed", "err", err)
	}
	if ep != nil {
		defer ep.Close()

		if mw, ok := writer.NewMirrorWriter(plan, ep); ok {
			sinks.Add(mw)
		}
		if sw, ok := writer.NewDeviceStatusWriter(plan, ep); ok {
			statusWriter = sw
		}
	}

	tracker := status.NewTracker()

	// --------------------
	// Pipeline: poller -> orchestrator -> sinks
	// --------------------

	out := make(chan poller.PollResult)

	orch := orchestrator.New(orchestrator.Config{
		DeviceID:     cfg.Device.Name,
		Sinks:        sinks,
		Tracker:      tracker,
		StatusWriter: statusWriter,
		Events:       events,
	}, lg)

	orchDone := make(chan struct{})
	go func() {
		defer close(orchDone)
		orch.Run(ctx, out)
	}()

	pollDone := make(chan struct{})
	go func() {
		defer close(pollDone)
		p.Run(ctx, out)
	}()

	// --------------------
	// HTTP
	// --------------------

	h := handlers.NewHandler(handlers.Deps{
		DeviceName: cfg.Device.Name,
		Device:     client,
		Poller:     p,
		Status:     tracker,
		Live:       hub,
		History:    hist,
		Groups:     cfg.Groups(),
	}, lg)

	srv := &server.Server{}
	go func() {
		lg.Infow("http listening", "addr", cfg.HTTP.Listen)
		if err := srv.Run(cfg.HTTP.Listen, h.InitRoutes()); err != nil {
			lg.Errorw("http server stopped", "err", err)
			stop()
		}
	}()

	lg.Infow("kvlogger started",
		"device", cfg.Device.Name,
		"addr", cfg.Address().String(),
		"measurements", len(cfg.Measurements),
		"interval", cfg.PollInterval().String(),
		"sinks", sinks.Len(),
	)

	<-ctx.Done()
	lg.Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Errorw("http shutdown failed", "err", err)
	}

	<-pollDone
	<-orchDone
}
