// Copyright (C) 2025 The Risk Analysis App Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/wanyonyi-dev/risk-analysis-app/internal/auth"
	"github.com/wanyonyi-dev/risk-analysis-app/internal/history"
	"github.com/wanyonyi-dev/risk-analysis-app/internal/observability"
	"github.com/wanyonyi-dev/risk-analysis-app/internal/probe"
	"github.com/wanyonyi-dev/risk-analysis-app/internal/recommend"
	"github.com/wanyonyi-dev/risk-analysis-app/internal/routes"
	"github.com/wanyonyi-dev/risk-analysis-app/internal/scan"
	"github.com/wanyonyi-dev/risk-analysis-app/internal/seed"
	"github.com/wanyonyi-dev/risk-analysis-app/internal/store/badgerstore"
	"github.com/wanyonyi-dev/risk-analysis-app/pkg/logging"
)

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		// Tracing is opt-in; without a collector endpoint we skip the
		// exporter entirely instead of retrying a dead connection.
		return func(context.Context) {}, nil
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("riskserver")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// scanConfigFromEnv reads the loop parameters, keeping defaults for unset
// or invalid values.
func scanConfigFromEnv() scan.Config {
	cfg := scan.DefaultConfig()
	if v := os.Getenv("SCAN_TICK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.TickInterval = d
		} else {
			slog.Warn("invalid SCAN_TICK_INTERVAL, using default", "value", v)
		}
	}
	if v := os.Getenv("SCAN_TICK_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TickCount = n
		} else {
			slog.Warn("invalid SCAN_TICK_COUNT, using default", "value", v)
		}
	}
	return cfg
}

func main() {
	port := os.Getenv("RISK_SERVER_PORT")
	if port == "" {
		port = "12310"
	}

	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(os.Getenv("LOG_LEVEL")),
		LogDir:  os.Getenv("LOG_DIR"),
		Service: "riskserver",
		JSON:    true,
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	// --- Init the tracer ---
	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	observability.InitMetrics()

	// --- Document store ---
	storeCfg := badgerstore.DefaultConfig()
	storeCfg.Path = os.Getenv("STORE_PATH")
	if storeCfg.Path == "" {
		storeCfg.Path = "/var/lib/riskanalysis/store"
	}
	storeCfg.Logger = logger.Slog()
	st, err := badgerstore.Open(storeCfg)
	if err != nil {
		log.Fatalf("FATAL: could not open the document store: %v", err)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- First-load seeding ---
	seedRes, err := seed.EnsureDefaults(ctx, st)
	if err != nil {
		// Non-fatal: safe to retry on the next start, and the API can
		// serve whatever data exists.
		slog.Error("default-data seeding failed", "error", err)
	}

	// --- Device probe ---
	var pr probe.Probe
	if agentURL := os.Getenv("DEVICE_AGENT_URL"); agentURL != "" {
		pr = probe.NewAgentProbe(agentURL, nil)
		slog.Info("using device agent probe", "url", agentURL)
	} else {
		pr = probe.DefaultStaticProbe()
		slog.Info("DEVICE_AGENT_URL not set, running with the static probe")
	}

	engine, err := recommend.NewEngine(st)
	if err != nil {
		log.Fatalf("FATAL: could not initialize the recommendation engine: %v", err)
	}

	orch := scan.New(st, pr, engine, nil, scanConfigFromEnv())
	defer orch.Stop()

	// --- Optional InfluxDB history sink ---
	if influxURL := os.Getenv("INFLUXDB_URL"); influxURL != "" {
		sink := history.New(history.Config{
			URL:    influxURL,
			Token:  os.Getenv("INFLUXDB_TOKEN"),
			Org:    os.Getenv("INFLUXDB_ORG"),
			Bucket: os.Getenv("INFLUXDB_BUCKET"),
		})
		defer sink.Close()
		events, cancelEvents := orch.Events()
		defer cancelEvents()
		go sink.Run(ctx, events)
		if seedRes.Seeded {
			if err := sink.WriteScore(ctx, seedRes.SecureScore, seedRes.RiskScore); err != nil {
				slog.Warn("history sink score write failed", "error", err)
			}
		}
		slog.Info("history sink enabled", "url", influxURL)
	}

	// --- Auth provider ---
	var provider auth.AuthProvider = &auth.NopAuthProvider{}
	if token := os.Getenv("RISK_API_TOKEN"); token != "" {
		provider = &auth.StaticTokenProvider{Token: token}
		slog.Info("API token authentication enabled")
	} else {
		slog.Info("RISK_API_TOKEN not set, running in single-user mode")
	}

	router := gin.Default()
	router.Use(otelgin.Middleware("riskserver"))
	routes.SetupRoutes(router, st, orch, provider, ctx)

	srv := &http.Server{Addr: ":" + port, Handler: router}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("starting the risk-analysis server", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
	slog.Info("server stopped")
}
