package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc"

	"github.com/GoSim-25-26J-441/scenario-search/internal/metrics"
	"github.com/GoSim-25-26J-441/scenario-search/internal/searchd"
	"github.com/GoSim-25-26J-441/scenario-search/pkg/config"
	"github.com/GoSim-25-26J-441/scenario-search/pkg/logger"
)

func main() {
	var grpcAddr string
	var httpAddr string
	var logLevel string
	var logFormat string
	var outputDir string
	var metricsRetention time.Duration

	flag.StringVar(&grpcAddr, "grpc-addr", ":50051", "gRPC listen address")
	flag.StringVar(&httpAddr, "http-addr", ":8080", "HTTP listen address")
	flag.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flag.StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	flag.StringVar(&outputDir, "output-dir", config.DefaultOutputDir, "directory receiving one history directory per run")
	flag.DurationVar(&metricsRetention, "metrics-retention", searchd.DefaultMetricsRetention, "how long per-run metrics are exported after a run finishes (negative keeps them)")
	flag.Parse()

	log, err := logger.NewFormat(logFormat, logLevel, os.Stdout)
	if err != nil {
		logger.Error("invalid logging flags", "error", err)
		os.Exit(2)
	}
	logger.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	store := searchd.NewRunStore()
	executor := searchd.NewRunExecutor(store, outputDir, metrics.New(reg)).WithMetricsRetention(metricsRetention)

	// TODO: Configure gRPC server security (e.g., TLS, authentication, rate limiting)
	// before using this service in a production environment.
	grpcServer := grpc.NewServer()
	searchd.RegisterSearchServiceServer(grpcServer, searchd.NewSearchGRPCServer(store, executor))

	grpcLis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		logger.Error("failed to listen for gRPC", "addr", grpcAddr, "error", err)
		stop()
		os.Exit(1)
	}

	// No WriteTimeout: /v1/runs/{id}/events streams for the lifetime of a run.
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           searchd.NewHTTPServer(store, executor, reg).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	// Start servers.
	go func() {
		logger.Info("gRPC server listening", "addr", grpcAddr)
		if err := grpcServer.Serve(grpcLis); err != nil {
			logger.Error("gRPC server error", "error", err)
			stop()
		}
	}()

	go func() {
		logger.Info("HTTP server listening", "addr", httpAddr, "output_dir", outputDir)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown requested")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Cancelled runs keep every row they persisted; watchers see the terminal status and return.
	if err := executor.Shutdown(shutdownCtx); err != nil {
		logger.Error("run shutdown error", "error", err)
	}
	grpcServer.GracefulStop()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
}
