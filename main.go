package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"corewatch/internal/config"
	"corewatch/internal/controllers"
	"corewatch/internal/middleware"
	"corewatch/internal/routes"
	"corewatch/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default: search ., ./config, ~/.corewatch)")
	profilesPath := flag.String("profiles", defaultProfilesPath(), "path to the server profiles file")
	profileName := flag.String("profile", "", "server profile to monitor (default: the file's default)")
	printToken := flag.Bool("token", false, "print a dashboard token for the profile and exit")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	profiles, err := config.LoadProfiles(*profilesPath)
	if err != nil {
		log.Fatalf("profiles: %v", err)
	}
	if err := config.ValidateProfiles(profiles); err != nil {
		log.Fatalf("profiles: %v", err)
	}
	endpoint, err := profiles.Select(*profileName)
	if err != nil {
		log.Fatalf("profiles: %v", err)
	}

	middleware.NewSecurityLogger()
	services.InitAuthService(cfg.SecretKey, cfg.TokenExpiry)

	if *printToken {
		token, err := services.GenerateToken(endpoint.Name)
		if err != nil {
			log.Fatalf("token: %v", err)
		}
		middleware.GlobalSecurityLogger.LogTokenGenerated("cli", endpoint.Name)
		log.Printf("[AUTH] Token for %s expires %s", endpoint.Name, services.GetTokenExpiry().Format(time.RFC3339))
		fmt.Println(token)
		return
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := services.NewStreamMetrics(registry)
	if err != nil {
		log.Fatalf("metrics: %v", err)
	}

	services.SetCacheTTL(cfg.CacheTTL)

	transport := services.NewWebSocketTransport(cfg.Stream.HandshakeTimeout, cfg.Core.InsecureSkipVerify)
	api := services.NewAPIClient(endpoint, cfg.Core.RequestTimeout, cfg.Core.InsecureSkipVerify)
	monitor := services.NewMonitor(endpoint, transport, api, monitorOptions(cfg, metrics))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	probeCtx, cancelProbe := context.WithTimeout(ctx, cfg.Core.RequestTimeout)
	if err := monitor.Start(probeCtx); err != nil {
		// Streams stay in Error until restarted from the API
		log.Printf("[STREAM] %s not monitored: %v", endpoint.Addr(), err)
	}
	cancelProbe()

	hub := services.NewWebSocketHub(monitor, cfg.PushInterval)
	handler := controllers.NewHandler(monitor, hub, cfg.Core.RequestTimeout)

	gin.SetMode(gin.ReleaseMode)
	router := routes.NewRouter(handler, routes.RouterOptions{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedIPs:     cfg.AllowedIPs,
		RateLimit:      cfg.RateLimit,
		RateBurst:      cfg.RateBurst,
		Gatherer:       registry,
	})

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Dashboard API for %s listening on %s", endpoint.Addr(), cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	hub.Stop()
	monitor.Close()
}

func monitorOptions(cfg *config.Config, metrics *services.StreamMetrics) services.MonitorOptions {
	return services.MonitorOptions{
		Policy: services.StreamPolicy{
			Threshold: services.ThresholdPolicy{
				Window:    cfg.Stream.ErrorWindow,
				Threshold: cfg.Stream.ErrorThreshold,
			},
			RetryDelay: cfg.Stream.RetryDelay,
		},
		Alpha:               cfg.Buffers.Alpha,
		SpeedPoints:         cfg.Buffers.SpeedPoints,
		MemoryPoints:        cfg.Buffers.MemoryPoints,
		LogEntries:          cfg.Buffers.LogEntries,
		LogLevel:            cfg.Core.LogLevel,
		ConnectionsInterval: cfg.Core.ConnectionsInterval,
		Metrics:             metrics,
	}
}

func defaultProfilesPath() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".corewatch", config.DefaultProfilesFile)
	}
	return config.DefaultProfilesFile
}
