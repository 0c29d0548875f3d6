package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"spacedetect/internal/api"
	"spacedetect/internal/artifact"
	"spacedetect/internal/auth"
	"spacedetect/internal/codec"
	"spacedetect/internal/config"
	"spacedetect/internal/detection"
	"spacedetect/internal/detection/onnx"
	"spacedetect/internal/detection/remote"
	"spacedetect/internal/render"
	"spacedetect/internal/services"
	"spacedetect/internal/ws"
)

func main() {
	// Define command line flags, add any other flag required to configure the
	// service.
	var (
		hostF     = flag.String("host", "", "Server host (overrides the configured host)")
		httpPortF = flag.String("http-port", "", "HTTP port (overrides the configured port)")
		configF   = flag.String("config", "", "Path to a YAML configuration file")
		dbgF      = flag.Bool("debug", false, "Log request and response bodies")
	)
	flag.Parse()

	var (
		logger *log.Logger
	)
	{
		logger = log.New(os.Stderr, "[spacedetect] ", log.Ltime)
	}

	cfg, err := config.Load(*configF)
	if err != nil {
		logger.Fatalf("failed to load configuration: %v", err)
	}
	if *hostF != "" {
		cfg.Server.Host = *hostF
	}
	if *httpPortF != "" {
		cfg.Server.Port = *httpPortF
	}
	debug := *dbgF || cfg.Server.Debug

	// Resolve the detection capability once; it is fixed for the process
	// lifetime.
	capability := detection.Probe(context.Background(), loaderFor(cfg, logger), logger)
	logger.Printf("Detection mode: %s", capability.Mode())

	// Output store, optional ledger and the background persister.
	var ledger *artifact.Ledger
	if cfg.Output.DatabasePath != "" {
		ledger, err = artifact.OpenLedger(cfg.Output.DatabasePath)
		if err != nil {
			logger.Printf("Artifact ledger disabled: %v", err)
		}
	}
	persister := artifact.NewPersister(artifact.NewStore(cfg.Output.Dir), ledger, cfg.Output.QueueSize, logger)

	hub := ws.NewDetectionHub(logger)

	authenticator, err := auth.NewAuthenticator(cfg.Auth)
	if err != nil {
		logger.Fatalf("failed to initialise authentication: %v", err)
	}
	if authenticator.IsEnabled() {
		logger.Printf("Authentication enabled for user %q", cfg.Auth.Username)
	}

	// Initialize the services.
	var (
		detectionSvc *services.DetectionImplementation
		healthSvc    *services.HealthImplementation
		artifactsSvc *services.ArtifactsImplementation
		authSvc      *services.AuthImplementation
	)
	{
		renderer := render.New(render.Options{
			FontPath: cfg.Render.FontPath,
			FontSize: cfg.Render.FontSize,
			Palette:  cfg.Render.Palette,
		}, logger)

		detectionSvc = services.NewDetectionService(
			detection.NewEngine(capability),
			codec.New(cfg.Output.JPEGQuality, codec.WithAutoOrientation(cfg.Input.AutoOrient)),
			renderer,
			persister,
			hub,
			logger,
		)
		healthSvc = services.NewHealthService(capability)
		// a nil *Ledger must stay a nil interface
		if ledger != nil {
			artifactsSvc = services.NewArtifactsService(ledger)
		} else {
			artifactsSvc = services.NewArtifactsService(nil)
		}
		authSvc = services.NewAuthService(authenticator)
	}
	logger.Printf("Serving detections: %s", detectionSvc)

	// Wrap the services in endpoints that can be invoked from other services
	// potentially running in different processes.
	var (
		endpoints *api.Endpoints
	)
	{
		endpoints = api.NewEndpoints(detectionSvc, healthSvc, artifactsSvc, authSvc)
	}

	// Create channel used by both the signal handler and server goroutines
	// to notify the main goroutine when to stop the server.
	errc := make(chan error)

	// Setup interrupt handler. This optional step configures the process so
	// that SIGINT and SIGTERM signals cause the services to stop gracefully.
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(context.Background())

	wg.Add(1)
	go func() {
		defer wg.Done()
		hub.Run(ctx)
	}()

	u := &url.URL{Scheme: "http", Host: net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)}
	handleHTTPServer(ctx, u, endpoints, ws.NewHandler(hub), authenticator, cfg.Server.CORSOrigins, &wg, errc, logger, debug)

	// Wait for signal.
	logger.Printf("exiting (%v)", <-errc)

	// Send cancellation signal to the goroutines.
	cancel()

	wg.Wait()

	// Drain queued artifacts before releasing the ledger and the backend.
	persister.Close()
	if ledger != nil {
		if err := ledger.Close(); err != nil {
			logger.Printf("failed to close artifact ledger: %v", err)
		}
	}
	if err := capability.Close(); err != nil {
		logger.Printf("failed to close detection backend: %v", err)
	}
	logger.Println("exited")
}

// loaderFor selects the backend loader named by the configuration
func loaderFor(cfg *config.Config, logger *log.Logger) detection.Loader {
	m := cfg.Model
	switch m.Backend {
	case config.BackendHTTP:
		return remote.NewHTTPLoader(remoteOptions(m), logger)
	case config.BackendGRPC:
		return remote.NewGRPCLoader(remoteOptions(m), logger)
	default:
		return onnx.NewLoader(onnx.Options{
			ModelName:      m.Name,
			ModelPath:      m.Path,
			RuntimeLibrary: m.RuntimeLibrary,
			Labels:         m.Labels,
			InputSize:      m.InputSize,
			ConfThreshold:  m.ConfThreshold,
			IoUThreshold:   m.IoUThreshold,
		}, logger)
	}
}

func remoteOptions(m config.ModelConfig) remote.Options {
	return remote.Options{
		Endpoint:      m.Endpoint,
		ModelName:     m.Name,
		Labels:        m.Labels,
		ConfThreshold: m.ConfThreshold,
		Timeout:       m.Timeout,
	}
}
