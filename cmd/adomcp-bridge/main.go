// adomcp-bridge hosts the ADO query-handle and bulk-operation core an MCP
// tool server wraps: it wires C1-C8 together and exposes an operator-facing
// HTTP surface (health, handle introspection) but is not itself the MCP
// transport (spec §1 Non-goal "MCP wire protocol").
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/adomcp/bridge/pkg/adoclient"
	"github.com/adomcp/bridge/pkg/bulk"
	"github.com/adomcp/bridge/pkg/collab"
	"github.com/adomcp/bridge/pkg/config"
	"github.com/adomcp/bridge/pkg/handle"
	"github.com/adomcp/bridge/pkg/history"
	"github.com/adomcp/bridge/pkg/response"
	"github.com/adomcp/bridge/pkg/version"
	"github.com/adomcp/bridge/pkg/wiql"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: could not load %s: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	ginMode := getEnv("GIN_MODE", "release")
	gin.SetMode(ginMode)

	log.Printf("Starting %s", version.Full())
	log.Printf("HTTP Port: %s", httpPort)
	log.Printf("Config Directory: %s", *configDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, filepath.Join(*configDir, "config.yaml"))
	if err != nil {
		log.Fatalf("Failed to initialize configuration: %v", err)
	}

	logger := collab.NewSlogLogger(slog.Default())
	clock := collab.SystemClock{}

	tokens, err := newTokenProvider()
	if err != nil {
		log.Fatalf("Failed to build Azure AD token provider: %v", err)
	}

	client := adoclient.New(adoclient.Options{
		BaseURL:                    cfg.BaseURL,
		APIVersion:                 cfg.APIVersion,
		Org:                        cfg.Organization,
		Project:                    cfg.Project,
		Tokens:                     tokens,
		Logger:                     logger,
		RateLimitPerSecond:         cfg.RateLimit.RequestsPerSecond,
		RateLimitBurst:             cfg.RateLimit.Burst,
		BreakerConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
		BreakerOpenTimeout:         cfg.Breaker.OpenTimeout,
		RetryMaxAttempts:           cfg.Retry.MaxAttempts,
		RetryBackoffBase:           cfg.Retry.BackoffBase,
		RetryBackoffCap:            cfg.Retry.BackoffCap,
		RetryJitter:                cfg.Retry.JitterFraction,
	})

	handles := handle.NewStore(clock, logger, cfg.Handle.SweepInterval)
	handles.Start(ctx)

	histories := history.NewStore()
	queries := wiql.New(client, handles, clock, logger)

	// No inbound MCP session exists at process start, so AI-assisted bulk
	// actions are unavailable until a transport layer (out of scope here,
	// spec §1) supplies a live sampling channel per request.
	var sampler collab.LLMSamplingChannel
	bulkEngine := bulk.New(client, handles, histories, sampler, clock, logger)

	log.Println("Services initialized")

	router := gin.Default()

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": version.Full(),
		})
	})

	router.GET("/debug/handles/:id", func(c *gin.Context) {
		summary, err := handles.Describe(c.Param("id"), cfg.Query.DefaultPreviewCount, nil)
		if err != nil {
			env := response.Err(err, nil)
			c.JSON(http.StatusNotFound, env)
			return
		}
		c.JSON(http.StatusOK, response.Ok(summary, nil))
	})

	srv := &http.Server{
		Addr:    ":" + httpPort,
		Handler: router,
	}

	go func() {
		log.Printf("HTTP server listening on :%s", httpPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Mark as used (will be dispatched to by the MCP tool transport, out of
	// scope for this binary per spec §1).
	_ = bulkEngine
	_ = queries

	<-ctx.Done()
	stop()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during HTTP shutdown: %v", err)
	}
	handles.StopCleanup()
}

// newTokenProvider builds the production Azure AD token provider from
// environment variables. A future CI/demo profile may substitute a fake
// here; production always uses client-credentials (spec §6).
func newTokenProvider() (collab.TokenProvider, error) {
	tenantID := os.Getenv("AZURE_TENANT_ID")
	clientID := os.Getenv("AZURE_CLIENT_ID")
	clientSecret := os.Getenv("AZURE_CLIENT_SECRET")
	return adoclient.NewAzureADTokenProvider(tenantID, clientID, clientSecret)
}
