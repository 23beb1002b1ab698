// Package main provides the entry point for the service gate.
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/svcgate/svcgate/src/internal/application/handler"
	"github.com/svcgate/svcgate/src/internal/application/middleware"
	"github.com/svcgate/svcgate/src/internal/domain/service"
	"github.com/svcgate/svcgate/src/internal/infrastructure/classifier"
	"github.com/svcgate/svcgate/src/internal/infrastructure/config"
	"github.com/svcgate/svcgate/src/internal/infrastructure/credstore"
	"github.com/svcgate/svcgate/src/internal/infrastructure/logger"
	"github.com/svcgate/svcgate/src/internal/infrastructure/ratelimit"
	"github.com/svcgate/svcgate/src/internal/infrastructure/security"
	"github.com/svcgate/svcgate/src/internal/infrastructure/store"
	"github.com/svcgate/svcgate/src/internal/infrastructure/worker"
	"github.com/svcgate/svcgate/src/internal/version"
)

func main() {
	if handleSpecialCommands() {
		return
	}

	runServer()
}

// handleSpecialCommands processes version, help, and secret-generation
// commands. Returns true if a command was handled and the program
// should exit.
func handleSpecialCommands() bool {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		showHelp    = flag.Bool("help", false, "Show help")
		genSecret   = flag.Bool("gen-secret", false, "Generate a shared secret for provisioning a service identity")
	)
	flag.Parse()

	if *showHelp {
		printHelp()
		return true
	}

	if *showVersion {
		fmt.Println(version.GetFullVersion())
		return true
	}

	if *genSecret {
		handleGenSecret()
		return true
	}

	return false
}

// Variable to allow testing of os.Exit.
var osExit = os.Exit

// handleGenSecret prints a fresh shared secret for provisioning.
func handleGenSecret() {
	secret, err := security.GenerateSharedSecret(security.MinSecretLength)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Secret generation failed: %v\n", err)
		osExit(1)
	}
	fmt.Println(secret)
}

// runServer starts the gateway.
func runServer() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		osExit(1)
		return
	}

	initializeLogger(cfg)
	defer logger.Close()

	components := initializeComponents(cfg)
	defer components.cleanup()

	startRuleReloader(cfg, components.classifier)

	router := buildRouter(components)
	server := createHTTPServer(cfg, components.tlsConfig, router)
	startGracefulShutdown(server)
	startServer(server, components.tlsConfig)
}

// serverComponents holds all initialized server components.
type serverComponents struct {
	classifier    *classifier.Classifier
	credStore     credstore.Store
	gate          *service.Gate
	serviceAuth   *middleware.ServiceAuth
	workerPool    *worker.Pool
	decisionLog   *store.DecisionLog
	rateLimiter   *ratelimit.RateLimiter
	healthHandler *handler.HealthHandler
	auditHandler  *handler.AuditHandler
	tlsConfig     *config.TLSConfig
	closeStore    func() error
}

// cleanup performs cleanup for all components.
func (c *serverComponents) cleanup() {
	if err := c.workerPool.Shutdown(30 * time.Second); err != nil {
		logger.Errorf("Failed to shutdown worker pool: %v", err)
	}
	c.rateLimiter.Stop()
	if c.closeStore != nil {
		if err := c.closeStore(); err != nil {
			logger.Errorf("Failed to close credential store: %v", err)
		}
	}
}

// initializeLogger sets up the logging system.
func initializeLogger(cfg *config.Config) {
	logCfg := logger.Config{
		Level:      cfg.LogLevel,
		FilePath:   cfg.LogFilePath,
		MaxSize:    10 * 1024 * 1024, // 10MB
		MaxBackups: 5,
	}
	if err := logger.Initialize(logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		// Continue with stdout logging
	}
}

// initializeComponents creates and initializes all server components.
// A broken rules file is fatal: the gate never serves traffic with an
// undefined classification policy.
func initializeComponents(cfg *config.Config) *serverComponents {
	rules, err := config.LoadRules(cfg.RulesFile)
	if err != nil {
		logger.Fatalf("Failed to load path rules: %v", err)
	}

	pathClassifier, err := classifier.New(rules.ExemptPaths, rules.ServiceOnlyPaths)
	if err != nil {
		logger.Fatalf("Failed to compile path rules: %v", err)
	}

	credStore, closeStore := buildCredStore(cfg, rules)

	validator, err := security.NewValidator(credStore, rules.ClockSkew)
	if err != nil {
		logger.Fatalf("Failed to initialize signature validator: %v", err)
	}

	gate := service.NewGate(pathClassifier, validator)

	workerPool := worker.NewPool(4, 256)
	decisionLog := store.NewDecisionLog(10000)
	recorder := store.NewAsyncRecorder(decisionLog, workerPool)

	// Expire audit records past a day.
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			decisionLog.CleanupOldRecords(24 * time.Hour)
		}
	}()

	serviceAuth := middleware.NewServiceAuth(gate, rules.Headers, recorder)
	rateLimiter := ratelimit.NewRateLimiter(ratelimit.DefaultConfig())
	healthHandler := handler.NewHealthHandler(credStore)
	auditHandler := handler.NewAuditHandler(decisionLog)

	tlsConfig := config.LoadTLSConfig()
	if err := tlsConfig.Validate(); err != nil {
		logger.Warnf("TLS configuration error: %v", err)
		logger.Info("Starting without TLS (HTTP only)")
		tlsConfig.Enabled = false
	}

	return &serverComponents{
		classifier:    pathClassifier,
		credStore:     credStore,
		gate:          gate,
		serviceAuth:   serviceAuth,
		workerPool:    workerPool,
		decisionLog:   decisionLog,
		rateLimiter:   rateLimiter,
		healthHandler: healthHandler,
		auditHandler:  auditHandler,
		tlsConfig:     tlsConfig,
		closeStore:    closeStore,
	}
}

// buildCredStore picks the Redis credential store when configured and
// falls back to the identities provisioned in the rules file.
func buildCredStore(cfg *config.Config, rules *config.Rules) (credstore.Store, func() error) {
	if cfg.RedisAddr != "" {
		logger.Infof("Using Redis credential store at %s", cfg.RedisAddr)
		rs := credstore.NewRedisStore(credstore.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return rs, rs.Close
	}

	if len(rules.Services) == 0 {
		logger.Warn("No Redis configured and no static services provisioned; every service-only request will be denied")
	}

	ms := credstore.NewMemoryStore()
	for _, svc := range rules.Services {
		ms.Put(svc.ID, []byte(svc.Secret))
	}
	logger.Infof("Using static credential store with %d provisioned services", len(rules.Services))
	return ms, nil
}

// startRuleReloader swaps in a fresh rule snapshot on SIGHUP. Header
// names and the skew window stay fixed until restart; only the path
// lists reload.
func startRuleReloader(cfg *config.Config, c *classifier.Classifier) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP)

	go func() {
		for range sigChan {
			rules, err := config.LoadRules(cfg.RulesFile)
			if err != nil {
				logger.Errorf("Rule reload failed, keeping current rules: %v", err)
				continue
			}
			if err := c.Reload(rules.ExemptPaths, rules.ServiceOnlyPaths); err != nil {
				logger.Errorf("Rule reload failed, keeping current rules: %v", err)
				continue
			}
			logger.WithFields(map[string]interface{}{
				"exempt":       len(rules.ExemptPaths),
				"service_only": len(rules.ServiceOnlyPaths),
			}).Info("Reloaded path rules")
		}
	}()
}

// buildRouter assembles the middleware chain and route handlers. The
// enforcement gate wraps everything, including the audit endpoint.
func buildRouter(components *serverComponents) http.Handler {
	r := chi.NewRouter()

	r.Use(components.rateLimiter.Middleware)
	r.Use(components.serviceAuth.Middleware)

	r.Get("/api/health", components.healthHandler.HandleHealth)
	r.Get("/internal/audit/recent", components.auditHandler.HandleRecent)

	return r
}

// createHTTPServer creates and configures the HTTP server.
func createHTTPServer(cfg *config.Config, tlsConfig *config.TLSConfig, router http.Handler) *http.Server {
	addr := fmt.Sprintf(":%s", cfg.Port)
	logServerInfo(cfg, addr, tlsConfig)

	var serverTLSConfig *tls.Config
	if tlsConfig.Enabled {
		var err error
		serverTLSConfig, err = tlsConfig.GetTLSConfig()
		if err != nil {
			logger.Fatalf("Failed to configure TLS: %v", err)
		}
	}

	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 16, // 64KB
		TLSConfig:         serverTLSConfig,
	}
}

// logServerInfo logs server startup information.
func logServerInfo(cfg *config.Config, addr string, tlsConfig *config.TLSConfig) {
	protocol := "HTTP"
	if tlsConfig.Enabled {
		protocol = "HTTPS"
	}

	logger.Infof("Starting svcgate on %s (%s)", addr, protocol)
	logger.Infof("Version: %s", version.GetFullVersion())
	logger.Infof("Log level: %s", cfg.LogLevel)
	logger.Infof("Rules file: %s", cfg.RulesFile)
}

// startGracefulShutdown sets up graceful shutdown handling.
func startGracefulShutdown(server *http.Server) {
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Errorf("Server shutdown error: %v", err)
		}
	}()
}

// startServer starts the HTTP/HTTPS server.
func startServer(server *http.Server, tlsConfig *config.TLSConfig) {
	var err error
	if tlsConfig.Enabled {
		logger.Infof("Starting HTTPS server with certificates from %s", tlsConfig.CertFile)
		err = server.ListenAndServeTLS(tlsConfig.CertFile, tlsConfig.KeyFile)
	} else {
		err = server.ListenAndServe()
	}

	if err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Failed to start server: %v", err)
	}

	logger.Info("svcgate stopped")
}

func printHelp() {
	fmt.Println("svcgate - service authentication gateway")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  svcgate [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version      Show version information")
	fmt.Println("  --help         Show this help message")
	fmt.Println("  --gen-secret   Generate a shared secret for provisioning")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  SVCGATE_PORT            Port to listen on (default: 8088)")
	fmt.Println("  SVCGATE_RULES_FILE      Path rules YAML (default: /etc/svcgate/rules.yaml)")
	fmt.Println("  SVCGATE_LOG_LEVEL       Log level: debug, info, warn, error (default: info)")
	fmt.Println("  SVCGATE_LOG_FILE        Log file path (default: stdout only)")
	fmt.Println("  SVCGATE_REDIS_ADDR      Redis credential store address (optional)")
	fmt.Println("  SVCGATE_REDIS_PASSWORD  Redis password")
	fmt.Println("  SVCGATE_REDIS_DB        Redis database number")
	fmt.Println("  SVCGATE_TLS_ENABLED     Enable HTTPS (true/false)")
	fmt.Println("  SVCGATE_TLS_CERT        Certificate file path")
	fmt.Println("  SVCGATE_TLS_KEY         Private key file path")
	fmt.Println()
	fmt.Println("Signals:")
	fmt.Println("  SIGHUP   Reload the path rules file without restarting")
}
