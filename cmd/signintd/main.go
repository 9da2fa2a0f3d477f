// Command signintd runs the signature-service integration engine as an
// HTTP daemon exposing the REST API.
// Usage: go run ./cmd/signintd -policy-file policies.yml
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	signintegration "github.com/idsec-solutions/signservice-integration-sub001"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/adapters/driven/contentcache"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/adapters/driven/metrics"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/adapters/driven/policy"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/adapters/driven/signature"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/adapters/driven/statecache"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/adapters/driving/rest"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/ports"
)

func main() {
	listen := flag.String("listen", ":9060", "Address to listen on")
	metricsListen := flag.String("metrics-listen", ":9061", "Address for the metrics endpoint")
	policyFile := flag.String("policy-file", "", "Path to the policy configuration file (required)")
	redisAddr := flag.String("redis", "", "Redis address for the state cache; empty means in-memory")
	redisPassword := flag.String("redis-password", "", "Redis password")
	jwtSecretFile := flag.String("jwt-secret-file", "", "File holding the HMAC secret for caller tokens; empty disables authentication")
	sweepInterval := flag.Duration("sweep-interval", time.Minute, "Expired-state sweep interval for the in-memory cache")
	flag.Parse()

	if *policyFile == "" {
		log.Fatal("the -policy-file flag is required")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	policies := policy.NewFilePolicyStore(*policyFile, policy.WithLogger(logger))
	if err := policies.Load(); err != nil {
		logger.Fatal("failed to load policies", zap.String("file", *policyFile), zap.Error(err))
	}

	var stateCache ports.StateCache
	if *redisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: *redisAddr, Password: *redisPassword})
		if err := client.Ping(context.Background()).Err(); err != nil {
			logger.Fatal("failed to connect to redis", zap.String("addr", *redisAddr), zap.Error(err))
		}
		stateCache = statecache.NewRedisStateCache(client, statecache.WithRedisLogger(logger))
		logger.Info("using redis state cache", zap.String("addr", *redisAddr))
	} else {
		memCache := statecache.NewMemoryStateCacheWithSweeper(*sweepInterval, statecache.WithLogger(logger))
		defer memCache.Close()
		stateCache = memCache
		logger.Info("using in-memory state cache")
	}

	recorder := metrics.NewPrometheusMetricsRecorder()

	service, err := signintegration.NewIntegrationService(signintegration.Config{
		PolicyStore:      policies,
		StateCache:       stateCache,
		ContentCache:     contentcache.NewMemoryContentCache(),
		ResponseVerifier: signature.NewXMLDsigResponseVerifierWithLogger(logger),
		Metrics:          recorder,
		Logger:           logger,
	})
	if err != nil {
		logger.Fatal("failed to create integration service", zap.Error(err))
	}

	var controllerOpts []rest.ControllerOption
	controllerOpts = append(controllerOpts, rest.WithLogger(logger))
	if *jwtSecretFile != "" {
		secret, err := os.ReadFile(*jwtSecretFile)
		if err != nil {
			logger.Fatal("failed to read JWT secret", zap.String("file", *jwtSecretFile), zap.Error(err))
		}
		auth := rest.NewAuthenticator([]byte(strings.TrimSpace(string(secret))), logger)
		controllerOpts = append(controllerOpts, rest.WithAuthenticator(auth))
	} else {
		logger.Warn("caller authentication is disabled; all callers share one identity")
	}
	controller := rest.NewController(service, controllerOpts...)

	server := &http.Server{
		Addr:              *listen,
		Handler:           controller.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	metricsServer := &http.Server{
		Addr:              *metricsListen,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("metrics listening", zap.String("addr", *metricsListen))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	go func() {
		logger.Info("listening", zap.String("addr", *listen), zap.Strings("policies", policies.Names()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
	_ = metricsServer.Shutdown(ctx)
}
