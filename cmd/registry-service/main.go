// Command registry-service runs the Service Registry & Routing Fabric:
// component registration, heartbeat tracking, capability resolution, and
// fallback routing for every other Tekton component.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	tektonconfig "github.com/ckoons/tekton-core/internal/config"
	"github.com/ckoons/tekton-core/pkg/infrastructure/metrics"
	"github.com/ckoons/tekton-core/pkg/registry"
	registryserver "github.com/ckoons/tekton-core/pkg/registry/server"
)

func main() {
	logger := logrus.New()

	cfg, err := tektonconfig.Load(configPath())
	if err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}
	if level, parseErr := logrus.ParseLevel(cfg.Logging.Level); parseErr == nil {
		logger.SetLevel(level)
	}

	watchCtx, cancelWatch := context.WithCancel(context.Background())
	defer cancelWatch()
	if watcher, watchErr := tektonconfig.NewWatcher(configPath(), cfg, logger); watchErr != nil {
		logger.WithError(watchErr).Warn("config hot-reload disabled: failed to start watcher")
	} else {
		go watcher.Run(watchCtx)
		go reapplyLogLevel(watchCtx, watcher, logger)
	}

	opts := []registry.Option{withSnapshotBackend(cfg.Registry, logger)}
	if gate := policyGate(cfg.Registry, logger); gate != nil {
		opts = append(opts, registry.WithPolicyGate(gate))
	}

	reg := registry.New(logger, opts...)
	srv := registryserver.New(reg, logger)

	addr := ":" + port()
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.WithField("addr", addr).Info("registry-service listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("registry-service stopped unexpectedly")
		}
	}()

	if cfg.Server.MetricsPort != "" {
		metricsServer := metrics.NewServer(":"+cfg.Server.MetricsPort, logger)
		metricsServer.StartAsync()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.WithError(err).Warn("registry-service did not shut down cleanly")
	}
}

// withSnapshotBackend picks the file or Redis snapshotter named by
// cfg.Backend, falling back to a file snapshotter under the namespace's
// state directory when the backend is unset or unrecognized.
func withSnapshotBackend(cfg tektonconfig.RegistryConfig, logger *logrus.Logger) registry.Option {
	if cfg.Backend == "redis" {
		addr := os.Getenv("REGISTRY_REDIS_ADDR")
		if addr == "" {
			addr = "localhost:6379"
		}
		client := redis.NewClient(&redis.Options{Addr: addr})
		key := "tekton:registry:" + cfg.Namespace
		return registry.WithSnapshotter(registry.NewRedisSnapshotter(client, key))
	}

	path := filepath.Join(os.TempDir(), "tekton-registry-"+cfg.Namespace+".json")
	if dir := os.Getenv("REGISTRY_STATE_DIR"); dir != "" {
		path = filepath.Join(dir, cfg.Namespace+".json")
	}
	return registry.WithSnapshotter(registry.NewFileSnapshotter(path))
}

// policyGate compiles the registration policy under cfg.PolicyDir, if one
// is configured. Registration proceeds ungated when PolicyDir is empty.
func policyGate(cfg tektonconfig.RegistryConfig, logger *logrus.Logger) *registry.OPAPolicyGate {
	if cfg.PolicyDir == "" {
		return nil
	}
	modulePath := filepath.Join(cfg.PolicyDir, "registry.rego")
	src, err := os.ReadFile(modulePath)
	if err != nil {
		logger.WithError(err).WithField("path", modulePath).Warn("no registration policy found, proceeding ungated")
		return nil
	}
	gate, err := registry.NewOPAPolicyGate(context.Background(), "registry.rego", string(src))
	if err != nil {
		logger.WithError(err).Fatal("failed to compile registration policy")
	}
	return gate
}

// reapplyLogLevel polls the watched config for a changed log level and
// applies it without a restart, the one tunable this binary re-reads
// live; everything else picks up the hot-reloaded Config on next use.
func reapplyLogLevel(ctx context.Context, watcher *tektonconfig.Watcher, logger *logrus.Logger) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	current := logger.GetLevel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if level, err := logrus.ParseLevel(watcher.Current().Logging.Level); err == nil && level != current {
				logger.SetLevel(level)
				current = level
			}
		}
	}
}

func configPath() string {
	if path := os.Getenv("TEKTON_CONFIG"); path != "" {
		return path
	}
	return os.ExpandEnv("$TEKTON_ROOT/config/tekton.yaml")
}

func port() string {
	if p := os.Getenv("REGISTRY_PORT"); p != "" {
		return p
	}
	return "8081"
}
