// Command tekton runs the Service Registry, Workflow Orchestrator, and
// Context/Memory Management Core together in a single process, for local
// development and demos where standing up three separate deployments
// isn't worth the overhead.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	tektonconfig "github.com/ckoons/tekton-core/internal/config"
	"github.com/ckoons/tekton-core/pkg/contextapi"
	ctxconfig "github.com/ckoons/tekton-core/pkg/contextapi/config"
	ctxserver "github.com/ckoons/tekton-core/pkg/contextapi/server"
	datastorageworkflow "github.com/ckoons/tekton-core/pkg/datastorage/repository/workflow"
	"github.com/ckoons/tekton-core/pkg/executor"
	"github.com/ckoons/tekton-core/pkg/infrastructure/metrics"
	"github.com/ckoons/tekton-core/pkg/registry"
	registryclient "github.com/ckoons/tekton-core/pkg/registry/client"
	registryserver "github.com/ckoons/tekton-core/pkg/registry/server"
	wf "github.com/ckoons/tekton-core/pkg/workflow"
	workflowserver "github.com/ckoons/tekton-core/pkg/workflow/server"
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

	registryAddr := ":" + envOr("REGISTRY_PORT", "8081")
	workflowAddr := ":" + envOr("WORKFLOW_PORT", "8082")
	contextAddr := ":" + envOr("CONTEXT_PORT", "8083")

	servers := []*http.Server{
		newRegistryServer(registryAddr, cfg, logger),
		newWorkflowServer(workflowAddr, registryAddr, cfg, logger),
		newContextServer(contextAddr, cfg, logger),
	}

	for _, s := range servers {
		s := s
		go func() {
			logger.WithField("addr", s.Addr).Info("tekton: service listening")
			if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.WithError(err).WithField("addr", s.Addr).Error("tekton: service stopped unexpectedly")
			}
		}()
	}

	if cfg.Server.MetricsPort != "" {
		metricsServer := metrics.NewServer(":"+cfg.Server.MetricsPort, logger)
		metricsServer.StartAsync()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, s := range servers {
		if err := s.Shutdown(ctx); err != nil {
			logger.WithError(err).WithField("addr", s.Addr).Warn("tekton: service did not shut down cleanly")
		}
	}
}

func newRegistryServer(addr string, cfg *tektonconfig.Config, logger *logrus.Logger) *http.Server {
	opts := []registry.Option{withSnapshotBackend(cfg.Registry, logger)}
	if gate := policyGate(cfg.Registry, logger); gate != nil {
		opts = append(opts, registry.WithPolicyGate(gate))
	}
	reg := registry.New(logger, opts...)
	return &http.Server{Addr: addr, Handler: registryserver.New(reg, logger), ReadHeaderTimeout: 5 * time.Second}
}

func newWorkflowServer(addr, registryAddr string, cfg *tektonconfig.Config, logger *logrus.Logger) *http.Server {
	registryClient := registryclient.New("http://localhost" + registryAddr)

	handlers := executor.NewRegistry()
	handlers.SetFallback(wf.RemoteDispatch(registryClient))

	checkpointer := wf.NewFileCheckpointer(checkpointDir())
	dispatcher := wf.NewDispatcher(handlers)
	engine := wf.NewEngine(dispatcher, checkpointer, logger)

	repo := buildRepository(cfg, logger)
	srv := workflowserver.New(repo, engine, logger, nil)
	return &http.Server{Addr: addr, Handler: srv, ReadHeaderTimeout: 5 * time.Second}
}

func newContextServer(addr string, cfg *tektonconfig.Config, logger *logrus.Logger) *http.Server {
	thresholds := ctxconfig.Thresholds(cfg.Context)
	detector := contextapi.NewDetector(nil)
	maxInjectionTokens := ctxconfig.MaxInjectionTokens(cfg.Context)
	hardLimit := ctxconfig.HardLimitTokens(cfg.Context)

	srv := ctxserver.New(logger, thresholds, detector, func(scope string) *contextapi.Catalog {
		return ctxconfig.NewCatalog(cfg.Context, scope, cfg.LLM.Model)
	}, maxInjectionTokens, hardLimit)
	return &http.Server{Addr: addr, Handler: srv, ReadHeaderTimeout: 5 * time.Second}
}

func withSnapshotBackend(cfg tektonconfig.RegistryConfig, logger *logrus.Logger) registry.Option {
	if cfg.Backend == "redis" {
		addr := envOr("REGISTRY_REDIS_ADDR", "localhost:6379")
		client := redis.NewClient(&redis.Options{Addr: addr})
		return registry.WithSnapshotter(registry.NewRedisSnapshotter(client, "tekton:registry:"+cfg.Namespace))
	}
	path := os.ExpandEnv("$TMPDIR/tekton-registry-" + cfg.Namespace + ".json")
	if dir := os.Getenv("REGISTRY_STATE_DIR"); dir != "" {
		path = dir + "/" + cfg.Namespace + ".json"
	}
	return registry.WithSnapshotter(registry.NewFileSnapshotter(path))
}

func policyGate(cfg tektonconfig.RegistryConfig, logger *logrus.Logger) *registry.OPAPolicyGate {
	if cfg.PolicyDir == "" {
		return nil
	}
	src, err := os.ReadFile(cfg.PolicyDir + "/registry.rego")
	if err != nil {
		logger.WithError(err).Warn("no registration policy found, proceeding ungated")
		return nil
	}
	gate, err := registry.NewOPAPolicyGate(context.Background(), "registry.rego", string(src))
	if err != nil {
		logger.WithError(err).Fatal("failed to compile registration policy")
	}
	return gate
}

func buildRepository(cfg *tektonconfig.Config, logger *logrus.Logger) wf.Repository {
	if cfg.Datastorage.Backend != "postgres" || cfg.Datastorage.DSN == "" {
		return wf.NewStore()
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Datastorage.RequestTimeout)
	defer cancel()
	store, err := datastorageworkflow.Open(ctx, cfg.Datastorage.DSN, nil)
	if err != nil {
		logger.WithError(err).Warn("failed to open the postgres workflow repository, falling back to in-memory")
		return wf.NewStore()
	}
	return store
}

func checkpointDir() string {
	return envOr("WORKFLOW_CHECKPOINT_DIR", os.ExpandEnv("$TEKTON_ROOT/state/checkpoints"))
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

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
