// Command workflow-service runs the Workflow Orchestrator: task graph
// scheduling, checkpointed execution, and the pause/resume/cancel
// control surface, dispatching tasks to components resolved through the
// Service Registry.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	tektonconfig "github.com/ckoons/tekton-core/internal/config"
	"github.com/ckoons/tekton-core/pkg/datastorage/repository/workflow"
	"github.com/ckoons/tekton-core/pkg/executor"
	"github.com/ckoons/tekton-core/pkg/infrastructure/metrics"
	registryclient "github.com/ckoons/tekton-core/pkg/registry/client"
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

	registryClient := registryclient.New(registryServiceURL())

	handlers := executor.NewRegistry()
	handlers.SetFallback(wf.RemoteDispatch(registryClient))

	checkpointer := wf.NewFileCheckpointer(checkpointDir())
	dispatcher := wf.NewDispatcher(handlers)
	engine := wf.NewEngine(dispatcher, checkpointer, logger)

	repo, closeRepo := buildRepository(cfg, logger)
	if closeRepo != nil {
		defer closeRepo()
	}

	srv := workflowserver.New(repo, engine, logger, nil)

	addr := ":" + port()
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.WithField("addr", addr).Info("workflow-service listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("workflow-service stopped unexpectedly")
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
		logger.WithError(err).Warn("workflow-service did not shut down cleanly")
	}
}

// buildRepository picks the Postgres-backed workflow.Repository when
// configured, falling back to the in-memory Store (e.g. local dev
// without a datastorage deployment). The returned close func is nil for
// the in-memory Store.
func buildRepository(cfg *tektonconfig.Config, logger *logrus.Logger) (wf.Repository, func()) {
	if cfg.Datastorage.Backend != "postgres" || cfg.Datastorage.DSN == "" {
		return wf.NewStore(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Datastorage.RequestTimeout)
	defer cancel()

	store, err := workflow.Open(ctx, cfg.Datastorage.DSN, nil)
	if err != nil {
		logger.WithError(err).Warn("failed to open the postgres workflow repository, falling back to in-memory")
		return wf.NewStore(), nil
	}
	return store, func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.WithError(closeErr).Warn("error closing workflow repository")
		}
	}
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

func checkpointDir() string {
	if dir := os.Getenv("WORKFLOW_CHECKPOINT_DIR"); dir != "" {
		return dir
	}
	return os.ExpandEnv("$TEKTON_ROOT/state/checkpoints")
}

func registryServiceURL() string {
	if url := os.Getenv("REGISTRY_SERVICE_URL"); url != "" {
		return url
	}
	return "http://localhost:8081"
}

func port() string {
	if p := os.Getenv("WORKFLOW_PORT"); p != "" {
		return p
	}
	return "8082"
}
