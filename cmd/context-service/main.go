// Command context-service runs the Context/Memory Management Core: the
// per-CI token budget ledger and relevance-scored Memory Catalog that
// every other component reads from before an outbound turn.
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
	"github.com/ckoons/tekton-core/pkg/contextapi"
	ctxconfig "github.com/ckoons/tekton-core/pkg/contextapi/config"
	ctxserver "github.com/ckoons/tekton-core/pkg/contextapi/server"
	"github.com/ckoons/tekton-core/pkg/infrastructure/metrics"
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

	thresholds := ctxconfig.Thresholds(cfg.Context)
	detector := contextapi.NewDetector(nil)
	maxInjectionTokens := ctxconfig.MaxInjectionTokens(cfg.Context)
	hardLimit := ctxconfig.HardLimitTokens(cfg.Context)

	srv := ctxserver.New(logger, thresholds, detector, func(scope string) *contextapi.Catalog {
		return ctxconfig.NewCatalog(cfg.Context, scope, cfg.LLM.Model)
	}, maxInjectionTokens, hardLimit)

	addr := ":" + port()
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.WithField("addr", addr).Info("context-service listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("context-service stopped unexpectedly")
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
		logger.WithError(err).Warn("context-service did not shut down cleanly")
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

func port() string {
	if p := os.Getenv("CONTEXT_PORT"); p != "" {
		return p
	}
	return "8083"
}
