package serverrun

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	cfgpkg "github.com/redbasin/basin/internal/config"
	"github.com/redbasin/basin/internal/metrics"
	"github.com/redbasin/basin/internal/runtime"
	httpserver "github.com/redbasin/basin/internal/server/http"
	respserver "github.com/redbasin/basin/internal/server/resp"
	pebblestore "github.com/redbasin/basin/internal/storage/pebble"
	logpkg "github.com/redbasin/basin/pkg/log"
)

// small wrapper to allow testing; replaced by os.Getenv at build time
var getenv = func(key string) string { return os.Getenv(key) }

func getenvDefault(key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

type Options struct {
	DataDir       string
	RESPAddr      string
	HTTPAddr      string
	Namespace     string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
}

// newProcessLogger builds the node logger from BASIN_LOG_LEVEL and
// BASIN_LOG_FORMAT; defaults: level=info, format=text.
func newProcessLogger() logpkg.Logger {
	level := logpkg.InfoLevel
	if l, err := logpkg.ParseLevel(getenvDefault("BASIN_LOG_LEVEL", "info")); err == nil {
		level = l
	}
	var formatter logpkg.Formatter = &logpkg.TextFormatter{}
	if getenvDefault("BASIN_LOG_FORMAT", "text") == "json" {
		formatter = &logpkg.JSONFormatter{}
	}
	return logpkg.NewLogger(
		logpkg.WithLevel(level),
		logpkg.WithFormatter(formatter),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)
}

// Run starts the RESP and HTTP servers and blocks until ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.DataDir == "" {
		opts.DataDir = cfgpkg.DefaultDataDir()
	}
	storeDir := filepath.Join(opts.DataDir, "store")

	logger := newProcessLogger()
	logpkg.RedirectStdLog(logger)

	m := metrics.New()
	rt, err := runtime.Open(runtime.Options{
		DataDir:       storeDir,
		Fsync:         opts.Fsync,
		FsyncInterval: opts.FsyncInterval,
		Config:        opts.Config,
		Metrics:       m,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	if _, err := rt.EnsureNamespace(rt.Config().DefaultNamespaceName); err != nil {
		return err
	}

	logger.Info("starting basin server",
		logpkg.Str("resp", opts.RESPAddr),
		logpkg.Str("http", opts.HTTPAddr),
		logpkg.Str("data_dir", storeDir),
	)

	rsrv := respserver.New(rt, respserver.Options{
		Addr:      opts.RESPAddr,
		Namespace: opts.Namespace,
		Logger:    logger,
		Metrics:   m,
	})
	hsrv := httpserver.New(rt, httpserver.Options{Logger: logger, Metrics: m})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := rsrv.ListenAndServe(sctx); err != nil && sctx.Err() == nil {
			logger.Error("resp server", logpkg.Err(err))
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := hsrv.ListenAndServe(sctx, opts.HTTPAddr); err != nil && sctx.Err() == nil {
			logger.Error("http server", logpkg.Err(err))
		}
	}()

	<-sctx.Done()
	hsrv.Close()
	wg.Wait()
	return nil
}
