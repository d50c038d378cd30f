package runtime

import (
	"context"
	"errors"
	"sync"
	"time"

	cfgpkg "github.com/redbasin/basin/internal/config"
	"github.com/redbasin/basin/internal/namespace"
	pebblestore "github.com/redbasin/basin/internal/storage/pebble"
	"github.com/redbasin/basin/internal/streamdb"
)

// Options for building the Runtime.
type Options struct {
	DataDir       string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
	Metrics       pebblestore.MetricsHook
}

// Runtime wires storage and config for a single-node instance.
type Runtime struct {
	db     *pebblestore.DB
	config cfgpkg.Config

	mu      sync.Mutex
	streams map[string]*streamdb.Stream
}

// Open initializes the underlying storage and returns a Runtime.
func Open(opts Options) (*Runtime, error) {
	db, err := pebblestore.Open(pebblestore.Options{
		DataDir:       opts.DataDir,
		Fsync:         opts.Fsync,
		FsyncInterval: opts.FsyncInterval,
		Metrics:       opts.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Runtime{db: db, config: opts.Config, streams: make(map[string]*streamdb.Stream)}, nil
}

// Close closes underlying resources.
func (r *Runtime) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// CheckHealth performs a simple health check.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.db == nil {
		return errors.New("db not open")
	}
	it, err := r.db.NewIter(nil)
	if err != nil {
		return err
	}
	return it.Close()
}

// EnsureNamespace creates a namespace record if absent.
func (r *Runtime) EnsureNamespace(name string) (namespace.Meta, error) {
	if err := namespace.ValidateName(name, r.config.NamespaceNameRegex); err != nil {
		return namespace.Meta{}, err
	}
	return namespace.Ensure(r.db, name)
}

// OpenStream returns the shared handle for the given namespace/stream.
// Handles are cached: one writer mutex per stream keeps auto ids strictly
// increasing across all callers.
func (r *Runtime) OpenStream(ns, name string) (*streamdb.Stream, error) {
	key := ns + "/" + name
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.streams[key]; ok {
		return s, nil
	}
	s, err := streamdb.Open(r.db, ns, name)
	if err != nil {
		return nil, err
	}
	r.streams[key] = s
	return s, nil
}

// DB exposes the underlying DB for advanced operations (internal use only).
func (r *Runtime) DB() *pebblestore.DB { return r.db }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }
