package wasm

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"
)

// Runtime manages one wazero runtime and everything compiled or instantiated in it.
//
// The main engine owns one Runtime; every forked worker owns its own, so each
// has an independent linear memory and "env" host module. Runtimes may share a
// compilation cache.
type Runtime struct {
	// wazero runtime
	runtime wazero.Runtime

	// Compiled module cache (key: module name/path -> value: compiled module)
	// This avoids recompiling the same Wasm binary multiple times
	modules sync.Map // map[string]*CompiledModule

	// Active module instances (for cleanup on shutdown)
	instances sync.Map // map[string]*Instance

	cache     wazero.CompilationCache
	ownsCache bool

	bridge Bridge

	config *RuntimeConfig
	logger *zap.Logger

	// Shutdown management
	closeOnce sync.Once
	closed    chan struct{}
}

// RuntimeConfig holds runtime configuration.
type RuntimeConfig struct {
	// Memory limit for Wasm modules (in pages, 64KB each).
	// Default: 256 pages = 16MB max memory per module
	MemoryPages uint32

	// Keep DWARF-based stack traces in guest errors.
	DebugEnabled bool

	// Compilation cache directory (for persistent caching).
	// If empty, uses in-memory caching only
	CacheDir string

	// Shared compilation cache. Takes precedence over CacheDir and is not
	// closed by the runtime.
	Cache wazero.CompilationCache

	// Maximum number of concurrent instances. Zero means unlimited.
	MaxInstances int

	// Text codec mode, see NegotiateTextCodec.
	TextCodec string
}

// CompiledModule wraps a wazero.CompiledModule with metadata.
type CompiledModule struct {
	// wazero compiled module
	Module wazero.CompiledModule

	// Module metadata
	Name      string
	Source    string // File path or identifier
	SizeBytes int64

	// Raw bytecode, kept so workers can compile their own copy.
	Raw []byte

	// Compilation timestamp
	CompiledAt int64
}

// NewRuntime creates and initializes a new wazero runtime.
func NewRuntime(ctx context.Context, logger *zap.Logger, config *RuntimeConfig) (*Runtime, error) {
	if config == nil {
		config = DefaultRuntimeConfig()
	}

	codec, err := NegotiateTextCodec(config.TextCodec)
	if err != nil {
		return nil, err
	}

	cache := config.Cache
	ownsCache := false
	if cache == nil && config.CacheDir != "" {
		cache, err = wazero.NewCompilationCacheWithDir(config.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open compilation cache %s: %w", config.CacheDir, err)
		}
		ownsCache = true
	}

	rc := wazero.NewRuntimeConfig().
		WithDebugInfoEnabled(config.DebugEnabled).
		WithCloseOnContextDone(true)
	if config.MemoryPages > 0 {
		rc = rc.WithMemoryLimitPages(config.MemoryPages)
	}
	if cache != nil {
		rc = rc.WithCompilationCache(cache)
	}

	runtime := &Runtime{
		runtime:   wazero.NewRuntimeWithConfig(ctx, rc),
		cache:     cache,
		ownsCache: ownsCache,
		bridge:    Bridge{Codec: codec},
		config:    config,
		logger:    logger.With(zap.String("component", "wasm-runtime")),
		closed:    make(chan struct{}),
	}

	runtime.logger.Debug("Wasm runtime initialized",
		zap.Uint32("memory_pages", config.MemoryPages),
		zap.Bool("debug_enabled", config.DebugEnabled),
		zap.String("cache_dir", config.CacheDir),
		zap.Int("max_instances", config.MaxInstances),
		zap.String("text_codec", codec.Name()),
	)

	return runtime, nil
}

// DefaultRuntimeConfig returns sensible defaults.
func DefaultRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		MemoryPages:  256, // 16MB
		DebugEnabled: false,
		CacheDir:     "",
		MaxInstances: 100,
		TextCodec:    CodecAuto,
	}
}

// Config returns the configuration the runtime was built with.
func (r *Runtime) Config() *RuntimeConfig {
	return r.config
}

// Bridge returns the memory bridge negotiated for this runtime.
func (r *Runtime) Bridge() Bridge {
	return r.bridge
}

// CompilationCache returns the cache in use, or nil.
func (r *Runtime) CompilationCache() wazero.CompilationCache {
	return r.cache
}

// Close gracefully shuts down the runtime.
// Safe to call multiple times (idempotent).
func (r *Runtime) Close(ctx context.Context) error {
	var err error
	r.closeOnce.Do(func() {
		r.logger.Debug("Shutting down Wasm runtime")

		// Close all active instances first
		r.instances.Range(func(key, value any) bool {
			if inst, ok := value.(*Instance); ok {
				if closeErr := inst.Close(ctx); closeErr != nil {
					r.logger.Warn("Failed to close instance",
						zap.String("instance_id", key.(string)),
						zap.Error(closeErr),
					)
				}
			}
			return true
		})

		// Close the runtime (closes compiled modules)
		err = r.runtime.Close(ctx)

		if r.ownsCache {
			if cerr := r.cache.Close(ctx); cerr != nil && err == nil {
				err = cerr
			}
		}

		close(r.closed)
		r.logger.Debug("Wasm runtime shutdown complete")
	})

	return err
}

// GetCompiledModule retrieves a compiled module from cache.
func (r *Runtime) GetCompiledModule(name string) (*CompiledModule, bool) {
	if val, ok := r.modules.Load(name); ok {
		if mod, ok := val.(*CompiledModule); ok {
			return mod, true
		}
	}
	return nil, false
}

// StoreCompiledModule stores a compiled module in cache.
func (r *Runtime) StoreCompiledModule(module *CompiledModule) {
	r.modules.Store(module.Name, module)
}

// GetInstance retrieves an active instance.
func (r *Runtime) GetInstance(instanceID string) (*Instance, bool) {
	if val, ok := r.instances.Load(instanceID); ok {
		inst, ok := val.(*Instance)
		return inst, ok
	}
	return nil, false
}

// StoreInstance stores an active instance.
func (r *Runtime) StoreInstance(instance *Instance) {
	r.instances.Store(instance.ID, instance)
}

// DeleteInstance removes an instance from tracking.
func (r *Runtime) DeleteInstance(instanceID string) {
	r.instances.Delete(instanceID)
}

// InstanceCount returns the number of tracked instances.
func (r *Runtime) InstanceCount() int {
	n := 0
	r.instances.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// IsClosed returns whether the runtime has been closed.
func (r *Runtime) IsClosed() bool {
	select {
	case <-r.closed:
		return true
	default:
		return false
	}
}
