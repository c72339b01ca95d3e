// Package engine wires the module, its imports and the frame loop together.
package engine

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/woxQAQ/wasmtoys/api/abi"
	"github.com/woxQAQ/wasmtoys/internal/assets"
	"github.com/woxQAQ/wasmtoys/internal/config"
	"github.com/woxQAQ/wasmtoys/internal/gl"
	"github.com/woxQAQ/wasmtoys/internal/input"
	"github.com/woxQAQ/wasmtoys/internal/metrics"
	"github.com/woxQAQ/wasmtoys/internal/wasm"
	"github.com/woxQAQ/wasmtoys/internal/worker"
)

// MainInstanceID is the instance id of the main module copy.
const MainInstanceID = "main"

// Options configures an Engine.
type Options struct {
	Config *config.HostConfig

	// Module is the module binary. ModulePath is read when Module is nil.
	Module     []byte
	ModulePath string

	// Driver creates the GL context. Defaults to the headless recorder
	// offering the configured versions.
	Driver gl.Driver

	// PointerLock is the client's pointer lock capability, or nil.
	PointerLock input.PointerLock

	// Trace receives every GL command as a JSON line when set.
	Trace io.Writer

	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// Engine owns one running module and everything it talks to. All guest calls
// happen on the goroutine running Run, or on the caller's goroutine before
// Run starts.
type Engine struct {
	config  *config.HostConfig
	logger  *zap.Logger
	metrics *metrics.Metrics

	cache    wazero.CompilationCache
	runtime  *wasm.Runtime
	compiled *wasm.CompiledModule
	instance *wasm.Instance
	imports  *wasm.Imports

	canvas    *Canvas
	gl        *gl.Bindings
	glVersion gl.Version
	trace     *gl.TraceWriter
	input     *input.Forwarder
	workers   *worker.Pool
	sprites   *assets.Sprites

	tasks   chan func(context.Context)
	done    chan struct{}
	started bool
	epoch   time.Time

	closeOnce sync.Once
}

// New compiles and instantiates the module with the full import set.
func New(ctx context.Context, opts Options) (_ *Engine, err error) {
	cfg := opts.Config
	if cfg == nil {
		if cfg, err = config.LoadHostConfig(""); err != nil {
			return nil, err
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Engine{
		config:  cfg,
		logger:  logger.With(zap.String("component", "engine")),
		metrics: opts.Metrics,
		canvas:  NewCanvas(cfg.Canvas.Width, cfg.Canvas.Height),
		tasks:   make(chan func(context.Context), 256),
		done:    make(chan struct{}),
	}
	defer func() {
		if err != nil {
			e.Close(context.WithoutCancel(ctx))
		}
	}()

	if cfg.Wasm.CacheDir != "" {
		if e.cache, err = wazero.NewCompilationCacheWithDir(cfg.Wasm.CacheDir); err != nil {
			return nil, fmt.Errorf("failed to open compilation cache %s: %w", cfg.Wasm.CacheDir, err)
		}
	} else {
		e.cache = wazero.NewCompilationCache()
	}

	rc := e.runtimeConfig()
	if e.runtime, err = wasm.NewRuntime(ctx, logger, &rc); err != nil {
		return nil, err
	}

	loader := wasm.NewModuleLoader(e.runtime, logger)
	if opts.Module != nil {
		e.compiled, err = loader.LoadModuleFromMemory(ctx, MainInstanceID, opts.Module)
	} else {
		e.compiled, err = loader.LoadModuleFromFile(ctx, opts.ModulePath)
	}
	if err != nil {
		return nil, err
	}

	if err := e.initGL(opts); err != nil {
		return nil, err
	}
	e.input = input.NewForwarder(opts.PointerLock, logger)

	base := e.baseImports(e.runtime.Bridge())
	e.workers = worker.NewPool(context.WithoutCancel(ctx), worker.PoolConfig{
		Module:     e.compiled.Raw,
		Imports:    append(base.Names(), abi.SendWorkerData),
		Worker:     worker.Config{Runtime: rc},
		MaxWorkers: cfg.MaxWorkers(),
	}, e, e.metrics, logger)
	e.imports = base.Merge(e.workers.Imports(e.runtime.Bridge()))

	e.instance, err = wasm.NewInstanceManager(e.runtime, logger).Instantiate(ctx, &wasm.InstanceConfig{
		ModuleName: e.compiled.Name,
		InstanceID: MainInstanceID,
		Imports:    e.imports,
	})
	if err != nil {
		return nil, err
	}

	e.input.Bind(e.instance)
	e.sprites = assets.NewSprites(e.instance, e.gl, logger)

	e.logger.Info("Engine ready",
		zap.String("module", e.compiled.Name),
		zap.String("gl_version", string(e.glVersion)),
		zap.Int("imports", e.imports.Len()),
		zap.Bool("pointer_lock", e.input.HasPointerLock()),
	)
	return e, nil
}

func (e *Engine) runtimeConfig() wasm.RuntimeConfig {
	return wasm.RuntimeConfig{
		MemoryPages:  e.config.Wasm.MemoryPages,
		DebugEnabled: e.config.Wasm.Debug,
		Cache:        e.cache,
		MaxInstances: 1,
		TextCodec:    e.config.Wasm.TextCodec,
	}
}

func (e *Engine) initGL(opts Options) error {
	driver := opts.Driver
	if driver == nil {
		rd := gl.RecorderDriver{}
		for _, v := range e.config.GL.Versions {
			rd.Versions = append(rd.Versions, gl.Version(v))
		}
		if opts.Trace != nil {
			e.trace = gl.NewTraceWriter(opts.Trace)
			rd.Options = append(rd.Options, gl.WithCommandHook(e.trace.Write))
		}
		driver = rd
	}

	ctx, version, err := gl.Negotiate(driver, e.canvas, gl.DefaultAttributes())
	if err != nil {
		return err
	}
	e.glVersion = version
	e.gl = gl.NewBindings(ctx, e.runtime.Bridge(), e.logger)
	return nil
}

// baseImports is every import except send_worker_data, which belongs to the
// worker pool.
func (e *Engine) baseImports(bridge wasm.Bridge) *wasm.Imports {
	core := wasm.NewHostFunctions(e.logger, bridge).Imports().
		Func(abi.CanvasWidth, func() int32 {
			w, _ := e.canvas.Size()
			return w
		}).
		Func(abi.CanvasHeight, func() int32 {
			_, h := e.canvas.Size()
			return h
		}).
		Func(abi.Fork, func(n uint32) {
			if _, err := e.workers.Fork(int(n)); err != nil {
				e.logger.Error("Failed to fork workers", zap.Uint32("count", n), zap.Error(err))
			}
		}, "num_threads")

	return core.Merge(e.gl.Imports(), e.input.Imports())
}

// Start loads the asset manifest, if any, and calls the module's main. It
// runs once; later calls do nothing.
func (e *Engine) Start(ctx context.Context) error {
	if e.started {
		return nil
	}
	e.started = true
	e.epoch = time.Now()

	if path := e.config.Assets.Manifest; path != "" {
		if _, err := assets.NewLoader(e.gl, e.sprites, e.logger).LoadFile(ctx, path); err != nil {
			return err
		}
	}

	if _, err := e.instance.Call(ctx, abi.Main); err != nil {
		e.metrics.GuestError(abi.Main)
		return err
	}
	return nil
}

// Frame runs one frame at timeMs milliseconds since start. The first frame
// starts the module.
func (e *Engine) Frame(ctx context.Context, timeMs float64) error {
	if err := e.Start(ctx); err != nil {
		return err
	}

	e.canvas.sync()
	w, h := e.gl.Context().DrawingBufferSize()

	begin := time.Now()
	if _, err := e.instance.Call(ctx, abi.UpdateViewport, api.EncodeI32(w), api.EncodeI32(h)); err != nil {
		e.metrics.GuestError(abi.UpdateViewport)
		return err
	}
	if _, err := e.instance.Call(ctx, abi.Update, api.EncodeF64(timeMs)); err != nil {
		e.metrics.GuestError(abi.Update)
		return err
	}
	e.metrics.ObserveFrame(time.Since(begin))

	for _, s := range e.gl.Stats() {
		e.metrics.SetHandles(string(s.Kind), s.Len, s.Live)
	}
	return nil
}

// Run drives frames at the configured rate and executes posted tasks until
// ctx is done. A failing frame stops the loop.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(e.config.Frame.RateHz))
	defer ticker.Stop()

	if err := e.Start(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-e.done:
			return nil
		case task := <-e.tasks:
			task(ctx)
		case now := <-ticker.C:
			ms := float64(now.Sub(e.epoch)) / float64(time.Millisecond)
			if err := e.Frame(ctx, ms); err != nil {
				e.logger.Error("Frame failed", zap.Error(err))
				return err
			}
		}
	}
}

// Post queues task for the loop goroutine. It returns false when the engine
// is closed.
func (e *Engine) Post(task func(context.Context)) bool {
	select {
	case <-e.done:
		return false
	default:
	}
	select {
	case e.tasks <- task:
		return true
	case <-e.done:
		return false
	}
}

// HandleEvent forwards ev to the module. Call it on the loop goroutine.
func (e *Engine) HandleEvent(ctx context.Context, ev input.Event) (bool, error) {
	consumed, err := e.input.Dispatch(ctx, ev)
	if err != nil {
		e.metrics.GuestError(string(ev.Kind))
		return false, err
	}
	e.metrics.InputEvent(string(ev.Kind), consumed)
	return consumed, nil
}

type eventResult struct {
	consumed bool
	err      error
}

// Dispatch posts ev to the loop and waits for the module's answer.
func (e *Engine) Dispatch(ctx context.Context, ev input.Event) (bool, error) {
	result := make(chan eventResult, 1)
	ok := e.Post(func(ctx context.Context) {
		consumed, err := e.HandleEvent(ctx, ev)
		result <- eventResult{consumed, err}
	})
	if !ok {
		return false, ErrClosed
	}

	select {
	case r := <-result:
		return r.consumed, r.err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// WorkerReady implements worker.Handler.
func (e *Engine) WorkerReady(id int) {
	e.Post(func(ctx context.Context) {
		if _, err := e.instance.Call(ctx, abi.HandleWorkerReady, api.EncodeU32(uint32(id))); err != nil {
			e.metrics.GuestError(abi.HandleWorkerReady)
			e.logger.Error("Worker ready handler failed", zap.Int("worker_id", id), zap.Error(err))
		}
	})
}

// WorkerData implements worker.Handler.
func (e *Engine) WorkerData(id int, data []byte) {
	e.Post(func(ctx context.Context) {
		ptr, err := e.instance.Memory().WriteBytes(ctx, data)
		if err == nil {
			_, err = e.instance.Call(ctx, abi.HandleWorkerMessage, api.EncodeU32(uint32(id)), api.EncodeU32(ptr))
		}
		if err != nil {
			e.metrics.GuestError(abi.HandleWorkerMessage)
			e.logger.Error("Worker message handler failed", zap.Int("worker_id", id), zap.Error(err))
		}
	})
}

// Resize records a new client size for the canvas.
func (e *Engine) Resize(w, h int32) {
	e.canvas.Resize(w, h)
}

// Canvas returns the drawing surface.
func (e *Engine) Canvas() *Canvas { return e.canvas }

// GL returns the GL bindings.
func (e *Engine) GL() *gl.Bindings { return e.gl }

// GLVersion returns the negotiated context version.
func (e *Engine) GLVersion() gl.Version { return e.glVersion }

// Input returns the input forwarder.
func (e *Engine) Input() *input.Forwarder { return e.input }

// Sprites returns the sprite registry.
func (e *Engine) Sprites() *assets.Sprites { return e.sprites }

// Workers returns the worker pool.
func (e *Engine) Workers() *worker.Pool { return e.workers }

// Instance returns the main module instance.
func (e *Engine) Instance() *wasm.Instance { return e.instance }

// ImportNames returns the names of every import the host provides.
func (e *Engine) ImportNames() []string { return e.imports.Names() }

// Close stops workers and releases the runtime.
func (e *Engine) Close(ctx context.Context) error {
	var err error
	e.closeOnce.Do(func() {
		close(e.done)
		if e.workers != nil {
			err = e.workers.Close()
		}
		if e.runtime != nil {
			if rerr := e.runtime.Close(ctx); rerr != nil && err == nil {
				err = rerr
			}
		}
		if e.cache != nil {
			if cerr := e.cache.Close(ctx); cerr != nil && err == nil {
				err = cerr
			}
		}
		if e.trace != nil && e.trace.Err() != nil {
			e.logger.Warn("GL trace incomplete", zap.Error(e.trace.Err()))
		}
	})
	return err
}
