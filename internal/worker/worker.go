package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/woxQAQ/wasmtoys/api/abi"
	"github.com/woxQAQ/wasmtoys/internal/wasm"
)

// Config configures the runtime each worker creates for itself.
type Config struct {
	// Runtime settings shared with the main instance. Cache, when set, is
	// shared by every worker runtime.
	Runtime wasm.RuntimeConfig
}

// Worker is the worker side of a channel: it owns one runtime and one module
// instance and processes messages one at a time.
type Worker struct {
	id     int
	config Config
	post   func(Message)
	logger *zap.Logger

	mu       sync.Mutex
	runtime  *wasm.Runtime
	instance *wasm.Instance
}

// New creates a worker. post delivers messages back to the host.
func New(id int, config Config, post func(Message), logger *zap.Logger) *Worker {
	return &Worker{
		id:     id,
		config: config,
		post:   post,
		logger: logger.With(zap.String("component", "worker"), zap.Int("worker_id", id)),
	}
}

// ID returns the worker id.
func (w *Worker) ID() int {
	return w.id
}

// Initialized reports whether the init sequence has completed.
func (w *Worker) Initialized() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.instance != nil
}

// Handle processes a single message.
func (w *Worker) Handle(ctx context.Context, msg Message) error {
	switch msg.Type {
	case TypeInit:
		return w.init(ctx, msg.Module, msg.Imports)
	case TypeData:
		return w.data(ctx, msg.Data)
	}
	return fmt.Errorf("unexpected message %q on worker", msg.Type)
}

// run handles messages from box until ctx is done or the box is closed.
// Handler failures are logged and do not stop the loop.
func (w *Worker) run(ctx context.Context, box *mailbox) error {
	defer w.Close(context.WithoutCancel(ctx))

	for {
		msg, ok := box.Recv(ctx)
		if !ok {
			return nil
		}
		if err := w.Handle(ctx, msg); err != nil {
			w.logger.Error("Worker message failed", zap.String("type", string(msg.Type)), zap.Error(err))
		}
	}
}

func (w *Worker) init(ctx context.Context, module []byte, importNames []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.instance != nil {
		return ErrAlreadyInitialized
	}

	cfg := w.config.Runtime
	runtime, err := wasm.NewRuntime(ctx, w.logger, &cfg)
	if err != nil {
		return err
	}

	name := fmt.Sprintf("worker-%d", w.id)
	compiled, err := wasm.NewModuleLoader(runtime, w.logger).LoadModuleFromMemory(ctx, name, module)
	if err != nil {
		runtime.Close(ctx)
		return err
	}

	imports := stubImports(compiled, importNames).Merge(
		w.sendDataImport(runtime.Bridge()),
		wasm.NewHostFunctions(w.logger, runtime.Bridge()).Imports(),
	)

	instance, err := wasm.NewInstanceManager(runtime, w.logger).Instantiate(ctx, &wasm.InstanceConfig{
		ModuleName: name,
		InstanceID: name,
		Imports:    imports,
	})
	if err != nil {
		runtime.Close(ctx)
		return err
	}

	if _, err := instance.Call(ctx, abi.WorkerMain); err != nil {
		runtime.Close(ctx)
		return err
	}

	w.runtime = runtime
	w.instance = instance
	w.logger.Debug("Worker initialised", zap.Int("stubbed_imports", len(importNames)))
	w.post(InitCompleteMessage())
	return nil
}

func (w *Worker) data(ctx context.Context, data []byte) error {
	w.mu.Lock()
	instance := w.instance
	w.mu.Unlock()

	if instance == nil {
		return ErrUninitialized
	}

	ptr, err := instance.Memory().WriteBytes(ctx, data)
	if err != nil {
		return err
	}
	_, err = instance.Call(ctx, abi.OnMessage, api.EncodeU32(ptr))
	return err
}

// sendDataImport copies [ptr, ptr+len) out of worker memory and posts it to
// the host.
func (w *Worker) sendDataImport(bridge wasm.Bridge) *wasm.Imports {
	return wasm.NewImports().Func(abi.SendData, func(ctx context.Context, mod api.Module, ptr, length uint32) {
		buf, err := bridge.Memory(mod).ReadBytes(ptr, length)
		if err != nil {
			panic(&wasm.HostFunctionError{FunctionName: abi.SendData, Err: err})
		}
		w.post(DataMessage(buf))
	}, "ptr", "len")
}

// stubImports binds every listed name the module imports from env to a
// function that fails when called. Signatures come from the module itself.
func stubImports(compiled *wasm.CompiledModule, names []string) *wasm.Imports {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	stubs := wasm.NewImports()
	for _, def := range compiled.ImportedFunctions(abi.ImportModule) {
		_, name, _ := def.Import()
		if !wanted[name] {
			continue
		}
		stubs.Raw(name, unbound(name), def.ParamTypes(), def.ResultTypes())
	}
	return stubs
}

func unbound(name string) api.GoModuleFunc {
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		panic(&wasm.UnboundImportError{Name: name})
	}
}

// Close releases the worker's runtime.
func (w *Worker) Close(ctx context.Context) error {
	w.mu.Lock()
	runtime := w.runtime
	w.runtime, w.instance = nil, nil
	w.mu.Unlock()

	if runtime == nil {
		return nil
	}
	return runtime.Close(ctx)
}
