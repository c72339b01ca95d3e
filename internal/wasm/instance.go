package wasm

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/woxQAQ/wasmtoys/api/abi"
)

// InstanceManager creates and manages module instances.
type InstanceManager struct {
	runtime *Runtime
	logger  *zap.Logger
}

// NewInstanceManager creates a new instance manager.
func NewInstanceManager(runtime *Runtime, logger *zap.Logger) *InstanceManager {
	return &InstanceManager{
		runtime: runtime,
		logger:  logger.With(zap.String("component", "wasm-instance")),
	}
}

// InstanceConfig holds configuration for creating instances.
type InstanceConfig struct {
	// Module name to instantiate.
	ModuleName string

	// Instance ID (if empty, generates UUID).
	InstanceID string

	// Host functions bound under the "env" import module. A runtime can only
	// bind one "env" module, so one guest instance per runtime carries imports.
	Imports *Imports
}

// Instance represents an instantiated Wasm module.
type Instance struct {
	// wazero module instance.
	module api.Module
	host   api.Module

	runtime *Runtime

	// Instance metadata.
	ID        string
	Name      string
	CreatedAt int64

	// Exported functions (cached for performance).
	exports map[string]api.Function
}

// Instantiate creates a new instance from a compiled module.
// Host functions are exported to the Wasm module.
func (m *InstanceManager) Instantiate(ctx context.Context, config *InstanceConfig) (*Instance, error) {
	// Get compiled module from cache.
	compiled, ok := m.runtime.GetCompiledModule(config.ModuleName)
	if !ok {
		return nil, &ModuleNotFoundError{ModuleName: config.ModuleName}
	}

	if limit := m.runtime.config.MaxInstances; limit > 0 && m.runtime.InstanceCount() >= limit {
		return nil, &InstanceLimitError{Limit: limit}
	}

	// Generate instance ID if not provided.
	instanceID := config.InstanceID
	if instanceID == "" {
		instanceID = uuid.NewString()
	}

	m.logger.Debug("Instantiating Wasm module",
		zap.String("module", config.ModuleName),
		zap.String("instance_id", instanceID),
	)

	var host api.Module
	if config.Imports != nil && config.Imports.Len() > 0 {
		builder := m.runtime.runtime.NewHostModuleBuilder(abi.ImportModule)
		config.Imports.export(builder)

		var err error
		host, err = builder.Instantiate(ctx)
		if err != nil {
			return nil, &InstantiationError{
				ModuleName: abi.ImportModule,
				InstanceID: instanceID,
				Err:        err,
			}
		}
	}

	// The engine calls its entry points explicitly, so no start functions run.
	moduleConfig := wazero.NewModuleConfig().
		WithName(instanceID).
		WithStartFunctions()

	module, err := m.runtime.runtime.InstantiateModule(ctx, compiled.Module, moduleConfig)
	if err != nil {
		if host != nil {
			_ = host.Close(ctx)
		}
		return nil, &InstantiationError{
			ModuleName: config.ModuleName,
			InstanceID: instanceID,
			Err:        err,
		}
	}

	instance := &Instance{
		module:    module,
		host:      host,
		runtime:   m.runtime,
		ID:        instanceID,
		Name:      config.ModuleName,
		CreatedAt: time.Now().Unix(),
		exports:   m.cacheExportedFunctions(compiled, module),
	}

	// Track active instance.
	m.runtime.StoreInstance(instance)

	m.logger.Info("Module instantiated",
		zap.String("module", config.ModuleName),
		zap.String("instance_id", instanceID),
		zap.Int("exported_functions", len(instance.exports)),
	)

	return instance, nil
}

// cacheExportedFunctions caches references to exported functions.
func (m *InstanceManager) cacheExportedFunctions(compiled *CompiledModule, module api.Module) map[string]api.Function {
	exports := make(map[string]api.Function)
	for name := range compiled.Module.ExportedFunctions() {
		if fn := module.ExportedFunction(name); fn != nil {
			exports[name] = fn
		}
	}
	return exports
}

// Module returns the underlying wazero module.
func (i *Instance) Module() api.Module {
	return i.module
}

// Memory returns a fresh memory helper for this instance.
func (i *Instance) Memory() *Memory {
	return i.runtime.bridge.Memory(i.module)
}

// Has reports whether the instance exports a function called name.
func (i *Instance) Has(name string) bool {
	_, ok := i.exports[name]
	return ok
}

// Call invokes an exported function.
func (i *Instance) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	fn, ok := i.exports[name]
	if !ok {
		return nil, &FunctionNotFoundError{ModuleName: i.Name, FunctionName: name}
	}
	return fn.Call(ctx, params...)
}

// CallBool invokes an export returning a boolean-like i32.
func (i *Instance) CallBool(ctx context.Context, name string, params ...uint64) (bool, error) {
	res, err := i.Call(ctx, name, params...)
	if err != nil {
		return false, err
	}
	return len(res) > 0 && api.DecodeU32(res[0]) != 0, nil
}

// Close closes the instance and releases resources.
func (i *Instance) Close(ctx context.Context) error {
	i.runtime.DeleteInstance(i.ID)
	err := i.module.Close(ctx)
	if i.host != nil {
		if herr := i.host.Close(ctx); herr != nil && err == nil {
			err = herr
		}
	}
	return err
}
