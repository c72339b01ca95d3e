package wasm

import (
	"context"
	"math/rand/v2"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/woxQAQ/wasmtoys/api/abi"
)

// Console levels used by the guest console imports.
const (
	LevelLog uint32 = iota
	LevelWarn
	LevelError
)

// HostFunctions implements the console and math imports every instance gets,
// main or worker.
type HostFunctions struct {
	logger *zap.Logger
	bridge Bridge
	random func() float32
}

// NewHostFunctions creates the core host functions.
func NewHostFunctions(logger *zap.Logger, bridge Bridge) *HostFunctions {
	return &HostFunctions{
		logger: logger.With(zap.String("component", "wasm-host")),
		bridge: bridge,
		random: rand.Float32,
	}
}

// Imports returns console_*_raw and math_random.
func (h *HostFunctions) Imports() *Imports {
	return NewImports().
		Func(abi.ConsoleLogRaw, func(ctx context.Context, mod api.Module, ptr, length uint32) {
			h.logMessage(mod, LevelLog, ptr, length)
		}, "ptr", "len").
		Func(abi.ConsoleWarnRaw, func(ctx context.Context, mod api.Module, ptr, length uint32) {
			h.logMessage(mod, LevelWarn, ptr, length)
		}, "ptr", "len").
		Func(abi.ConsoleErrorRaw, func(ctx context.Context, mod api.Module, ptr, length uint32) {
			h.logMessage(mod, LevelError, ptr, length)
		}, "ptr", "len").
		Func(abi.MathRandom, func(ctx context.Context) float32 {
			return h.random()
		})
}

// logMessage is called by Wasm modules to log messages.
func (h *HostFunctions) logMessage(mod api.Module, level uint32, ptr uint32, length uint32) {
	msg, err := h.bridge.Memory(mod).ReadString(ptr, length)
	if err != nil {
		h.logger.Error("Failed to read log message from Wasm memory",
			zap.Uint32("ptr", ptr),
			zap.Uint32("length", length),
			zap.Error(err),
		)
		return
	}

	logger := h.logger.With(zap.String("module", mod.Name()))
	switch level {
	case LevelWarn:
		logger.Warn(msg)
	case LevelError:
		logger.Error(msg)
	default:
		logger.Info(msg)
	}
}
