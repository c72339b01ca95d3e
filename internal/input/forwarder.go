package input

import (
	"context"
	"errors"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/woxQAQ/wasmtoys/api/abi"
	"github.com/woxQAQ/wasmtoys/internal/wasm"
)

// ErrUnknownEvent is returned for events of an unrecognised kind.
var ErrUnknownEvent = errors.New("unknown input event")

// Guest is the module instance events are forwarded to.
type Guest interface {
	Call(ctx context.Context, name string, params ...uint64) ([]uint64, error)
	CallBool(ctx context.Context, name string, params ...uint64) (bool, error)
	Memory() *wasm.Memory
}

// PointerLock requests and releases pointer lock on the canvas.
type PointerLock interface {
	Request()
	Exit()
}

// Forwarder translates input events into calls on the module's input exports.
type Forwarder struct {
	guest       Guest
	pointerLock PointerLock
	logger      *zap.Logger

	mu        sync.RWMutex
	listening bool
	passive   bool
}

// NewForwarder creates a forwarder. pointerLock is the negotiated pointer
// lock capability and may be nil when the client has none.
func NewForwarder(pointerLock PointerLock, logger *zap.Logger) *Forwarder {
	return &Forwarder{
		pointerLock: pointerLock,
		logger:      logger.With(zap.String("component", "input")),
	}
}

// Bind sets the instance events are delivered to.
func (f *Forwarder) Bind(guest Guest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.guest = guest
}

// HasPointerLock reports whether pointer lock is supported.
func (f *Forwarder) HasPointerLock() bool {
	return f.pointerLock != nil
}

// Listening reports whether listeners were installed and in which mode.
func (f *Forwarder) Listening() (listening, passive bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.listening, f.passive
}

// InitListeners installs the listeners. In passive mode only events that
// target the canvas are handled.
func (f *Forwarder) InitListeners(passive bool) {
	f.mu.Lock()
	f.listening = true
	f.passive = passive
	f.mu.Unlock()

	f.logger.Debug("Input listeners installed", zap.Bool("passive", passive))
}

// Imports returns the input import functions.
func (f *Forwarder) Imports() *wasm.Imports {
	return wasm.NewImports().
		Func(abi.InitInputListeners, func(passive uint32) { f.InitListeners(passive != 0) }, "passive").
		Func(abi.RequestPointerLock, func() {
			if f.pointerLock == nil {
				f.logger.Error("Pointer lock not supported")
				return
			}
			f.pointerLock.Request()
		}).
		Func(abi.ExitPointerLock, func() {
			if f.pointerLock == nil {
				f.logger.Error("Pointer lock not supported")
				return
			}
			f.pointerLock.Exit()
		})
}

// accepts reports whether the listeners installed would see ev.
func (f *Forwarder) accepts(ev *Event) (Guest, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	switch ev.Kind {
	case PointerLockChange, PointerLockError:
		// Registered at startup, independent of init_input_listeners.
		return f.guest, f.guest != nil && f.pointerLock != nil
	}
	if !f.listening || f.guest == nil {
		return nil, false
	}
	if f.passive && ev.Target != TargetCanvas {
		return nil, false
	}
	return f.guest, true
}

// Dispatch delivers ev to the module. It returns whether the module consumed
// the event, in which case PreventDefault has been called. Events arriving
// before listeners are installed are ignored.
func (f *Forwarder) Dispatch(ctx context.Context, ev Event) (bool, error) {
	guest, ok := f.accepts(&ev)
	if !ok {
		return false, nil
	}

	consumed, err := f.dispatch(ctx, guest, &ev)
	if err != nil {
		f.logger.Error("Input handler failed", zap.String("event", string(ev.Kind)), zap.Error(err))
		return false, err
	}
	if consumed {
		ev.preventDefault()
	}
	return consumed, nil
}

func (f *Forwarder) dispatch(ctx context.Context, guest Guest, ev *Event) (bool, error) {
	switch ev.Kind {
	case KeyDown:
		return f.key(ctx, guest, abi.HandleKeyDown, ev.Code)
	case KeyUp:
		return f.key(ctx, guest, abi.HandleKeyUp, ev.Code)

	case MouseDown:
		return guest.CallBool(ctx, abi.HandleMouseDown,
			api.EncodeI32(ev.Button), api.EncodeI32(ev.X), api.EncodeI32(ev.Y))
	case MouseUp:
		return guest.CallBool(ctx, abi.HandleMouseUp,
			api.EncodeI32(ev.Button), api.EncodeI32(ev.X), api.EncodeI32(ev.Y))
	case MouseMove:
		return guest.CallBool(ctx, abi.HandleMouseMove,
			api.EncodeI32(ev.X), api.EncodeI32(ev.Y), api.EncodeI32(ev.DX), api.EncodeI32(ev.DY))
	case MouseLeave:
		_, err := guest.Call(ctx, abi.HandleFocusLoss)
		return false, err

	case TouchStart:
		return f.touches(ctx, guest, abi.HandleTouchDown, ev.Touches)
	case TouchEnd, TouchCancel:
		return f.touches(ctx, guest, abi.HandleTouchUp, ev.Touches)
	case TouchMove:
		return f.touches(ctx, guest, abi.HandleTouchMove, ev.Touches)

	case ContextMenu:
		// Only non-passive listeners suppress the context menu.
		_, passive := f.Listening()
		return !passive, nil
	case DoubleClick:
		return true, nil

	case PointerLockChange:
		enabled := ev.LockedTarget == TargetCanvas
		_, err := guest.Call(ctx, abi.NotifyPointerLockChange, boolParam(enabled))
		return false, err
	case PointerLockError:
		f.logger.Error("Pointer lock failed")
		return false, nil
	}
	return false, ErrUnknownEvent
}

func (f *Forwarder) key(ctx context.Context, guest Guest, export, code string) (bool, error) {
	ptr, err := guest.Memory().WriteString(ctx, code)
	if err != nil {
		return false, err
	}
	return guest.CallBool(ctx, export, api.EncodeU32(ptr))
}

// touches forwards every changed touch and reports whether any was consumed.
func (f *Forwarder) touches(ctx context.Context, guest Guest, export string, touches []Touch) (bool, error) {
	consumed := false
	for _, t := range touches {
		c, err := guest.CallBool(ctx, export, api.EncodeI32(t.ID), api.EncodeI32(t.X), api.EncodeI32(t.Y))
		if err != nil {
			return false, err
		}
		consumed = consumed || c
	}
	return consumed, nil
}

func boolParam(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
