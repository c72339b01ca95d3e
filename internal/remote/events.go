package remote

import (
	"github.com/woxQAQ/wasmtoys/internal/input"
	"github.com/woxQAQ/wasmtoys/pkg/protocol"
)

var eventKinds = map[string]input.Kind{
	protocol.TypeKeyDown:           input.KeyDown,
	protocol.TypeKeyUp:             input.KeyUp,
	protocol.TypeMouseDown:         input.MouseDown,
	protocol.TypeMouseUp:           input.MouseUp,
	protocol.TypeMouseMove:         input.MouseMove,
	protocol.TypeMouseLeave:        input.MouseLeave,
	protocol.TypeTouchStart:        input.TouchStart,
	protocol.TypeTouchMove:         input.TouchMove,
	protocol.TypeTouchEnd:          input.TouchEnd,
	protocol.TypeTouchCancel:       input.TouchCancel,
	protocol.TypeContextMenu:       input.ContextMenu,
	protocol.TypeDoubleClick:       input.DoubleClick,
	protocol.TypePointerLockChange: input.PointerLockChange,
	protocol.TypePointerLockError:  input.PointerLockError,
}

// toEvent converts a client message into an input event. It reports false
// for messages that are not input events.
func toEvent(msg protocol.ClientMessage) (input.Event, bool) {
	kind, ok := eventKinds[msg.Type]
	if !ok {
		return input.Event{}, false
	}

	ev := input.Event{
		Kind:         kind,
		Target:       input.Target(msg.Target),
		Code:         msg.Code,
		Button:       msg.Button,
		X:            msg.X,
		Y:            msg.Y,
		DX:           msg.DX,
		DY:           msg.DY,
		LockedTarget: input.Target(msg.Locked),
	}
	for _, t := range msg.Touches {
		ev.Touches = append(ev.Touches, input.Touch{ID: t.ID, X: t.X, Y: t.Y})
	}
	return ev, true
}
