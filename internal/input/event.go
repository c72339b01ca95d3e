// Package input forwards keyboard, mouse and touch events into the module.
package input

// Target identifies what an event was dispatched to.
type Target string

const (
	TargetNone     Target = ""
	TargetDocument Target = "document"
	TargetCanvas   Target = "canvas"
)

// Kind is the type of an input event.
type Kind string

const (
	KeyDown           Kind = "key_down"
	KeyUp             Kind = "key_up"
	MouseDown         Kind = "mouse_down"
	MouseUp           Kind = "mouse_up"
	MouseMove         Kind = "mouse_move"
	MouseLeave        Kind = "mouse_leave"
	TouchStart        Kind = "touch_start"
	TouchMove         Kind = "touch_move"
	TouchEnd          Kind = "touch_end"
	TouchCancel       Kind = "touch_cancel"
	ContextMenu       Kind = "context_menu"
	DoubleClick       Kind = "double_click"
	PointerLockChange Kind = "pointer_lock_change"
	PointerLockError  Kind = "pointer_lock_error"
)

// Touch is one changed touch point.
type Touch struct {
	ID int32
	X  int32
	Y  int32
}

// Event is a single input event.
type Event struct {
	Kind   Kind
	Target Target

	// Code is the physical key code for key events, e.g. "KeyW".
	Code string

	Button int32
	X, Y   int32
	DX, DY int32

	Touches []Touch

	// LockedTarget is what holds the pointer lock after a change.
	LockedTarget Target

	// PreventDefault suppresses the event's default action. May be nil.
	PreventDefault func()
}

func (e *Event) preventDefault() {
	if e.PreventDefault != nil {
		e.PreventDefault()
	}
}
