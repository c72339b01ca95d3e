package protocol

// Wire types for remote input clients
// A client streams input events to the host over a websocket; the host
// acknowledges each one and pushes pointer lock commands back.

// Client message types
const (
	TypeHello             = "hello"
	TypeKeyDown           = "key_down"
	TypeKeyUp             = "key_up"
	TypeMouseDown         = "mouse_down"
	TypeMouseUp           = "mouse_up"
	TypeMouseMove         = "mouse_move"
	TypeMouseLeave        = "mouse_leave"
	TypeTouchStart        = "touch_start"
	TypeTouchMove         = "touch_move"
	TypeTouchEnd          = "touch_end"
	TypeTouchCancel       = "touch_cancel"
	TypeContextMenu       = "context_menu"
	TypeDoubleClick       = "double_click"
	TypeResize            = "resize"
	TypePointerLockChange = "pointer_lock_change"
	TypePointerLockError  = "pointer_lock_error"
)

// Server message types
const (
	TypeWelcome            = "welcome"
	TypeAck                = "ack"
	TypeRequestPointerLock = "request_pointer_lock"
	TypeExitPointerLock    = "exit_pointer_lock"
	TypeError              = "error"
)

// Event targets
const (
	TargetDocument = "document"
	TargetCanvas   = "canvas"
)

// Capabilities are announced once by the client in its hello message
type Capabilities struct {
	PointerLock bool  `json:"pointer_lock"`
	Width       int32 `json:"width"`
	Height      int32 `json:"height"`
}

// Touch is one changed touch point
type Touch struct {
	ID int32 `json:"id"`
	X  int32 `json:"x"`
	Y  int32 `json:"y"`
}

// ClientMessage is any message sent by a remote client
type ClientMessage struct {
	ID     uint64 `json:"id"`
	Type   string `json:"type"`
	Target string `json:"target,omitempty"`

	Code   string `json:"code,omitempty"`
	Button int32  `json:"button,omitempty"`
	X      int32  `json:"x,omitempty"`
	Y      int32  `json:"y,omitempty"`
	DX     int32  `json:"dx,omitempty"`
	DY     int32  `json:"dy,omitempty"`

	Touches []Touch `json:"touches,omitempty"`

	// Locked is what holds pointer lock after a pointer_lock_change
	Locked string `json:"locked,omitempty"`

	// Width and Height carry the new client size for resize
	Width  int32 `json:"width,omitempty"`
	Height int32 `json:"height,omitempty"`

	Capabilities *Capabilities `json:"capabilities,omitempty"`
}

// ServerMessage is any message sent by the host
type ServerMessage struct {
	Type string `json:"type"`

	// ID echoes the acknowledged client message
	ID             uint64 `json:"id,omitempty"`
	PreventDefault bool   `json:"prevent_default,omitempty"`

	// Session and GLVersion are set on welcome
	Session   string `json:"session,omitempty"`
	GLVersion string `json:"gl_version,omitempty"`

	Error string `json:"error,omitempty"`
}
