// Package abi names the functions that cross the boundary between the host
// and a wasm-toys engine module.
//
// NOTE: uint32 is used for pointers and lengths because WebAssembly uses a 32-bit
// linear memory model. Handles (buffer, texture, program ids) are also 32-bit and
// 1-based; 0 is the null handle on both sides.
package abi

// ImportModule is the module name the engine imports host functions from.
const ImportModule = "env"

// Core imports.
const (
	ConsoleLogRaw   = "console_log_raw"
	ConsoleWarnRaw  = "console_warn_raw"
	ConsoleErrorRaw = "console_error_raw"
	MathRandom      = "math_random"
	CanvasWidth     = "canvas_width"
	CanvasHeight    = "canvas_height"
	Fork            = "fork"
	SendWorkerData  = "send_worker_data"
)

// Input imports.
const (
	InitInputListeners = "init_input_listeners"
	RequestPointerLock = "request_pointer_lock"
	ExitPointerLock    = "exit_pointer_lock"
)

// Worker-only import.
const SendData = "send_data"

// Exports the host calls on the main instance.
const (
	Main                    = "main"
	AllocateArenaSpace      = "allocate_arena_space"
	AllocateI32Vec          = "internal_allocate_i32_vec"
	Update                  = "internal_update"
	UpdateViewport          = "internal_update_viewport"
	HandleKeyDown           = "internal_handle_key_down"
	HandleKeyUp             = "internal_handle_key_up"
	HandleMouseDown         = "internal_handle_mouse_down"
	HandleMouseUp           = "internal_handle_mouse_up"
	HandleMouseMove         = "internal_handle_mouse_move"
	HandleTouchDown         = "internal_handle_touch_down"
	HandleTouchUp           = "internal_handle_touch_up"
	HandleTouchMove         = "internal_handle_touch_move"
	HandleFocusLoss         = "internal_handle_focus_loss"
	NotifyPointerLockChange = "internal_notify_pointer_lock_change"
	HandleWorkerMessage     = "internal_handle_worker_message"
	HandleWorkerReady       = "internal_handle_worker_ready"
	RegisterSprite          = "internal_register_sprite"
	RegisterAnimatedSprite  = "internal_register_animated_sprite"
)

// Exports the host calls on a worker instance.
const (
	WorkerMain = "worker_main"
	OnMessage  = "on_message"
)
