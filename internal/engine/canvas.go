package engine

import (
	"sync"
)

// Canvas is the drawing surface. Its backing size follows the client size
// once per frame, the way a browser canvas sized by CSS is resynchronised.
type Canvas struct {
	mu            sync.RWMutex
	width, height int32
	clientW       int32
	clientH       int32
}

// NewCanvas creates a canvas of the given size.
func NewCanvas(w, h int32) *Canvas {
	return &Canvas{width: w, height: h, clientW: w, clientH: h}
}

// Size returns the backing size.
func (c *Canvas) Size() (w, h int32) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.width, c.height
}

// ClientSize returns the size the client last reported.
func (c *Canvas) ClientSize() (w, h int32) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clientW, c.clientH
}

// Resize records a new client size. It takes effect on the next frame.
func (c *Canvas) Resize(w, h int32) {
	if w <= 0 || h <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clientW, c.clientH = w, h
}

// sync copies the client size into the backing size.
func (c *Canvas) sync() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.width, c.height = c.clientW, c.clientH
}
