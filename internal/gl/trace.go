package gl

import (
	"io"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// TraceWriter writes recorded commands as JSON lines.
type TraceWriter struct {
	mu  sync.Mutex
	enc *jsoniter.Encoder
	err error
}

// NewTraceWriter creates a trace writer over w.
func NewTraceWriter(w io.Writer) *TraceWriter {
	return &TraceWriter{enc: json.NewEncoder(w)}
}

// Write appends cmd. After the first failure every write is dropped and the
// error is kept for Err.
func (t *TraceWriter) Write(cmd Command) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return
	}
	t.err = t.enc.Encode(cmd)
}

// Err returns the first write error.
func (t *TraceWriter) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}
