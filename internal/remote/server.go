// Package remote accepts input clients over websocket and feeds their events
// to the engine.
package remote

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/woxQAQ/wasmtoys/internal/input"
	"github.com/woxQAQ/wasmtoys/pkg/protocol"
)

const writeTimeout = 5 * time.Second

// Dispatcher is what the server forwards client input to.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev input.Event) (bool, error)
	Resize(w, h int32)
}

type session struct {
	id   string
	conn *websocket.Conn
	caps protocol.Capabilities
}

// Server is an http.Handler that upgrades requests to websocket sessions.
//
// The first hello received fixes the host's capabilities; Capabilities blocks
// until then. Sessions are welcomed once a dispatcher is attached. The most
// recently welcomed session receives pointer lock commands.
type Server struct {
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	helloOnce sync.Once
	hello     chan struct{}
	caps      protocol.Capabilities

	attached   chan struct{}
	dispatcher Dispatcher
	glVersion  string

	mu       sync.Mutex
	sessions map[string]*session
	active   *session
}

// NewServer creates a server with no dispatcher attached.
func NewServer(logger *zap.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		logger:   logger.With(zap.String("component", "remote")),
		ctx:      ctx,
		cancel:   cancel,
		hello:    make(chan struct{}),
		attached: make(chan struct{}),
		sessions: make(map[string]*session),
	}
}

// Capabilities waits for the first client hello and returns what it announced.
func (s *Server) Capabilities(ctx context.Context) (protocol.Capabilities, error) {
	select {
	case <-s.hello:
		return s.caps, nil
	case <-s.ctx.Done():
		return protocol.Capabilities{}, ErrServerClosed
	case <-ctx.Done():
		return protocol.Capabilities{}, ctx.Err()
	}
}

// Attach sets the dispatcher and releases sessions waiting for their welcome.
// It must be called once.
func (s *Server) Attach(d Dispatcher, glVersion string) {
	s.dispatcher = d
	s.glVersion = glVersion
	close(s.attached)
}

// PointerLock returns the server as an input.PointerLock when the first
// client announced support, and nil otherwise. Call it after Capabilities.
func (s *Server) PointerLock() input.PointerLock {
	if !s.caps.PointerLock {
		return nil
	}
	return s
}

// Request asks the active client to lock its pointer to the canvas.
func (s *Server) Request() {
	s.push(protocol.ServerMessage{Type: protocol.TypeRequestPointerLock})
}

// Exit asks the active client to release pointer lock.
func (s *Server) Exit() {
	s.push(protocol.ServerMessage{Type: protocol.TypeExitPointerLock})
}

func (s *Server) push(msg protocol.ServerMessage) {
	s.mu.Lock()
	sess := s.active
	s.mu.Unlock()
	if sess == nil {
		s.logger.Debug("No active session", zap.String("type", msg.Type))
		return
	}
	if err := s.send(sess, msg); err != nil {
		s.logger.Warn("Failed to push command",
			zap.String("session", sess.id),
			zap.String("type", msg.Type),
			zap.Error(err),
		)
	}
}

// Sessions returns the number of connected sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close disconnects every session.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		_ = sess.conn.Close(websocket.StatusGoingAway, "host shutting down")
	}
	s.cancel()
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket accept failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	sess, err := s.handshake(conn)
	if err != nil {
		s.logger.Warn("Handshake failed", zap.Error(err))
		conn.Close(websocket.StatusPolicyViolation, err.Error())
		return
	}
	defer s.remove(sess)

	s.serve(sess)
}

// handshake reads the hello, waits for a dispatcher and sends the welcome.
func (s *Server) handshake(conn *websocket.Conn) (*session, error) {
	msg, err := s.read(conn)
	if err != nil {
		return nil, err
	}
	if msg.Type != protocol.TypeHello {
		return nil, ErrNoHello
	}

	sess := &session{id: uuid.NewString(), conn: conn}
	if msg.Capabilities != nil {
		sess.caps = *msg.Capabilities
	}
	s.helloOnce.Do(func() {
		s.caps = sess.caps
		close(s.hello)
	})

	select {
	case <-s.attached:
	case <-s.ctx.Done():
		return nil, ErrServerClosed
	}

	if sess.caps.Width > 0 && sess.caps.Height > 0 {
		s.dispatcher.Resize(sess.caps.Width, sess.caps.Height)
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.active = sess
	s.mu.Unlock()

	s.logger.Info("Session started",
		zap.String("session", sess.id),
		zap.Bool("pointer_lock", sess.caps.PointerLock),
	)
	return sess, s.send(sess, protocol.ServerMessage{
		Type:      protocol.TypeWelcome,
		Session:   sess.id,
		GLVersion: s.glVersion,
	})
}

func (s *Server) remove(sess *session) {
	s.mu.Lock()
	delete(s.sessions, sess.id)
	if s.active == sess {
		s.active = nil
	}
	s.mu.Unlock()
	s.logger.Info("Session ended", zap.String("session", sess.id))
}

func (s *Server) serve(sess *session) {
	for {
		msg, err := s.read(sess.conn)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && s.ctx.Err() == nil {
				s.logger.Debug("Read failed", zap.String("session", sess.id), zap.Error(err))
			}
			return
		}

		reply := s.handle(msg)
		if err := s.send(sess, reply); err != nil {
			s.logger.Debug("Write failed", zap.String("session", sess.id), zap.Error(err))
			return
		}
	}
}

// handle processes one message after the handshake and returns the reply.
func (s *Server) handle(msg protocol.ClientMessage) protocol.ServerMessage {
	switch msg.Type {
	case protocol.TypeHello:
		return errorReply(msg.ID, ErrDuplicateHello)
	case protocol.TypeResize:
		s.dispatcher.Resize(msg.Width, msg.Height)
		return protocol.ServerMessage{Type: protocol.TypeAck, ID: msg.ID}
	}

	ev, ok := toEvent(msg)
	if !ok {
		return errorReply(msg.ID, fmt.Errorf("%w: %s", ErrUnknownMessage, msg.Type))
	}

	prevented := false
	ev.PreventDefault = func() { prevented = true }
	if _, err := s.dispatcher.Dispatch(s.ctx, ev); err != nil {
		return errorReply(msg.ID, err)
	}
	return protocol.ServerMessage{Type: protocol.TypeAck, ID: msg.ID, PreventDefault: prevented}
}

func errorReply(id uint64, err error) protocol.ServerMessage {
	return protocol.ServerMessage{Type: protocol.TypeError, ID: id, Error: err.Error()}
}

// read returns the next message. Malformed messages are answered with an
// error and skipped.
func (s *Server) read(conn *websocket.Conn) (protocol.ClientMessage, error) {
	for {
		_, data, err := conn.Read(s.ctx)
		if err != nil {
			return protocol.ClientMessage{}, err
		}
		msg, err := protocol.DecodeClient(data)
		if err == nil {
			return msg, nil
		}

		s.logger.Debug("Malformed message", zap.Error(err))
		out, _ := protocol.EncodeServer(errorReply(0, err))
		if err := s.write(conn, out); err != nil {
			return protocol.ClientMessage{}, err
		}
	}
}

func (s *Server) send(sess *session, msg protocol.ServerMessage) error {
	data, err := protocol.EncodeServer(msg)
	if err != nil {
		return err
	}
	return s.write(sess.conn, data)
}

func (s *Server) write(conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(s.ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}
