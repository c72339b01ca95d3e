package worker

import (
	"context"
	"sync"
)

// mailbox is an unbounded FIFO of messages. Put never blocks.
type mailbox struct {
	mu     sync.Mutex
	queue  []Message
	notify chan struct{}
	closed bool
}

func newMailbox() *mailbox {
	return &mailbox{notify: make(chan struct{}, 1)}
}

func (b *mailbox) Put(msg Message) bool {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return false
	}
	b.queue = append(b.queue, msg)
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
	return true
}

// Recv blocks until a message is available, the mailbox is closed, or ctx is
// done. ok is false in the latter two cases.
func (b *mailbox) Recv(ctx context.Context) (msg Message, ok bool) {
	for {
		b.mu.Lock()
		if len(b.queue) > 0 {
			msg = b.queue[0]
			b.queue[0] = Message{}
			b.queue = b.queue[1:]
			b.mu.Unlock()
			return msg, true
		}
		closed := b.closed
		b.mu.Unlock()
		if closed {
			return Message{}, false
		}

		select {
		case <-b.notify:
		case <-ctx.Done():
			return Message{}, false
		}
	}
}

func (b *mailbox) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
}
