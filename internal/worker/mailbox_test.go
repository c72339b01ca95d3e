package worker

import (
	"context"
	"testing"
	"time"
)

func TestMailboxFIFO(t *testing.T) {
	box := newMailbox()
	box.Put(DataMessage([]byte{1}))
	box.Put(DataMessage([]byte{2}))

	ctx := context.Background()
	for _, want := range []byte{1, 2} {
		msg, ok := box.Recv(ctx)
		if !ok || msg.Data[0] != want {
			t.Fatalf("Recv() = %v, %v; want data %d", msg, ok, want)
		}
	}
}

func TestMailboxWakesReceiver(t *testing.T) {
	box := newMailbox()
	got := make(chan Message, 1)
	go func() {
		msg, _ := box.Recv(context.Background())
		got <- msg
	}()

	box.Put(InitCompleteMessage())
	select {
	case msg := <-got:
		if msg.Type != TypeInitComplete {
			t.Errorf("got %q", msg.Type)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("receiver was not woken")
	}
}

func TestMailboxClose(t *testing.T) {
	box := newMailbox()
	box.Close()

	if box.Put(DataMessage(nil)) {
		t.Error("Put after Close should fail")
	}
	if _, ok := box.Recv(context.Background()); ok {
		t.Error("Recv after Close should report closed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, ok := newMailbox().Recv(ctx); ok {
		t.Error("Recv with a done context should return")
	}
}
