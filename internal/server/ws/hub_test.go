package ws

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeBus is an in-process domain.EventBus whose subscriptions close with
// their context.
type fakeBus struct{}

func (fakeBus) Publish(ctx context.Context, channel string, payload []byte) error {
	return nil
}

func (fakeBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func TestHubRegisterAndDrop(t *testing.T) {
	hub := NewHub(fakeBus{}, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ran := make(chan error, 1)
	go func() { ran <- hub.Run(ctx) }()

	c := &client{hub: hub, send: make(chan []byte, 1), subs: map[string]bool{}}
	hub.register <- c

	deadline := time.Now().Add(time.Second)
	for hub.clientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client was not registered")
		}
		time.Sleep(time.Millisecond)
	}

	c.drop()
	for hub.clientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client was not unregistered")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	if err := <-ran; !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
}

func TestHubReleasesClientTeardownAfterShutdown(t *testing.T) {
	hub := NewHub(fakeBus{}, testLogger())
	ctx, cancel := context.WithCancel(context.Background())

	ran := make(chan error, 1)
	go func() { ran <- hub.Run(ctx) }()
	cancel()
	if err := <-ran; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}

	// A client still draining when the hub stops must not hang on the
	// unregister handoff.
	c := &client{hub: hub, send: make(chan []byte, 1), subs: map[string]bool{}}
	dropped := make(chan struct{})
	go func() {
		c.drop()
		close(dropped)
	}()

	select {
	case <-dropped:
	case <-time.After(time.Second):
		t.Fatal("client teardown blocked after hub shutdown")
	}
}
