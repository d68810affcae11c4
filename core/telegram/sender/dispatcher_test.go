package sender

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDispatcherExecutesQueuedJobs(t *testing.T) {
	d := NewDispatcher(Options{Workers: 2, QueueSize: 16})

	var ran atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		err := d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
			ran.Add(1)
			wg.Done()
			return nil
		})
		if err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	wg.Wait()
	d.Close()

	if got := ran.Load(); got != 5 {
		t.Fatalf("expected 5 executed jobs, got %d", got)
	}
	if d.ErrorCount() != 0 {
		t.Fatalf("unexpected errors: %d", d.ErrorCount())
	}
}

func TestDispatcherQueueFull(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1})
	defer d.Close()

	release := make(chan struct{})
	defer close(release)

	// Occupy the single worker so later jobs pile up in the queue.
	if err := d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
		<-release
		return nil
	}); err != nil {
		t.Fatalf("enqueue blocker: %v", err)
	}

	var fullErr error
	for i := 0; i < 10; i++ {
		if err := d.Enqueue(context.Background(), "send.text", "sendMessage", func() error { return nil }); err != nil {
			fullErr = err
			break
		}
	}
	if !errors.Is(fullErr, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", fullErr)
	}
}

func TestDispatcherClosedQueueRejects(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1})
	d.Close()

	err := d.Enqueue(context.Background(), "send.text", "sendMessage", func() error { return nil })
	if !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
}

func TestDispatcherCountsPermanentFailures(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, QueueSize: 4, MaxRetries: 0, RetryBackoff: time.Millisecond})

	if err := d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
		return errors.New("chat not found (400)")
	}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	d.Close()

	if d.ErrorCount() != 1 {
		t.Fatalf("expected 1 failed job, got %d", d.ErrorCount())
	}
}

func TestSanitizeErrorMessageRedactsToken(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123456:AAH-secret_token/sendMessage": timeout`)
	got := sanitizeErrorMessage(err)
	if got != `Post "https://api.telegram.org/bot<redacted>/sendMessage": timeout` {
		t.Fatalf("token not redacted: %s", got)
	}
}
