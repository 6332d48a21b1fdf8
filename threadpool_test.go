package corert

import (
	"errors"
	"testing"
	"time"
)

func TestLocalThreadWorkerPoolRunsJob(t *testing.T) {
	p := newLocalThreadWorkerPool(2, 8)
	defer p.Close()

	task := &Task{id: 1}
	done := make(chan struct{})
	if err := p.Submit(task, func() { close(done) }); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job never ran")
	}

	deadline := time.After(time.Second)
	for {
		jobs := p.DrainCompleted(nil)
		if len(jobs) == 1 {
			if jobs[0].task != task {
				t.Fatalf("completed job task = %v, want %v", jobs[0].task, task)
			}
			if jobs[0].panic != nil {
				t.Fatalf("unexpected panic: %v", jobs[0].panic)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for DrainCompleted")
		default:
		}
	}
}

func TestLocalThreadWorkerPoolRecoversPanic(t *testing.T) {
	p := newLocalThreadWorkerPool(1, 4)
	defer p.Close()

	task := &Task{id: 1}
	if err := p.Submit(task, func() { panic("boom") }); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	deadline := time.After(time.Second)
	for {
		jobs := p.DrainCompleted(nil)
		if len(jobs) == 1 {
			if jobs[0].panic != "boom" {
				t.Fatalf("panic value = %v, want %q", jobs[0].panic, "boom")
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for panicking job to complete")
		default:
		}
	}
}

func TestLocalThreadWorkerPoolDisabled(t *testing.T) {
	p := newLocalThreadWorkerPool(0, 0)
	defer p.Close()

	err := p.Submit(&Task{id: 1}, func() {})
	if !errors.Is(err, ErrThreadPoolDisabled) {
		t.Fatalf("Submit on disabled pool = %v, want ErrThreadPoolDisabled", err)
	}
}

func TestLocalThreadWorkerPoolSubmitAfterClose(t *testing.T) {
	p := newLocalThreadWorkerPool(1, 4)
	p.Close()

	err := p.Submit(&Task{id: 1}, func() {})
	if err == nil {
		t.Fatal("Submit after Close should fail")
	}
	var opErr *OpError
	if !errors.As(err, &opErr) || opErr.Kind != ErrKindInvalidState {
		t.Fatalf("Submit after Close = %v, want ErrKindInvalidState OpError", err)
	}
}

func TestLocalThreadWorkerPoolCloseIdempotent(t *testing.T) {
	p := newLocalThreadWorkerPool(2, 4)
	p.Close()
	p.Close() // must not panic or double-close channels
}
