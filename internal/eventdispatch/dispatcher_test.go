package eventdispatch

import (
	"sync"
	"testing"
)

type testEvent struct {
	Seq int
}

func TestNew(t *testing.T) {
	d := New[testEvent](10)

	if d == nil {
		t.Fatal("New returned nil")
	}
	if d.IsClosed() {
		t.Error("dispatcher should not be closed initially")
	}
}

func TestDispatcher_Emit(t *testing.T) {
	d := New[testEvent](10)
	defer d.Close()

	d.Emit(testEvent{Seq: 7})

	select {
	case evt := <-d.Events():
		if evt.Seq != 7 {
			t.Errorf("Seq = %d, want 7", evt.Seq)
		}
	default:
		t.Fatal("event was not delivered")
	}
}

func TestDispatcher_FullBufferDrops(t *testing.T) {
	d := New[testEvent](2)
	defer d.Close()

	for i := 0; i < 5; i++ {
		d.Emit(testEvent{Seq: i})
	}

	if got := d.Dropped(); got != 3 {
		t.Errorf("Dropped = %d, want 3", got)
	}

	// The first two events survive in order.
	for want := 0; want < 2; want++ {
		evt := <-d.Events()
		if evt.Seq != want {
			t.Errorf("Seq = %d, want %d", evt.Seq, want)
		}
	}
}

func TestDispatcher_EmitAfterClose(t *testing.T) {
	d := New[testEvent](10)
	d.Close()

	// Must not panic on the closed channel.
	d.Emit(testEvent{Seq: 1})

	if !d.IsClosed() {
		t.Error("IsClosed = false after Close")
	}
}

func TestDispatcher_CloseIdempotent(t *testing.T) {
	d := New[testEvent](10)
	d.Close()
	d.Close()

	if _, ok := <-d.Events(); ok {
		t.Error("events channel should be closed and drained")
	}
}

func TestDispatcher_ConcurrentEmit(t *testing.T) {
	d := New[testEvent](1000)
	defer d.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				d.Emit(testEvent{Seq: j})
			}
		}()
	}
	wg.Wait()

	if got := len(d.Events()); got != 500 {
		t.Errorf("buffered events = %d, want 500", got)
	}
	if d.Dropped() != 0 {
		t.Errorf("Dropped = %d, want 0", d.Dropped())
	}
}
