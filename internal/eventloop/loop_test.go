package eventloop

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"
)

func TestDeferredRunsAfterTurnInPriorityOrder(t *testing.T) {
	l := New(1)
	var order []string

	l.RunTurn(func() {
		l.Defer(PriorityLow, func() { order = append(order, "clear-selection") })
		l.Defer(PriorityNormal, func() { order = append(order, "menu-action") })
		order = append(order, "pointer-up")
	})

	want := []string{"pointer-up", "menu-action", "clear-selection"}
	if !slices.Equal(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
	if l.Pending() != 0 {
		t.Errorf("pending = %d after turn", l.Pending())
	}
}

func TestDeferFromDeferredTask(t *testing.T) {
	l := New(1)
	var order []int
	l.RunTurn(func() {
		l.Defer(PriorityNormal, func() {
			order = append(order, 1)
			l.Defer(PriorityHigh, func() { order = append(order, 2) })
		})
		l.Defer(PriorityNormal, func() { order = append(order, 3) })
	})
	// The high-priority task jumps ahead of the queued normal one.
	if want := []int{1, 2, 3}; !slices.Equal(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestEqualPriorityKeepsFIFO(t *testing.T) {
	l := New(1)
	var order []int
	l.RunTurn(func() {
		for i := range 5 {
			l.Defer(PriorityNormal, func() { order = append(order, i) })
		}
	})
	if want := []int{0, 1, 2, 3, 4}; !slices.Equal(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestPanickingTaskDoesNotStopDrain(t *testing.T) {
	l := New(1)
	ran := false
	l.RunTurn(func() {
		l.Defer(PriorityNormal, func() { ran = true })
		panic("boom")
	})
	if !ran {
		t.Error("deferred task skipped after panic")
	}
}

func TestRunAndPost(t *testing.T) {
	l := New(4)
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)

	got := make(chan string, 2)
	if err := l.Post(ctx, func() {
		l.Defer(PriorityLow, func() { got <- "deferred" })
		got <- "turn"
	}); err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{"turn", "deferred"} {
		select {
		case v := <-got:
			if v != want {
				t.Errorf("got %q, want %q", v, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out")
		}
	}

	cancel()
	<-l.Done()
	if err := l.Post(context.Background(), func() {}); !errors.Is(err, ErrStopped) {
		t.Errorf("post after stop = %v, want ErrStopped", err)
	}
}
