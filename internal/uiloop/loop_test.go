package uiloop

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestDo_RunsOnLoopInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := New()
	go l.Run(ctx)

	var got []int
	for i := 0; i < 5; i++ {
		i := i
		if err := l.Do(ctx, func() { got = append(got, i) }); err != nil {
			t.Fatalf("Do() error: %v", err)
		}
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("got %v, want 0..4 in order", got)
		}
	}
}

func TestDo_SerializesConcurrentCallers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := New()
	go l.Run(ctx)

	// counter is unguarded; the loop is the only writer.
	counter := 0
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				if err := l.Do(ctx, func() { counter++ }); err != nil {
					t.Errorf("Do() error: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if counter != 1600 {
		t.Fatalf("counter = %d, want 1600", counter)
	}
}

func TestDo_AfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := New()
	go l.Run(ctx)
	cancel()

	select {
	case <-l.Stopped():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}

	ran := false
	if err := l.Do(context.Background(), func() { ran = true }); !errors.Is(err, ErrStopped) {
		t.Fatalf("Do() error = %v, want ErrStopped", err)
	}
	if ran {
		t.Fatal("fn ran after stop")
	}
}

func TestDo_ContextCancelledWhileQueued(t *testing.T) {
	l := New() // never run

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := l.Do(ctx, func() {}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Do() error = %v, want DeadlineExceeded", err)
	}
}

func TestDo_PanicIsReturnedAndLoopSurvives(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := New()
	go l.Run(ctx)

	err := l.Do(ctx, func() { panic("boom") })
	var perr *PanicError
	if !errors.As(err, &perr) || perr.Value != "boom" {
		t.Fatalf("Do() error = %v, want PanicError(boom)", err)
	}

	ran := false
	if err := l.Do(ctx, func() { ran = true }); err != nil || !ran {
		t.Fatalf("loop did not survive the panic: err=%v ran=%v", err, ran)
	}
}
