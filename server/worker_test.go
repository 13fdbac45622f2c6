package server

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestCompileWorker_Do(t *testing.T) {
	w := NewCompileWorker(2)
	defer w.Stop()

	v, err := w.Do(context.Background(), func() (any, error) { return 42, nil })
	if err != nil || v.(int) != 42 {
		t.Errorf("Do = %v, %v", v, err)
	}

	want := errors.New("job failed")
	if _, err := w.Do(context.Background(), func() (any, error) { return nil, want }); !errors.Is(err, want) {
		t.Errorf("error = %v, want %v", err, want)
	}
}

func TestCompileWorker_RecoversPanics(t *testing.T) {
	w := NewCompileWorker(1)
	defer w.Stop()

	_, err := w.Do(context.Background(), func() (any, error) { panic("boom") })
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected panic error, got %v", err)
	}

	// The worker survives the panic.
	if v, err := w.Do(context.Background(), func() (any, error) { return "ok", nil }); err != nil || v != "ok" {
		t.Errorf("after panic: %v, %v", v, err)
	}
}

func TestCompileWorker_Deadline(t *testing.T) {
	w := NewCompileWorker(1)
	defer w.Stop()

	release := make(chan struct{})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := w.Do(ctx, func() (any, error) {
		<-release
		return nil, nil
	})
	close(release)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want DeadlineExceeded", err)
	}
}

func TestCompileWorker_Stop(t *testing.T) {
	w := NewCompileWorker(1)
	w.Stop()
	w.Stop()

	if _, err := w.Do(context.Background(), func() (any, error) { return nil, nil }); !errors.Is(err, ErrWorkerStopped) {
		t.Errorf("error = %v, want ErrWorkerStopped", err)
	}
}

func TestCompileWorker_Concurrent(t *testing.T) {
	w := NewCompileWorker(4)
	defer w.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := w.Do(context.Background(), func() (any, error) { return i * 2, nil })
			if err != nil || v.(int) != i*2 {
				t.Errorf("job %d: %v, %v", i, v, err)
			}
		}(i)
	}
	wg.Wait()
}
