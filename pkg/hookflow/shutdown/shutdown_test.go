package shutdown

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	r := New()

	assert.True(t, r.Register("a", func() {}))
	assert.False(t, r.Register("a", func() {}), "duplicate id")
	assert.False(t, r.Register("b", nil), "nil hook")
	assert.True(t, r.Has("a"))
	assert.False(t, r.Has("b"))
	assert.Equal(t, 1, r.Len())
}

func TestUnregister(t *testing.T) {
	r := New()
	called := false
	r.Register("a", func() { called = true })

	assert.True(t, r.Unregister("a"))
	assert.False(t, r.Unregister("a"))
	assert.Equal(t, 0, r.Len())

	r.Run()
	assert.False(t, called)
}

func TestRun_LIFOOnce(t *testing.T) {
	r := New()
	var order []string
	for _, id := range []string{"first", "second", "third"} {
		r.Register(id, func() { order = append(order, id) })
	}

	r.Run()
	r.Run()

	assert.Equal(t, []string{"third", "second", "first"}, order)
	assert.True(t, r.Ran())
	assert.Equal(t, 0, r.Len())
}

func TestRegister_AfterRun(t *testing.T) {
	r := New()
	r.Run()
	assert.False(t, r.Register("late", func() {}))
}

func TestRun_PanicGuarded(t *testing.T) {
	var buf bytes.Buffer
	r := New(WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	ran := false
	r.Register("ok", func() { ran = true })
	r.Register("bad", func() { panic("hook exploded") })

	assert.NotPanics(t, r.Run)
	assert.True(t, ran)
	assert.Contains(t, buf.String(), "exit hook panicked")
	assert.Contains(t, buf.String(), "hook exploded")
}

// TestRun_HookMayUnregister tests hooks can call back into the registry.
func TestRun_HookMayUnregister(t *testing.T) {
	r := New()
	r.Register("self", func() { r.Unregister("self") })
	assert.NotPanics(t, r.Run)
}

func TestExit(t *testing.T) {
	var code int
	r := New(WithExitFunc(func(c int) { code = c }))

	ran := false
	r.Register("hook", func() { ran = true })
	r.Exit(4)

	assert.True(t, ran)
	assert.Equal(t, 4, code)
}

func TestRun_Concurrent(t *testing.T) {
	r := New()
	var mu sync.Mutex
	count := 0
	r.Register("hook", func() {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Run()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, count)
}

func TestHandleSignals(t *testing.T) {
	exited := make(chan int, 1)
	r := New(WithExitFunc(func(c int) { exited <- c }))
	ran := false
	r.Register("hook", func() { ran = true })

	stop := r.HandleSignals(context.Background(), syscall.SIGUSR1)
	defer stop()

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGUSR1))

	select {
	case code := <-exited:
		assert.Equal(t, 128+int(syscall.SIGUSR1), code)
		assert.True(t, ran)
	case <-time.After(5 * time.Second):
		t.Fatal("signal was not handled")
	}
}

func TestHandleSignals_StopWithoutSignal(t *testing.T) {
	r := New(WithExitFunc(func(int) { t.Error("unexpected exit") }))
	ctx, cancel := context.WithCancel(context.Background())

	stop := r.HandleSignals(ctx, syscall.SIGUSR2)
	cancel()
	stop()
	stop()

	assert.False(t, r.Ran())
}
