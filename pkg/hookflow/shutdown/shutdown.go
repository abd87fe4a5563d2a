// Package shutdown provides a process-exit hook registry.
//
// Go has no at-exit facility: deferred calls do not run on os.Exit and a
// signal terminates the process without unwinding. A Registry fills that gap
// as a last-resort safety net. Hooks run once, in reverse registration order,
// when the program calls Exit or Run, or when a watched signal arrives.
//
// Hooks run on a runtime that may be partially torn down, so every hook is
// guarded: a panicking hook is logged and the remaining hooks still run.
//
//	stop := shutdown.Default.HandleSignals(ctx)
//	defer stop()
//
//	if err := run(); err != nil {
//	    shutdown.Default.Exit(1) // runs hooks, then os.Exit(1)
//	}
//	shutdown.Default.Run()
package shutdown

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
)

// Hook is a function run at process exit.
type Hook func()

// Registry holds exit hooks keyed by ID. It is safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	hooks  map[string]Hook
	order  []string
	ran    bool
	exit   func(int)
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithExitFunc replaces os.Exit, mainly for tests.
func WithExitFunc(fn func(int)) Option {
	return func(r *Registry) {
		if fn != nil {
			r.exit = fn
		}
	}
}

// WithLogger sets the logger used to report hook panics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		hooks: make(map[string]Hook),
		exit:  os.Exit,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Default is the process-wide registry.
var Default = New()

// Register adds a hook under id. It returns false without replacing anything
// if id is already registered or the registry has already run.
func (r *Registry) Register(id string, hook Hook) bool {
	if r == nil || hook == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ran {
		return false
	}
	if _, exists := r.hooks[id]; exists {
		return false
	}
	r.hooks[id] = hook
	r.order = append(r.order, id)
	return true
}

// Unregister removes the hook for id. It reports whether a hook was removed.
func (r *Registry) Unregister(id string) bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.hooks[id]; !exists {
		return false
	}
	delete(r.hooks, id)
	r.order = slices.DeleteFunc(r.order, func(s string) bool { return s == id })
	return true
}

// Has reports whether a hook is registered under id.
func (r *Registry) Has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.hooks[id]
	return ok
}

// Len returns the number of registered hooks.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.hooks)
}

// Ran reports whether Run has started.
func (r *Registry) Ran() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ran
}

// Run executes every registered hook once, most recent first. Later calls
// do nothing. Hooks may call Unregister on this registry.
func (r *Registry) Run() {
	r.mu.Lock()
	if r.ran {
		r.mu.Unlock()
		return
	}
	r.ran = true
	pending := make([]Hook, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		pending = append(pending, r.hooks[r.order[i]])
	}
	r.hooks = make(map[string]Hook)
	r.order = nil
	r.mu.Unlock()

	for _, hook := range pending {
		r.runGuarded(hook)
	}
}

func (r *Registry) runGuarded(hook Hook) {
	defer func() {
		if v := recover(); v != nil {
			r.logPanic(v)
		}
	}()
	hook()
}

func (r *Registry) logPanic(v any) {
	if r.logger == nil {
		return
	}
	defer func() { _ = recover() }()
	r.logger.Warn("exit hook panicked", slog.Any("panic", v))
}

// Exit runs the hooks and terminates the process with code.
func (r *Registry) Exit(code int) {
	r.Run()
	r.exit(code)
}

// HandleSignals runs the hooks and exits when one of sigs arrives
// (default: interrupt and SIGTERM). The exit code is 128 plus the signal
// number. Cancelling ctx or calling stop ends the watch without running hooks.
func (r *Registry) HandleSignals(ctx context.Context, sigs ...os.Signal) (stop func()) {
	if len(sigs) == 0 {
		sigs = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)

	done := make(chan struct{})
	var once sync.Once
	stop = func() {
		once.Do(func() {
			signal.Stop(ch)
			close(done)
		})
	}

	go func() {
		select {
		case sig := <-ch:
			if r.logger != nil {
				r.logger.Info("received signal, running exit hooks", slog.String("signal", sig.String()))
			}
			r.Exit(exitCode(sig))
		case <-ctx.Done():
			stop()
		case <-done:
		}
	}()

	return stop
}

func exitCode(sig os.Signal) int {
	if s, ok := sig.(syscall.Signal); ok {
		return 128 + int(s)
	}
	return 1
}
