package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/woxQAQ/pnbridge/internal/codec"
	"github.com/woxQAQ/pnbridge/pkg/protocol"
	"go.uber.org/zap"
)

// Host is the reverse channel a handler uses to call a function on the host side.
// CallHost blocks until the host delivers a result.
type Host interface {
	CallHost(ctx context.Context, name string, args ...protocol.Value) (protocol.Value, error)
}

// Call describes one invocation handed to a handler.
type Call struct {
	// Function is the exported name being dispatched.
	Function string

	// Host calls back into the host runtime.
	Host Host

	// Logger is scoped to the function being called.
	Logger *zap.Logger
}

// Handler is an exported native function. It reads as many arguments from
// args as it expects and returns a single Value.
type Handler func(ctx context.Context, call *Call, args *codec.Buffer) (protocol.Value, error)

// Registry maps exported function names to handlers.
type Registry struct {
	sync.RWMutex
	handlers map[string]Handler
	logger   *zap.Logger
}

// NewRegistry creates an empty function registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
		logger:   logger.With(zap.String("component", "function-registry")),
	}
}

// Register maps name to handler. A later registration of the same name wins.
func (r *Registry) Register(name string, handler Handler) {
	r.Lock()
	defer r.Unlock()

	if _, exists := r.handlers[name]; exists {
		r.logger.Warn("Overwriting registered function", zap.String("function", name))
	}
	r.handlers[name] = handler

	r.logger.Debug("Function registered", zap.String("function", name))
}

// Lookup retrieves a handler by name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	r.RLock()
	defer r.RUnlock()

	handler, ok := r.handlers[name]
	return handler, ok
}

// Dispatch runs the handler registered under name.
// Unknown names, handler errors and handler panics all come back as errors;
// none of them escapes as a panic.
func (r *Registry) Dispatch(ctx context.Context, name string, host Host, args *codec.Buffer) (result protocol.Value, err error) {
	handler, ok := r.Lookup(name)
	if !ok {
		return protocol.Value{}, &UnknownFunctionError{FunctionName: name}
	}

	call := &Call{
		Function: name,
		Host:     host,
		Logger:   r.logger.With(zap.String("function", name)),
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Handler panicked",
				zap.String("function", name),
				zap.Any("panic", p),
			)
			result, err = protocol.Value{}, &HandlerPanicError{FunctionName: name, Value: p}
		}
	}()

	result, err = handler(ctx, call, args)
	if err != nil {
		return protocol.Value{}, &HandlerError{FunctionName: name, Err: err}
	}
	return result, nil
}

// Names returns the registered function names in sorted order.
func (r *Registry) Names() []string {
	r.RLock()
	defer r.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Unregister removes a function from the registry.
func (r *Registry) Unregister(name string) {
	r.Lock()
	defer r.Unlock()

	if _, ok := r.handlers[name]; !ok {
		return
	}
	delete(r.handlers, name)

	r.logger.Info("Function unregistered", zap.String("function", name))
}

// Count returns the number of registered functions.
func (r *Registry) Count() int {
	r.RLock()
	defer r.RUnlock()

	return len(r.handlers)
}

// String implements fmt.Stringer for debug output.
func (r *Registry) String() string {
	return fmt.Sprintf("registry%v", r.Names())
}
