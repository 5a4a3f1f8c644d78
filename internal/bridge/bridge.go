// Package bridge implements the call bridge between the host runtime and the
// native function registry.
//
// Two worker goroutines run for the lifetime of a Bridge:
//
// The native-call worker consumes calls the host made through
// InvokeNativeFunction. It dispatches each call through the registry while
// holding the dispatch lock, encodes the result into a fresh buffer, copies
// it into the result region and raises signal 2 (or 3 when the call failed).
//
// The host-call worker consumes calls handlers made through CallHost. It
// encodes the function name and the argument array, copies them into the
// result region and raises signal 1. Only one host call is on the wire at a
// time: the worker waits until the host delivers the result through
// DeliverHostCallResult (or the caller gives up) before sending the next.
//
// A handler that calls the host therefore blocks the native-call worker until
// the host answers, which makes host calls fully synchronous from the
// handler's point of view.
//
// A bridge serves one host at a time. Detach unbinds the host's regions so a
// later host can Initialize again; the workers keep running across hosts.
package bridge

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/woxQAQ/pnbridge/internal/codec"
	"github.com/woxQAQ/pnbridge/internal/registry"
	"github.com/woxQAQ/pnbridge/internal/shm"
	"github.com/woxQAQ/pnbridge/pkg/protocol"
	"go.uber.org/zap"
)

// Config holds bridge configuration.
type Config struct {
	// HostCallTimeout bounds how long CallHost waits for the host.
	// Zero waits until the host answers or the bridge closes.
	HostCallTimeout time.Duration
}

// DefaultConfig returns the reference behavior: no host call timeout.
func DefaultConfig() *Config {
	return &Config{}
}

// Stats is a snapshot of bridge counters.
type Stats struct {
	NativeCalls    uint64
	NativeFailures uint64
	HostCalls      uint64
	HostFailures   uint64
	NativeQueued   int
	HostQueued     int
}

type nativeCall struct {
	name string
	args *codec.Buffer
}

type hostReply struct {
	value protocol.Value
	err   error
}

// hostCall moves from queued to awaiting to settled. It is settled exactly
// once, either by the host's result or by the caller giving up. answered
// closes when the host delivers, which may be after the caller gave up.
type hostCall struct {
	name string
	args []protocol.Value

	once  sync.Once
	done  chan struct{}
	reply hostReply

	answered chan struct{}
}

func newHostCall(name string, args []protocol.Value) *hostCall {
	return &hostCall{
		name:     name,
		args:     args,
		done:     make(chan struct{}),
		answered: make(chan struct{}),
	}
}

func (c *hostCall) settle(r hostReply) bool {
	settled := false
	c.once.Do(func() {
		c.reply = r
		close(c.done)
		settled = true
	})
	return settled
}

func (c *hostCall) isSettled() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Bridge is the explicit context shared by both workers and every handler.
type Bridge struct {
	registry *registry.Registry
	config   *Config
	logger   *zap.Logger

	// Lifetime of the workers; cancelled by Close.
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	adapter *shm.Adapter
	started bool
	// Closed while a host is bound; replaced on Detach.
	attached chan struct{}

	// Serializes handlers.
	dispatchMu sync.Mutex

	nativeCalls *queue[*nativeCall]
	hostCalls   *queue[*hostCall]

	pendingMu sync.Mutex
	pending   *hostCall

	workers   conc.WaitGroup
	closeOnce sync.Once

	nativeCount  atomic.Uint64
	nativeFailed atomic.Uint64
	hostCount    atomic.Uint64
	hostFailed   atomic.Uint64
}

// New creates a bridge over reg. Workers start on Initialize.
func New(reg *registry.Registry, config *Config, logger *zap.Logger) *Bridge {
	if config == nil {
		config = DefaultConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Bridge{
		registry:    reg,
		config:      config,
		logger:      logger.With(zap.String("component", "call-bridge")),
		ctx:         ctx,
		cancel:      cancel,
		attached:    make(chan struct{}),
		nativeCalls: newQueue[*nativeCall](),
		hostCalls:   newQueue[*hostCall](),
	}
}

// Initialize hands the bridge the host-owned result and signal regions and
// starts both workers on first use. A bridge that is still bound fails with
// AlreadyInitializedError; Detach it first.
func (b *Bridge) Initialize(result, signal shm.Region) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ctx.Err() != nil {
		return ErrClosed
	}
	if b.adapter != nil {
		return &AlreadyInitializedError{}
	}

	adapter, err := shm.NewAdapter(result, signal, b.logger)
	if err != nil {
		return err
	}
	b.adapter = adapter
	close(b.attached)

	if !b.started {
		b.started = true
		b.workers.Go(b.runNativeWorker)
		b.workers.Go(b.runHostWorker)
	}

	b.logger.Info("Call bridge initialized",
		zap.Int("result_region_size", result.Size()),
		zap.Duration("host_call_timeout", b.config.HostCallTimeout),
		zap.Int("functions", b.registry.Count()),
	)

	return nil
}

// Detach unbinds the host's regions. The host call on the wire, if any, fails
// with ErrDetached since its host can no longer answer it. Host calls already
// queued wait for the next host to Initialize. Detaching an unbound bridge is
// a no-op.
func (b *Bridge) Detach() {
	b.mu.Lock()
	bound := b.adapter != nil
	if bound {
		b.adapter = nil
		b.attached = make(chan struct{})
	}

	b.pendingMu.Lock()
	call := b.pending
	b.pending = nil
	b.pendingMu.Unlock()
	b.mu.Unlock()

	if !bound {
		return
	}

	if call != nil {
		close(call.answered)
		call.settle(hostReply{err: ErrDetached})
	}

	b.logger.Info("Call bridge detached from host", zap.Bool("abandoned_host_call", call != nil))
}

// IsBound returns whether a host's regions are currently attached.
func (b *Bridge) IsBound() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.adapter != nil
}

func (b *Bridge) getAdapter(operation string) (*shm.Adapter, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.ctx.Err() != nil {
		return nil, ErrClosed
	}
	if b.adapter == nil {
		return nil, &NotInitializedError{Operation: operation}
	}
	return b.adapter, nil
}

// InvokeNativeFunction copies the argument region and queues a call to name.
// It returns as soon as the call is queued; the result arrives through the
// signal region.
func (b *Bridge) InvokeNativeFunction(name string, args shm.Region) error {
	if _, err := b.getAdapter("invoke native function"); err != nil {
		return err
	}

	buf, err := shm.CopyIn(args)
	if err != nil {
		return err
	}
	return b.Enqueue(name, buf)
}

// Enqueue queues a native call whose arguments are already in a buffer
// positioned for reading.
func (b *Bridge) Enqueue(name string, args *codec.Buffer) error {
	if _, err := b.getAdapter("enqueue native call"); err != nil {
		return err
	}

	if err := b.nativeCalls.push(&nativeCall{name: name, args: args}); err != nil {
		return err
	}

	b.logger.Debug("Native call queued", zap.String("function", name))
	return nil
}

// DeliverHostCallResult reads the host's answer to the host call currently
// on the wire and wakes its caller.
func (b *Bridge) DeliverHostCallResult(result shm.Region) error {
	if _, err := b.getAdapter("deliver host call result"); err != nil {
		return err
	}

	buf, err := shm.CopyIn(result)
	if err != nil {
		return err
	}

	b.pendingMu.Lock()
	call := b.pending
	b.pending = nil
	b.pendingMu.Unlock()

	if call == nil {
		b.logger.Warn("Host delivered a result with no call awaiting it")
		return ErrNoPendingCall
	}
	close(call.answered)

	value, err := buf.Read()
	if err != nil {
		err = &HostCallError{FunctionName: call.name, Err: err}
	}

	if !call.settle(hostReply{value: value, err: err}) {
		b.logger.Warn("Host delivered a result after the caller gave up",
			zap.String("function", call.name),
		)
		return ErrNoPendingCall
	}
	return err
}

// CallHost asks the host to run name with args and blocks until the host
// delivers a result, ctx ends, the configured timeout expires or the bridge
// closes. Safe for concurrent use; calls reach the host in FIFO order.
// A call that timed out still occupies the wire until the host answers it.
func (b *Bridge) CallHost(ctx context.Context, name string, args ...protocol.Value) (protocol.Value, error) {
	if _, err := b.getAdapter("call host"); err != nil {
		return protocol.Value{}, err
	}

	if timeout := b.config.HostCallTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	call := newHostCall(name, args)
	if err := b.hostCalls.push(call); err != nil {
		return protocol.Value{}, err
	}
	b.hostCount.Add(1)

	select {
	case <-call.done:
	case <-ctx.Done():
		b.abandon(call, b.contextError(name, ctx))
	case <-b.ctx.Done():
		b.abandon(call, ErrClosed)
	}

	// settle happened exactly once; whichever side won wrote the reply.
	<-call.done
	if call.reply.err != nil {
		b.hostFailed.Add(1)
		return protocol.Value{}, call.reply.err
	}
	return call.reply.value, nil
}

func (b *Bridge) abandon(call *hostCall, err error) {
	if call.settle(hostReply{err: err}) {
		b.logger.Warn("Host call abandoned",
			zap.String("function", call.name),
			zap.Error(err),
		)
	}
}

func (b *Bridge) contextError(name string, ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{FunctionName: name, Duration: b.config.HostCallTimeout}
	}
	return ctx.Err()
}

// Dispatch runs a registered function in-process while holding the dispatch
// lock. Handlers see the bridge as their Host.
func (b *Bridge) Dispatch(ctx context.Context, name string, args *codec.Buffer) (protocol.Value, error) {
	b.dispatchMu.Lock()
	defer b.dispatchMu.Unlock()

	return b.registry.Dispatch(ctx, name, b, args)
}

func (b *Bridge) runNativeWorker() {
	for {
		call, ok := b.nativeCalls.pop(b.ctx.Done())
		if !ok {
			return
		}
		b.nativeCount.Add(1)

		start := time.Now()
		result, err := b.Dispatch(b.ctx, call.name, call.args)
		if err == nil {
			err = b.publishValue(result, protocol.SignalNativeResult)
		}
		if err != nil {
			b.nativeFailed.Add(1)
			b.publishError(err)
			b.logger.Error("Native call failed",
				zap.String("function", call.name),
				zap.Error(err),
			)
			continue
		}

		b.logger.Debug("Native call completed",
			zap.String("function", call.name),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

func (b *Bridge) runHostWorker() {
	for {
		call, ok := b.hostCalls.pop(b.ctx.Done())
		if !ok {
			return
		}
		if call.isSettled() {
			continue
		}

		buf, err := codec.Encode(protocol.NewString(call.name), protocol.NewArray(call.args...))
		if err != nil {
			call.settle(hostReply{err: &HostCallError{FunctionName: call.name, Err: err}})
			continue
		}

		adapter, ok := b.awaitHost(call)
		if !ok {
			continue
		}

		if err := adapter.Publish(buf, protocol.SignalHostCall); err != nil {
			b.clearPending(call)
			call.settle(hostReply{err: &HostCallError{FunctionName: call.name, Err: err}})
			continue
		}

		b.logger.Debug("Host call sent", zap.String("function", call.name))

		// The wire stays busy until the host answers, even after the caller
		// gave up.
		select {
		case <-call.answered:
		case <-b.ctx.Done():
			b.clearPending(call)
			return
		}
	}
}

// awaitHost makes call the one on the wire, waiting for a host to be bound
// if there is none. It reports false when the call was settled meanwhile or
// the bridge closed.
func (b *Bridge) awaitHost(call *hostCall) (*shm.Adapter, bool) {
	for {
		// Registered before signalling so a fast host cannot answer first.
		adapter, attached := b.bindPending(call)
		if adapter != nil {
			return adapter, true
		}
		if attached == nil {
			return nil, false
		}

		select {
		case <-attached:
		case <-call.done:
			return nil, false
		case <-b.ctx.Done():
			return nil, false
		}
	}
}

// bindPending sets call pending on the bound host and returns its adapter, or
// returns the channel that closes once a host is bound. Both are nil once the
// bridge is closed. Holding mu keeps Detach from slipping in between.
func (b *Bridge) bindPending(call *hostCall) (*shm.Adapter, <-chan struct{}) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.ctx.Err() != nil {
		return nil, nil
	}
	if b.adapter == nil {
		return nil, b.attached
	}

	b.pendingMu.Lock()
	b.pending = call
	b.pendingMu.Unlock()
	return b.adapter, nil
}

func (b *Bridge) clearPending(call *hostCall) {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()
	if b.pending == call {
		b.pending = nil
	}
}

func (b *Bridge) publishValue(v protocol.Value, sig protocol.Signal) error {
	buf, err := codec.Encode(v)
	if err != nil {
		return err
	}
	adapter, err := b.getAdapter("publish result")
	if err != nil {
		return err
	}
	return adapter.Publish(buf, sig)
}

// publishError reports a failed native call to the host as signal 3 with the
// message as a String payload.
func (b *Bridge) publishError(cause error) {
	msg := cause.Error()
	if limit := codec.Capacity - codec.Size(protocol.NewString("")); len(msg) > limit {
		msg = msg[:limit]
	}
	if err := b.publishValue(protocol.NewString(msg), protocol.SignalNativeError); err != nil {
		b.logger.Error("Failed to publish native call error", zap.Error(err))
	}
}

// Stats returns a snapshot of the bridge counters.
func (b *Bridge) Stats() Stats {
	return Stats{
		NativeCalls:    b.nativeCount.Load(),
		NativeFailures: b.nativeFailed.Load(),
		HostCalls:      b.hostCount.Load(),
		HostFailures:   b.hostFailed.Load(),
		NativeQueued:   b.nativeCalls.len(),
		HostQueued:     b.hostCalls.len(),
	}
}

// Close stops both workers and fails every waiting host call with ErrClosed.
// Safe to call multiple times.
func (b *Bridge) Close() error {
	b.closeOnce.Do(func() {
		b.logger.Info("Shutting down call bridge")

		b.mu.Lock()
		b.cancel()
		b.mu.Unlock()

		dropped := b.nativeCalls.close()
		for _, call := range b.hostCalls.close() {
			call.settle(hostReply{err: ErrClosed})
		}

		b.workers.Wait()

		b.pendingMu.Lock()
		if b.pending != nil {
			b.pending.settle(hostReply{err: ErrClosed})
			b.pending = nil
		}
		b.pendingMu.Unlock()

		b.logger.Info("Call bridge shutdown complete", zap.Int("dropped_native_calls", len(dropped)))
	})
	return nil
}

// IsClosed returns whether the bridge has been closed.
func (b *Bridge) IsClosed() bool {
	return b.ctx.Err() != nil
}
