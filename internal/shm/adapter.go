package shm

import (
	"sync"

	"github.com/woxQAQ/pnbridge/internal/codec"
	"github.com/woxQAQ/pnbridge/pkg/protocol"
	"go.uber.org/zap"
)

// SignalSize is the size of the signal region the protocol uses.
const SignalSize = 1

// CopyOut copies the full fixed-size contents of buf into dst.
func CopyOut(buf *codec.Buffer, dst Region) error {
	if _, err := dst.WriteAt(buf.Bytes(), 0); err != nil {
		return &TransferError{Direction: "out", Err: err}
	}
	return nil
}

// CopyIn builds a buffer from the first codec.Capacity bytes of src, rewound
// for reading.
func CopyIn(src Region) (*codec.Buffer, error) {
	buf := codec.NewBuffer()
	if _, err := src.ReadAt(buf.Bytes(), 0); err != nil {
		return nil, &TransferError{Direction: "in", Err: err}
	}
	buf.Rewind()
	return buf, nil
}

// Adapter owns the result and signal regions handed over by the host. Every
// publish copies a whole payload and then raises one signal byte, and
// publishes never interleave.
type Adapter struct {
	mu     sync.Mutex
	result Region
	signal Region
	logger *zap.Logger
}

// NewAdapter validates the regions and returns an adapter over them.
func NewAdapter(result, signal Region, logger *zap.Logger) (*Adapter, error) {
	if result.Size() < codec.Capacity {
		return nil, &RegionTooSmallError{Role: "result", Size: result.Size(), Want: codec.Capacity}
	}
	if signal.Size() < SignalSize {
		return nil, &RegionTooSmallError{Role: "signal", Size: signal.Size(), Want: SignalSize}
	}

	return &Adapter{
		result: result,
		signal: signal,
		logger: logger.With(zap.String("component", "shm-adapter")),
	}, nil
}

// Publish writes buf into the result region and then raises sig.
func (a *Adapter) Publish(buf *codec.Buffer, sig protocol.Signal) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := CopyOut(buf, a.result); err != nil {
		return err
	}
	if err := a.writeSignal(sig); err != nil {
		return err
	}

	a.logger.Debug("Published payload", zap.Stringer("signal", sig))
	return nil
}

// Signal raises sig without touching the result region.
func (a *Adapter) Signal(sig protocol.Signal) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.writeSignal(sig)
}

// PendingSignal reads the current signal byte.
func (a *Adapter) PendingSignal() (protocol.Signal, error) {
	var b [SignalSize]byte
	if _, err := a.signal.ReadAt(b[:], 0); err != nil {
		return protocol.SignalNone, &TransferError{Direction: "in", Err: err}
	}
	return protocol.Signal(b[0]), nil
}

// ReadResult copies the result region into a fresh buffer.
func (a *Adapter) ReadResult() (*codec.Buffer, error) {
	return CopyIn(a.result)
}

func (a *Adapter) writeSignal(sig protocol.Signal) error {
	if _, err := a.signal.WriteAt([]byte{byte(sig)}, 0); err != nil {
		return &TransferError{Direction: "out", Err: err}
	}
	return nil
}
