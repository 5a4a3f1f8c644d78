package protocol

import "fmt"

// Signal is the single byte written into the signal region to tell the host
// which event just completed.
type Signal uint8

const (
	// SignalNone is the cleared state the host writes after consuming a signal.
	SignalNone Signal = iota
	// SignalHostCall means a [name, args] request is waiting in the result region.
	SignalHostCall
	// SignalNativeResult means the result of a native call is in the result region.
	SignalNativeResult
	// SignalNativeError means a native call failed; the result region holds a
	// String with the error message.
	SignalNativeError
)

func (s Signal) String() string {
	switch s {
	case SignalNone:
		return "none"
	case SignalHostCall:
		return "host-call"
	case SignalNativeResult:
		return "native-result"
	case SignalNativeError:
		return "native-error"
	default:
		return fmt.Sprintf("signal(%d)", uint8(s))
	}
}
