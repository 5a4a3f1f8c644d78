// Package example is a sample native module exporting solveQuadratic.
package example

import (
	"context"
	"math"

	"github.com/woxQAQ/pnbridge/internal/codec"
	"github.com/woxQAQ/pnbridge/internal/module"
	"github.com/woxQAQ/pnbridge/internal/registry"
	"github.com/woxQAQ/pnbridge/pkg/protocol"
	"go.uber.org/zap"
)

const (
	// Name is the module name.
	Name = "example"

	// SolveQuadratic is the exported function name.
	SolveQuadratic = "solveQuadratic"

	// PrintRoots is the host function solveQuadratic reports its roots to.
	PrintRoots = "printRoots"

	// epsilon is the discriminant magnitude below which the two roots are
	// treated as one.
	epsilon = 1e-5
)

// Module is the example module.
type Module struct{}

var _ module.Module = (*Module)(nil)

// New returns the example module.
func New() *Module {
	return &Module{}
}

// Name implements module.Module.
func (*Module) Name() string {
	return Name
}

// Init implements module.Module.
func (*Module) Init(context.Context, registry.Host) error {
	return nil
}

// Exports implements module.Module.
func (*Module) Exports() map[string]registry.Handler {
	return map[string]registry.Handler{
		SolveQuadratic: solveQuadratic,
	}
}

// Roots returns the real roots of a·x² + b·x + c = 0 with the
// (-b + √d) root first. A discriminant within epsilon of zero yields one root.
func Roots(a, b, c float64) []float64 {
	d := b*b - 4*a*c
	switch {
	case d < 0:
		return nil
	case math.Abs(d) <= epsilon:
		return []float64{-b / (2 * a)}
	default:
		sq := math.Sqrt(d)
		return []float64{(-b + sq) / (2 * a), (-b - sq) / (2 * a)}
	}
}

// solveQuadratic reads a, b and c, passes the roots as arguments to the
// host's printRoots and returns Undefined once the host has answered.
func solveQuadratic(ctx context.Context, call *registry.Call, args *codec.Buffer) (protocol.Value, error) {
	var coeffs [3]float64
	for i := range coeffs {
		f, err := args.ReadReal()
		if err != nil {
			return protocol.Undefined(), err
		}
		coeffs[i] = f
	}

	roots := Roots(coeffs[0], coeffs[1], coeffs[2])
	call.Logger.Debug("Solved quadratic",
		zap.Float64s("coefficients", coeffs[:]),
		zap.Float64s("roots", roots),
	)

	if _, err := call.Host.CallHost(ctx, PrintRoots, protocol.Reals(roots...)...); err != nil {
		return protocol.Undefined(), err
	}

	return protocol.Undefined(), nil
}
