// Package gate provides the boolean feature lookup consulted by callers
// before invoking allocation. The engine itself never reads flags; the gate
// only decides whether the caller triggers apportionment at all.
package gate

import "context"

// ApportionFeature is the flag name gating apportionment-aware behavior at
// the API boundary.
const ApportionFeature = "apportion-feature"

// Gate answers whether a named feature flag is enabled.
type Gate interface {
	Enabled(ctx context.Context, flag string) bool
}

// Static is a fixed flag map, useful for tests and simple deployments.
type Static map[string]bool

// Enabled implements Gate.
func (s Static) Enabled(_ context.Context, flag string) bool { return s[flag] }

// Func is an adapter to use a plain function as a Gate, e.g. bridging to a
// remote flag provider at wiring time.
type Func func(ctx context.Context, flag string) bool

// Enabled implements Gate.
func (f Func) Enabled(ctx context.Context, flag string) bool { return f(ctx, flag) }
