package gate_test

import (
	"context"
	"testing"

	"github.com/xraph/feeledger/gate"
)

func TestStatic(t *testing.T) {
	g := gate.Static{gate.ApportionFeature: true, "other": false}
	ctx := context.Background()

	if !g.Enabled(ctx, gate.ApportionFeature) {
		t.Error("expected apportion feature to be enabled")
	}
	if g.Enabled(ctx, "other") {
		t.Error("expected other to be disabled")
	}
	if g.Enabled(ctx, "missing") {
		t.Error("unknown flags default to disabled")
	}
}

func TestFunc(t *testing.T) {
	var asked string
	g := gate.Func(func(_ context.Context, flag string) bool {
		asked = flag
		return flag == gate.ApportionFeature
	})

	if !g.Enabled(context.Background(), gate.ApportionFeature) {
		t.Error("expected true from adapter")
	}
	if asked != gate.ApportionFeature {
		t.Errorf("adapter saw flag %q", asked)
	}
	if g.Enabled(context.Background(), "other") {
		t.Error("expected false for other flag")
	}
}
