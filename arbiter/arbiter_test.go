package arbiter

import (
	"net"
	"testing"

	"github.com/edge-infer/scheduler/registry"
	"github.com/edge-infer/scheduler/wire"
)

func addr(path string) *net.UnixAddr {
	return &net.UnixAddr{Name: path, Net: "unixgram"}
}

func TestBootstrapBarrierBlocksUntilAllInvoke(t *testing.T) {
	reg := registry.New()
	a := New(reg)

	rtA := reg.Register(addr("/tmp/a"))
	rtB := reg.Register(addr("/tmp/b"))

	if a.Acquire(wire.ResourceCPU, rtA.ID) {
		t.Fatal("expected denial before any runtime reached Invoke")
	}

	if err := reg.UpdateState(rtA.ID, wire.StateInvoke); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}
	if a.Acquire(wire.ResourceCPU, rtA.ID) {
		t.Fatal("expected denial while runtime B has not reached Invoke")
	}

	if err := reg.UpdateState(rtB.ID, wire.StateInvoke); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}
	if !a.Acquire(wire.ResourceCPU, rtA.ID) {
		t.Fatal("expected grant once every runtime reached Invoke")
	}
}

func TestBootstrapBarrierSatisfiedBySoleRuntime(t *testing.T) {
	reg := registry.New()
	a := New(reg)

	rt := reg.Register(addr("/tmp/solo"))
	if err := reg.UpdateState(rt.ID, wire.StateInvoke); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}
	if !a.Acquire(wire.ResourceCPU, rt.ID) {
		t.Fatal("a single runtime already in Invoke should satisfy the bootstrap barrier")
	}
}

func twoRuntimesInInvoke(t *testing.T) (*registry.Registry, *Arbiter, int32, int32) {
	t.Helper()
	reg := registry.New()
	a := New(reg)
	rtA := reg.Register(addr("/tmp/a"))
	rtB := reg.Register(addr("/tmp/b"))
	if err := reg.UpdateState(rtA.ID, wire.StateInvoke); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}
	if err := reg.UpdateState(rtB.ID, wire.StateInvoke); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}
	return reg, a, rtA.ID, rtB.ID
}

func TestMutualExclusion(t *testing.T) {
	_, a, rtA, rtB := twoRuntimesInInvoke(t)

	if !a.Acquire(wire.ResourceCPU, rtA) {
		t.Fatal("first claimant should be granted CPU")
	}
	if a.Acquire(wire.ResourceCPU, rtB) {
		t.Fatal("CPU is held by A; B must be denied")
	}
}

func TestAntiStarvationRoundRobin(t *testing.T) {
	_, a, rtA, rtB := twoRuntimesInInvoke(t)

	if !a.Acquire(wire.ResourceCPU, rtA) {
		t.Fatal("A should acquire CPU first")
	}
	a.Release(wire.ResourceCPU)

	if a.Acquire(wire.ResourceCPU, rtA) {
		t.Fatal("A is the queue front and must yield to a distinct contender")
	}
	if !a.Acquire(wire.ResourceCPU, rtB) {
		t.Fatal("B should be granted CPU after A yields")
	}
}

func TestCoExecuteRoutesToCPU(t *testing.T) {
	_, a, rtA, rtB := twoRuntimesInInvoke(t)

	if !a.Acquire(wire.ResourceCoExecute, rtA) {
		t.Fatal("A should acquire the CoExecute primary resource")
	}
	if a.Acquire(wire.ResourceCPU, rtB) {
		t.Fatal("CoExecute and CPU share the same underlying resource; B must be denied")
	}
}

func TestIndependentResourcesDoNotInterfere(t *testing.T) {
	_, a, rtA, rtB := twoRuntimesInInvoke(t)

	if !a.Acquire(wire.ResourceCPU, rtA) {
		t.Fatal("A should acquire CPU")
	}
	if !a.Acquire(wire.ResourceGPU, rtB) {
		t.Fatal("B should be able to acquire GPU while A holds CPU")
	}
}

func TestAcquireDifferentResourceReleasesThePrevious(t *testing.T) {
	_, a, rtA, rtB := twoRuntimesInInvoke(t)

	if !a.Acquire(wire.ResourceCPU, rtA) {
		t.Fatal("A should acquire CPU first")
	}
	if !a.Acquire(wire.ResourceGPU, rtA) {
		t.Fatal("A switching its request to GPU should be granted")
	}
	if !a.Acquire(wire.ResourceCPU, rtB) {
		t.Fatal("A's switch away from CPU should have released it for B")
	}
}

func TestReleaseHeldReleasesWhateverResourceARuntimeHolds(t *testing.T) {
	_, a, rtA, rtB := twoRuntimesInInvoke(t)

	if !a.Acquire(wire.ResourceCPU, rtA) {
		t.Fatal("A should acquire CPU")
	}
	a.ReleaseHeld(rtA)
	if !a.Acquire(wire.ResourceCPU, rtB) {
		t.Fatal("B should be granted CPU once A's holding is released")
	}
}

func TestReleaseHeldNoOpForRuntimeHoldingNothing(t *testing.T) {
	_, a, rtA, _ := twoRuntimesInInvoke(t)
	a.ReleaseHeld(rtA)
	if !a.Acquire(wire.ResourceCPU, rtA) {
		t.Fatal("releasing a runtime holding nothing should not disturb a later acquire")
	}
}
