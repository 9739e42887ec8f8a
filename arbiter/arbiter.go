// Package arbiter decides which runtime may acquire CPU or GPU next. It
// enforces two rules: a bootstrap barrier (no grants until every registered
// runtime has reached the Invoke state) and round-robin fairness (the
// runtime that last held a resource may not immediately reclaim it).
package arbiter

import (
	"log/slog"
	"sync"

	"github.com/emirpasic/gods/v2/queues/linkedlistqueue"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/edge-infer/scheduler/registry"
	"github.com/edge-infer/scheduler/telemetry"
	"github.com/edge-infer/scheduler/wire"
)

// resourceState is the per-resource arbitration state: whether it is
// currently held, and the FIFO of recent owners used for anti-starvation.
type resourceState struct {
	inUse bool
	queue *linkedlistqueue.Queue[int32]
}

// Arbiter mediates access to the CPU and GPU. CoExecute requests are routed
// to a single primary resource rather than arbitrated as a separate
// resource; see ResourceFor.
type Arbiter struct {
	reg *registry.Registry

	mu        sync.Mutex
	resources map[wire.Resource]*resourceState

	// holders records, for each runtime currently granted a resource, which
	// resource it holds. It exists so a release decision can be keyed on a
	// runtime's own bookkeeping instead of trusting fields an inbound packet
	// may leave at their zero value.
	holders map[int32]wire.Resource

	grants  *prometheus.CounterVec
	denials *prometheus.CounterVec
}

// New returns an Arbiter that consults reg to enforce the bootstrap
// barrier: grants are refused until every runtime reg knows about has
// reached wire.StateInvoke.
func New(reg *registry.Registry) *Arbiter {
	return &Arbiter{
		reg: reg,
		resources: map[wire.Resource]*resourceState{
			wire.ResourceCPU: {queue: linkedlistqueue.New[int32]()},
			wire.ResourceGPU: {queue: linkedlistqueue.New[int32]()},
		},
		holders: make(map[int32]wire.Resource),
		grants:  telemetry.NewCounterVec("arbiter", "grants_total", "Resource acquisitions granted, by resource.", "resource"),
		denials: telemetry.NewCounterVec("arbiter", "denials_total", "Resource acquisitions denied, by resource and reason.", "resource", "reason"),
	}
}

// ResourceFor maps a requested resource to the one actually arbitrated.
// CoExecute is not its own resource: the reference scheduler branches on it
// but never arbitrates it separately, so a CoExecute request is treated as
// a request for the CPU, the primary resource in a co-execution subgraph.
func ResourceFor(requested wire.Resource) wire.Resource {
	if requested == wire.ResourceCoExecute {
		return wire.ResourceCPU
	}
	return requested
}

// Acquire decides whether runtimeID may proceed on requested right now.
//
// Before every registered runtime has reached Invoke, every call returns
// false: the round-robin only starts once the participant set is stable.
// After that:
//
//  1. if the resource has no recent owner, runtimeID becomes the first
//     owner and is granted immediately;
//  2. if runtimeID was the most recent owner, it is denied so a distinct
//     contender gets a turn;
//  3. otherwise it is granted only if the resource is not currently in
//     use, at which point it replaces the front of the queue and the
//     resource becomes in-use.
func (a *Arbiter) Acquire(requested wire.Resource, runtimeID int32) bool {
	resource := ResourceFor(requested)

	if !a.reg.AllInState(wire.StateInvoke) {
		a.deny(resource, "bootstrap_barrier")
		return false
	}

	rs, ok := a.resources[resource]
	if !ok {
		a.deny(resource, "unsupported_resource")
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// A runtime asking for a different resource than the one it already
	// holds has implicitly let go of the old one; release it before
	// evaluating the new request.
	if held, ok := a.holders[runtimeID]; ok && held != resource {
		a.releaseLocked(held)
	}

	if rs.queue.Empty() {
		rs.queue.Enqueue(runtimeID)
		rs.inUse = true
		a.holders[runtimeID] = resource
		a.grant(resource, runtimeID)
		return true
	}

	front, _ := rs.queue.Peek()
	if front == runtimeID {
		a.deny(resource, "last_owner_must_yield")
		return false
	}

	if rs.inUse {
		a.deny(resource, "in_use")
		return false
	}

	rs.queue.Dequeue()
	rs.queue.Enqueue(runtimeID)
	rs.inUse = true
	a.holders[runtimeID] = resource
	a.grant(resource, runtimeID)
	return true
}

// Release clears the in-use flag for resource, making it available to the
// next distinct contender in the queue.
func (a *Arbiter) Release(requested wire.Resource) {
	resource := ResourceFor(requested)

	a.mu.Lock()
	defer a.mu.Unlock()

	a.releaseLocked(resource)
}

// ReleaseHeld releases whatever resource runtimeID currently holds, if
// any; a no-op for a runtime holding nothing. The lifecycle controller
// calls this on Terminate so the release target comes from the Arbiter's
// own bookkeeping rather than a field on the outgoing packet.
func (a *Arbiter) ReleaseHeld(runtimeID int32) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if resource, ok := a.holders[runtimeID]; ok {
		a.releaseLocked(resource)
	}
}

// releaseLocked clears in_use for resource and forgets whichever runtime
// holders currently credits with it. Callers must hold a.mu.
func (a *Arbiter) releaseLocked(resource wire.Resource) {
	if rs, ok := a.resources[resource]; ok {
		rs.inUse = false
	}
	for id, held := range a.holders {
		if held == resource {
			delete(a.holders, id)
		}
	}
}

func (a *Arbiter) grant(resource wire.Resource, runtimeID int32) {
	a.grants.WithLabelValues(resource.String()).Inc()
	slog.Debug("arbiter granted resource", "resource", resource, "runtime_id", runtimeID)
}

func (a *Arbiter) deny(resource wire.Resource, reason string) {
	a.denials.WithLabelValues(resource.String(), reason).Inc()
}
