// Package registry tracks every runtime process that has registered with
// the scheduler: its assigned id, lifecycle state, and return address.
package registry

import (
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/edge-infer/scheduler/wire"
)

// Runtime is one connected peer, as the scheduler knows it.
type Runtime struct {
	ID            int32
	State         wire.State
	ReturnAddress *net.UnixAddr

	// LastReportedLatencies holds the per-layer samples from the
	// runtime's most recent profile report, without the terminating
	// sentinel.
	LastReportedLatencies []float32
}

// Registry is the set of runtimes known to the scheduler, keyed by id. It
// is touched only by the single controller goroutine, but guards its state
// with a mutex so tests and future concurrent callers don't have to reason
// about that by convention alone.
type Registry struct {
	mu      sync.Mutex
	nextID  int32
	runtime map[int32]*Runtime
}

// New returns an empty Registry with ids starting at 0.
func New() *Registry {
	return &Registry{runtime: make(map[int32]*Runtime)}
}

// Register allocates the next id for a newly seen runtime at addr and
// records it in state Initialize. Ids are assigned in registration order
// and are never reused for the lifetime of the process.
func (r *Registry) Register(addr *net.UnixAddr) *Runtime {
	r.mu.Lock()
	defer r.mu.Unlock()

	rt := &Runtime{
		ID:            r.nextID,
		State:         wire.StateInitialize,
		ReturnAddress: addr,
	}
	r.runtime[rt.ID] = rt
	r.nextID++
	return rt
}

// KnownID reports whether id has already been assigned. Used to detect a
// duplicate Initialize from a runtime that already carries a scheduler id;
// the controller warns about it and then registers the runtime again.
func (r *Registry) KnownID(id int32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.runtime[id]
	return ok
}

// UpdateState advances a known runtime's state. It reports an error for an
// unknown id so the caller can log and drop the packet instead of crashing.
func (r *Registry) UpdateState(id int32, state wire.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rt, ok := r.runtime[id]
	if !ok {
		return fmt.Errorf("registry: unknown runtime %d", id)
	}
	rt.State = state
	return nil
}

// SetLatencies records the per-layer samples from a runtime's profile
// report, replacing any previous report.
func (r *Registry) SetLatencies(id int32, samples []float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rt, ok := r.runtime[id]
	if !ok {
		return fmt.Errorf("registry: unknown runtime %d", id)
	}
	rt.LastReportedLatencies = samples
	return nil
}

// Lookup returns a copy of the runtime record for id, or false if no such
// runtime is registered.
func (r *Registry) Lookup(id int32) (Runtime, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rt, ok := r.runtime[id]
	if !ok {
		return Runtime{}, false
	}
	return *rt, true
}

// Remove deletes a runtime from the registry. The controller calls it on
// Terminate only; a failed send to a runtime does not remove it.
func (r *Registry) Remove(id int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.runtime, id)
}

// Len returns the number of currently registered runtimes.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runtime)
}

// Snapshot returns a point-in-time copy of every registered runtime,
// for diagnostics only; nothing in the scheduler's decision path reads
// it back.
func (r *Registry) Snapshot() []Runtime {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Runtime, 0, len(r.runtime))
	for _, rt := range r.runtime {
		out = append(out, *rt)
	}
	return out
}

// LogStates logs one line per registered runtime at debug level, the
// slog equivalent of the reference scheduler's PrintRuntimeStates dump.
func (r *Registry) LogStates() {
	snap := r.Snapshot()
	slog.Debug("runtime registry snapshot", "count", len(snap))
	for _, rt := range snap {
		slog.Debug("runtime state", "runtime_id", rt.ID, "state", rt.State, "return_address", rt.ReturnAddress)
	}
}

// AllInState reports whether every registered runtime is currently in
// state. An empty registry vacuously satisfies this, matching the
// reference's bootstrap barrier semantics for the degenerate case.
func (r *Registry) AllInState(state wire.State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rt := range r.runtime {
		if rt.State != state {
			return false
		}
	}
	return true
}

// LogWarnDuplicate logs the warning the reference scheduler emits when a
// runtime that already carries an id sends another Initialize.
func LogWarnDuplicate(id int32) {
	slog.Warn("runtime already registered, registering duplicate Initialize again", "runtime_id", id)
}
