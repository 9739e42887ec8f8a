// Package partition turns a runtime's layer-latency profile into a
// partitioning plan: an ordered, contiguous sequence of subgraphs and the
// resource each one should run on. The table it consults is expert
// authored offline; this package only does the lookup.
package partition

import (
	"log/slog"

	"github.com/edge-infer/scheduler/wire"
)

// Partitioner matches a model's layer count (its "shape fingerprint") to a
// precomputed plan. It holds no per-runtime state: plans are produced once,
// on demand, and not cached by the scheduler after they're sent.
type Partitioner struct{}

// New returns a Partitioner. It is stateless and safe for concurrent use,
// though the scheduler only ever calls it from its single controller loop.
func New() *Partitioner {
	return &Partitioner{}
}

// Plan returns the partitioning plan for a model with layerCount layers. A
// layer count matching a known shape always produces the exact same plan;
// an unrecognized layer count produces the fallback pass-through plan.
func (*Partitioner) Plan(runtimeID int32, layerCount int) []wire.PlanEntry {
	if entries, ok := shapeTable[layerCount]; ok {
		slog.Debug("matched known model shape", "runtime_id", runtimeID, "layers", layerCount, "subgraphs", len(entries))
		return entries
	}
	slog.Debug("no known shape for layer count, using fallback plan", "runtime_id", runtimeID, "layers", layerCount)
	return fallbackPlan
}
