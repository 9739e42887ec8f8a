// Package wire defines the fixed, bit-exact datagram exchanged between the
// scheduler and a runtime process. Both directions use the same layout so a
// reply can be built by mutating a copy of the packet that triggered it.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// State is a runtime's position in the lifecycle state machine. Values are
// wire-stable: a runtime and the scheduler must agree on these integers even
// though they are built from different source trees.
type State int32

const (
	StateInitialize State = iota
	StateNeedProfile
	StateSubgraphCreate
	StateInvoke
	StateBlocked
	StateTerminate
)

func (s State) String() string {
	switch s {
	case StateInitialize:
		return "Initialize"
	case StateNeedProfile:
		return "NeedProfile"
	case StateSubgraphCreate:
		return "SubgraphCreate"
	case StateInvoke:
		return "Invoke"
	case StateBlocked:
		return "Blocked"
	case StateTerminate:
		return "Terminate"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Resource is a compute target a runtime asks to invoke its current
// subgraph on.
type Resource int32

const (
	ResourceCPU Resource = iota
	ResourceGPU
	ResourceCoExecute
	ResourceNone
)

func (r Resource) String() string {
	switch r {
	case ResourceCPU:
		return "CPU"
	case ResourceGPU:
		return "GPU"
	case ResourceCoExecute:
		return "CoExecute"
	case ResourceNone:
		return "None"
	default:
		return fmt.Sprintf("Resource(%d)", int32(r))
	}
}

const (
	// MaxLatencySamples is the fixed capacity of the per-layer latency
	// table. A runtime terminates its report early with LatencyEnd.
	MaxLatencySamples = 1000

	// MaxPlanEntries is the fixed capacity of the partitioning plan table,
	// sized generously above the largest row count the reference table
	// produces (nine rows, for the 68-layer YOLOv4-tiny variant) so new
	// shapes can be added without growing the wire layout.
	MaxPlanEntries = 16

	// LatencyEnd marks the end of the latency vector; everything at or
	// after this index is unused by the sender.
	LatencyEnd float32 = -1.0

	// EndPlan marks the row after a partitioning plan's last real entry.
	// No valid layer index can take this value.
	EndPlan int32 = -1

	// EndMaster marks the end of a plan list carrying more than one plan.
	// The scheduler never emits more than one plan per reply, but the
	// sentinel is reserved on the wire for runtimes that do.
	EndMaster int32 = -2
)

// planColumns is the row width of the partitioning plan table: first layer,
// last layer (exclusive), resource, ratio.
const planColumns = 4

// PlanEntry is one contiguous subgraph of a partitioning plan.
type PlanEntry struct {
	FirstLayer int32
	LastLayer  int32 // exclusive
	Resource   Resource
	Ratio      int32
}

// Packet is the on-wire record exchanged in both directions over the
// scheduler's datagram endpoint. Its layout is fixed size and must not
// change field order or width: a short or long datagram is a protocol
// error, not a version to negotiate.
type Packet struct {
	RuntimeID        int32
	CurrentState     State
	NextState        State
	CurGraphResource Resource
	Latency          [MaxLatencySamples]float32
	Plan             [MaxPlanEntries][planColumns]int32
}

// Size is the exact byte length of a marshaled Packet.
var Size = binary.Size(Packet{})

// Marshal encodes p into the fixed-size wire representation.
func (p *Packet) Marshal() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, Size))
	if err := binary.Write(buf, binary.LittleEndian, p); err != nil {
		return nil, fmt.Errorf("wire: marshal packet: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes b into p. b must be exactly Size bytes; anything else is
// a protocol error per the fixed-datagram contract.
func (p *Packet) Unmarshal(b []byte) error {
	if len(b) != Size {
		return fmt.Errorf("wire: malformed packet: got %d bytes, want %d", len(b), Size)
	}
	return binary.Read(bytes.NewReader(b), binary.LittleEndian, p)
}

// SetLatency fills the fixed latency table from samples, appending the
// LatencyEnd sentinel. samples must not itself contain the sentinel.
func (p *Packet) SetLatency(samples []float32) error {
	if len(samples) >= MaxLatencySamples {
		return fmt.Errorf("wire: %d latency samples exceed capacity %d", len(samples), MaxLatencySamples)
	}
	p.Latency = [MaxLatencySamples]float32{}
	copy(p.Latency[:], samples)
	p.Latency[len(samples)] = LatencyEnd
	return nil
}

// LayerCount returns the number of entries preceding the LatencyEnd
// sentinel in the packet's latency table, i.e. the reported model's layer
// count. It returns -1 if no sentinel is present.
func (p *Packet) LayerCount() int {
	for i, v := range p.Latency {
		if v == LatencyEnd {
			return i
		}
	}
	return -1
}

// SetPlan fills the fixed plan table from entries, appending the EndPlan
// sentinel. It returns an error if entries does not fit.
func (p *Packet) SetPlan(entries []PlanEntry) error {
	if len(entries) >= MaxPlanEntries {
		return fmt.Errorf("wire: %d plan entries exceed capacity %d", len(entries), MaxPlanEntries)
	}
	p.Plan = [MaxPlanEntries][planColumns]int32{}
	for i, e := range entries {
		p.Plan[i] = [planColumns]int32{e.FirstLayer, e.LastLayer, int32(e.Resource), e.Ratio}
	}
	p.Plan[len(entries)][0] = EndPlan
	return nil
}

// PlanEntries decodes the fixed plan table back into an ordered slice,
// stopping at the first EndPlan or EndMaster row.
func (p *Packet) PlanEntries() []PlanEntry {
	entries := make([]PlanEntry, 0, MaxPlanEntries)
	for _, row := range p.Plan {
		if row[0] == EndPlan || row[0] == EndMaster {
			break
		}
		entries = append(entries, PlanEntry{
			FirstLayer: row[0],
			LastLayer:  row[1],
			Resource:   Resource(row[2]),
			Ratio:      row[3],
		})
	}
	return entries
}
