package wire

import (
	"reflect"
	"testing"
)

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	var p Packet
	p.RuntimeID = 3
	p.CurrentState = StateInvoke
	p.NextState = StateInvoke
	p.CurGraphResource = ResourceGPU
	if err := p.SetLatency([]float32{1.2, 3.4, 5.6}); err != nil {
		t.Fatalf("SetLatency: %v", err)
	}
	if err := p.SetPlan([]PlanEntry{
		{FirstLayer: 0, LastLayer: 1, Resource: ResourceCoExecute, Ratio: 2},
		{FirstLayer: 1, LastLayer: 9, Resource: ResourceGPU, Ratio: 0},
	}); err != nil {
		t.Fatalf("SetPlan: %v", err)
	}

	b, err := p.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if len(b) != Size {
		t.Fatalf("Marshal produced %d bytes, want %d", len(b), Size)
	}

	var got Packet
	if err := got.Unmarshal(b); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(p, got) {
		t.Fatalf("round trip mismatch:\n got=%+v\nwant=%+v", got, p)
	}
}

func TestUnmarshalRejectsWrongSize(t *testing.T) {
	var p Packet
	if err := p.Unmarshal(make([]byte, Size-1)); err == nil {
		t.Fatal("expected error for short buffer")
	}
	if err := p.Unmarshal(make([]byte, Size+1)); err == nil {
		t.Fatal("expected error for long buffer")
	}
}

func TestLayerCount(t *testing.T) {
	cases := []struct {
		name    string
		samples []float32
		want    int
	}{
		{"empty", nil, 0},
		{"mnist", make([]float32, 9), 9},
		{"mobilenet", make([]float32, 31), 31},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var p Packet
			if err := p.SetLatency(tc.samples); err != nil {
				t.Fatalf("SetLatency: %v", err)
			}
			if got := p.LayerCount(); got != tc.want {
				t.Errorf("LayerCount() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestLayerCountNoSentinel(t *testing.T) {
	var p Packet
	for i := range p.Latency {
		p.Latency[i] = 0.5
	}
	if got := p.LayerCount(); got != -1 {
		t.Errorf("LayerCount() = %d, want -1", got)
	}
}

func TestSetPlanExceedsCapacity(t *testing.T) {
	var p Packet
	entries := make([]PlanEntry, MaxPlanEntries)
	if err := p.SetPlan(entries); err == nil {
		t.Fatal("expected error when entries fill the table with no room for the sentinel")
	}
}

func TestPlanEntriesStopsAtFallbackSentinel(t *testing.T) {
	var p Packet
	if err := p.SetPlan([]PlanEntry{{FirstLayer: 0, LastLayer: 0, Resource: ResourceCPU, Ratio: 0}}); err != nil {
		t.Fatalf("SetPlan: %v", err)
	}
	got := p.PlanEntries()
	want := []PlanEntry{{FirstLayer: 0, LastLayer: 0, Resource: ResourceCPU, Ratio: 0}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("PlanEntries() = %+v, want %+v", got, want)
	}
}

func TestSetLatencyExceedsCapacity(t *testing.T) {
	var p Packet
	if err := p.SetLatency(make([]float32, MaxLatencySamples)); err == nil {
		t.Fatal("expected error when samples fill the table with no room for the sentinel")
	}
}
