package partition

import "github.com/edge-infer/scheduler/wire"

// shapeTable maps a reported layer count to the hard-coded partitioning
// plan for the model shape it fingerprints. These numbers are not derived;
// they are offline measurements carried over from the reference scheduler
// and must be reproduced bit-for-bit.
//
// Known shapes, by layer count:
//
//	  9  MNIST
//	 31  MobileNet-V1/224 (dynamic delegate variant)
//	123  MobileNet-V3/224 (slim export)
//	124  MobileNet-V3/224 (TF model hub export)
//	 52  Ultra-Fast-LaneNet (FP32)
//	 54  Ultra-Fast-LaneNet (int8)
//	 59  YOLO-v4-tiny (pinto export, CPU debug plan)
//	 68  YOLO-v4-tiny (CPU export, quantized)
//	118  EfficientNet-Lite4
//	152  YOLO-v4-tiny-IEIE (multi-delegate HW/CW plan)
var shapeTable = map[int][]wire.PlanEntry{
	9: {
		{FirstLayer: 0, LastLayer: 1, Resource: wire.ResourceCoExecute, Ratio: 2},
		{FirstLayer: 1, LastLayer: 9, Resource: wire.ResourceGPU, Ratio: 0},
	},
	31: {
		{FirstLayer: 0, LastLayer: 27, Resource: wire.ResourceCoExecute, Ratio: 18},
		{FirstLayer: 27, LastLayer: 29, Resource: wire.ResourceCoExecute, Ratio: 8},
		{FirstLayer: 29, LastLayer: 31, Resource: wire.ResourceCPU, Ratio: 0},
	},
	123: {
		{FirstLayer: 0, LastLayer: 123, Resource: wire.ResourceCPU, Ratio: 0},
	},
	124: {
		{FirstLayer: 0, LastLayer: 124, Resource: wire.ResourceGPU, Ratio: 0},
	},
	52: {
		{FirstLayer: 0, LastLayer: 47, Resource: wire.ResourceCoExecute, Ratio: 15},
		{FirstLayer: 47, LastLayer: 52, Resource: wire.ResourceCPU, Ratio: 0},
	},
	// 54 reuses the 52-layer plan verbatim from the reference scheduler,
	// which never extended it to cover the last two layers of the int8
	// export. Preserved as-is: see DESIGN.md.
	54: {
		{FirstLayer: 0, LastLayer: 47, Resource: wire.ResourceCoExecute, Ratio: 15},
		{FirstLayer: 47, LastLayer: 52, Resource: wire.ResourceCPU, Ratio: 0},
	},
	59: {
		{FirstLayer: 0, LastLayer: 59, Resource: wire.ResourceCPU, Ratio: 0},
	},
	68: {
		{FirstLayer: 0, LastLayer: 8, Resource: wire.ResourceCPU, Ratio: 0},
		{FirstLayer: 8, LastLayer: 9, Resource: wire.ResourceCPU, Ratio: 0},
		{FirstLayer: 9, LastLayer: 21, Resource: wire.ResourceCPU, Ratio: 0},
		{FirstLayer: 21, LastLayer: 23, Resource: wire.ResourceCPU, Ratio: 0},
		{FirstLayer: 23, LastLayer: 36, Resource: wire.ResourceCPU, Ratio: 0},
		{FirstLayer: 36, LastLayer: 38, Resource: wire.ResourceCPU, Ratio: 0},
		{FirstLayer: 38, LastLayer: 58, Resource: wire.ResourceCPU, Ratio: 0},
		{FirstLayer: 58, LastLayer: 65, Resource: wire.ResourceCPU, Ratio: 0},
		{FirstLayer: 65, LastLayer: 68, Resource: wire.ResourceCPU, Ratio: 0},
	},
	118: {
		{FirstLayer: 0, LastLayer: 114, Resource: wire.ResourceCoExecute, Ratio: 18},
		{FirstLayer: 114, LastLayer: 118, Resource: wire.ResourceGPU, Ratio: 0},
	},
	152: {
		{FirstLayer: 0, LastLayer: 8, Resource: wire.ResourceCoExecute, Ratio: 15},
		{FirstLayer: 8, LastLayer: 9, Resource: wire.ResourceCPU, Ratio: 0},
		{FirstLayer: 9, LastLayer: 20, Resource: wire.ResourceCoExecute, Ratio: 15},
		{FirstLayer: 20, LastLayer: 21, Resource: wire.ResourceCPU, Ratio: 0},
		{FirstLayer: 21, LastLayer: 32, Resource: wire.ResourceCoExecute, Ratio: 15},
		{FirstLayer: 32, LastLayer: 33, Resource: wire.ResourceCPU, Ratio: 0},
		{FirstLayer: 33, LastLayer: 55, Resource: wire.ResourceGPU, Ratio: 0},
		{FirstLayer: 55, LastLayer: 152, Resource: wire.ResourceCPU, Ratio: 0},
	},
}

// fallbackPlan is emitted for any layer count absent from shapeTable: do
// nothing useful, but do not crash the runtime.
var fallbackPlan = []wire.PlanEntry{
	{FirstLayer: 0, LastLayer: 0, Resource: wire.ResourceCPU, Ratio: 0},
}
