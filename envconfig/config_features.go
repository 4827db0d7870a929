// config_features.go - Filter-Defaults und Geraete-Konfiguration
//
// Dieses Modul enthaelt:
// - Defaults fuer Filter-Optionen (num_streams, device_id, use_cuda_graph)
// - Parallelitaet des Hosts
// - Simulierte Geraete des Referenz-Backends
package envconfig

import "runtime"

// =============================================================================
// Filter-Defaults
// =============================================================================

var (
	// NumStreams ist der Default fuer "num_streams" (Anzahl Inferenz-Instanzen)
	NumStreams = Uint("VSTRT_NUM_STREAMS", 1)

	// DeviceID ist der Default fuer "device_id"
	DeviceID = Uint("VSTRT_DEVICE", 0)

	// UseCudaGraph ist der Default fuer "use_cuda_graph"
	UseCudaGraph = Bool("VSTRT_USE_CUDA_GRAPH")
)

// =============================================================================
// Host-Parallelitaet
// =============================================================================

var (
	// Threads ist die Anzahl gleichzeitiger Frame-Requests im CLI
	// Konfigurierbar via VSTRT_THREADS
	Threads = Uint("VSTRT_THREADS", uint(runtime.NumCPU()))
)

// =============================================================================
// Referenz-Backend
// =============================================================================

var (
	// RefDevices ist die Anzahl simulierter Geraete des Referenz-Backends
	RefDevices = Uint("VSTRT_REF_DEVICES", 1)
)
