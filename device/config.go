// Package device configuration constants
package device

// Capability limits reported by the CPU context. The local memory figure
// mirrors a typical per-core L1 data cache, which plays the role GPU shared
// memory plays for workgroup-local algorithms.
const (
	// MaxWorkgroupSize is the maximum threads per workgroup the CPU
	// context reports (CUDA block-size compatibility).
	MaxWorkgroupSize = 1024

	// LocalMemorySize is the per-workgroup local scratch budget in bytes.
	LocalMemorySize = 32 * 1024 // L1 cache per core

	// DefaultGroupSize is used when a launch does not request an explicit
	// workgroup size.
	DefaultGroupSize = 256
)

// Memory pool parameters
const (
	// Minimum allocation size to prevent fragmentation
	MinAllocationSize = 64

	// Memory alignment for allocations
	MemoryAlignment = 64
)

// streamQueueDepth bounds the number of pending tasks on a control stream.
const streamQueueDepth = 1000
