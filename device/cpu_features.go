package device

import (
	"golang.org/x/sys/cpu"
)

// CPUFeatures tracks available CPU instruction set extensions
type CPUFeatures struct {
	HasAVX     bool
	HasAVX2    bool
	HasAVX512F bool
	HasFMA     bool
	HasSSE4    bool
	HasNEON    bool
}

// Global CPU feature detection
var cpuFeatures CPUFeatures

func init() {
	detectCPUFeatures()
}

// detectCPUFeatures populates the global cpuFeatures struct
func detectCPUFeatures() {
	cpuFeatures = CPUFeatures{
		HasSSE4:    cpu.X86.HasSSE41 || cpu.X86.HasSSE42,
		HasAVX:     cpu.X86.HasAVX,
		HasAVX2:    cpu.X86.HasAVX2,
		HasAVX512F: cpu.X86.HasAVX512F,
		HasFMA:     cpu.X86.HasFMA,
		HasNEON:    cpu.ARM64.HasASIMD,
	}
}

// BestSIMD returns the widest SIMD extension available on this CPU,
// reported through Info for diagnostics.
func BestSIMD() string {
	switch {
	case cpuFeatures.HasAVX512F:
		return "AVX512"
	case cpuFeatures.HasAVX2 && cpuFeatures.HasFMA:
		return "AVX2"
	case cpuFeatures.HasAVX:
		return "AVX"
	case cpuFeatures.HasSSE4:
		return "SSE4"
	case cpuFeatures.HasNEON:
		return "NEON"
	default:
		return "scalar"
	}
}

// getSystemMemory returns total system memory in bytes.
func getSystemMemory() uint64 {
	// Conservative default; exact figures are only informational here.
	return 16 * 1024 * 1024 * 1024
}
