package device

import (
	"sync"
	"unsafe"
)

// MemoryPool manages device memory allocation with efficient reuse.
// It maintains a free list of previously allocated blocks to reduce
// allocation overhead and memory fragmentation.
type MemoryPool struct {
	mu         sync.Mutex
	allocated  map[uintptr]*allocation
	freeList   []*allocation
	totalAlloc int64
	peakAlloc  int64
}

type allocation struct {
	buf  []byte
	ptr  unsafe.Pointer
	size int
	used bool
}

// NewMemoryPool creates a new memory pool for device buffer storage.
func NewMemoryPool() *MemoryPool {
	return &MemoryPool{
		allocated: make(map[uintptr]*allocation),
	}
}

// Allocate allocates memory from the pool, reusing a free block when one is
// large enough. Returned memory is aligned for SIMD access.
func (mp *MemoryPool) Allocate(size int) (DevicePtr, error) {
	if size < 0 {
		return DevicePtr{}, ErrInvalidSize
	}
	mp.mu.Lock()
	defer mp.mu.Unlock()

	alignedSize := (size + MemoryAlignment - 1) &^ (MemoryAlignment - 1)
	if alignedSize < MinAllocationSize {
		alignedSize = MinAllocationSize
	}

	// Try to reuse from the free list first.
	for i, alloc := range mp.freeList {
		if alloc.size >= alignedSize {
			mp.freeList = append(mp.freeList[:i], mp.freeList[i+1:]...)
			alloc.used = true

			mp.totalAlloc += int64(alloc.size)
			if mp.totalAlloc > mp.peakAlloc {
				mp.peakAlloc = mp.totalAlloc
			}
			return DevicePtr{ptr: alloc.ptr, size: size}, nil
		}
	}

	buf := make([]byte, alignedSize)
	var ptr unsafe.Pointer
	if alignedSize > 0 {
		ptr = unsafe.Pointer(&buf[0])
	}

	alloc := &allocation{
		buf:  buf,
		ptr:  ptr,
		size: alignedSize,
		used: true,
	}
	mp.allocated[uintptr(ptr)] = alloc

	mp.totalAlloc += int64(alignedSize)
	if mp.totalAlloc > mp.peakAlloc {
		mp.peakAlloc = mp.totalAlloc
	}

	return DevicePtr{ptr: ptr, size: size}, nil
}

// Free returns memory to the pool for future reuse.
func (mp *MemoryPool) Free(ptr DevicePtr) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	alloc, ok := mp.allocated[uintptr(ptr.ptr)]
	if !ok {
		return NewMemoryError("Free", "pointer not found in allocation pool", nil)
	}
	if !alloc.used {
		return ErrDoubleFree
	}

	alloc.used = false
	mp.freeList = append(mp.freeList, alloc)
	mp.totalAlloc -= int64(alloc.size)
	return nil
}

// Stats returns the currently allocated and peak byte counts.
func (mp *MemoryPool) Stats() (allocated, peak int64) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.totalAlloc, mp.peakAlloc
}

// DevicePtr is a pointer into pool-managed device memory. Typed slice views
// give direct access to the underlying storage.
type DevicePtr struct {
	ptr  unsafe.Pointer
	size int
}

// Byte returns a byte slice view covering the pointed-to region.
func (d DevicePtr) Byte() []byte {
	if d.ptr == nil {
		return nil
	}
	return unsafe.Slice((*byte)(d.ptr), d.size)
}

// Uint32 returns a uint32 slice view of the region. The region size must be
// a multiple of 4 bytes.
func (d DevicePtr) Uint32() []uint32 {
	if d.ptr == nil {
		return nil
	}
	return unsafe.Slice((*uint32)(d.ptr), d.size/4)
}

// Size returns the size in bytes of the region.
func (d DevicePtr) Size() int {
	return d.size
}

// cpuBuffer is the CPU context's Buffer: a DevicePtr plus element geometry.
type cpuBuffer struct {
	ptr      DevicePtr
	length   int
	elemSize int
}

func (b *cpuBuffer) Len() int      { return b.length }
func (b *cpuBuffer) ElemSize() int { return b.elemSize }
func (b *cpuBuffer) Bytes() []byte { return b.ptr.Byte()[:b.length*b.elemSize] }

// Uint32s views a buffer of 4-byte elements as a uint32 slice.
func Uint32s(b Buffer) []uint32 {
	bytes := b.Bytes()
	if len(bytes) == 0 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&bytes[0])), len(bytes)/4)
}
