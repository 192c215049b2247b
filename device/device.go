// Package device provides the accelerator execution context gudasort runs on.
// It models a data-parallel device in the CUDA mold: linear device buffers,
// workgroup kernel launches with per-group local memory, and an ordered
// control stream. The reference implementation executes on the CPU, fanning
// workgroups out over goroutines.
//
// Example usage:
//
//	ctx := device.NewContext()
//	defer ctx.Close()
//
//	buf, _ := ctx.NewBuffer(1024, 8) // 1024 records of 8 bytes
//	defer ctx.Free(buf)
//
//	err := ctx.Execute(myKernel, 1024, 256, 0)
package device

import (
	"runtime"
	"sync"
)

// Limits reports the device capability bounds that drive kernel sizing.
type Limits struct {
	MaxWorkgroupSize int // maximum threads per workgroup
	MaxLocalMemory   int // bytes of local scratch available to one workgroup
}

// Info describes a compute device.
type Info struct {
	Name     string // human-readable device name
	Cores    int    // number of independent compute units
	TotalMem uint64 // total device memory in bytes
	SIMD     string // widest SIMD extension available ("AVX512", "AVX2", ...)
}

// Group identifies one workgroup of a kernel launch. Size is the number of
// threads the launch requested per group; Local is the group's private
// scratch slice, nil when the launch asked for no local memory.
type Group struct {
	ID    int
	Count int
	Size  int
	Local []byte
}

// Kernel is the body of one workgroup. The device invokes it once per group;
// invocations for distinct groups may run concurrently, so a kernel must not
// write shared state except through atomics.
type Kernel func(g Group) error

// Buffer is fixed-length, fixed-element-size linear device storage.
type Buffer interface {
	Len() int
	ElemSize() int
	Bytes() []byte
}

// Context is an accelerator execution context: capability queries, buffer
// allocation, and kernel dispatch. A Context owns its memory pool and its
// control stream; launches issued through Execute are ordered and each
// launch completes before Execute returns.
type Context interface {
	Device() Info
	Limits() Limits
	NewBuffer(length, elemSize int) (Buffer, error)
	ClearBuffer(b Buffer) error
	Execute(k Kernel, totalWork, groupSize, localMem int) error
	Free(b Buffer) error
	Close() error
}

// Stream is an ordered sequence of device operations. Tasks submitted to a
// stream execute in submission order on a dedicated worker.
type Stream struct {
	tasks chan func()
	done  chan struct{}
	wg    sync.WaitGroup
}

type cpuContext struct {
	info   Info
	limits Limits
	memory *MemoryPool
	stream *Stream
}

// NewContext returns a CPU-backed execution context with the default
// capability limits from config.go.
func NewContext() Context {
	return NewContextWithLimits(Limits{
		MaxWorkgroupSize: MaxWorkgroupSize,
		MaxLocalMemory:   LocalMemorySize,
	})
}

// NewContextWithLimits returns a CPU-backed context that reports the given
// capability limits. Shrinking the limits changes how callers size their
// launches but not how the CPU schedules them; it exists so capability-driven
// code paths can be exercised deterministically.
func NewContextWithLimits(l Limits) Context {
	return &cpuContext{
		info: Info{
			Name:     "CPU",
			Cores:    runtime.NumCPU(),
			TotalMem: getSystemMemory(),
			SIMD:     BestSIMD(),
		},
		limits: l,
		memory: NewMemoryPool(),
		stream: newStream(),
	}
}

func (ctx *cpuContext) Device() Info {
	return ctx.info
}

func (ctx *cpuContext) Limits() Limits {
	return ctx.limits
}

// NewBuffer allocates device storage for length elements of elemSize bytes.
func (ctx *cpuContext) NewBuffer(length, elemSize int) (Buffer, error) {
	if length < 0 || elemSize <= 0 {
		return nil, NewInvalidArgError("NewBuffer", "length must be non-negative and element size positive")
	}
	ptr, err := ctx.memory.Allocate(length * elemSize)
	if err != nil {
		return nil, err
	}
	return &cpuBuffer{ptr: ptr, length: length, elemSize: elemSize}, nil
}

// ClearBuffer zero-fills a device buffer on the control stream.
func (ctx *cpuContext) ClearBuffer(b Buffer) error {
	if b == nil {
		return NewInvalidArgError("ClearBuffer", "nil buffer")
	}
	ctx.stream.Submit(func() {
		clear(b.Bytes())
	})
	ctx.stream.Synchronize()
	return nil
}

// Free returns a buffer's storage to the context's memory pool.
func (ctx *cpuContext) Free(b Buffer) error {
	if b == nil {
		return nil
	}
	cb, ok := b.(*cpuBuffer)
	if !ok {
		return NewInvalidArgError("Free", "buffer was not allocated by this context")
	}
	return ctx.memory.Free(cb.ptr)
}

// Close shuts down the control stream. Buffers still held by callers remain
// valid; Close does not reclaim them.
func (ctx *cpuContext) Close() error {
	ctx.stream.Synchronize()
	ctx.stream.close()
	return nil
}

// newStream creates a stream with a running worker goroutine.
func newStream() *Stream {
	s := &Stream{
		tasks: make(chan func(), streamQueueDepth),
		done:  make(chan struct{}),
	}
	go s.worker()
	return s
}

// worker processes tasks for a stream.
func (s *Stream) worker() {
	for task := range s.tasks {
		task()
		s.wg.Done()
	}
	close(s.done)
}

// Submit adds a task to the stream.
func (s *Stream) Submit(task func()) {
	s.wg.Add(1)
	s.tasks <- task
}

// Synchronize waits for all submitted tasks to complete.
func (s *Stream) Synchronize() {
	s.wg.Wait()
}

func (s *Stream) close() {
	close(s.tasks)
	<-s.done
}
