package device

import (
	"fmt"
	"sync"

	"github.com/intel/forGoParallel/parallel"
)

// Execute launches a kernel over ceil(totalWork/groupSize) workgroups of
// groupSize threads each, giving every group localMem bytes of private
// scratch. The launch is issued on the context's control stream and Execute
// does not return until every group has finished, so consecutive Execute
// calls are full barriers relative to each other.
//
// A totalWork of zero is a no-op. A groupSize of zero selects the device
// default. Launch parameters that exceed the context's capability limits
// fail the same way a real device driver would, before any group runs.
func (ctx *cpuContext) Execute(k Kernel, totalWork, groupSize, localMem int) error {
	if k == nil {
		return NewInvalidArgError("Execute", "nil kernel")
	}
	if totalWork < 0 || localMem < 0 {
		return NewInvalidArgError("Execute", "negative launch parameter")
	}
	if totalWork == 0 {
		// Submit an empty task to preserve stream ordering.
		ctx.stream.Submit(func() {})
		ctx.stream.Synchronize()
		return nil
	}
	if groupSize <= 0 {
		groupSize = DefaultGroupSize
		if groupSize > ctx.limits.MaxWorkgroupSize {
			groupSize = ctx.limits.MaxWorkgroupSize
		}
	}
	if groupSize > ctx.limits.MaxWorkgroupSize {
		return NewExecutionError("Execute",
			fmt.Sprintf("workgroup size %d exceeds device limit %d", groupSize, ctx.limits.MaxWorkgroupSize), nil)
	}
	if localMem > ctx.limits.MaxLocalMemory {
		return NewExecutionError("Execute",
			fmt.Sprintf("local memory request %d exceeds device limit %d", localMem, ctx.limits.MaxLocalMemory), nil)
	}

	numGroups := (totalWork + groupSize - 1) / groupSize

	var (
		errMu    sync.Mutex
		firstErr error
	)
	setErr := func(err error) {
		errMu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		errMu.Unlock()
	}

	ctx.stream.Submit(func() {
		parallel.Range(0, numGroups, 0, func(low, high int) {
			// One scratch slice per worker; groups within a worker's range
			// run sequentially so they can share it.
			var local []byte
			if localMem > 0 {
				local = make([]byte, localMem)
			}
			for g := low; g < high; g++ {
				if err := runGroup(k, Group{ID: g, Count: numGroups, Size: groupSize, Local: local}); err != nil {
					setErr(err)
					return
				}
			}
		})
	})
	ctx.stream.Synchronize()

	errMu.Lock()
	defer errMu.Unlock()
	return firstErr
}

// runGroup invokes one workgroup, converting a kernel panic into an
// execution error instead of tearing down the process.
func runGroup(k Kernel, g Group) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewExecutionError("Execute", fmt.Sprintf("kernel panic in group %d: %v", g.ID, r), nil)
		}
	}()
	return k(g)
}
