package gudasort

import (
	"fmt"
	"unsafe"

	"github.com/LynnColeArt/gudasort/device"
)

// Engine sorts fixed-length datasets of keyed records on an accelerator
// context. Construction fixes the dataset length, computes the sizing plan
// from the device limits, and allocates the auxiliary buffers the bucketed
// pipeline needs; Sort can then be called repeatedly on datasets of that
// exact shape.
//
// An Engine owns its auxiliary buffers exclusively for its whole lifetime.
// Concurrent Sort calls on one Engine are not safe; callers that sort in
// parallel need one Engine per goroutine, each with its own buffer set.
type Engine[K Key] struct {
	ctx    device.Context
	trait  Trait[K]
	prog   *program[K]
	plan   Plan
	length int

	// Auxiliary device buffers, allocated only in Bucketed mode.
	dataRange       device.Buffer // observed (min, max) key, recomputed per call
	bucketOffset    device.Buffer // per-bucket counts, then start indices
	bucketOfElement device.Buffer // bucket id per element
	offsetInBucket  device.Buffer // dense rank within the element's bucket
	buckets         device.Buffer // staging buffer of length records
}

// NewEngine configures a sort engine for datasets of exactly length records
// described by trait, running on ctx. It fails with a resource exhaustion
// error when the device's local-memory budget cannot hold even one record,
// and with a configuration error when the trait is absent or inconsistent.
func NewEngine[K Key](ctx device.Context, trait Trait[K], length int) (*Engine[K], error) {
	if ctx == nil {
		return nil, NewInvalidArgError("NewEngine", "nil device context")
	}
	if trait == nil {
		return nil, NewConfigError("NewEngine", "record trait is absent")
	}
	var zero K
	if trait.KeySize() != int(unsafe.Sizeof(zero)) {
		return nil, NewConfigError("NewEngine",
			fmt.Sprintf("trait key size %d disagrees with key type size %d", trait.KeySize(), unsafe.Sizeof(zero)))
	}

	plan, err := NewPlan(length, trait.RecordSize(), trait.KeySize(), ctx.Limits())
	if err != nil {
		return nil, err
	}

	e := &Engine[K]{
		ctx:    ctx,
		trait:  trait,
		prog:   newProgram(trait),
		plan:   plan,
		length: length,
	}

	if plan.Mode == Bucketed {
		if err := e.allocWorkspace(); err != nil {
			e.Close()
			return nil, err
		}
	}
	return e, nil
}

// allocWorkspace creates the five auxiliary buffers of the bucketed path.
func (e *Engine[K]) allocWorkspace() error {
	alloc := func(dst *device.Buffer, length, elemSize int) error {
		b, err := e.ctx.NewBuffer(length, elemSize)
		if err != nil {
			return NewExecutionError("NewEngine", "auxiliary buffer allocation failed", err)
		}
		*dst = b
		return nil
	}
	if err := alloc(&e.dataRange, 2, e.trait.KeySize()); err != nil {
		return err
	}
	if err := alloc(&e.bucketOffset, e.plan.NumBuckets, 4); err != nil {
		return err
	}
	if err := alloc(&e.bucketOfElement, e.length, 4); err != nil {
		return err
	}
	if err := alloc(&e.offsetInBucket, e.length, 4); err != nil {
		return err
	}
	return alloc(&e.buckets, e.length, e.trait.RecordSize())
}

// Plan reports the sizing plan the engine was configured with.
func (e *Engine[K]) Plan() Plan {
	return e.plan
}

// Len reports the dataset length the engine was configured for.
func (e *Engine[K]) Len() int {
	return e.length
}

// Close releases the auxiliary buffers back to the context. The engine must
// not be used afterwards. Close is idempotent.
func (e *Engine[K]) Close() error {
	var firstErr error
	release := func(b *device.Buffer) {
		if *b == nil {
			return
		}
		if err := e.ctx.Free(*b); err != nil && firstErr == nil {
			firstErr = err
		}
		*b = nil
	}
	release(&e.dataRange)
	release(&e.bucketOffset)
	release(&e.bucketOfElement)
	release(&e.offsetInBucket)
	release(&e.buckets)
	return firstErr
}
