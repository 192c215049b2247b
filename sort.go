package gudasort

import (
	"fmt"

	"github.com/LynnColeArt/gudasort/device"
)

// Sort orders data in place, ascending by key. data must hold exactly the
// configured number of records at the configured record size; any other
// shape fails with a configuration mismatch before a single kernel is
// dispatched. An empty dataset is a successful no-op. Records with equal
// keys are ordered by their record bytes, so the output depends only on
// the input multiset and sorting sorted data leaves it unchanged; this is
// not a stability guarantee.
//
// Device failures are fatal: the error is surfaced as an accelerator
// execution error and data is left in an undefined state. Sort never retries
// and never falls back to a different algorithm mid-call.
func (e *Engine[K]) Sort(data device.Buffer) error {
	recordSize := e.trait.RecordSize()
	if data == nil {
		return NewConfigError("Sort", "nil data buffer")
	}
	if data.Len() != e.length || data.ElemSize() != recordSize {
		return NewConfigError("Sort",
			fmt.Sprintf("data shape %d x %d disagrees with configured %d x %d",
				data.Len(), data.ElemSize(), e.length, recordSize))
	}
	if e.length == 0 {
		return nil
	}

	if e.plan.Mode == ShortList {
		// One workgroup loads the whole dataset into local memory, sorts it
		// there, and writes it back. No auxiliary buffers are touched.
		k := e.prog.sortShortList(data, e.length)
		if err := e.ctx.Execute(k, e.plan.SortGroupSize, e.plan.SortGroupSize, e.length*recordSize); err != nil {
			return NewExecutionError("Sort", "short-list sort failed", err)
		}
		return nil
	}

	// Bucketed path: five stages, each a full barrier relative to the next
	// because every stage consumes buffers the previous one wrote. Execute
	// returns only after the launch completes, which gives exactly that
	// ordering on the single control stream.

	// Stage 1: reduce the dataset to its observed key range.
	k := e.prog.computeRange(data, e.length, e.dataRange)
	if err := e.ctx.Execute(k, e.plan.RangeGroupSize, e.plan.RangeGroupSize, e.plan.RangeGroupSize*e.trait.KeySize()); err != nil {
		return NewExecutionError("Sort", "range reduction failed", err)
	}

	// Stage 2: assign every element a bucket id and an intra-bucket rank.
	if err := e.ctx.ClearBuffer(e.bucketOffset); err != nil {
		return NewExecutionError("Sort", "bucket counter reset failed", err)
	}
	k = e.prog.assignElementsToBuckets(data, e.length, e.plan.NumBuckets,
		e.dataRange, e.bucketOffset, e.bucketOfElement, e.offsetInBucket)
	if err := e.ctx.Execute(k, e.length, 0, 0); err != nil {
		return NewExecutionError("Sort", "bucket assignment failed", err)
	}

	// Stage 3: exclusive prefix sum over the per-bucket counts.
	k = e.prog.computeBucketPositions(e.plan.NumBuckets, e.bucketOffset)
	if err := e.ctx.Execute(k, e.plan.PositionsGroupSize, e.plan.PositionsGroupSize, e.plan.PositionsGroupSize*4); err != nil {
		return NewExecutionError("Sort", "bucket position scan failed", err)
	}

	// Stage 4: scatter records into their buckets in the staging buffer.
	k = e.prog.copyDataToBuckets(data, e.buckets, e.length,
		e.bucketOffset, e.bucketOfElement, e.offsetInBucket)
	if err := e.ctx.Execute(k, e.length, 0, 0); err != nil {
		return NewExecutionError("Sort", "bucket scatter failed", err)
	}

	// Stage 5: sort each bucket and write it back into data.
	k = e.prog.sortBuckets(data, e.buckets, e.plan.NumBuckets, e.bucketOffset, e.length)
	groups := (e.length + e.plan.SortGroupSize - 1) / e.plan.SortGroupSize
	totalWork := groups * e.plan.SortGroupSize
	if err := e.ctx.Execute(k, totalWork, e.plan.SortGroupSize, e.plan.SortGroupSize*recordSize); err != nil {
		return NewExecutionError("Sort", "per-bucket sort failed", err)
	}
	return nil
}
