package gudasort

import (
	"github.com/LynnColeArt/gudasort/device"
)

// Mode selects which algorithm a plan runs.
type Mode int

const (
	// ShortList sorts the whole dataset in one workgroup's local memory.
	ShortList Mode = iota
	// Bucketed runs the five-stage global bucket sort.
	Bucketed
)

func (m Mode) String() string {
	switch m {
	case ShortList:
		return "ShortList"
	case Bucketed:
		return "Bucketed"
	default:
		return "Unknown"
	}
}

// Plan holds the algorithm mode and every launch dimension the pipeline
// needs. It is a pure function of the dataset geometry and the device
// limits: identical inputs always produce the identical plan.
type Plan struct {
	Mode Mode

	// MaxLocalRecords is how many records fit an entirely-local sort. The
	// local-memory budget is halved to leave slack for other local
	// allocations made by the same kernel.
	MaxLocalRecords int

	RangeGroupSize     int
	PositionsGroupSize int
	SortGroupSize      int

	// TargetBucketSize keeps expected per-bucket work near half a
	// workgroup's local-sort capacity. It is a target, not a bound: a
	// skewed key distribution can overfill any single bucket.
	TargetBucketSize int
	NumBuckets       int
}

// NewPlan computes the sizing plan for a dataset of length records of
// recordSize bytes (keySize bytes of key) on a device with the given
// limits. It fails with a resource exhaustion error when not even one
// record fits the halved local-memory budget.
func NewPlan(length, recordSize, keySize int, lim device.Limits) (Plan, error) {
	if length < 0 {
		return Plan{}, NewInvalidArgError("NewPlan", "negative dataset length")
	}
	if recordSize <= 0 || keySize <= 0 || keySize > recordSize {
		return Plan{}, NewInvalidArgError("NewPlan", "record and key sizes must be positive and the key must fit the record")
	}
	if lim.MaxWorkgroupSize < 1 || lim.MaxLocalMemory < 1 {
		return Plan{}, NewInvalidArgError("NewPlan", "device limits must be positive")
	}

	maxLocal := lim.MaxLocalMemory / recordSize / 2
	if maxLocal < 1 {
		return Plan{}, NewResourceError("NewPlan", "a single record exceeds the local-memory budget")
	}

	var p Plan
	p.MaxLocalRecords = maxLocal
	if length <= maxLocal {
		p.Mode = ShortList
	} else {
		p.Mode = Bucketed
	}

	rangeSize := 1
	for rangeSize*2 <= lim.MaxWorkgroupSize {
		rangeSize *= 2
	}
	if length > 0 && rangeSize > length {
		rangeSize = length
	}
	p.RangeGroupSize = rangeSize
	p.PositionsGroupSize = rangeSize

	if p.Mode == ShortList {
		p.SortGroupSize = rangeSize / 2
	} else {
		p.SortGroupSize = rangeSize / 4
	}
	if p.SortGroupSize > maxLocal {
		p.SortGroupSize = maxLocal
	}
	if p.SortGroupSize < 1 {
		p.SortGroupSize = 1
	}

	p.TargetBucketSize = p.SortGroupSize / 2
	if p.TargetBucketSize < 1 {
		p.TargetBucketSize = 1
	}
	p.NumBuckets = length / p.TargetBucketSize
	if p.NumBuckets < 1 {
		p.NumBuckets = 1
	}
	if p.PositionsGroupSize > p.NumBuckets {
		p.PositionsGroupSize = p.NumBuckets
	}

	return p, nil
}
