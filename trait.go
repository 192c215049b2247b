package gudasort

import (
	"math"
	"unsafe"
)

// Key is the set of numeric key domains the engine can order by. Every
// domain is totally ordered by <, which is what the bucket assignment and
// local sort kernels rely on.
type Key interface {
	~int32 | ~uint32 | ~int64 | ~uint64 | ~float32 | ~float64
}

// Trait describes the layout of a fixed-size keyed record and the sentinels
// of its key domain. A trait is pure configuration: immutable after
// construction, no behavior beyond exposing these values. The sentinels must
// be consistent with the domain's ordering: MinKey <= every representable
// key <= MaxKey, and MaxValue > 0.
type Trait[K Key] interface {
	// RecordSize returns the record size in bytes.
	RecordSize() int
	// KeySize returns the key size in bytes. It must match the in-memory
	// size of K.
	KeySize() int
	// Key extracts the sort key from one record.
	Key(record []byte) K
	// MinKey is the smallest representable key; it seeds max-accumulators
	// so idle lanes cannot bias a reduction.
	MinKey() K
	// MaxKey is the largest representable key; it seeds min-accumulators.
	MaxKey() K
	// MaxValue stands in for the key range when the observed range is
	// empty, routing every element to bucket 0.
	MaxValue() K
}

// OffsetTrait is a Trait whose key is stored at a fixed byte offset inside
// the record, in native byte order.
type OffsetTrait[K Key] struct {
	recordSize int
	keyOffset  int
	minKey     K
	maxKey     K
	maxValue   K
}

// NewTrait builds an OffsetTrait with explicit domain sentinels. Most
// callers want one of the ready-made constructors below instead.
func NewTrait[K Key](recordSize, keyOffset int, minKey, maxKey, maxValue K) OffsetTrait[K] {
	return OffsetTrait[K]{
		recordSize: recordSize,
		keyOffset:  keyOffset,
		minKey:     minKey,
		maxKey:     maxKey,
		maxValue:   maxValue,
	}
}

func (t OffsetTrait[K]) RecordSize() int { return t.recordSize }

func (t OffsetTrait[K]) KeySize() int {
	var zero K
	return int(unsafe.Sizeof(zero))
}

func (t OffsetTrait[K]) Key(record []byte) K {
	return *(*K)(unsafe.Pointer(&record[t.keyOffset]))
}

func (t OffsetTrait[K]) MinKey() K   { return t.minKey }
func (t OffsetTrait[K]) MaxKey() K   { return t.maxKey }
func (t OffsetTrait[K]) MaxValue() K { return t.maxValue }

// Uint32Keys describes records sorted by a uint32 key at the given offset.
func Uint32Keys(recordSize, keyOffset int) OffsetTrait[uint32] {
	return NewTrait[uint32](recordSize, keyOffset, 0, math.MaxUint32, math.MaxUint32)
}

// Uint64Keys describes records sorted by a uint64 key at the given offset.
func Uint64Keys(recordSize, keyOffset int) OffsetTrait[uint64] {
	return NewTrait[uint64](recordSize, keyOffset, 0, math.MaxUint64, math.MaxUint64)
}

// Int32Keys describes records sorted by an int32 key at the given offset.
func Int32Keys(recordSize, keyOffset int) OffsetTrait[int32] {
	return NewTrait[int32](recordSize, keyOffset, math.MinInt32, math.MaxInt32, math.MaxInt32)
}

// Int64Keys describes records sorted by an int64 key at the given offset.
func Int64Keys(recordSize, keyOffset int) OffsetTrait[int64] {
	return NewTrait[int64](recordSize, keyOffset, math.MinInt64, math.MaxInt64, math.MaxInt64)
}

// Float32Keys describes records sorted by a float32 key at the given offset.
// NaN keys are outside the domain.
func Float32Keys(recordSize, keyOffset int) OffsetTrait[float32] {
	return NewTrait[float32](recordSize, keyOffset, -math.MaxFloat32, math.MaxFloat32, math.MaxFloat32)
}

// Float64Keys describes records sorted by a float64 key at the given offset.
// NaN keys are outside the domain.
func Float64Keys(recordSize, keyOffset int) OffsetTrait[float64] {
	return NewTrait[float64](recordSize, keyOffset, -math.MaxFloat64, math.MaxFloat64, math.MaxFloat64)
}
