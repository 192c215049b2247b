package gudasort

import (
	"unsafe"

	"github.com/LynnColeArt/gudasort/device"
)

// program binds the six sort kernels to one trait. It is the CPU rendition
// of compiling a kernel module from a template plus the trait's substitution
// set {DataType, KeyType, SortKey, MinKey, MaxKey, MaxValue}: each entry
// point below closes over the trait's layout and sentinels plus the launch's
// buffer arguments.
type program[K Key] struct {
	trait Trait[K]
}

func newProgram[K Key](t Trait[K]) *program[K] {
	return &program[K]{trait: t}
}

// keysView views a buffer of key-size elements as a key slice.
func keysView[K Key](b device.Buffer) []K {
	bytes := b.Bytes()
	if len(bytes) == 0 {
		return nil
	}
	var zero K
	n := len(bytes) / int(unsafe.Sizeof(zero))
	return unsafe.Slice((*K)(unsafe.Pointer(&bytes[0])), n)
}

// bucketIndex maps a key into [0, numBuckets). The mapping is monotone in
// the key, so per-bucket sorting yields a globally sorted result. When the
// observed range is empty (all keys identical) the span falls back to
// maxValue, routing every element to bucket 0; the final clamp keeps a key
// equal to the exact maximum from overflowing past the last bucket.
func bucketIndex[K Key](key, minKey, maxKey, maxValue K, numBuckets int) int {
	span := float64(maxKey) - float64(minKey)
	if span <= 0 {
		span = float64(maxValue)
	}
	idx := int(float64(numBuckets) * (float64(key) - float64(minKey)) / span)
	if idx < 0 {
		idx = 0
	}
	if idx >= numBuckets {
		idx = numBuckets - 1
	}
	return idx
}

// sortShortList sorts the entire dataset inside one workgroup's local
// memory. Launched with a single workgroup whose local slice holds
// length*RecordSize bytes.
func (p *program[K]) sortShortList(data device.Buffer, length int) device.Kernel {
	size := p.trait.RecordSize()
	return func(g device.Group) error {
		if g.ID != 0 {
			return nil
		}
		local := g.Local[:length*size]
		copy(local, data.Bytes())
		sortRecords(local, size, p.trait.Key)
		copy(data.Bytes(), local)
		return nil
	}
}

// computeRange reduces the dataset to its observed (min, max) key. The
// accumulators are seeded with the domain sentinels, MaxKey for the minimum
// and MinKey for the maximum, so lanes with no elements cannot bias the
// result. Launched as a single workgroup.
func (p *program[K]) computeRange(data device.Buffer, length int, dataRange device.Buffer) device.Kernel {
	size := p.trait.RecordSize()
	return func(g device.Group) error {
		if g.ID != 0 {
			return nil
		}
		minKey := p.trait.MaxKey()
		maxKey := p.trait.MinKey()
		bytes := data.Bytes()
		for i := 0; i < length; i++ {
			k := p.trait.Key(bytes[i*size : (i+1)*size])
			if k < minKey {
				minKey = k
			}
			if k > maxKey {
				maxKey = k
			}
		}
		r := keysView[K](dataRange)
		r[0], r[1] = minKey, maxKey
		return nil
	}
}

// assignElementsToBuckets computes each element's bucket id and its dense
// rank within that bucket. The rank comes from an atomic fetch-and-increment
// on the bucket's counter, so after the launch BucketOffset holds per-bucket
// populations. No records move yet.
func (p *program[K]) assignElementsToBuckets(data device.Buffer, length, numBuckets int,
	dataRange, bucketOffset, bucketOfElement, offsetInBucket device.Buffer) device.Kernel {
	size := p.trait.RecordSize()
	maxValue := p.trait.MaxValue()
	return func(g device.Group) error {
		counters := device.Counters(bucketOffset)
		bucketOf := device.Uint32s(bucketOfElement)
		rankOf := device.Uint32s(offsetInBucket)
		r := keysView[K](dataRange)
		bytes := data.Bytes()

		lo := g.ID * g.Size
		hi := lo + g.Size
		if hi > length {
			hi = length
		}
		for i := lo; i < hi; i++ {
			key := p.trait.Key(bytes[i*size : (i+1)*size])
			b := bucketIndex(key, r[0], r[1], maxValue, numBuckets)
			rankOf[i] = counters.Inc(b)
			bucketOf[i] = uint32(b)
		}
		return nil
	}
}

// computeBucketPositions turns per-bucket populations into start indices via
// an exclusive prefix sum. Launched as a single workgroup; afterwards
// BucketOffset[b] is bucket b's first index in the staging buffer and the
// populations sum to the dataset length.
func (p *program[K]) computeBucketPositions(numBuckets int, bucketOffset device.Buffer) device.Kernel {
	return func(g device.Group) error {
		if g.ID != 0 {
			return nil
		}
		offsets := device.Uint32s(bucketOffset)
		var sum uint32
		for b := 0; b < numBuckets; b++ {
			count := offsets[b]
			offsets[b] = sum
			sum += count
		}
		return nil
	}
}

// copyDataToBuckets scatters each record to BucketOffset[bucket] + rank in
// the staging buffer. Every destination is distinct, so the scatter needs no
// synchronization; elements of one bucket land contiguously, in whatever
// rank order the assignment stage's atomics produced.
func (p *program[K]) copyDataToBuckets(data, staging device.Buffer, length int,
	bucketOffset, bucketOfElement, offsetInBucket device.Buffer) device.Kernel {
	size := p.trait.RecordSize()
	return func(g device.Group) error {
		offsets := device.Uint32s(bucketOffset)
		bucketOf := device.Uint32s(bucketOfElement)
		rankOf := device.Uint32s(offsetInBucket)
		src := data.Bytes()
		dst := staging.Bytes()

		lo := g.ID * g.Size
		hi := lo + g.Size
		if hi > length {
			hi = length
		}
		for i := lo; i < hi; i++ {
			dest := int(offsets[bucketOf[i]]) + int(rankOf[i])
			copy(dst[dest*size:(dest+1)*size], src[i*size:(i+1)*size])
		}
		return nil
	}
}

// sortBuckets sorts each bucket's staging slice and writes it back into the
// data buffer at the same index range. Workgroups stride across buckets. A
// bucket that fits the workgroup's local slice is sorted there; an
// overfilled bucket (possible under skewed key distributions, the sizing
// heuristic only targets an expected size) is sorted directly in global
// memory instead.
func (p *program[K]) sortBuckets(data, staging device.Buffer, numBuckets int,
	bucketOffset device.Buffer, length int) device.Kernel {
	size := p.trait.RecordSize()
	return func(g device.Group) error {
		offsets := device.Uint32s(bucketOffset)
		src := staging.Bytes()
		dst := data.Bytes()

		for b := g.ID; b < numBuckets; b += g.Count {
			start := int(offsets[b])
			end := length
			if b+1 < numBuckets {
				end = int(offsets[b+1])
			}
			n := end - start
			if n <= 0 {
				continue
			}
			bucket := src[start*size : end*size]
			if n*size <= len(g.Local) {
				local := g.Local[:n*size]
				copy(local, bucket)
				sortRecords(local, size, p.trait.Key)
				copy(dst[start*size:end*size], local)
			} else {
				out := dst[start*size : end*size]
				copy(out, bucket)
				sortRecords(out, size, p.trait.Key)
			}
		}
		return nil
	}
}
