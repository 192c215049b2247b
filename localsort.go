package gudasort

import (
	"bytes"
	"sort"
)

// recordSorter orders fixed-size binary records in place by their extracted
// key. Swaps go through a scratch record so payload bytes travel with their
// key unmodified.
type recordSorter[K Key] struct {
	data []byte
	size int
	key  func([]byte) K
	tmp  []byte
}

func (s *recordSorter[K]) Len() int {
	return len(s.data) / s.size
}

func (s *recordSorter[K]) Less(i, j int) bool {
	a := s.data[i*s.size : (i+1)*s.size]
	b := s.data[j*s.size : (j+1)*s.size]
	ka, kb := s.key(a), s.key(b)
	if ka != kb {
		return ka < kb
	}
	// Equal keys tie-break on the record bytes. The order is then total,
	// so the sorted output is the same no matter how the scatter stage
	// interleaved equal-key records.
	return bytes.Compare(a, b) < 0
}

func (s *recordSorter[K]) Swap(i, j int) {
	a := s.data[i*s.size : (i+1)*s.size]
	b := s.data[j*s.size : (j+1)*s.size]
	copy(s.tmp, a)
	copy(a, b)
	copy(b, s.tmp)
}

// sortRecords sorts data, a packed run of records of recordSize bytes, in
// place by ascending key, equal keys ordered by their record bytes. The
// result is a deterministic function of the record multiset. That is not
// stability: records with equal keys do not keep their input order.
func sortRecords[K Key](data []byte, recordSize int, key func([]byte) K) {
	sort.Sort(&recordSorter[K]{
		data: data,
		size: recordSize,
		key:  key,
		tmp:  make([]byte, recordSize),
	})
}
