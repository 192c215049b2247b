package gudasort

import (
	"testing"

	"github.com/LynnColeArt/gudasort/device"
)

// NewBufferOrFail allocates a device buffer and fails the test if unsuccessful
func NewBufferOrFail(t testing.TB, ctx device.Context, length, elemSize int) device.Buffer {
	t.Helper()
	b, err := ctx.NewBuffer(length, elemSize)
	if err != nil {
		t.Fatalf("Failed to allocate %d x %d byte buffer: %v", length, elemSize, err)
	}
	return b
}

// NewEngineOrFail constructs an engine and fails the test if unsuccessful
func NewEngineOrFail[K Key](t testing.TB, ctx device.Context, trait Trait[K], length int) *Engine[K] {
	t.Helper()
	e, err := NewEngine(ctx, trait, length)
	if err != nil {
		t.Fatalf("Failed to construct engine for length %d: %v", length, err)
	}
	return e
}

// SortOrFail sorts a buffer and fails the test if unsuccessful
func SortOrFail[K Key](t testing.TB, e *Engine[K], data device.Buffer) {
	t.Helper()
	if err := e.Sort(data); err != nil {
		t.Fatalf("Sort failed: %v", err)
	}
}
