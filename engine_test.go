package gudasort

import (
	"errors"
	"testing"

	"github.com/LynnColeArt/gudasort/device"
)

// countingContext wraps a real context and counts dispatches, so tests can
// assert that rejected calls never reach the device.
type countingContext struct {
	device.Context
	executes int
	clears   int
}

func (c *countingContext) Execute(k device.Kernel, totalWork, groupSize, localMem int) error {
	c.executes++
	return c.Context.Execute(k, totalWork, groupSize, localMem)
}

func (c *countingContext) ClearBuffer(b device.Buffer) error {
	c.clears++
	return c.Context.ClearBuffer(b)
}

// failingContext fails the nth Execute call with a device error.
type failingContext struct {
	device.Context
	failOn int
	calls  int
	cause  error
}

func (c *failingContext) Execute(k device.Kernel, totalWork, groupSize, localMem int) error {
	c.calls++
	if c.calls == c.failOn {
		return c.cause
	}
	return c.Context.Execute(k, totalWork, groupSize, localMem)
}

func TestNewEngineValidation(t *testing.T) {
	ctx := device.NewContext()
	defer ctx.Close()

	if _, err := NewEngine[uint32](nil, Uint32Keys(16, 0), 10); !IsInvalidArgError(err) {
		t.Errorf("nil context: got %v, want invalid argument", err)
	}
	if _, err := NewEngine[uint32](ctx, nil, 10); !IsConfigurationMismatch(err) {
		t.Errorf("absent trait: got %v, want configuration mismatch", err)
	}
	// A trait whose declared key size disagrees with the key type.
	if _, err := NewEngine[uint32](ctx, badKeySizeTrait{}, 10); !IsConfigurationMismatch(err) {
		t.Errorf("inconsistent key size: got %v, want configuration mismatch", err)
	}
	if _, err := NewEngine[uint32](ctx, Uint32Keys(16, 0), -1); !IsInvalidArgError(err) {
		t.Errorf("negative length: got %v, want invalid argument", err)
	}
}

// badKeySizeTrait declares a key size that does not match uint32.
type badKeySizeTrait struct{}

func (badKeySizeTrait) RecordSize() int     { return 16 }
func (badKeySizeTrait) KeySize() int        { return 8 }
func (badKeySizeTrait) Key(r []byte) uint32 { return 0 }
func (badKeySizeTrait) MinKey() uint32      { return 0 }
func (badKeySizeTrait) MaxKey() uint32      { return 1 }
func (badKeySizeTrait) MaxValue() uint32    { return 1 }

func TestNewEngineResourceExhaustion(t *testing.T) {
	// One record cannot fit half the local-memory budget.
	ctx := device.NewContextWithLimits(device.Limits{
		MaxWorkgroupSize: 1024,
		MaxLocalMemory:   16,
	})
	defer ctx.Close()

	_, err := NewEngine(ctx, Uint32Keys(16, 0), 100)
	if !IsResourceExhaustion(err) {
		t.Fatalf("got %v, want resource exhaustion", err)
	}
}

func TestSortShapeMismatchDispatchesNothing(t *testing.T) {
	ctx := &countingContext{Context: device.NewContext()}
	defer ctx.Context.Close()

	const n = 100
	eng := NewEngineOrFail(t, ctx, Uint32Keys(testRecordSize, 0), n)
	defer eng.Close()

	cases := []struct {
		name     string
		length   int
		elemSize int
	}{
		{"short buffer", n - 1, testRecordSize},
		{"long buffer", n + 1, testRecordSize},
		{"wrong record size", n, testRecordSize / 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := NewBufferOrFail(t, ctx, tc.length, tc.elemSize)
			defer ctx.Free(buf)

			before := ctx.executes + ctx.clears
			err := eng.Sort(buf)
			if !IsConfigurationMismatch(err) {
				t.Fatalf("got %v, want configuration mismatch", err)
			}
			if after := ctx.executes + ctx.clears; after != before {
				t.Errorf("shape mismatch dispatched %d device calls", after-before)
			}
		})
	}

	if err := eng.Sort(nil); !IsConfigurationMismatch(err) {
		t.Errorf("nil buffer: got %v, want configuration mismatch", err)
	}
}

func TestSortDeviceFailureIsFatal(t *testing.T) {
	cause := errors.New("simulated launch failure")

	// Bucketed mode issues five Execute calls; fail each in turn.
	const n = 5000
	for failOn := 1; failOn <= 5; failOn++ {
		ctx := &failingContext{Context: device.NewContext(), failOn: failOn, cause: cause}
		eng := NewEngineOrFail(t, ctx, Uint32Keys(testRecordSize, 0), n)

		data := NewBufferOrFail(t, ctx, n, testRecordSize)
		copy(data.Bytes(), makeRecords(make([]uint32, n)))

		err := eng.Sort(data)
		if !IsAcceleratorExecutionError(err) {
			t.Errorf("failOn=%d: got %v, want accelerator execution error", failOn, err)
		}
		if !errors.Is(err, cause) {
			t.Errorf("failOn=%d: device cause not preserved in %v", failOn, err)
		}
		ctx.Free(data)
		eng.Close()
		ctx.Context.Close()
	}
}

func TestEngineWorkspaceLifecycle(t *testing.T) {
	ctx := device.NewContext()
	defer ctx.Close()

	// Short-list engines allocate no auxiliary buffers.
	short := NewEngineOrFail(t, ctx, Uint32Keys(testRecordSize, 0), 8)
	if short.dataRange != nil || short.buckets != nil {
		t.Error("short-list engine allocated auxiliary buffers")
	}
	if err := short.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}

	// Bucketed engines hold all five, released exactly once by Close.
	bucketed := NewEngineOrFail(t, ctx, Uint32Keys(testRecordSize, 0), 50000)
	for name, buf := range map[string]device.Buffer{
		"dataRange":       bucketed.dataRange,
		"bucketOffset":    bucketed.bucketOffset,
		"bucketOfElement": bucketed.bucketOfElement,
		"offsetInBucket":  bucketed.offsetInBucket,
		"buckets":         bucketed.buckets,
	} {
		if buf == nil {
			t.Errorf("bucketed engine missing %s buffer", name)
		}
	}
	if err := bucketed.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := bucketed.Close(); err != nil {
		t.Errorf("second Close not idempotent: %v", err)
	}
}
