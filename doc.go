// Package gudasort provides an adaptive parallel sort for fixed-size keyed
// records, running entirely on a guda-style data-parallel device. It is the
// bucketing building block of larger simulation pipelines, e.g. ordering
// particles by spatial key for locality.
//
// An Engine is configured once for a dataset length and a record trait, then
// sorts buffers of that exact shape repeatedly. Small datasets are sorted in
// a single workgroup's local memory; larger ones run a five-stage bucket
// pipeline (range reduction, bucket assignment, prefix sum, scatter,
// per-bucket sort) with a synchronization barrier between stages.
//
// Example usage:
//
//	ctx := device.NewContext()
//	defer ctx.Close()
//
//	trait := gudasort.Uint32Keys(16, 0) // 16-byte records, key in bytes 0..3
//	eng, err := gudasort.NewEngine(ctx, trait, n)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer eng.Close()
//
//	data, _ := ctx.NewBuffer(n, 16)
//	// ... fill data ...
//	if err := eng.Sort(data); err != nil {
//		log.Fatal(err)
//	}
package gudasort
