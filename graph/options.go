package graph

import (
	"fmt"
	"runtime"
)

// RunOptions is the per-run configuration surface of the engine. Validated
// synchronously before the first superstep; a bad configuration never starts
// a partial run.
type RunOptions struct {
	NumThreads    uint32 // Worker threads per phase. 0 defaults to the CPU count.
	MaxSupersteps int    // Hard cap on supersteps. A run that hits the cap reports converged=false.
	GatherAll     bool   // Invoke gather on every vertex each superstep, not just mail recipients.
	DebugLevel    uint8  // If non-zero, will log extra per-superstep information.
}

func (o *RunOptions) Validate() error {
	if o.MaxSupersteps < 1 {
		return fmt.Errorf("run options: MaxSupersteps must be positive, got %d", o.MaxSupersteps)
	}
	if o.NumThreads == 0 {
		o.NumThreads = uint32(runtime.NumCPU())
	}
	return nil
}
