package utils

import (
	"runtime"
	"sync"

	"go.viam.com/utils"
)

// ParallelFactor controls the number of workers used by ForEachSpan. It can
// be lowered in tests where parallelism slows the suite down in aggregate, or
// set to 1 to force sequential kernels.
var ParallelFactor = runtime.GOMAXPROCS(0)

func init() {
	if ParallelFactor <= 0 {
		ParallelFactor = 1
	}
}

// SpanWorkFunc processes the half-open work range [from, to).
type SpanWorkFunc func(from, to int)

// ForEachSpan splits totalSize work items into contiguous spans, one per
// worker, and blocks until every span has been processed. Spans are disjoint,
// so workers may write to disjoint regions of a shared buffer without
// locking, and the result is identical to processing [0, totalSize) in order.
func ForEachSpan(totalSize int, work SpanWorkFunc) {
	workers := ParallelFactor
	if workers > totalSize {
		workers = totalSize
	}
	if workers <= 1 {
		if totalSize > 0 {
			work(0, totalSize)
		}
		return
	}
	span := totalSize / workers
	extra := totalSize % workers

	var wait sync.WaitGroup
	wait.Add(workers)
	from := 0
	for i := 0; i < workers; i++ {
		to := from + span
		if i < extra {
			to++
		}
		fromCopy, toCopy := from, to
		utils.PanicCapturingGo(func() {
			defer wait.Done()
			work(fromCopy, toCopy)
		})
		from = to
	}
	wait.Wait()
}
