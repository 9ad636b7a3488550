package mergesort

import (
	"golang.org/x/sync/errgroup"

	"github.com/sortbench/pkg/errors"
)

// parallelSort is the depth-limited fork/join layer over sequentialSort.
// Same contract: src and dst have equal length, the sorted result lands
// in src. While depth remains it forks one goroutine for the left half
// and sorts the right half on the calling goroutine, then joins before
// merging. The two halves touch disjoint regions of both buffers, so the
// join is the only synchronization point.
//
// The group deliberately has no concurrency limit: every fork holds its
// caller joined until completion, so a shared permit gate could park a
// parent that its own child is waiting behind. Task count is bounded by
// the depth budget instead (fewer than 2^depth forks per top-level call).
func parallelSort(src, dst []int64, depth int) error {
	if len(src) != len(dst) {
		return errors.Newf(errors.CodeInternal, "buffer length mismatch: src=%d dst=%d", len(src), len(dst))
	}
	if len(src) <= 1 {
		return nil
	}
	if depth <= 0 {
		sequentialSort(src, dst)
		return nil
	}

	mid := len(src) / 2

	var g errgroup.Group
	g.Go(func() error {
		return parallelSort(dst[:mid], src[:mid], depth-1)
	})
	rightErr := parallelSort(dst[mid:], src[mid:], depth-1)

	// Join before touching either half. A failed or panicked left half
	// surfaces here and aborts the sort without a partial merge.
	if err := g.Wait(); err != nil {
		return err
	}
	if rightErr != nil {
		return rightErr
	}

	merge(src, dst[:mid], dst[mid:])
	return nil
}
