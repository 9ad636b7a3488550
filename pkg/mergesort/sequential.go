package mergesort

// sequentialSort sorts src using dst as scratch. Both slices must have
// equal length. On return the sorted result is in src; dst holds the two
// sorted halves that fed the final merge.
//
// The recursion swaps buffer roles at each level: the children sort the
// halves of dst using the halves of src as their scratch, leaving their
// results exactly where this level merges from. Length-one regions are
// already sorted in both buffers (the top-level caller copies src into
// dst once), so they terminate without a write.
func sequentialSort(src, dst []int64) {
	if len(src) <= 1 {
		return
	}
	mid := len(src) / 2
	sequentialSort(dst[:mid], src[:mid])
	sequentialSort(dst[mid:], src[mid:])
	merge(src, dst[:mid], dst[mid:])
}
