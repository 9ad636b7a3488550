package mergesort

// merge combines two sorted runs into out, which must have length
// len(left)+len(right). On equal elements the left run wins, so elements
// from the left half precede equal elements from the right half. Callers
// guarantee the length invariant; merge does not validate it.
func merge(out, left, right []int64) {
	i, j, k := 0, 0, 0
	for i < len(left) && j < len(right) {
		if left[i] <= right[j] {
			out[k] = left[i]
			i++
		} else {
			out[k] = right[j]
			j++
		}
		k++
	}
	// At most one of these copies anything.
	copy(out[k:], left[i:])
	copy(out[k+len(left)-i:], right[j:])
}
