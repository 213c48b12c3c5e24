package pipeline

// reorder buffers out-of-order results and releases them in ascending
// sequence order with no gaps. Workers complete chunks in any order; the
// transcript must read in capture order.
type reorder struct {
	next    uint64
	pending map[uint64]Result
}

func newReorder() *reorder {
	return &reorder{pending: make(map[uint64]Result)}
}

// add accepts one completed result and returns the run of results that are
// now contiguous from the release point, in order. Results older than the
// release point are discarded.
func (r *reorder) add(res Result) []Result {
	if res.Seq < r.next {
		return nil
	}
	r.pending[res.Seq] = res

	var ready []Result
	for {
		next, ok := r.pending[r.next]
		if !ok {
			break
		}
		delete(r.pending, r.next)
		ready = append(ready, next)
		r.next++
	}
	return ready
}

// buffered returns the number of results waiting on a predecessor.
func (r *reorder) buffered() int {
	return len(r.pending)
}
