package vm

// WakeRequest asks the scheduler to look at threads again before the frame
// ends. Target 0 requests a full re-walk.
type WakeRequest struct {
	Source ThreadID
	Target ThreadID
}

type wakeQueue struct {
	reqs []WakeRequest
}

func (q *wakeQueue) push(r WakeRequest) {
	q.reqs = append(q.reqs, r)
}

func (q *wakeQueue) drain() []WakeRequest {
	reqs := q.reqs
	q.reqs = nil
	return reqs
}

func (q *wakeQueue) len() int {
	return len(q.reqs)
}

// planWakes folds a batch of requests into either a full walk or a
// de-duplicated target list in request order.
func planWakes(reqs []WakeRequest) (full bool, targets []ThreadID) {
	seen := make(map[ThreadID]bool, len(reqs))
	for _, r := range reqs {
		if r.Target == 0 {
			return true, nil
		}
		if !seen[r.Target] {
			seen[r.Target] = true
			targets = append(targets, r.Target)
		}
	}
	return false, targets
}
