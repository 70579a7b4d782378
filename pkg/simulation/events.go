package simulation

import "container/heap"

// event is a scheduled callback. seq is assigned when the event is
// scheduled, so events at the same timestamp fire in scheduling order.
// That tie-break is what makes runs reproducible.
type event struct {
	time float64
	seq  uint64
	fire func()
}

type eventQueue []*event

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].time != q[j].time {
		return q[i].time < q[j].time
	}
	return q[i].seq < q[j].seq
}

func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *eventQueue) Push(x any) { *q = append(*q, x.(*event)) }

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return ev
}

func (q *eventQueue) push(ev *event) { heap.Push(q, ev) }

func (q *eventQueue) pop() *event { return heap.Pop(q).(*event) }
