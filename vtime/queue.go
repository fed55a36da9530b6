package vtime

import (
	"container/heap"
)

// actionQueue is a min-heap of actions, ordered by (frame, index).
type actionQueue []*Action

var _ heap.Interface = (*actionQueue)(nil)

func (q actionQueue) Len() int { return len(q) }

func (q actionQueue) Less(i, j int) bool {
	if q[i].frame != q[j].frame {
		return q[i].frame < q[j].frame
	}
	return q[i].index < q[j].index
}

func (q actionQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].pos = i
	q[j].pos = j
}

func (q *actionQueue) Push(x any) {
	a := x.(*Action)
	a.pos = len(*q)
	*q = append(*q, a)
}

func (q *actionQueue) Pop() any {
	old := *q
	n := len(old) - 1
	a := old[n]
	old[n] = nil
	a.pos = -1
	*q = old[:n]
	return a
}

func (q actionQueue) peek() *Action {
	if len(q) == 0 {
		return nil
	}
	return q[0]
}
