package core

import (
	"time"

	"pkt.systems/webchat/schema"
)

// actionQueue is a FIFO of actions awaiting delivery, unique by action id.
type actionQueue struct {
	items []schema.Action
	index map[schema.ActionID]struct{}
}

func newActionQueue() *actionQueue {
	return &actionQueue{index: make(map[schema.ActionID]struct{})}
}

// enqueue appends the action unless its id is already queued.
func (q *actionQueue) enqueue(action schema.Action) bool {
	if _, ok := q.index[action.ID]; ok {
		return false
	}
	q.items = append(q.items, action)
	q.index[action.ID] = struct{}{}
	return true
}

// drainInOrder empties the queue and returns its former contents in arrival order.
func (q *actionQueue) drainInOrder() []schema.Action {
	drained := q.items
	q.items = nil
	q.index = make(map[schema.ActionID]struct{})
	return drained
}

func (q *actionQueue) size() int {
	return len(q.items)
}

func (q *actionQueue) contains(id schema.ActionID) bool {
	_, ok := q.index[id]
	return ok
}

// removeIfPresent drops a stale entry for an action delivered through another path.
func (q *actionQueue) removeIfPresent(id schema.ActionID) bool {
	if _, ok := q.index[id]; !ok {
		return false
	}
	delete(q.index, id)
	for i, item := range q.items {
		if item.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			break
		}
	}
	return true
}

// hasPayloadAfter reports whether an identical payload was enqueued after since.
func (q *actionQueue) hasPayloadAfter(payload schema.ActionPayload, since time.Time) bool {
	for _, item := range q.items {
		if item.Payload == payload && item.EnqueuedAt.After(since) {
			return true
		}
	}
	return false
}

func (q *actionQueue) ids() []schema.ActionID {
	out := make([]schema.ActionID, 0, len(q.items))
	for _, item := range q.items {
		out = append(out, item.ID)
	}
	return out
}
