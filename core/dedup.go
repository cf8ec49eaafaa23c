package core

import "pkt.systems/webchat/schema"

// deliveredIDs remembers the most recently delivered action ids in a fixed ring.
type deliveredIDs struct {
	seen  map[schema.ActionID]struct{}
	ring  []schema.ActionID
	next  int
	limit int
}

func newDeliveredIDs(limit int) *deliveredIDs {
	if limit <= 0 {
		limit = schema.DefaultDeliveredIDMemory
	}
	return &deliveredIDs{
		seen:  make(map[schema.ActionID]struct{}, limit),
		ring:  make([]schema.ActionID, 0, limit),
		limit: limit,
	}
}

func (d *deliveredIDs) hasSeen(id schema.ActionID) bool {
	_, ok := d.seen[id]
	return ok
}

func (d *deliveredIDs) markSeen(id schema.ActionID) {
	if d.hasSeen(id) {
		return
	}
	if len(d.ring) < d.limit {
		d.ring = append(d.ring, id)
	} else {
		delete(d.seen, d.ring[d.next])
		d.ring[d.next] = id
		d.next = (d.next + 1) % d.limit
	}
	d.seen[id] = struct{}{}
}
