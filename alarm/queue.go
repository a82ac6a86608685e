package alarm

import "libtock/sched"

const maxDeadlines = 32

// noDeadline is the "queue empty" sentinel; it also serves as the
// farthest representable instant.
const noDeadline = ^uint64(0)

type deadlineEntry struct {
	inUse bool
	at    uint64
	waker sched.Waker
}

// deadlineQueue holds pending wake requests as a fixed table with linear
// scans. Capacity matches the executor's task capacity; exceeding it
// fails the schedule call rather than allocating.
type deadlineQueue struct {
	entries [maxDeadlines]deadlineEntry
}

// schedule records a wake request. It reports false when the table is
// full.
func (q *deadlineQueue) schedule(at uint64, w sched.Waker) bool {
	for i := range q.entries {
		if q.entries[i].inUse {
			continue
		}
		q.entries[i] = deadlineEntry{inUse: true, at: at, waker: w}
		return true
	}
	return false
}

// nextExpiration wakes every entry whose expiration is at or before now,
// removing it from the table, and returns the earliest remaining
// expiration (noDeadline if none). Waking entries that were already stale
// when enqueued here guards against scheduling delayed by callback
// latency.
func (q *deadlineQueue) nextExpiration(now uint64) uint64 {
	next := uint64(noDeadline)
	for i := range q.entries {
		e := &q.entries[i]
		if !e.inUse {
			continue
		}
		if e.at <= now {
			w := e.waker
			*e = deadlineEntry{}
			w.Wake()
			continue
		}
		if e.at < next {
			next = e.at
		}
	}
	return next
}

// pending reports the number of queued wake requests.
func (q *deadlineQueue) pending() int {
	n := 0
	for i := range q.entries {
		if q.entries[i].inUse {
			n++
		}
	}
	return n
}
