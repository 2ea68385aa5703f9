package controller

import (
	"sync"

	"k8s.io/client-go/util/workqueue"

	"github.com/sunyakun/foo-controller/pkg/reconcile"
)

// DeletionTracker is implemented by queues that remember which objects were
// observed deleted. A request for a deleted object is dropped instead of
// being reconciled or retried.
type DeletionTracker interface {
	MarkDeleted(reconcile.Request)
	MarkPresent(reconcile.Request)
}

var _ DeletionTracker = &requestQueue{}

// requestQueue is the work queue of a controller. Tombstones are cleared when
// an object with the same key is observed again.
type requestQueue struct {
	RateLimiter

	mu      sync.RWMutex
	deleted map[reconcile.Request]struct{}
}

func newRequestQueue(rateLimiter workqueue.RateLimiter, name string) *requestQueue {
	return &requestQueue{
		RateLimiter: workqueue.NewNamedRateLimitingQueue(rateLimiter, name),
		deleted:     map[reconcile.Request]struct{}{},
	}
}

func (q *requestQueue) MarkDeleted(req reconcile.Request) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deleted[req] = struct{}{}
}

func (q *requestQueue) MarkPresent(req reconcile.Request) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.deleted, req)
}

func (q *requestQueue) isDeleted(req reconcile.Request) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	_, ok := q.deleted[req]
	return ok
}
