package controller

import (
	"context"

	"github.com/sunyakun/foo-controller/pkg/apis"
	"github.com/sunyakun/foo-controller/pkg/reconcile"
)

// EventHandler turns the events of a Source into reconcile.Requests on the
// queue. Requests for the same key are merged by the queue.
type EventHandler interface {
	Create(context.Context, CreateEvent, RateLimiter)
	Update(context.Context, UpdateEvent, RateLimiter)
	Delete(context.Context, DeleteEvent, RateLimiter)
	// Generic handles bootstrap lists, periodic resyncs and events of an
	// unknown type.
	Generic(context.Context, GenericEvent, RateLimiter)
}

var _ EventHandler = Funcs{}

// Funcs is an EventHandler made of optional functions, a nil one ignores its
// events.
type Funcs struct {
	CreateFunc  func(context.Context, CreateEvent, RateLimiter)
	UpdateFunc  func(context.Context, UpdateEvent, RateLimiter)
	DeleteFunc  func(context.Context, DeleteEvent, RateLimiter)
	GenericFunc func(context.Context, GenericEvent, RateLimiter)
}

func (h Funcs) Create(ctx context.Context, e CreateEvent, q RateLimiter) {
	if h.CreateFunc != nil {
		h.CreateFunc(ctx, e, q)
	}
}

func (h Funcs) Update(ctx context.Context, e UpdateEvent, q RateLimiter) {
	if h.UpdateFunc != nil {
		h.UpdateFunc(ctx, e, q)
	}
}

func (h Funcs) Delete(ctx context.Context, e DeleteEvent, q RateLimiter) {
	if h.DeleteFunc != nil {
		h.DeleteFunc(ctx, e, q)
	}
}

func (h Funcs) Generic(ctx context.Context, e GenericEvent, q RateLimiter) {
	if h.GenericFunc != nil {
		h.GenericFunc(ctx, e, q)
	}
}

func enqueue(q RateLimiter, obj apis.Object) {
	if obj == nil || obj.GetName() == "" {
		return
	}
	req := reconcile.Request{NamespacedName: apis.NamespacedName(obj)}
	if tracker, ok := q.(DeletionTracker); ok {
		tracker.MarkPresent(req)
	}
	q.Add(req)
}

func forget(q RateLimiter, obj apis.Object) {
	if obj == nil || obj.GetName() == "" {
		return
	}
	if tracker, ok := q.(DeletionTracker); ok {
		tracker.MarkDeleted(reconcile.Request{NamespacedName: apis.NamespacedName(obj)})
	}
}

// EnqueueHandler enqueues the key of the object of every event except
// deletes. A delete marks the key deleted on queues that track deletions, so
// pending and failed requests of that key are dropped.
var EnqueueHandler = Funcs{
	CreateFunc: func(ctx context.Context, evt CreateEvent, q RateLimiter) {
		enqueue(q, evt.Object)
	},
	UpdateFunc: func(ctx context.Context, evt UpdateEvent, q RateLimiter) {
		if evt.ObjectOld != nil && evt.ObjectNew != nil && evt.ObjectOld.GetKey() != evt.ObjectNew.GetKey() {
			enqueue(q, evt.ObjectOld)
		}
		enqueue(q, evt.ObjectNew)
	},
	DeleteFunc: func(ctx context.Context, evt DeleteEvent, q RateLimiter) {
		forget(q, evt.Object)
	},
	GenericFunc: func(ctx context.Context, evt GenericEvent, q RateLimiter) {
		enqueue(q, evt.Object)
	},
}
