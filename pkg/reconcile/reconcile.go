// Package reconcile defines the contract between the controller driver and a
// reconciler: a Request names one object, a Result schedules its next visit.
package reconcile

import (
	"context"
	"time"

	"k8s.io/apimachinery/pkg/types"
)

// Result tells the controller when the request comes back.
type Result struct {
	// Requeue puts the request back through the rate limiter of the queue.
	Requeue bool

	// RequeueAfter puts the request back after the delay, it wins over
	// Requeue.
	RequeueAfter time.Duration
}

func (r *Result) IsZero() bool {
	if r == nil {
		return true
	}
	return *r == Result{}
}

// Request identifies the object to reconcile. It does not say what happened
// to it: the reconciler reads the current state and acts on that.
type Request struct {
	types.NamespacedName
}

// Key returns the "<namespace>/<name>" key of the object.
func (r Request) Key() string {
	return r.NamespacedName.String()
}

// Reconciler drives the object named by a Request toward the state derived
// from its spec. It must be safe to call again with the same Request, any
// number of times and in any order.
type Reconciler interface {
	Reconcile(context.Context, Request) (Result, error)
}

// Func is a function that implements Reconciler.
type Func func(context.Context, Request) (Result, error)

var _ Reconciler = Func(nil)

func (r Func) Reconcile(ctx context.Context, req Request) (Result, error) { return r(ctx, req) }
