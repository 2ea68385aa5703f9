// Package foocontroller reconciles the status of Foo objects from their spec.
package foocontroller

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sunyakun/foo-controller/pkg/apis"
	pkgerrors "github.com/sunyakun/foo-controller/pkg/errors"
	"github.com/sunyakun/foo-controller/pkg/reconcile"
	"github.com/sunyakun/foo-controller/pkg/state"
)

const (
	// RequeueAfter is how long a reconciled Foo waits before it is checked
	// again when no event arrives.
	RequeueAfter = 1800 * time.Second
	// RetryInterval is how long a failed Foo waits before the next attempt.
	RetryInterval = 360 * time.Second
)

// FooClient is the access to the Foo store the reconciler needs. Get reports
// a missing object with an error matched by errors.IsNotFoundError.
type FooClient interface {
	Get(ctx context.Context, key string) (*apis.Foo, error)
	PatchStatus(ctx context.Context, key string, patch []byte) error
}

// ComputeStatus derives the status of a Foo from its spec.
func ComputeStatus(spec apis.FooSpec) apis.FooStatus {
	return apis.FooStatus{IsBad: strings.Contains(spec.Info, "bad")}
}

type statusPatch struct {
	Status apis.FooStatus `json:"status"`
}

var marshal = json.Marshal

type Reconciler struct {
	client  FooClient
	state   *state.State
	handled prometheus.Counter
}

var _ reconcile.Reconciler = &Reconciler{}

// NewReconciler returns a Reconciler writing through client. handled is
// incremented on every successful reconcile and may be nil.
func NewReconciler(client FooClient, st *state.State, handled prometheus.Counter) *Reconciler {
	return &Reconciler{
		client:  client,
		state:   st,
		handled: handled,
	}
}

func (r *Reconciler) Reconcile(ctx context.Context, req reconcile.Request) (reconcile.Result, error) {
	logger := logr.FromContextOrDiscard(ctx)
	key := req.Key()
	r.state.RecordEvent()

	foo, err := r.client.Get(ctx, key)
	if err != nil {
		if pkgerrors.IsNotFoundError(err) {
			return reconcile.Result{}, newError(ReasonObjectNotFound, key, err, "get foo")
		}
		return reconcile.Result{}, newError(ReasonFetchFailed, key, err, "get foo")
	}
	logger.V(1).Info("reconcile foo", "spec", foo.Spec)

	patch, err := marshal(statusPatch{Status: ComputeStatus(foo.Spec)})
	if err != nil {
		return reconcile.Result{}, newError(ReasonSerializationFailed, key, err, "encode status")
	}
	if err := r.client.PatchStatus(ctx, key, patch); err != nil {
		return reconcile.Result{}, newError(ReasonStatusPatchFailed, key, err, "patch status")
	}

	r.state.RecordHandled()
	if r.handled != nil {
		r.handled.Inc()
	}
	logger.Info("reconciled foo", "requeueAfter", RequeueAfter.String())
	return reconcile.Result{RequeueAfter: RequeueAfter}, nil
}
