package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"k8s.io/apimachinery/pkg/types"
)

func TestFixedDelay(t *testing.T) {
	policy := FixedDelay(360 * time.Second)
	req := Request{NamespacedName: types.NamespacedName{Namespace: "default", Name: "example"}}

	for _, err := range []error{
		errors.New("patch rejected"),
		context.DeadlineExceeded,
	} {
		result := policy.OnError(context.Background(), req, err)
		assert.Equal(t, Result{RequeueAfter: 360 * time.Second}, result, err.Error())
	}
}

func TestRequest(t *testing.T) {
	req := Request{NamespacedName: types.NamespacedName{Namespace: "default", Name: "example"}}
	assert.Equal(t, "default/example", req.Key())

	var r *Result
	assert.True(t, r.IsZero())
	assert.False(t, (&Result{Requeue: true}).IsZero())
}

func TestFunc(t *testing.T) {
	called := false
	var reconciler Reconciler = Func(func(ctx context.Context, req Request) (Result, error) {
		called = true
		return Result{RequeueAfter: time.Second}, nil
	})
	result, err := reconciler.Reconcile(context.Background(), Request{})
	assert.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, time.Second, result.RequeueAfter)
}
