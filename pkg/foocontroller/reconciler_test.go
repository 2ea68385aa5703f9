package foocontroller

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/types"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/sunyakun/foo-controller/pkg/apis"
	pkgerrors "github.com/sunyakun/foo-controller/pkg/errors"
	"github.com/sunyakun/foo-controller/pkg/reconcile"
	"github.com/sunyakun/foo-controller/pkg/state"
)

type fakeClient struct {
	mu       sync.Mutex
	foos     map[string]*apis.Foo
	patches  map[string][]string
	getErr   error
	patchErr error
}

func newFakeClient(foos ...*apis.Foo) *fakeClient {
	c := &fakeClient{foos: map[string]*apis.Foo{}, patches: map[string][]string{}}
	for _, foo := range foos {
		c.foos[foo.GetKey()] = foo
	}
	return c
}

func (c *fakeClient) Get(ctx context.Context, key string) (*apis.Foo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	foo, ok := c.foos[key]
	if !ok {
		return nil, pkgerrors.NewNotFound(apis.FooKind, key)
	}
	return foo, nil
}

func (c *fakeClient) PatchStatus(ctx context.Context, key string, patch []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.patchErr != nil {
		return c.patchErr
	}
	c.patches[key] = append(c.patches[key], string(patch))
	return nil
}

func newFoo(name, info string) *apis.Foo {
	return &apis.Foo{
		ObjectMeta: apis.ObjectMeta{Namespace: "default", Name: name},
		Spec:       apis.FooSpec{Name: name, Info: info},
	}
}

func requestFor(name string) reconcile.Request {
	return reconcile.Request{NamespacedName: types.NamespacedName{Namespace: "default", Name: name}}
}

func TestComputeStatus(t *testing.T) {
	cases := []struct {
		info  string
		isBad bool
	}{
		{info: "", isBad: false},
		{info: "bad", isBad: true},
		{info: "badger", isBad: true},
		{info: "this is bad news", isBad: true},
		{info: "BAD", isBad: false},
		{info: "good", isBad: false},
	}
	for _, c := range cases {
		assert.Equal(t, c.isBad, ComputeStatus(apis.FooSpec{Info: c.info}).IsBad, "info %q", c.info)
	}
}

func TestReconcileSuccess(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	clk := clocktesting.NewFakePassiveClock(start)
	st := state.New(clk)
	handled := prometheus.NewCounter(prometheus.CounterOpts{Name: "handled_events"})
	client := newFakeClient(newFoo("example", "this is bad news"), newFoo("fine", "all good"))
	r := NewReconciler(client, st, handled)

	clk.SetTime(start.Add(time.Second))
	result, err := r.Reconcile(context.Background(), requestFor("example"))
	require.NoError(t, err)
	assert.Equal(t, reconcile.Result{RequeueAfter: 1800 * time.Second}, result)

	result, err = r.Reconcile(context.Background(), requestFor("fine"))
	require.NoError(t, err)
	assert.Equal(t, RequeueAfter, result.RequeueAfter)

	assert.Equal(t, []string{`{"status":{"is_bad":true}}`}, client.patches["default/example"])
	assert.Equal(t, []string{`{"status":{"is_bad":false}}`}, client.patches["default/fine"])

	snap := st.Snapshot()
	assert.Equal(t, int64(2), snap.HandledCount)
	assert.Equal(t, start.Add(time.Second), snap.LastEvent)
	assert.Equal(t, float64(2), testutil.ToFloat64(handled))
}

func TestReconcileFailures(t *testing.T) {
	policy := reconcile.FixedDelay(RetryInterval)

	cases := []struct {
		name   string
		setup  func(c *fakeClient)
		key    string
		reason Reason
	}{
		{
			name:   "patch rejected",
			setup:  func(c *fakeClient) { c.patchErr = errors.New("connection refused") },
			key:    "example",
			reason: ReasonStatusPatchFailed,
		},
		{
			name:   "object vanished",
			setup:  func(c *fakeClient) {},
			key:    "missing",
			reason: ReasonObjectNotFound,
		},
		{
			name:   "fetch failed",
			setup:  func(c *fakeClient) { c.getErr = errors.New("timeout") },
			key:    "example",
			reason: ReasonFetchFailed,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
			clk := clocktesting.NewFakePassiveClock(start)
			st := state.New(clk)
			client := newFakeClient(newFoo("example", "bad"))
			c.setup(client)
			r := NewReconciler(client, st, nil)

			clk.SetTime(start.Add(time.Minute))
			result, err := r.Reconcile(context.Background(), requestFor(c.key))
			require.Error(t, err)
			assert.True(t, result.IsZero())
			assert.Equal(t, c.reason, ReasonOf(err))

			var rerr *Error
			require.ErrorAs(t, err, &rerr)
			assert.Equal(t, "default/"+c.key, rerr.Key)

			// the attempt is recorded, the success is not
			snap := st.Snapshot()
			assert.Equal(t, int64(0), snap.HandledCount)
			assert.Equal(t, start.Add(time.Minute), snap.LastEvent)

			assert.Equal(t, reconcile.Result{RequeueAfter: 360 * time.Second},
				policy.OnError(context.Background(), requestFor(c.key), err))
		})
	}
}

func TestReconcileSerializationFailed(t *testing.T) {
	marshal = func(any) ([]byte, error) { return nil, errors.New("unsupported value") }
	defer func() { marshal = json.Marshal }()

	st := state.New(nil)
	client := newFakeClient(newFoo("example", "bad"))
	r := NewReconciler(client, st, nil)

	_, err := r.Reconcile(context.Background(), requestFor("example"))
	assert.Equal(t, ReasonSerializationFailed, ReasonOf(err))
	assert.Empty(t, client.patches)
	assert.Equal(t, int64(0), st.Snapshot().HandledCount)
}

func TestReasonOf(t *testing.T) {
	assert.Equal(t, ReasonUnknown, ReasonOf(errors.New("panic: boom [recovered]")))
	err := newError(ReasonStatusPatchFailed, "default/example", errors.New("rejected"), "patch status")
	assert.Equal(t, ReasonStatusPatchFailed, ReasonOf(err))
	assert.Contains(t, err.Error(), "patch status: rejected")
}

func TestReconcileConcurrentKeys(t *testing.T) {
	st := state.New(nil)
	var foos []*apis.Foo
	for _, name := range []string{"a", "b", "c", "d"} {
		foos = append(foos, newFoo(name, "bad"))
	}
	client := newFakeClient(foos...)
	r := NewReconciler(client, st, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		for _, foo := range foos {
			wg.Add(1)
			go func(name string) {
				defer wg.Done()
				_, err := r.Reconcile(context.Background(), requestFor(name))
				assert.NoError(t, err)
			}(foo.Name)
		}
	}
	wg.Wait()
	assert.Equal(t, int64(40), st.Snapshot().HandledCount)
}
