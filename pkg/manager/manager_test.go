package manager

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunyakun/foo-controller/pkg/apis"
	"github.com/sunyakun/foo-controller/pkg/config"
	"github.com/sunyakun/foo-controller/pkg/controller"
	"github.com/sunyakun/foo-controller/pkg/rest"
	"github.com/sunyakun/foo-controller/pkg/state"
)

func memoryConfig() config.Config {
	cfg := config.Default()
	cfg.Backend = config.BackendMemory
	cfg.Listen = "127.0.0.1:0"
	cfg.Workers = 2
	return cfg
}

func runManager(t *testing.T, m *Manager) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()
	return cancel, done
}

func TestManagerMemoryBackend(t *testing.T) {
	m, err := New(memoryConfig(), logr.Discard())
	require.NoError(t, err)
	require.NotNil(t, m.Resource())
	cancel, done := runManager(t, m)

	ctx := context.Background()
	api := m.Resource()
	_, err = api.Create(ctx, &apis.Foo{
		ObjectMeta: apis.ObjectMeta{Name: "bad-one"},
		Spec:       apis.FooSpec{Name: "bad-one", Info: "this is bad news"},
	})
	require.NoError(t, err)
	_, err = api.Create(ctx, &apis.Foo{
		ObjectMeta: apis.ObjectMeta{Name: "good-one"},
		Spec:       apis.FooSpec{Name: "good-one", Info: "fine"},
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		foo, err := api.Get(ctx, "default/bad-one")
		return err == nil && foo.Status.IsBad
	}, 10*time.Second, 20*time.Millisecond)
	assert.Eventually(t, func() bool {
		return m.State().HandledCount >= 2
	}, 10*time.Second, 20*time.Millisecond)

	// a spec change converges the status back
	foo, err := api.Get(ctx, "default/bad-one")
	require.NoError(t, err)
	foo.Spec.Info = "all good now"
	require.NoError(t, api.Update(ctx, foo.GetKey(), foo))
	assert.Eventually(t, func() bool {
		foo, err := api.Get(ctx, "default/bad-one")
		return err == nil && !foo.Status.IsBad
	}, 10*time.Second, 20*time.Millisecond)

	good, err := api.Get(ctx, "default/good-one")
	require.NoError(t, err)
	assert.False(t, good.Status.IsBad)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("the manager did not stop")
	}
}

func TestManagerEndpoints(t *testing.T) {
	m, err := New(memoryConfig(), logr.Discard())
	require.NoError(t, err)
	m.state.RecordHandled()
	m.metrics.HandledEvents.Inc()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	var snap state.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, int64(1), snap.HandledCount)
	assert.False(t, snap.LastEvent.IsZero())

	resp, err = srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "handled_events 1")

	// the resource API and its discovery are served next to the state
	client := rest.NewHTTPRestClient[apis.Foo, *apis.Foo](apis.FooResource, srv.URL, nil)
	require.NoError(t, ServedBy(client).Check(context.Background()))
	_, err = client.Create(context.Background(), &apis.Foo{ObjectMeta: apis.ObjectMeta{Name: "example"}})
	require.NoError(t, err)
	foo, err := m.Resource().Get(context.Background(), "default/example")
	require.NoError(t, err)
	assert.Equal(t, "example", foo.Name)
}

func TestHTTPBackend(t *testing.T) {
	// a manager serving the resource API, another one reconciling over HTTP
	server, err := New(memoryConfig(), logr.Discard())
	require.NoError(t, err)
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	_, err = server.Resource().Create(context.Background(), &apis.Foo{
		ObjectMeta: apis.ObjectMeta{Namespace: "team-a", Name: "remote"},
		Spec:       apis.FooSpec{Name: "remote", Info: "bad"},
	})
	require.NoError(t, err)

	cfg := memoryConfig()
	cfg.Backend = config.BackendHTTP
	cfg.APIServer = srv.URL
	m, err := New(cfg, logr.Discard())
	require.NoError(t, err)
	assert.Nil(t, m.Resource())
	cancel, done := runManager(t, m)

	assert.Eventually(t, func() bool {
		foo, err := server.Resource().Get(context.Background(), "team-a/remote")
		return err == nil && foo.Status.IsBad
	}, 10*time.Second, 20*time.Millisecond)
	assert.Equal(t, int64(0), server.State().HandledCount)
	assert.GreaterOrEqual(t, m.State().HandledCount, int64(1))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("the manager did not stop")
	}
}

func TestPrerequisiteMissing(t *testing.T) {
	// nothing serves the api at this address
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()

	cfg := memoryConfig()
	cfg.Backend = config.BackendHTTP
	cfg.APIServer = url
	m, err := New(cfg, logr.Discard())
	require.NoError(t, err)

	err = m.Run(context.Background())
	assert.ErrorIs(t, err, controller.ErrPrerequisiteMissing)
	assert.Equal(t, int64(0), m.State().HandledCount)
}

func TestNamespacePredicate(t *testing.T) {
	p := namespacePredicate("team-a")
	in := &apis.Foo{ObjectMeta: apis.ObjectMeta{Namespace: "team-a", Name: "x"}}
	out := &apis.Foo{ObjectMeta: apis.ObjectMeta{Namespace: "team-b", Name: "x"}}
	assert.True(t, p.Create(controller.CreateEvent{Object: in}))
	assert.False(t, p.Create(controller.CreateEvent{Object: out}))
	assert.False(t, p.Update(controller.UpdateEvent{ObjectNew: out}))
	assert.True(t, p.Generic(controller.GenericEvent{}))
	assert.True(t, namespacePredicate("").Delete(controller.DeleteEvent{Object: out}))
}

func TestNewInvalidConfig(t *testing.T) {
	cfg := memoryConfig()
	cfg.Workers = 0
	_, err := New(cfg, logr.Discard())
	assert.Error(t, err)
}

func TestManagerDeletedFooIsNotRetried(t *testing.T) {
	cfg := memoryConfig()
	cfg.RetryInterval = 50 * time.Millisecond
	m, err := New(cfg, logr.Discard())
	require.NoError(t, err)
	cancel, done := runManager(t, m)
	defer func() {
		cancel()
		<-done
	}()

	ctx := context.Background()
	api := m.Resource()
	_, err = api.Create(ctx, &apis.Foo{
		ObjectMeta: apis.ObjectMeta{Name: "short-lived"},
		Spec:       apis.FooSpec{Name: "short-lived", Info: "bad"},
	})
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		return m.State().HandledCount >= 1
	}, 10*time.Second, 20*time.Millisecond)
	require.NoError(t, api.Delete(ctx, "default/short-lived"))

	notFound := func() float64 {
		return testutil.ToFloat64(m.Metrics().ReconcileErrors.WithLabelValues("ObjectNotFound"))
	}
	time.Sleep(300 * time.Millisecond)
	settled := notFound()
	time.Sleep(time.Second)
	assert.Equal(t, settled, notFound())
}
