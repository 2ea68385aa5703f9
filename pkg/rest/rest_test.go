package rest

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/emicklei/go-restful/v3"
	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunyakun/foo-controller/pkg/admission"
	"github.com/sunyakun/foo-controller/pkg/apis"
	"github.com/sunyakun/foo-controller/pkg/errors"
	"github.com/sunyakun/foo-controller/pkg/storage/memory"
	"github.com/sunyakun/foo-controller/pkg/watch"
)

type fooAPI = RestAPI[apis.Foo, *apis.Foo, apis.Foo]

func newFooAPI(t *testing.T) *fooAPI {
	t.Helper()
	scheme, err := apis.NewFooScheme()
	require.NoError(t, err)
	store, err := memory.NewFooStore(nil)
	require.NoError(t, err)
	return NewRestAPI[apis.Foo, *apis.Foo, apis.Foo](
		apis.FooResource, store, scheme, IdentityConverter[apis.Foo, *apis.Foo]{}, logr.Discard(), admission.FooPlugins(),
	)
}

func newFoo(name, info string) *apis.Foo {
	return &apis.Foo{
		ObjectMeta: apis.ObjectMeta{Name: name},
		Spec:       apis.FooSpec{Name: name, Info: info},
	}
}

func TestRestAPICreateUpdate(t *testing.T) {
	ctx := context.Background()
	api := newFooAPI(t)

	in := newFoo("example", "fine")
	in.Status.IsBad = true
	created, err := api.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "default/example", created.GetKey())
	assert.Equal(t, apis.FooKind, created.Kind)
	assert.False(t, created.Status.IsBad, "status is reset on create")

	_, err = api.Create(ctx, newFoo("example", "again"))
	assert.True(t, errors.IsConflictError(err))

	_, err = api.Create(ctx, newFoo("", "nameless"))
	assert.True(t, errors.IsBadRequestError(err))

	require.NoError(t, api.PatchStatus(ctx, "default/example", []byte(`{"status":{"is_bad":true}}`)))

	update := newFoo("ignored", "bad news")
	update.Status.IsBad = false
	require.NoError(t, api.Update(ctx, "default/example", update))

	got, err := api.Get(ctx, "default/example")
	require.NoError(t, err)
	assert.Equal(t, "bad news", got.Spec.Info)
	assert.True(t, got.Status.IsBad, "update never writes status")

	_, err = api.Get(ctx, "default/missing")
	assert.True(t, errors.IsNotFoundError(err))

	require.NoError(t, api.Delete(ctx, "default/example"))
	assert.True(t, errors.IsNotFoundError(api.Delete(ctx, "default/example")))
}

func TestRestAPIPatchStatus(t *testing.T) {
	ctx := context.Background()
	api := newFooAPI(t)
	_, err := api.Create(ctx, newFoo("example", "fine"))
	require.NoError(t, err)

	require.NoError(t, api.PatchStatus(ctx, "default/example", []byte(`{"status":{"is_bad":true}}`)))
	got, err := api.Get(ctx, "default/example")
	require.NoError(t, err)
	assert.True(t, got.Status.IsBad)
	assert.Equal(t, "fine", got.Spec.Info)
	rv := got.ResourceVersion

	// unchanged status doesn't write
	require.NoError(t, api.PatchStatus(ctx, "default/example", []byte(`{"status":{"is_bad":true}}`)))
	got, err = api.Get(ctx, "default/example")
	require.NoError(t, err)
	assert.Equal(t, rv, got.ResourceVersion)

	for _, patch := range []string{
		`{"spec":{"info":"bad"}}`,
		`{"status":{"is_bad":false},"spec":{"info":"bad"}}`,
		`{}`,
	} {
		err := api.PatchStatus(ctx, "default/example", []byte(patch))
		assert.True(t, errors.IsInvalidPatchError(err), patch)
	}
	assert.True(t, errors.IsBadRequestError(api.PatchStatus(ctx, "default/example", []byte(`not json`))))
	assert.True(t, errors.IsNotFoundError(api.PatchStatus(ctx, "default/missing", []byte(`{"status":{"is_bad":true}}`))))
}

func TestRestAPIWatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	api := newFooAPI(t)

	ch, err := api.Watch(ctx)
	require.NoError(t, err)
	defer ch.Stop()
	events, err := ch.ResultChan()
	require.NoError(t, err)

	_, err = api.Create(ctx, newFoo("example", "fine"))
	require.NoError(t, err)

	select {
	case evt := <-events:
		assert.Equal(t, watch.EventTypeCreated, evt.Type)
		assert.Equal(t, "default/example", evt.Obj.GetKey())
		assert.Equal(t, apis.FooKind, evt.Obj.GetKind())
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestHTTPRestClient(t *testing.T) {
	ctx := context.Background()
	api := newFooAPI(t)

	container := restful.NewContainer()
	api.Install(container)
	InstallDiscovery(container, api.scheme)
	server := httptest.NewServer(container)
	defer server.Close()

	cli := NewHTTPRestClient[apis.Foo, *apis.Foo](apis.FooResource, server.URL, nil)

	created, err := cli.Create(ctx, newFoo("example", "this is bad news"))
	require.NoError(t, err)
	assert.Equal(t, "default", created.Namespace)
	assert.Equal(t, "1", created.ResourceVersion)

	_, err = cli.Create(ctx, newFoo("other", "fine"))
	require.NoError(t, err)

	got, err := cli.Get(ctx, "default/example")
	require.NoError(t, err)
	assert.Equal(t, "this is bad news", got.Spec.Info)

	_, err = cli.Get(ctx, "default/missing")
	assert.True(t, errors.IsNotFoundError(err), err)

	require.NoError(t, cli.PatchStatus(ctx, "default/example", []byte(`{"status":{"is_bad":true}}`)))
	got, err = cli.Get(ctx, "default/example")
	require.NoError(t, err)
	assert.True(t, got.Status.IsBad)

	err = cli.PatchStatus(ctx, "default/example", []byte(`{"spec":{"info":"x"}}`))
	assert.True(t, errors.IsInvalidPatchError(err), err)

	items, count, err := cli.GetList(ctx, apis.ListOptions{Limit: 10, Selector: "is_bad=true"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	require.Len(t, items, 1)
	assert.Equal(t, "example", items[0].Name)

	update := got
	update.Spec.Info = "fine now"
	require.NoError(t, cli.Update(ctx, "default/example", update))
	assert.Equal(t, "fine now", update.Spec.Info)
	assert.True(t, update.Status.IsBad)

	resources, err := cli.Discover(ctx)
	require.NoError(t, err)
	require.Len(t, resources.Resources, 1)
	assert.Equal(t, apis.FooResource, resources.Resources[0].Name)
	assert.Equal(t, []string{"status"}, resources.Resources[0].Subresources)

	require.NoError(t, cli.Delete(ctx, "default/other"))
	_, count, err = cli.GetList(ctx, apis.ListOptions{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}
