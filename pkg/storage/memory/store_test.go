package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunyakun/foo-controller/pkg/apis"
	"github.com/sunyakun/foo-controller/pkg/storage"
	"github.com/sunyakun/foo-controller/pkg/storage/selector"
	"github.com/sunyakun/foo-controller/pkg/watch"
)

func newFoo(ns, name, info string) *apis.Foo {
	return &apis.Foo{
		ObjectMeta: apis.ObjectMeta{Namespace: ns, Name: name},
		Spec:       apis.FooSpec{Name: name, Info: info},
	}
}

func TestStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s, err := NewFooStore(nil)
	require.NoError(t, err)

	created, err := s.Create(ctx, newFoo("default", "a", "fine"))
	require.NoError(t, err)
	assert.Equal(t, "1", created.ResourceVersion)
	assert.False(t, created.CreateTime.IsZero())

	_, err = s.Create(ctx, newFoo("default", "a", "fine"))
	assert.True(t, storage.IsAlreadyExistError(err))

	got, err := s.Get(ctx, "default/a")
	require.NoError(t, err)
	assert.Equal(t, "fine", got.Spec.Info)

	// mutating the returned object doesn't touch the store
	got.Spec.Info = "changed"
	again, err := s.Get(ctx, "default/a")
	require.NoError(t, err)
	assert.Equal(t, "fine", again.Spec.Info)

	_, err = s.Get(ctx, "default/missing")
	assert.True(t, storage.IsNotFoundError(err))

	require.NoError(t, s.Delete(ctx, "default/a", nil))
	assert.True(t, storage.IsNotFoundError(s.Delete(ctx, "default/a", nil)))
}

func TestStoreUpdateKeepsStatus(t *testing.T) {
	ctx := context.Background()
	s, err := NewFooStore(nil)
	require.NoError(t, err)
	_, err = s.Create(ctx, newFoo("default", "a", "fine"))
	require.NoError(t, err)

	status := newFoo("", "", "ignored")
	status.Status.IsBad = true
	require.NoError(t, s.UpdateStatus(ctx, "default/a", status))
	assert.Equal(t, "fine", status.Spec.Info)
	assert.Equal(t, "2", status.ResourceVersion)

	update := newFoo("", "", "bad now")
	require.NoError(t, s.Update(ctx, "default/a", update))

	got, err := s.Get(ctx, "default/a")
	require.NoError(t, err)
	assert.Equal(t, "bad now", got.Spec.Info)
	assert.True(t, got.Status.IsBad)
	assert.Equal(t, "3", got.ResourceVersion)

	stale := newFoo("", "", "stale")
	stale.ResourceVersion = "1"
	assert.True(t, storage.IsConcurrentConflictError(s.Update(ctx, "default/a", stale)))
	assert.True(t, storage.IsNotFoundError(s.UpdateStatus(ctx, "default/missing", newFoo("", "", ""))))
}

func TestStoreGetList(t *testing.T) {
	ctx := context.Background()
	s, err := NewFooStore(nil)
	require.NoError(t, err)
	for _, foo := range []*apis.Foo{
		newFoo("default", "c", "x"),
		newFoo("default", "a", "x"),
		newFoo("other", "b", "x"),
	} {
		_, err := s.Create(ctx, foo)
		require.NoError(t, err)
	}

	all, count, err := s.GetList(ctx, storage.ListOptions{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
	require.Len(t, all, 3)
	assert.Equal(t, "default/a", all[0].GetKey())
	assert.Equal(t, "other/b", all[2].GetKey())

	page, count, err := s.GetList(ctx, storage.ListOptions{Offset: 1, Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
	require.Len(t, page, 1)
	assert.Equal(t, "default/c", page[0].GetKey())

	requirements, err := selector.Parse("namespace=default")
	require.NoError(t, err)
	filtered, count, err := s.GetList(ctx, storage.ListOptions{Requirements: requirements})
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
	assert.Len(t, filtered, 2)

	empty, _, err := s.GetList(ctx, storage.ListOptions{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStoreWatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s, err := NewFooStore(nil)
	require.NoError(t, err)

	ch, err := s.Watch(ctx)
	require.NoError(t, err)
	defer ch.Stop()
	events, err := ch.ResultChan()
	require.NoError(t, err)

	_, err = s.Create(ctx, newFoo("default", "a", "fine"))
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "default/a", nil))

	var got []watch.EventType
	for i := 0; i < 2; i++ {
		select {
		case evt := <-events:
			got = append(got, evt.Type)
			assert.Equal(t, "default/a", evt.Obj.GetKey())
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for events")
		}
	}
	assert.ElementsMatch(t, []watch.EventType{watch.EventTypeCreated, watch.EventTypeDeleted}, got)
}
