package admission

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunyakun/foo-controller/pkg/apis"
	"github.com/sunyakun/foo-controller/pkg/errors"
)

func TestChain(t *testing.T) {
	ctx := context.Background()
	chain := NewChain(FooPlugins()...)

	assert.True(t, chain.Handles(Create))
	assert.True(t, chain.Handles(Update))
	assert.False(t, chain.Handles(Delete))

	foo := &apis.Foo{
		ObjectMeta: apis.ObjectMeta{Name: "example"},
		Status:     apis.FooStatus{IsBad: true},
	}
	attrs := NewAttributes(Create, apis.FooResource, foo)
	require.NoError(t, chain.Admit(ctx, attrs))
	assert.Equal(t, DefaultNamespace, foo.Namespace)
	assert.False(t, foo.Status.IsBad)
	require.NoError(t, chain.Validate(ctx, attrs))

	// status is only reset on create
	foo.Status.IsBad = true
	require.NoError(t, chain.Admit(ctx, NewAttributes(Update, apis.FooResource, foo)))
	assert.True(t, foo.Status.IsBad)
}

func TestFooValidator(t *testing.T) {
	ctx := context.Background()
	for _, tc := range []struct {
		namespace, name string
		valid           bool
	}{
		{"default", "example", true},
		{"default", "Example", false},
		{"default", "", false},
		{"kube_system", "example", false},
	} {
		foo := &apis.Foo{ObjectMeta: apis.ObjectMeta{Namespace: tc.namespace, Name: tc.name}}
		err := FooValidator{}.Validate(ctx, NewAttributes(Update, apis.FooResource, foo))
		if tc.valid {
			assert.NoError(t, err, tc)
		} else {
			assert.True(t, errors.IsBadRequestError(err), tc)
		}
	}
}
