package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunyakun/foo-controller/pkg/apis"
)

func TestFooConverter(t *testing.T) {
	in := &apis.Foo{
		ObjectMeta: apis.ObjectMeta{Namespace: "default", Name: "example", ResourceVersion: "3"},
		Spec:       apis.FooSpec{Name: "example", Info: "bad things"},
		Status:     apis.FooStatus{IsBad: true},
	}

	row := &Foo{}
	require.NoError(t, FooConverter{}.ToStorage(in, row))
	assert.Equal(t, "default/example", row.ObjectKey)
	assert.Equal(t, "bad things", row.Info)
	assert.Equal(t, "example", row.SpecName)
	assert.True(t, row.IsBad)

	out := &apis.Foo{}
	require.NoError(t, FooConverter{}.FromStorage(row, out))
	assert.Equal(t, in, out)
}
