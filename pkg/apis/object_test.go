package apis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	foo := &Foo{}
	foo.SetKey("default/example")
	assert.Equal(t, "default", foo.Namespace)
	assert.Equal(t, "example", foo.Name)
	assert.Equal(t, "default/example", foo.GetKey())

	foo.SetKey("bare")
	assert.Equal(t, "", foo.Namespace)
	assert.Equal(t, "bare", foo.Name)
}

func TestFooJSON(t *testing.T) {
	foo := Foo{
		ObjectMeta: ObjectMeta{Namespace: "default", Name: "example"},
		Spec:       FooSpec{Name: "example", Info: "fine"},
		Status:     FooStatus{IsBad: true},
	}
	bs, err := json.Marshal(foo)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(bs, &decoded))
	assert.Equal(t, map[string]any{"is_bad": true}, decoded["status"])
	assert.Equal(t, map[string]any{"name": "example", "info": "fine"}, decoded["spec"])
}

func TestSchemeResources(t *testing.T) {
	scheme, err := NewFooScheme()
	require.NoError(t, err)

	kind, err := scheme.ObjectKind(&Foo{})
	require.NoError(t, err)
	assert.Equal(t, FooKind, kind)

	res, ok := scheme.Resource(FooResource)
	require.True(t, ok)
	assert.Equal(t, FooKind, res.Kind)
	assert.Equal(t, []string{"status"}, res.Subresources)

	assert.Error(t, scheme.AddKnownResource(APIResource{Name: FooResource}, &Foo{}))

	_, err = scheme.ObjectKind(&Status{})
	assert.Error(t, err)
}
