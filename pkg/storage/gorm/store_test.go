package gorm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gen/field"
	gormio "gorm.io/gorm"

	"github.com/sunyakun/foo-controller/pkg/storage/gorm/model"
	"github.com/sunyakun/foo-controller/pkg/storage/selector"
)

type fakeFieldGetter map[string]field.OrderExpr

func (f fakeFieldGetter) GetFieldByName(name string) (field.OrderExpr, bool) {
	e, ok := f[name]
	return e, ok
}

func fooFields() fakeFieldGetter {
	return fakeFieldGetter{
		"namespace":   field.NewString("foos", "namespace"),
		"is_bad":      field.NewBool("foos", "is_bad"),
		"id":          field.NewInt64("foos", "id"),
		"create_time": field.NewTime("foos", "create_time"),
	}
}

func TestNewStoreColumns(t *testing.T) {
	s, err := New[model.Foo](nil, func(ctx context.Context, tx *gormio.DB) any { return nil }, Config{
		KeyColumnName:        "object_key",
		RevisionColumnName:   "resource_version",
		StatusColumnNames:    []string{"is_bad"},
		ImmutableColumnNames: []string{"namespace", "name", "create_time"},
		FieldGetter:          fooFields(),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"spec_name", "info", "update_time"}, s.specColumns)
	assert.Equal(t, []string{"is_bad"}, s.statusColumns)
	assert.Equal(t, "Foo", s.typeName)

	_, err = New[model.Foo](nil, func(ctx context.Context, tx *gormio.DB) any { return nil }, Config{
		KeyColumnName:      "object_key",
		RevisionColumnName: "resource_version",
		StatusColumnNames:  []string{"no_such_column"},
	})
	assert.Error(t, err)

	_, err = New[model.Foo](nil, func(ctx context.Context, tx *gormio.DB) any { return nil }, Config{
		KeyColumnName: "object_key",
	})
	assert.Error(t, err)

	_, err = New[model.Foo](nil, func(ctx context.Context, tx *gormio.DB) any { return nil }, Config{
		KeyColumnName:      "is_bad",
		RevisionColumnName: "resource_version",
	})
	assert.Error(t, err)
}

func TestNextRevision(t *testing.T) {
	rv, err := nextRevision("")
	require.NoError(t, err)
	assert.Equal(t, "1", rv)

	rv, err = nextRevision("41")
	require.NoError(t, err)
	assert.Equal(t, "42", rv)

	_, err = nextRevision("abc")
	assert.Error(t, err)
}

func TestSelectorConditions(t *testing.T) {
	s := NewSelector(fooFields(), nil)

	requirements, err := selector.Parse("namespace=default,is_bad=true,id>3,!namespace")
	require.NoError(t, err)
	conds, err := s.GenerateConditions(requirements)
	require.NoError(t, err)
	assert.Len(t, conds, 4)

	requirements, err = selector.Parse("namespace in (a,b)")
	require.NoError(t, err)
	conds, err = s.GenerateConditions(requirements)
	require.NoError(t, err)
	assert.Len(t, conds, 1)

	for _, bad := range []string{"unknown=1", "is_bad=maybe", "is_bad!=true", "id=abc"} {
		requirements, err := selector.Parse(bad)
		require.NoError(t, err, bad)
		_, err = s.GenerateConditions(requirements)
		assert.Error(t, err, bad)
	}
}

func TestResolveColumns(t *testing.T) {
	fields, err := ResolveColumns(fooFields(), "namespace", "is_bad")
	require.NoError(t, err)
	_, ok := fields.GetFieldByName("is_bad")
	assert.True(t, ok)
	_, ok = fields.GetFieldByName("id")
	assert.False(t, ok)

	_, err = ResolveColumns(fooFields(), "namespace", "no_such_column")
	assert.ErrorIs(t, err, ErrUnknownColumn)
}
