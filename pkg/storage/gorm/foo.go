package gorm

import (
	"context"
	"reflect"

	"gorm.io/gorm"

	"github.com/sunyakun/foo-controller/pkg/storage/gorm/model"
	"github.com/sunyakun/foo-controller/pkg/storage/gorm/query"
	"github.com/sunyakun/foo-controller/pkg/util"
	"github.com/sunyakun/foo-controller/pkg/watch"
)

// FooStore is the MySQL store of Foo rows.
type FooStore = store[model.Foo, query.IFooDo]

// NewFooStore returns the store of the "foos" table. Watch events are
// published on pubsub.
func NewFooStore(db *gorm.DB, pubsub watch.PubSub) (*FooStore, error) {
	fields, err := ResolveColumns(&query.Use(db).Foo, util.InspectColumns(reflect.TypeOf(model.Foo{}))...)
	if err != nil {
		return nil, err
	}
	return New[model.Foo](db, func(ctx context.Context, tx *gorm.DB) query.IFooDo {
		return query.Use(tx).Foo.WithContext(ctx)
	}, Config{
		KeyColumnName:        "object_key",
		RevisionColumnName:   "resource_version",
		StatusColumnNames:    []string{"is_bad"},
		ImmutableColumnNames: []string{"namespace", "name", "create_time"},
		FieldGetter:          fields,
		PubSub:               pubsub,
	})
}
