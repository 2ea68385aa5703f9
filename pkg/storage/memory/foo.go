package memory

import (
	"strconv"
	"time"

	"github.com/sunyakun/foo-controller/pkg/apis"
	"github.com/sunyakun/foo-controller/pkg/storage/selector"
	"github.com/sunyakun/foo-controller/pkg/watch"
)

// FooStore is the in-memory store of Foos.
type FooStore = store[apis.Foo, *apis.Foo]

// FooStrategy keeps status out of Update and everything but status out of
// UpdateStatus. Selector fields use the same names as the MySQL columns.
var FooStrategy = Strategy[*apis.Foo]{
	Fields: func(foo *apis.Foo) selector.Fields {
		return selector.Fields{
			"namespace": foo.Namespace,
			"name":      foo.Name,
			"spec_name": foo.Spec.Name,
			"info":      foo.Spec.Info,
			"is_bad":    strconv.FormatBool(foo.Status.IsBad),
		}
	},
	PrepareForCreate: func(foo *apis.Foo) {
		foo.CreateTime = time.Now()
		foo.UpdateTime = foo.CreateTime
	},
	PrepareForUpdate: func(newObj, oldObj *apis.Foo) {
		newObj.Status = oldObj.Status
		newObj.CreateTime = oldObj.CreateTime
		newObj.UpdateTime = time.Now()
	},
	PrepareForStatusUpdate: func(newObj, oldObj *apis.Foo) {
		status := newObj.Status
		*newObj = *oldObj
		newObj.Status = status
	},
}

func NewFooStore(pubsub watch.PubSub) (*FooStore, error) {
	return New[apis.Foo](pubsub, FooStrategy)
}
