package controller

import "github.com/sunyakun/foo-controller/pkg/apis"

// CreateEvent is an event where an object was created.
type CreateEvent struct {
	Object apis.Object
}

// UpdateEvent is an event where an object was updated. ObjectOld is nil when
// the source only knows the new state.
type UpdateEvent struct {
	ObjectOld apis.Object
	ObjectNew apis.Object
}

// DeleteEvent is an event where an object was deleted.
type DeleteEvent struct {
	Object apis.Object
}

// GenericEvent is an event from a resync or a timer. Object may be nil.
type GenericEvent struct {
	Object apis.Object
}
