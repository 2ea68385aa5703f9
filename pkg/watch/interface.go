// Package watch carries the events of the stores to their watchers over a
// watermill pubsub.
package watch

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
)

type EventType string

const (
	EventTypeCreated EventType = "Created"
	EventTypeUpdated EventType = "Updated"
	EventTypeDeleted EventType = "Deleted"
	// EventTypeError marks a message that could not be decoded.
	EventTypeError EventType = "Error"
)

// PubSub is implemented by the watermill gochannel and SQL pubsubs.
type PubSub interface {
	message.Publisher
	message.Subscriber
}

// Event is a change of one object, Obj is the object after the change or,
// for a delete, the last stored version.
type Event[T any] struct {
	Type EventType
	Obj  *T
}

type Channel[T any] interface {
	Stop()
	ResultChan() (<-chan Event[T], error)
}

type Watcher[T any] interface {
	Watch(context.Context) (Channel[T], error)
}

// EventPubWatcher publishes the events of a store and opens watches on them.
type EventPubWatcher[T any] interface {
	Publish(ctx context.Context, eventType EventType, obj *T) error
	Close() error
	Watcher[T]
}
