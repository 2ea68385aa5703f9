package rest

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/sunyakun/foo-controller/pkg/apis"
	"github.com/sunyakun/foo-controller/pkg/watch"
)

type Channel interface {
	Stop()
	ResultChan() (<-chan Event, error)
}

type Event struct {
	Type watch.EventType
	Obj  apis.Object
}

type channel[T any, PT interface {
	apis.Object
	*T
}, ST any] struct {
	ctx       context.Context
	cancel    context.CancelFunc
	channel   watch.Channel[ST]
	logger    logr.Logger
	converter Converter[PT, ST]
	scheme    *apis.Scheme
}

// NewChannel converts the events of a store channel to api objects.
func NewChannel[T any, PT interface {
	apis.Object
	*T
}, ST any](storeChannel watch.Channel[ST], scheme *apis.Scheme, logger logr.Logger, converter Converter[PT, ST]) Channel {
	ctx, cancel := context.WithCancel(context.Background())
	return &channel[T, PT, ST]{
		ctx:       ctx,
		cancel:    cancel,
		channel:   storeChannel,
		logger:    logger,
		converter: converter,
		scheme:    scheme,
	}
}

func (c *channel[T, PT, ST]) Stop() {
	c.cancel()
	c.channel.Stop()
}

// ResultChan returns the converted events. The channel is closed once the
// store channel is exhausted or Stop is called.
func (c *channel[T, PT, ST]) ResultChan() (<-chan Event, error) {
	resultCh, err := c.channel.ResultChan()
	if err != nil {
		return nil, err
	}
	ch := make(chan Event)
	go func() {
		defer close(ch)
		for {
			var evt watch.Event[ST]
			select {
			case e, ok := <-resultCh:
				if !ok {
					return
				}
				evt = e
			case <-c.ctx.Done():
				return
			}
			if evt.Type == watch.EventTypeError || evt.Obj == nil {
				c.logger.Error(nil, "receive an unexpected event from the storage channel", "type", evt.Type)
				continue
			}
			var obj = PT(new(T))
			if err := c.converter.FromStorage(evt.Obj, obj); err != nil {
				c.logger.Error(err, "convert storage object to api object failed")
				continue
			}
			kind, err := c.scheme.ObjectKind(obj)
			if err != nil {
				c.logger.Error(err, "failed get object kind", "key", obj.GetKey())
			}
			obj.SetKind(kind)
			select {
			case ch <- Event{Type: evt.Type, Obj: obj}:
			case <-c.ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}
