package watch

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
)

const metadataEventType = "Type"

type channel[T any] struct {
	ctx    context.Context
	cancel context.CancelFunc
	msgCh  <-chan *message.Message
}

func (ch *channel[T]) Stop() {
	ch.cancel()
}

// ResultChan decodes the subscribed messages into events. The returned
// channel is closed when the subscription ends or Stop is called.
func (ch *channel[T]) ResultChan() (<-chan Event[T], error) {
	var evtCh = make(chan Event[T])
	go func() {
		defer close(evtCh)
		for {
			select {
			case msg, ok := <-ch.msgCh:
				if !ok || msg == nil {
					return
				}
				evt := decodeEvent[T](msg)
				select {
				case evtCh <- evt:
					msg.Ack()
				case <-ch.ctx.Done():
					msg.Nack()
					return
				}
			case <-ch.ctx.Done():
				return
			}
		}
	}()
	return evtCh, nil
}

func decodeEvent[T any](msg *message.Message) Event[T] {
	var obj T
	if err := json.Unmarshal(msg.Payload, &obj); err != nil {
		return Event[T]{Type: EventTypeError}
	}
	return Event[T]{Type: EventType(msg.Metadata.Get(metadataEventType)), Obj: &obj}
}
