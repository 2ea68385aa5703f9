package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type pubwatcher[T any] struct {
	topic  string
	pubsub PubSub
}

// NewGoChannelPubSub returns an in-process pubsub. Watchers only see events
// published after they subscribed.
func NewGoChannelPubSub(logger watermill.LoggerAdapter) PubSub {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, logger)
}

// NewPubWatcher publishes and watches the events of T on pubsub. The topic is
// derived from the package path and name of T.
func NewPubWatcher[T any](pubsub PubSub) (EventPubWatcher[T], error) {
	p := &pubwatcher[T]{pubsub: pubsub}
	p.topic = genTopicName[T]()
	if p.topic == "" {
		return nil, fmt.Errorf("the generic type T must have a name")
	}
	return p, nil
}

func (p *pubwatcher[T]) Close() error {
	return p.pubsub.Close()
}

func (p *pubwatcher[T]) Publish(ctx context.Context, eventType EventType, obj *T) error {
	payload, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewShortUUID(), payload)
	msg.Metadata.Set(metadataEventType, string(eventType))
	msg.SetContext(ctx)
	return p.pubsub.Publish(p.topic, msg)
}

func (p *pubwatcher[T]) Watch(ctx context.Context) (Channel[T], error) {
	ctx, cancel := context.WithCancel(ctx)
	msgCh, err := p.pubsub.Subscribe(ctx, p.topic)
	if err != nil {
		cancel()
		return nil, err
	}
	return &channel[T]{msgCh: msgCh, ctx: ctx, cancel: cancel}, nil
}

func genTopicName[T any]() string {
	var t T
	rt := reflect.TypeOf(t)
	if rt == nil || rt.PkgPath() == "" || rt.Name() == "" {
		return ""
	}
	return fmt.Sprintf("%s.%s", rt.PkgPath(), rt.Name())
}
