// Package memory is a map backed storage.WatchableStore. Objects are kept
// encoded so callers never share memory with the store.
package memory

import (
	"context"
	"encoding/json"
	"reflect"
	"sort"
	"strconv"
	"sync"

	"github.com/sunyakun/foo-controller/pkg/apis"
	"github.com/sunyakun/foo-controller/pkg/storage"
	"github.com/sunyakun/foo-controller/pkg/storage/selector"
	"github.com/sunyakun/foo-controller/pkg/watch"
)

// Strategy holds the type specific parts of the store.
type Strategy[PT any] struct {
	// Fields flattens obj for selector matching.
	Fields func(obj PT) selector.Fields
	// PrepareForCreate fills the fields owned by the store on a new object.
	PrepareForCreate func(obj PT)
	// PrepareForUpdate restores on newObj what Update must not change, e.g. status.
	PrepareForUpdate func(newObj, oldObj PT)
	// PrepareForStatusUpdate restores on newObj everything except status.
	PrepareForStatusUpdate func(newObj, oldObj PT)
}

type store[T any, PT interface {
	apis.Object
	*T
}] struct {
	mu         sync.RWMutex
	data       map[string][]byte
	revision   int64
	typeName   string
	strategy   Strategy[PT]
	pubwatcher watch.EventPubWatcher[T]
}

var (
	_ storage.WatchableStore[apis.Foo] = &store[apis.Foo, *apis.Foo]{}
	_ storage.SchemaChecker            = &store[apis.Foo, *apis.Foo]{}
)

// New returns an empty store. Watch events are published on pubsub, an
// in-process gochannel is used when it's nil.
func New[T any, PT interface {
	apis.Object
	*T
}](pubsub watch.PubSub, strategy Strategy[PT]) (*store[T, PT], error) {
	if pubsub == nil {
		pubsub = watch.NewGoChannelPubSub(nil)
	}
	pubwatcher, err := watch.NewPubWatcher[T](pubsub)
	if err != nil {
		return nil, err
	}
	return &store[T, PT]{
		data:       map[string][]byte{},
		typeName:   reflect.TypeOf((*T)(nil)).Elem().Name(),
		strategy:   strategy,
		pubwatcher: pubwatcher,
	}, nil
}

func (s *store[T, PT]) decode(data []byte) (PT, error) {
	obj := PT(new(T))
	if err := json.Unmarshal(data, obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// put stores obj under key with the next revision. Must be called with mu held.
func (s *store[T, PT]) put(key string, obj PT) error {
	s.revision++
	obj.SetResourceVersion(strconv.FormatInt(s.revision, 10))
	data, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	s.data[key] = data
	return nil
}

func (s *store[T, PT]) Get(ctx context.Context, key string) (*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[key]
	if !ok {
		return nil, storage.NewNotFoundError(s.typeName, key)
	}
	return s.decode(data)
}

func (s *store[T, PT]) GetList(ctx context.Context, opts storage.ListOptions) ([]*T, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var matched []*T
	for _, key := range keys {
		obj, err := s.decode(s.data[key])
		if err != nil {
			return nil, 0, err
		}
		if s.strategy.Fields != nil && !selector.Matches(opts.Requirements, s.strategy.Fields(obj)) {
			continue
		}
		matched = append(matched, obj)
	}

	count := int64(len(matched))
	if opts.Offset > len(matched) {
		return nil, count, nil
	}
	matched = matched[max(opts.Offset, 0):]
	if opts.Limit > 0 && opts.Limit < len(matched) {
		matched = matched[:opts.Limit]
	}
	return matched, count, nil
}

func (s *store[T, PT]) Create(ctx context.Context, obj *T) (*T, error) {
	pt := PT(obj)
	key := pt.GetKey()

	s.mu.Lock()
	if _, ok := s.data[key]; ok {
		s.mu.Unlock()
		return nil, storage.NewAlreadyExistError(s.typeName, key)
	}
	if s.strategy.PrepareForCreate != nil {
		s.strategy.PrepareForCreate(pt)
	}
	if err := s.put(key, pt); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()

	return obj, s.pubwatcher.Publish(ctx, watch.EventTypeCreated, obj)
}

func (s *store[T, PT]) modify(ctx context.Context, key string, obj *T, prepare func(newObj, oldObj PT)) error {
	pt := PT(obj)

	s.mu.Lock()
	data, ok := s.data[key]
	if !ok {
		s.mu.Unlock()
		return storage.NewNotFoundError(s.typeName, key)
	}
	old, err := s.decode(data)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if rv := pt.GetResourceVersion(); rv != "" && rv != old.GetResourceVersion() {
		s.mu.Unlock()
		return storage.NewConcurrentConflictError()
	}
	pt.SetKey(key)
	if prepare != nil {
		prepare(pt, old)
	}
	if err := s.put(key, pt); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	return s.pubwatcher.Publish(ctx, watch.EventTypeUpdated, obj)
}

func (s *store[T, PT]) Update(ctx context.Context, key string, obj *T) error {
	return s.modify(ctx, key, obj, s.strategy.PrepareForUpdate)
}

func (s *store[T, PT]) UpdateStatus(ctx context.Context, key string, obj *T) error {
	return s.modify(ctx, key, obj, s.strategy.PrepareForStatusUpdate)
}

func (s *store[T, PT]) Delete(ctx context.Context, key string, obj *T) error {
	s.mu.Lock()
	data, ok := s.data[key]
	if !ok {
		s.mu.Unlock()
		return storage.NewNotFoundError(s.typeName, key)
	}
	old, err := s.decode(data)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if obj != nil {
		if rv := PT(obj).GetResourceVersion(); rv != "" && rv != old.GetResourceVersion() {
			s.mu.Unlock()
			return storage.NewConcurrentConflictError()
		}
	}
	delete(s.data, key)
	s.mu.Unlock()

	if obj != nil {
		*obj = *old
	}
	return s.pubwatcher.Publish(ctx, watch.EventTypeDeleted, old)
}

func (s *store[T, PT]) Watch(ctx context.Context) (watch.Channel[T], error) {
	return s.pubwatcher.Watch(ctx)
}

// HasSchema always reports true, the store needs no schema.
func (s *store[T, PT]) HasSchema(ctx context.Context) (bool, error) {
	return true, nil
}
