package controller

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/types"

	"github.com/sunyakun/foo-controller/pkg/apis"
	"github.com/sunyakun/foo-controller/pkg/rest"
	"github.com/sunyakun/foo-controller/pkg/util"
	"github.com/sunyakun/foo-controller/pkg/watch"
)

type Source interface {
	// Start is internal and should be called only by the Controller to register an EventHandler with the Informer
	// to enqueue reconcile.Requests. Start must not block.
	Start(context.Context, EventHandler, RateLimiter, ...Predicate) error
}

func crashCatcher(logger logr.Logger, source string) func() {
	return util.NewCrashCatcher([]func(any){
		func(r any) {
			logger.Error(util.PanicError(r), "source stopped by a panic", "source", source)
		},
	})
}

type source struct {
	channel rest.Channel
}

// NewSource create a Source to handle the storage Create/Update/Delete event
func NewSource(channel rest.Channel) Source {
	return &source{
		channel: channel,
	}
}

func (s *source) Start(ctx context.Context, eventHandler EventHandler, rateLimiter RateLimiter, predicates ...Predicate) error {
	eventCh, err := s.channel.ResultChan()
	if err != nil {
		return err
	}
	logger := logr.FromContextOrDiscard(ctx)
	go func() {
		defer crashCatcher(logger, "watch")()
		defer s.channel.Stop()
		for {
			select {
			case evt, ok := <-eventCh:
				if !ok {
					logger.Info("watch channel closed")
					return
				}
				if evt.Obj == nil || evt.Obj.GetName() == "" {
					continue
				}
				dispatch(ctx, evt, eventHandler, rateLimiter, predicates)
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Watcher opens a watch channel on a resource.
type Watcher interface {
	Watch(ctx context.Context) (rest.Channel, error)
}

type watchSource struct {
	watcher Watcher
}

// NewWatchSource create a Source that opens the watch channel of watcher when
// the controller starts and stops it with the controller.
func NewWatchSource(watcher Watcher) Source {
	return &watchSource{watcher: watcher}
}

func (s *watchSource) Start(ctx context.Context, eventHandler EventHandler, rateLimiter RateLimiter, predicates ...Predicate) error {
	channel, err := s.watcher.Watch(ctx)
	if err != nil {
		return err
	}
	return NewSource(channel).Start(ctx, eventHandler, rateLimiter, predicates...)
}

func dispatch(ctx context.Context, evt rest.Event, eventHandler EventHandler, rateLimiter RateLimiter, predicates []Predicate) {
	switch evt.Type {
	case watch.EventTypeCreated:
		createEvent := CreateEvent{Object: evt.Obj}
		for _, predicate := range predicates {
			if !predicate.Create(createEvent) {
				return
			}
		}
		eventHandler.Create(ctx, createEvent, rateLimiter)
	case watch.EventTypeUpdated:
		updateEvent := UpdateEvent{ObjectNew: evt.Obj}
		for _, predicate := range predicates {
			if !predicate.Update(updateEvent) {
				return
			}
		}
		eventHandler.Update(ctx, updateEvent, rateLimiter)
	case watch.EventTypeDeleted:
		emitDelete(ctx, DeleteEvent{Object: evt.Obj}, eventHandler, rateLimiter, predicates)
	default:
		emitGeneric(ctx, GenericEvent{Object: evt.Obj}, eventHandler, rateLimiter, predicates)
	}
}

func emitGeneric(ctx context.Context, evt GenericEvent, eventHandler EventHandler, rateLimiter RateLimiter, predicates []Predicate) {
	for _, predicate := range predicates {
		if !predicate.Generic(evt) {
			return
		}
	}
	eventHandler.Generic(ctx, evt, rateLimiter)
}

func emitDelete(ctx context.Context, evt DeleteEvent, eventHandler EventHandler, rateLimiter RateLimiter, predicates []Predicate) {
	for _, predicate := range predicates {
		if !predicate.Delete(evt) {
			return
		}
	}
	eventHandler.Delete(ctx, evt, rateLimiter)
}

// Lister lists objects page by page.
type Lister[T apis.Object] interface {
	GetList(ctx context.Context, opts apis.ListOptions) ([]T, int64, error)
}

const defaultListPageSize = 100

// listAll emits a generic event for every object of lister.
func listAll[T apis.Object](ctx context.Context, lister Lister[T], pageSize int, emit func(apis.Object)) error {
	for offset := 0; ; {
		items, count, err := lister.GetList(ctx, apis.ListOptions{Offset: offset, Limit: pageSize})
		if err != nil {
			return err
		}
		for _, item := range items {
			emit(item)
		}
		offset += len(items)
		if len(items) == 0 || int64(offset) >= count {
			return nil
		}
	}
}

type listSource[T apis.Object] struct {
	lister   Lister[T]
	pageSize int
}

// NewListSource create a Source that emits a generic event for every existing
// object once, when the controller starts.
func NewListSource[T apis.Object](lister Lister[T]) Source {
	return &listSource[T]{lister: lister, pageSize: defaultListPageSize}
}

func (s *listSource[T]) Start(ctx context.Context, eventHandler EventHandler, rateLimiter RateLimiter, predicates ...Predicate) error {
	logger := logr.FromContextOrDiscard(ctx)
	go func() {
		defer crashCatcher(logger, "list")()
		err := listAll(ctx, s.lister, s.pageSize, func(obj apis.Object) {
			emitGeneric(ctx, GenericEvent{Object: obj}, eventHandler, rateLimiter, predicates)
		})
		if err != nil {
			logger.Error(err, "initial list failed")
		}
	}()
	return nil
}

type TimerSource[T apis.Object] struct {
	interval    time.Duration
	lister      Lister[T]
	listOnStart bool
}

// NewTimerSource create a Source that fires every interval. With a lister it
// emits a generic event for every listed object, and a delete event for every
// object of the previous list that is gone. Without a lister it emits one
// empty event.
func NewTimerSource[T apis.Object](interval time.Duration, lister Lister[T]) Source {
	return &TimerSource[T]{
		interval: interval,
		lister:   lister,
	}
}

// NewRelistSource is a TimerSource that also lists once when it starts. It
// serves backends without a watch, where the relist is the only way to see
// objects appear and disappear.
func NewRelistSource[T apis.Object](interval time.Duration, lister Lister[T]) Source {
	return &TimerSource[T]{
		interval:    interval,
		lister:      lister,
		listOnStart: true,
	}
}

// relist emits the current objects and the deletes since known. It returns
// the objects it saw, or known when the list failed.
func (s *TimerSource[T]) relist(ctx context.Context, known map[types.NamespacedName]apis.Object, eventHandler EventHandler, rateLimiter RateLimiter, predicates []Predicate) (map[types.NamespacedName]apis.Object, error) {
	seen := make(map[types.NamespacedName]apis.Object, len(known))
	err := listAll(ctx, s.lister, defaultListPageSize, func(obj apis.Object) {
		seen[apis.NamespacedName(obj)] = obj
		emitGeneric(ctx, GenericEvent{Object: obj}, eventHandler, rateLimiter, predicates)
	})
	if err != nil {
		return known, err
	}
	for key, obj := range known {
		if _, ok := seen[key]; !ok {
			emitDelete(ctx, DeleteEvent{Object: obj}, eventHandler, rateLimiter, predicates)
		}
	}
	return seen, nil
}

func (s *TimerSource[T]) Start(ctx context.Context, eventHandler EventHandler, rateLimiter RateLimiter, predicates ...Predicate) error {
	logger := logr.FromContextOrDiscard(ctx)
	tick := time.NewTicker(s.interval)
	go func() {
		defer crashCatcher(logger, "timer")()
		defer tick.Stop()
		var known map[types.NamespacedName]apis.Object
		var err error
		if s.lister != nil && s.listOnStart {
			if known, err = s.relist(ctx, known, eventHandler, rateLimiter, predicates); err != nil {
				logger.Error(err, "initial list failed")
			}
		}
		for {
			select {
			case <-tick.C:
				if s.lister == nil {
					emitGeneric(ctx, GenericEvent{}, eventHandler, rateLimiter, predicates)
					continue
				}
				if known, err = s.relist(ctx, known, eventHandler, rateLimiter, predicates); err != nil {
					logger.Error(err, "periodic list failed")
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}
