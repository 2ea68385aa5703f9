package kube

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/dynamic/dynamicinformer"
	"k8s.io/client-go/tools/cache"

	"github.com/sunyakun/foo-controller/pkg/apis"
	"github.com/sunyakun/foo-controller/pkg/controller"
)

// InformerSource feeds the controller from a dynamic shared informer. The
// informer lists every Foo once when it starts and relists every resync
// period.
type InformerSource struct {
	factory  dynamicinformer.DynamicSharedInformerFactory
	informer cache.SharedIndexInformer
}

var _ controller.Source = &InformerSource{}

// NewInformerSource watches Foos in namespace, or in every namespace when it
// is empty.
func NewInformerSource(client dynamic.Interface, namespace string, resync time.Duration) *InformerSource {
	factory := dynamicinformer.NewFilteredDynamicSharedInformerFactory(client, resync, namespace, nil)
	return &InformerSource{
		factory:  factory,
		informer: factory.ForResource(FooGVR).Informer(),
	}
}

func (s *InformerSource) Start(ctx context.Context, handler controller.EventHandler, q controller.RateLimiter, predicates ...controller.Predicate) error {
	logger := logr.FromContextOrDiscard(ctx)
	if _, err := s.informer.AddEventHandler(eventHandlerFuncs(ctx, logger, handler, q, predicates)); err != nil {
		return err
	}
	s.factory.Start(ctx.Done())
	go func() {
		for gvr, synced := range s.factory.WaitForCacheSync(ctx.Done()) {
			logger.Info("informer synced", "resource", gvr.String(), "synced", synced)
		}
	}()
	return nil
}

// HasSynced reports whether the initial list was delivered.
func (s *InformerSource) HasSynced() bool {
	return s.informer.HasSynced()
}

func toFoo(logger logr.Logger, obj interface{}) apis.Object {
	if tombstone, ok := obj.(cache.DeletedFinalStateUnknown); ok {
		obj = tombstone.Obj
	}
	u, ok := obj.(*unstructured.Unstructured)
	if !ok {
		logger.Error(nil, "unexpected object from the informer", "object", obj)
		return nil
	}
	foo, err := FooFromUnstructured(u)
	if err != nil {
		logger.Error(err, "drop undecodable object")
		return nil
	}
	return foo
}

func eventHandlerFuncs(ctx context.Context, logger logr.Logger, handler controller.EventHandler, q controller.RateLimiter, predicates []controller.Predicate) cache.ResourceEventHandlerFuncs {
	return cache.ResourceEventHandlerFuncs{
		AddFunc: func(obj interface{}) {
			foo := toFoo(logger, obj)
			if foo == nil {
				return
			}
			evt := controller.CreateEvent{Object: foo}
			for _, p := range predicates {
				if !p.Create(evt) {
					return
				}
			}
			handler.Create(ctx, evt, q)
		},
		UpdateFunc: func(oldObj, newObj interface{}) {
			oldFoo, newFoo := toFoo(logger, oldObj), toFoo(logger, newObj)
			if newFoo == nil {
				return
			}
			evt := controller.UpdateEvent{ObjectOld: oldFoo, ObjectNew: newFoo}
			for _, p := range predicates {
				if !p.Update(evt) {
					return
				}
			}
			handler.Update(ctx, evt, q)
		},
		DeleteFunc: func(obj interface{}) {
			foo := toFoo(logger, obj)
			if foo == nil {
				return
			}
			evt := controller.DeleteEvent{Object: foo}
			for _, p := range predicates {
				if !p.Delete(evt) {
					return
				}
			}
			handler.Delete(ctx, evt, q)
		},
	}
}
