package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bombsimon/logrusr/v4"
	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"k8s.io/client-go/util/workqueue"

	"github.com/sunyakun/foo-controller/pkg/reconcile"
	"github.com/sunyakun/foo-controller/pkg/util"
)

// DefaultRetryInterval is the delay before a failed request is retried when no
// ErrorPolicy is configured.
const DefaultRetryInterval = 360 * time.Second

// ErrPrerequisiteMissing is returned by Start when a Prerequisite does not hold.
var ErrPrerequisiteMissing = errors.New("prerequisite missing")

// Prerequisite is checked once before the controller starts any source or worker.
type Prerequisite interface {
	Check(ctx context.Context) error
}

// PrerequisiteFunc is a function that implements Prerequisite.
type PrerequisiteFunc func(ctx context.Context) error

func (f PrerequisiteFunc) Check(ctx context.Context) error {
	return f(ctx)
}

// Observer is called after every reconcile with its outcome.
type Observer func(req reconcile.Request, result reconcile.Result, err error)

type WatchDescribe struct {
	name       string
	src        Source
	handler    EventHandler
	predicates []Predicate
}

func (wd *WatchDescribe) Name() string {
	return wd.name
}

func (wd *WatchDescribe) Start(ctx context.Context, rateLimiter RateLimiter) error {
	return wd.src.Start(ctx, wd.handler, rateLimiter, wd.predicates...)
}

func NewWatchDescribe(name string, src Source, handler EventHandler, predicates ...Predicate) *WatchDescribe {
	return &WatchDescribe{
		name:       name,
		src:        src,
		handler:    handler,
		predicates: predicates,
	}
}

type RateLimiter = workqueue.RateLimitingInterface

type WatchDescribeInterface interface {
	Name() string
	Start(context.Context, RateLimiter) error
}

type Controller interface {
	reconcile.Reconciler

	// Watch takes events provided by a Source and uses the EventHandler to
	// enqueue reconcile.Requests in response to the events.
	//
	// Watch may be provided one or more Predicates to filter events before
	// they are given to the EventHandler.  Events will be passed to the
	// EventHandler if all provided Predicates evaluate to true.
	Watch(WatchDescribeInterface) error

	// Start starts the controller.  Start blocks until the context is closed or a
	// controller has an error starting. Requests being reconciled when the
	// context is closed run to completion before Start returns.
	Start(ctx context.Context) error
}

type ControllerConfig struct {
	MaxConcurrentReconciles int
	RecoverPanic            bool
	Reconciler              reconcile.Reconciler
	// ErrorPolicy decides when a failed request is retried. Defaults to
	// reconcile.FixedDelay(DefaultRetryInterval).
	ErrorPolicy   reconcile.ErrorPolicy
	Prerequisites []Prerequisite
	Logger        logr.Logger
	// QueueRateLimiter is used by Requeue results. Defaults to
	// workqueue.DefaultControllerRateLimiter().
	QueueRateLimiter workqueue.RateLimiter
	Observer         Observer
}

type controller struct {
	mu             sync.Mutex
	ctx            context.Context
	watchDescribes []WatchDescribeInterface

	Name                    string
	Logger                  logr.Logger
	Do                      reconcile.Reconciler
	ErrorPolicy             reconcile.ErrorPolicy
	Prerequisites           []Prerequisite
	MaxConcurrentReconciles int
	RecoverPanic            *bool
	QueueRateLimiter        workqueue.RateLimiter
	Observer                Observer

	Started bool
	Queue   *requestQueue
}

func New(name string, config ControllerConfig) Controller {
	if config.Logger.GetSink() == nil {
		config.Logger = logrusr.New(logrus.New())
	}
	if config.ErrorPolicy == nil {
		config.ErrorPolicy = reconcile.FixedDelay(DefaultRetryInterval)
	}
	if config.MaxConcurrentReconciles <= 0 {
		config.MaxConcurrentReconciles = 1
	}
	if config.QueueRateLimiter == nil {
		config.QueueRateLimiter = workqueue.DefaultControllerRateLimiter()
	}

	ctl := &controller{
		Name:                    name,
		MaxConcurrentReconciles: config.MaxConcurrentReconciles,
		RecoverPanic:            lo.ToPtr(config.RecoverPanic),
		Logger:                  config.Logger.WithValues("controller", name),
		Do:                      config.Reconciler,
		ErrorPolicy:             config.ErrorPolicy,
		Prerequisites:           config.Prerequisites,
		QueueRateLimiter:        config.QueueRateLimiter,
		Observer:                config.Observer,
	}

	return ctl
}

func (ctl *controller) Watch(describe WatchDescribeInterface) error {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	if !ctl.Started {
		ctl.watchDescribes = append(ctl.watchDescribes, describe)
		return nil
	}
	return describe.Start(ctl.ctx, ctl.Queue)
}

func (ctl *controller) checkPrerequisites(ctx context.Context) error {
	for _, prerequisite := range ctl.Prerequisites {
		if err := prerequisite.Check(ctx); err != nil {
			return errors.Wrap(ErrPrerequisiteMissing, err.Error())
		}
	}
	return nil
}

func (ctl *controller) Start(ctx context.Context) error {
	ctl.mu.Lock()
	if ctl.Started {
		ctl.mu.Unlock()
		return fmt.Errorf("the controller '%s' has already started", ctl.Name)
	}

	if err := ctl.checkPrerequisites(ctx); err != nil {
		ctl.mu.Unlock()
		ctl.Logger.Error(err, "the controller can not start")
		return err
	}

	ctx = logr.NewContext(ctx, ctl.Logger)
	ctl.Queue = newRequestQueue(ctl.QueueRateLimiter, ctl.Name)
	ctl.ctx = ctx

	go func() {
		<-ctx.Done()
		ctl.Queue.ShutDown()
	}()

	for _, desc := range ctl.watchDescribes {
		ctl.Logger.Info("start watch", "resource", desc.Name())
		if err := desc.Start(ctx, ctl.Queue); err != nil {
			ctl.mu.Unlock()
			ctl.Queue.ShutDown()
			return err
		}
	}
	ctl.watchDescribes = nil
	ctl.Started = true
	ctl.mu.Unlock()

	wg := sync.WaitGroup{}
	wg.Add(ctl.MaxConcurrentReconciles)
	for i := 0; i < ctl.MaxConcurrentReconciles; i++ {
		go func() {
			defer wg.Done()
			for ctl.processNextWorkItem(ctx) {
			}
		}()
	}

	ctl.Logger.Info("the controller started", "MaxConcurrentReconciles", ctl.MaxConcurrentReconciles)

	<-ctx.Done()
	ctl.Logger.Info("shutdown signal received, waiting for in-flight reconciles")
	wg.Wait()
	ctl.Logger.Info("the controller stopped")
	return nil
}

// Reconcile implements reconcile.Reconciler.
func (ctl *controller) Reconcile(ctx context.Context, req reconcile.Request) (_ reconcile.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			if ctl.RecoverPanic != nil && *ctl.RecoverPanic {
				err = util.PanicError(r)
				ctl.Logger.Error(err, "observed a panic in reconciler", "request", req.Key())
				return
			}
			ctl.Logger.Error(nil, fmt.Sprintf("Observed a panic in reconciler: %v", r))
			panic(r)
		}
	}()
	return ctl.Do.Reconcile(ctx, req)
}

// processNextWorkItem will read a single work item off the workqueue and
// attempt to process it, by calling the reconcileHandler.
func (ctl *controller) processNextWorkItem(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	obj, shutdown := ctl.Queue.Get()
	if shutdown {
		// Stop working
		return false
	}

	// We call Done here so the workqueue knows we have finished
	// processing this item. We also must remember to call Forget if we
	// do not want this work item being re-queued. For example, we do
	// not call Forget if a transient error occurs, instead the item is
	// put back on the workqueue and attempted again after a back-off
	// period.
	defer ctl.Queue.Done(obj)

	// the queue keeps handing out the remaining items after a shutdown
	if ctx.Err() != nil {
		return false
	}

	ctl.reconcileHandler(ctx, obj)
	return true
}

func (ctl *controller) reconcileHandler(ctx context.Context, obj interface{}) {
	// Make sure that the object is a valid request.
	req, ok := obj.(reconcile.Request)
	if !ok {
		// As the item in the workqueue is actually invalid, we call
		// Forget here else we'd go into a loop of attempting to
		// process a work item that is invalid.
		ctl.Queue.Forget(obj)
		// Return true, don't take a break
		return
	}

	logger := ctl.Logger.WithValues("request", req.Key())
	if ctl.Queue.isDeleted(req) {
		logger.V(1).Info("skip the request of a deleted object")
		ctl.Queue.Forget(obj)
		return
	}
	// a started reconcile always completes, even when the controller is stopping
	reconcileCtx := logr.NewContext(context.WithoutCancel(ctx), logger)

	result, err := ctl.Reconcile(reconcileCtx, req)
	if ctl.Observer != nil {
		ctl.Observer(req, result, err)
	}

	switch {
	case err != nil:
		// the error policy owns the log line of a failure
		retry := ctl.ErrorPolicy.OnError(reconcileCtx, req, err)
		ctl.Queue.Forget(obj)
		if ctl.Queue.isDeleted(req) {
			return
		}
		if retry.RequeueAfter > 0 {
			ctl.Queue.AddAfter(req, retry.RequeueAfter)
		} else {
			ctl.Queue.AddRateLimited(req)
		}
	case result.RequeueAfter > 0:
		// The result.RequeueAfter request will be lost, if it is returned
		// along with a non-nil error. But this is intended as
		// We need to drive to stable reconcile loops before queuing due
		// to result.RequestAfter
		ctl.Queue.Forget(obj)
		if ctl.Queue.isDeleted(req) {
			return
		}
		ctl.Queue.AddAfter(req, result.RequeueAfter)
	case result.Requeue:
		ctl.Queue.AddRateLimited(req)
	default:
		// Finally, if no error occurs we Forget this item so it does not
		// get queued again until another change happens.
		ctl.Queue.Forget(obj)
	}
}
