package manager

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	mysqldriver "gorm.io/driver/mysql"
	gormpkg "gorm.io/gorm"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/dynamic"

	"github.com/sunyakun/foo-controller/pkg/admission"
	"github.com/sunyakun/foo-controller/pkg/apis"
	"github.com/sunyakun/foo-controller/pkg/config"
	"github.com/sunyakun/foo-controller/pkg/controller"
	"github.com/sunyakun/foo-controller/pkg/foocontroller"
	"github.com/sunyakun/foo-controller/pkg/kube"
	"github.com/sunyakun/foo-controller/pkg/rest"
	"github.com/sunyakun/foo-controller/pkg/storage/gorm"
	"github.com/sunyakun/foo-controller/pkg/storage/gorm/model"
	"github.com/sunyakun/foo-controller/pkg/storage/memory"
	"github.com/sunyakun/foo-controller/pkg/watch"
)

const defaultConsumerGroup = "foo-controller"

// backend is where the controller reads Foos and writes their status.
type backend struct {
	client        foocontroller.FooClient
	watches       []controller.WatchDescribeInterface
	prerequisites []controller.Prerequisite
	// resource is served by the manager, nil when the Foos live elsewhere
	resource rest.Resource[*apis.Foo]
	scheme   *apis.Scheme
	closers  []func() error
}

func newBackend(cfg config.Config, logger logr.Logger) (*backend, error) {
	switch cfg.Backend {
	case config.BackendKubernetes:
		return newKubernetesBackend(cfg)
	case config.BackendMySQL:
		return newMySQLBackend(cfg, logger)
	case config.BackendMemory:
		return newMemoryBackend(cfg, logger)
	case config.BackendHTTP:
		return newHTTPBackend(cfg)
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

func newKubernetesBackend(cfg config.Config) (*backend, error) {
	restConfig, err := kube.RestConfig(cfg.Kubeconfig)
	if err != nil {
		return nil, errors.Wrap(err, "load kubeconfig")
	}
	dynamicClient, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		return nil, err
	}
	discoveryClient, err := discovery.NewDiscoveryClientForConfig(restConfig)
	if err != nil {
		return nil, err
	}
	return &backend{
		client: kube.NewFooClient(dynamicClient),
		watches: []controller.WatchDescribeInterface{
			controller.NewWatchDescribe(apis.FooResource,
				kube.NewInformerSource(dynamicClient, cfg.Namespace, cfg.ResyncInterval),
				controller.EnqueueHandler),
		},
		prerequisites: []controller.Prerequisite{kube.CRDInstalled(discoveryClient)},
	}, nil
}

// storeBackend serves api from the manager and feeds the controller from its
// watch channel, a bootstrap list and a periodic relist.
func storeBackend(cfg config.Config, api rest.Resource[*apis.Foo], scheme *apis.Scheme, checker interface {
	HasSchema(ctx context.Context) (bool, error)
}) *backend {
	predicates := []controller.Predicate{
		controller.ResourceVersionChangedPredicate{},
		namespacePredicate(cfg.Namespace),
	}
	return &backend{
		client: api,
		watches: []controller.WatchDescribeInterface{
			controller.NewWatchDescribe(apis.FooResource+"/watch", controller.NewWatchSource(api), controller.EnqueueHandler, predicates...),
			controller.NewWatchDescribe(apis.FooResource+"/list", controller.NewListSource[*apis.Foo](api), controller.EnqueueHandler, predicates...),
			controller.NewWatchDescribe(apis.FooResource+"/resync", controller.NewTimerSource[*apis.Foo](cfg.ResyncInterval, api), controller.EnqueueHandler, predicates...),
		},
		prerequisites: []controller.Prerequisite{
			controller.PrerequisiteFunc(func(ctx context.Context) error {
				if _, ok := scheme.Resource(apis.FooResource); !ok {
					return fmt.Errorf("the %s resource is not registered", apis.FooResource)
				}
				ok, err := checker.HasSchema(ctx)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("the storage of %s is not initialized, run migrate first", apis.FooResource)
				}
				return nil
			}),
		},
		resource: api,
		scheme:   scheme,
	}
}

func newMemoryBackend(cfg config.Config, logger logr.Logger) (*backend, error) {
	scheme, err := apis.NewFooScheme()
	if err != nil {
		return nil, err
	}
	pubsub := watch.NewGoChannelPubSub(watch.NewLoggerAdapter(logger))
	store, err := memory.NewFooStore(pubsub)
	if err != nil {
		return nil, err
	}
	api := rest.NewRestAPI[apis.Foo, *apis.Foo, apis.Foo](
		apis.FooResource, store, scheme, rest.IdentityConverter[apis.Foo, *apis.Foo]{}, logger, admission.FooPlugins(),
	)
	b := storeBackend(cfg, api, scheme, api)
	b.closers = append(b.closers, pubsub.Close)
	return b, nil
}

// OpenMySQL opens the gorm connection and the pubsub carrying the store
// events.
func OpenMySQL(cfg config.MySQLConfig, logger logr.Logger) (*gormpkg.DB, watch.PubSub, error) {
	db, err := gormpkg.Open(mysqldriver.Open(cfg.DSN), &gormpkg.Config{})
	if err != nil {
		return nil, nil, errors.Wrap(err, "open mysql")
	}
	if cfg.WatchTransport != config.TransportSQL {
		return db, watch.NewGoChannelPubSub(watch.NewLoggerAdapter(logger)), nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	pubsub, err := watch.NewSQLPubSub(sqlDB, watch.SQLConfig{
		StreamName:    cfg.StreamName,
		ConsumerGroup: lo.Ternary(cfg.ConsumerGroup != "", cfg.ConsumerGroup, defaultConsumerGroup),
		PollInterval:  cfg.PollInterval,
	}, watch.NewLoggerAdapter(logger))
	if err != nil {
		return nil, nil, err
	}
	return db, pubsub, nil
}

func newMySQLBackend(cfg config.Config, logger logr.Logger) (*backend, error) {
	scheme, err := apis.NewFooScheme()
	if err != nil {
		return nil, err
	}
	db, pubsub, err := OpenMySQL(cfg.MySQL, logger)
	if err != nil {
		return nil, err
	}
	store, err := gorm.NewFooStore(db, pubsub)
	if err != nil {
		return nil, err
	}
	api := rest.NewRestAPI[apis.Foo, *apis.Foo, model.Foo](
		apis.FooResource, store, scheme, model.FooConverter{}, logger, admission.FooPlugins(),
	)
	b := storeBackend(cfg, api, scheme, api)
	b.closers = append(b.closers, pubsub.Close, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})
	return b, nil
}

func newHTTPBackend(cfg config.Config) (*backend, error) {
	client := rest.NewHTTPRestClient[apis.Foo, *apis.Foo](apis.FooResource, cfg.APIServer, nil)
	predicates := []controller.Predicate{namespacePredicate(cfg.Namespace)}
	return &backend{
		client: client,
		watches: []controller.WatchDescribeInterface{
			controller.NewWatchDescribe(apis.FooResource+"/relist", controller.NewRelistSource[*apis.Foo](cfg.ResyncInterval, client), controller.EnqueueHandler, predicates...),
		},
		prerequisites: []controller.Prerequisite{ServedBy(client)},
	}, nil
}

// ServedBy checks that the server behind client serves Foos with their status
// subresource.
func ServedBy(client interface {
	Discover(ctx context.Context) (*apis.APIResourceList, error)
}) controller.Prerequisite {
	return controller.PrerequisiteFunc(func(ctx context.Context) error {
		list, err := client.Discover(ctx)
		if err != nil {
			return errors.Wrap(err, "discover resources")
		}
		resource, ok := lo.Find(list.Resources, func(r apis.APIResource) bool { return r.Name == apis.FooResource })
		if !ok || !lo.Contains(resource.Subresources, "status") {
			return fmt.Errorf("the server does not serve %s/status", apis.FooResource)
		}
		return nil
	})
}

// namespacePredicate keeps the objects of namespace, or every object when it
// is empty.
func namespacePredicate(namespace string) controller.Predicate {
	match := func(obj apis.Object) bool {
		return namespace == "" || obj == nil || obj.GetNamespace() == namespace
	}
	return controller.PredicateFunc{
		CreateFunc:  func(evt controller.CreateEvent) bool { return match(evt.Object) },
		UpdateFunc:  func(evt controller.UpdateEvent) bool { return match(evt.ObjectNew) },
		DeleteFunc:  func(evt controller.DeleteEvent) bool { return match(evt.Object) },
		GenericFunc: func(evt controller.GenericEvent) bool { return match(evt.Object) },
	}
}
