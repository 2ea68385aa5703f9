// Package manager assembles a foo controller, its state and metrics, and the
// HTTP server exposing them.
package manager

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/emicklei/go-restful/v3"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"k8s.io/utils/clock"

	"github.com/sunyakun/foo-controller/pkg/apis"
	"github.com/sunyakun/foo-controller/pkg/config"
	"github.com/sunyakun/foo-controller/pkg/controller"
	"github.com/sunyakun/foo-controller/pkg/foocontroller"
	"github.com/sunyakun/foo-controller/pkg/metrics"
	"github.com/sunyakun/foo-controller/pkg/reconcile"
	"github.com/sunyakun/foo-controller/pkg/rest"
	"github.com/sunyakun/foo-controller/pkg/state"
)

const (
	controllerName  = "foo-controller"
	shutdownTimeout = 5 * time.Second
)

type Manager struct {
	cfg        config.Config
	logger     logr.Logger
	state      *state.State
	metrics    *metrics.Metrics
	backend    *backend
	controller controller.Controller
	container  *restful.Container
}

// New builds the manager of the backend named by cfg. Nothing is started
// before Run.
func New(cfg config.Config, logger logr.Logger) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger = logger.WithValues("instance", uuid.NewString())

	b, err := newBackend(cfg, logger)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		cfg:       cfg,
		logger:    logger,
		state:     state.New(clock.RealClock{}),
		metrics:   metrics.New(),
		backend:   b,
		container: restful.NewContainer(),
	}

	m.controller = controller.New(controllerName, controller.ControllerConfig{
		MaxConcurrentReconciles: cfg.Workers,
		RecoverPanic:            true,
		Reconciler:              foocontroller.NewReconciler(b.client, m.state, m.metrics.HandledEvents),
		ErrorPolicy:             reconcile.FixedDelay(cfg.RetryInterval),
		Prerequisites:           b.prerequisites,
		Logger:                  logger,
		Observer: func(req reconcile.Request, result reconcile.Result, err error) {
			m.metrics.ObserveReconcile(err, string(foocontroller.ReasonOf(err)))
		},
	})
	for _, w := range b.watches {
		if err := m.controller.Watch(w); err != nil {
			return nil, err
		}
	}

	m.installRoutes()
	return m, nil
}

func (m *Manager) installRoutes() {
	ws := new(restful.WebService)
	ws.Path("/").Produces(restful.MIME_JSON)
	ws.Route(ws.GET("/").To(func(req *restful.Request, resp *restful.Response) {
		if err := resp.WriteAsJson(m.State()); err != nil {
			rest.WriteError(m.logger, resp, err)
		}
	}).Doc("the state of the controller"))
	m.container.Add(ws)
	m.container.Handle("/metrics", m.metrics.Handler())

	if m.backend.resource != nil {
		m.backend.resource.Install(m.container)
		rest.InstallDiscovery(m.container, m.backend.scheme)
	}
}

// State returns a snapshot of the controller state.
func (m *Manager) State() state.Snapshot {
	return m.state.Snapshot()
}

func (m *Manager) Metrics() *metrics.Metrics {
	return m.metrics
}

// Resource returns the Foo API served by the manager, nil when the backend
// keeps Foos elsewhere.
func (m *Manager) Resource() rest.Resource[*apis.Foo] {
	return m.backend.resource
}

// Handler serves the state on /, the metrics on /metrics and the Foo API
// when the manager serves it.
func (m *Manager) Handler() http.Handler {
	return m.container
}

// Run serves the HTTP endpoints and runs the controller until ctx is done.
// It returns controller.ErrPrerequisiteMissing when the backend is not ready.
func (m *Manager) Run(ctx context.Context) error {
	defer m.close()

	ln, err := net.Listen("tcp", m.cfg.Listen)
	if err != nil {
		return err
	}
	server := &http.Server{Handler: m.container}
	go func() {
		m.logger.Info("serving", "address", ln.Addr().String())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error(err, "http server stopped")
		}
	}()

	runErr := m.controller.Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		m.logger.Error(err, "shutdown http server")
	}
	return runErr
}

func (m *Manager) close() {
	for _, closer := range m.backend.closers {
		if err := closer(); err != nil {
			m.logger.Error(err, "release backend")
		}
	}
}
