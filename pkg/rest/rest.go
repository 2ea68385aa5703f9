package rest

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/emicklei/go-restful/v3"
	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/go-logr/logr"
	"github.com/samber/lo"

	"github.com/sunyakun/foo-controller/pkg/admission"
	"github.com/sunyakun/foo-controller/pkg/apis"
	"github.com/sunyakun/foo-controller/pkg/errors"
	"github.com/sunyakun/foo-controller/pkg/storage"
	"github.com/sunyakun/foo-controller/pkg/storage/selector"
)

var _ Resource[*apis.Foo] = &RestAPI[apis.Foo, *apis.Foo, apis.Foo]{}

const statusField = "status"

type RestAPI[T any, PT interface {
	apis.Object
	*T
}, ST any] struct {
	converter    Converter[PT, ST]
	store        storage.WatchableStore[ST]
	resourceName string
	version      string
	logger       logr.Logger
	admit        admission.Chain
	scheme       *apis.Scheme
}

func NewRestAPI[T any, PT interface {
	apis.Object
	*T
}, ST any](
	resourceName string, store storage.WatchableStore[ST], scheme *apis.Scheme, converter Converter[PT, ST], logger logr.Logger, admits []admission.Interface,
) *RestAPI[T, PT, ST] {
	version := "v1"
	if res, ok := scheme.Resource(resourceName); ok && res.Version != "" {
		version = res.Version
	}
	return &RestAPI[T, PT, ST]{
		converter:    converter,
		store:        store,
		resourceName: resourceName,
		version:      version,
		logger:       logger.WithValues("resource", resourceName),
		admit:        admission.NewChain(admits...),
		scheme:       scheme,
	}
}

func (rest *RestAPI[T, PT, ST]) Name() string {
	return rest.resourceName
}

func (rest *RestAPI[T, PT, ST]) Version() string {
	return rest.version
}

// HasSchema reports whether the underlying store is ready to serve the resource.
func (rest *RestAPI[T, PT, ST]) HasSchema(ctx context.Context) (bool, error) {
	checker, ok := rest.store.(storage.SchemaChecker)
	if !ok {
		return true, nil
	}
	return checker.HasSchema(ctx)
}

func (rest *RestAPI[T, PT, ST]) convertStorageError(err error, obj apis.Object) error {
	if err == nil {
		return nil
	}
	kind, e := rest.scheme.ObjectKind(obj)
	if e != nil {
		return e
	}
	switch {
	case storage.IsNotFoundError(err):
		return errors.NewNotFound(kind, obj.GetKey())
	case storage.IsAlreadyExistError(err):
		return errors.NewConflict(err)
	case storage.IsConcurrentConflictError(err):
		return errors.NewConflict(err)
	}
	return err
}

func (rest *RestAPI[T, PT, ST]) doAdmit(ctx context.Context, operation admission.Operation, obj apis.Object) error {
	if !rest.admit.Handles(operation) {
		return nil
	}
	attrs := admission.NewAttributes(operation, rest.resourceName, obj)
	if err := rest.admit.Admit(ctx, attrs); err != nil {
		rest.logger.V(1).Info("admission rejected", "operation", operation, "key", obj.GetKey(), "error", err.Error())
		return err
	}
	if err := rest.admit.Validate(ctx, attrs); err != nil {
		rest.logger.V(1).Info("validation rejected", "operation", operation, "key", obj.GetKey(), "error", err.Error())
		return err
	}
	return nil
}

func (rest *RestAPI[T, PT, ST]) fromStorage(storeObj *ST) (PT, error) {
	var obj = PT(new(T))
	if err := rest.converter.FromStorage(storeObj, obj); err != nil {
		return nil, err
	}
	kind, err := rest.scheme.ObjectKind(obj)
	if err != nil {
		return nil, err
	}
	obj.SetKind(kind)
	return obj, nil
}

func (rest *RestAPI[T, PT, ST]) Get(ctx context.Context, key string) (PT, error) {
	var obj = PT(new(T))
	obj.SetKey(key)
	storeObj, err := rest.store.Get(ctx, key)
	if err != nil {
		return nil, rest.convertStorageError(err, obj)
	}
	return rest.fromStorage(storeObj)
}

func (rest *RestAPI[T, PT, ST]) GetList(ctx context.Context, opts apis.ListOptions) ([]PT, int64, error) {
	if opts.Offset <= 0 {
		opts.Offset = 0
	}
	if opts.Limit < 0 {
		opts.Limit = 0
	}

	requirements, err := selector.Parse(opts.Selector)
	if err != nil {
		return nil, 0, errors.NewBadRequest(err.Error())
	}

	storeObjs, count, err := rest.store.GetList(ctx, storage.ListOptions{
		Offset:       opts.Offset,
		Limit:        opts.Limit,
		Requirements: requirements,
	})
	if err != nil {
		return nil, 0, rest.convertStorageError(err, PT(new(T)))
	}
	var outs = make([]PT, 0, len(storeObjs))
	for _, storeobj := range storeObjs {
		obj, err := rest.fromStorage(storeobj)
		if err != nil {
			return nil, 0, err
		}
		outs = append(outs, obj)
	}
	return outs, count, nil
}

func (rest *RestAPI[T, PT, ST]) Create(ctx context.Context, obj PT) (PT, error) {
	if obj.GetName() == "" {
		return nil, errors.NewBadRequest("the name can't be empty")
	}
	if err := rest.doAdmit(ctx, admission.Create, obj); err != nil {
		return nil, err
	}
	var storeObj = new(ST)
	if err := rest.converter.ToStorage(obj, storeObj); err != nil {
		return nil, err
	}
	newStoreObj, err := rest.store.Create(ctx, storeObj)
	if err != nil {
		return nil, rest.convertStorageError(err, obj)
	}
	return rest.fromStorage(newStoreObj)
}

// Update replaces everything but the status of the object.
func (rest *RestAPI[T, PT, ST]) Update(ctx context.Context, key string, obj PT) error {
	obj.SetKey(key)
	if err := rest.doAdmit(ctx, admission.Update, obj); err != nil {
		return err
	}
	var storeObj = new(ST)
	if err := rest.converter.ToStorage(obj, storeObj); err != nil {
		return err
	}
	if err := rest.store.Update(ctx, key, storeObj); err != nil {
		return rest.convertStorageError(err, obj)
	}
	return rest.converter.FromStorage(storeObj, obj)
}

func (rest *RestAPI[T, PT, ST]) Delete(ctx context.Context, key string) error {
	var obj = PT(new(T))
	obj.SetKey(key)
	if err := rest.doAdmit(ctx, admission.Delete, obj); err != nil {
		return err
	}
	return rest.convertStorageError(rest.store.Delete(ctx, key, nil), obj)
}

// PatchStatus merges patch into the stored object and writes back its status.
// A patch that leaves the status unchanged is a no-op and emits no event.
func (rest *RestAPI[T, PT, ST]) PatchStatus(ctx context.Context, key string, patch []byte) error {
	var obj = PT(new(T))
	obj.SetKey(key)
	kind, err := rest.scheme.ObjectKind(obj)
	if err != nil {
		return err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(patch, &fields); err != nil {
		return errors.NewBadRequest("the patch must be a json object: " + err.Error())
	}
	if others := lo.Without(lo.Keys(fields), statusField); len(others) != 0 || len(fields) == 0 {
		return errors.NewInvalidPatch(kind, key, "only the status field can be patched")
	}

	current, err := rest.Get(ctx, key)
	if err != nil {
		return err
	}
	original, err := json.Marshal(current)
	if err != nil {
		return err
	}
	patched, err := jsonpatch.MergePatch(original, patch)
	if err != nil {
		return errors.NewInvalidPatch(kind, key, err.Error())
	}

	var newObj = PT(new(T))
	if err := json.Unmarshal(patched, newObj); err != nil {
		return errors.NewInvalidPatch(kind, key, err.Error())
	}
	// the object identity and version always come from the stored object
	newObj.SetKey(key)
	newObj.SetResourceVersion(current.GetResourceVersion())

	unchanged, err := sameField(current, newObj, statusField)
	if err != nil {
		return err
	}
	if unchanged {
		rest.logger.V(1).Info("status unchanged, skip the write", "key", key)
		return nil
	}

	var storeObj = new(ST)
	if err := rest.converter.ToStorage(newObj, storeObj); err != nil {
		return err
	}
	return rest.convertStorageError(rest.store.UpdateStatus(ctx, key, storeObj), obj)
}

// sameField reports whether the top level JSON field of a and b are equal.
func sameField(a, b any, name string) (bool, error) {
	var fa, fb map[string]json.RawMessage
	for _, pair := range []struct {
		obj any
		out *map[string]json.RawMessage
	}{{a, &fa}, {b, &fb}} {
		bs, err := json.Marshal(pair.obj)
		if err != nil {
			return false, err
		}
		if err := json.Unmarshal(bs, pair.out); err != nil {
			return false, err
		}
	}
	return bytes.Equal(fa[name], fb[name]), nil
}

func (rest *RestAPI[T, PT, ST]) Watch(ctx context.Context) (Channel, error) {
	channel, err := rest.store.Watch(ctx)
	if err != nil {
		return nil, err
	}
	return NewChannel[T, PT](channel, rest.scheme, rest.logger, rest.converter), nil
}

func (rest *RestAPI[T, PT, ST]) Install(container *restful.Container) {
	handler := NewHandler[T, PT](rest)
	handler.AddToContainer(container)
}
