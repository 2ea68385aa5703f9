package rest

import (
	"context"

	"github.com/emicklei/go-restful/v3"

	"github.com/sunyakun/foo-controller/pkg/apis"
)

// MIMEMergePatch is the content type of a JSON merge patch (RFC 7386).
const MIMEMergePatch = "application/merge-patch+json"

// Converter maps an API object to its storage row and back.
type Converter[T apis.Object, ST any] interface {
	FromStorage(from *ST, to T) error
	ToStorage(from T, to *ST) error
}

// Client is the typed access to a resource, served in process by RestAPI or
// over HTTP by HTTPRestClient. Errors are pkg/errors StatusErrors.
type Client[T apis.Object] interface {
	Get(ctx context.Context, key string) (T, error)
	GetList(ctx context.Context, opts apis.ListOptions) ([]T, int64, error)
	Create(ctx context.Context, obj T) (T, error)
	Update(ctx context.Context, key string, obj T) error
	Delete(ctx context.Context, key string) error
	// PatchStatus applies a merge patch to the status of the object. The patch
	// must not contain any top level field other than "status".
	PatchStatus(ctx context.Context, key string, patch []byte) error
}

type WatchableClient[T apis.Object] interface {
	Client[T]
	Watch(ctx context.Context) (Channel, error)
}

// Resource is a WatchableClient that can also serve itself on a go-restful
// container.
type Resource[T apis.Object] interface {
	WatchableClient[T]
	Name() string
	Version() string
	Install(*restful.Container)
}
