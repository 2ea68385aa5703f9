package rest

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/imroc/req/v3"

	"github.com/sunyakun/foo-controller/pkg/apis"
	"github.com/sunyakun/foo-controller/pkg/errors"
)

var _ Client[*apis.Foo] = &HTTPRestClient[apis.Foo, *apis.Foo]{}

type BodyTransformerFunc func(rawBody []byte, req *req.Request, resp *req.Response) (transformedBody []byte, err error)

type HTTPRestClient[T any, PT interface {
	apis.Object
	*T
}] struct {
	ResourceName string
	C            *req.Client
}

// NewHTTPRestClient returns a client of the resource served under baseurl.
// respBodyTransformer may be nil.
func NewHTTPRestClient[T any, PT interface {
	apis.Object
	*T
}](
	resourceName, baseurl string,
	respBodyTransformer BodyTransformerFunc,
) *HTTPRestClient[T, PT] {
	c := req.C().
		SetBaseURL(baseurl).
		SetCommonHeader("Content-Type", "application/json")
	if respBodyTransformer != nil {
		c.SetResponseBodyTransformer(respBodyTransformer)
	}

	return &HTTPRestClient[T, PT]{
		ResourceName: resourceName,
		C:            c,
	}
}

func (cli *HTTPRestClient[T, PT]) path(key string) string {
	return fmt.Sprintf("%s/%s", cli.ResourceName, key)
}

// do sends r and turns an error response into the error it describes.
func do(r *req.Request, method, url string) error {
	var status apis.Status
	resp, err := r.SetErrorResult(&status).Send(method, url)
	if err != nil {
		return err
	}
	if resp.IsErrorState() {
		if status.Code == 0 {
			status.Code = resp.StatusCode
			status.Status = apis.StatusFailure
			status.Message = resp.String()
		}
		return errors.FromStatus(status)
	}
	return nil
}

func (cli *HTTPRestClient[T, PT]) Get(ctx context.Context, key string) (PT, error) {
	var t T
	if err := do(cli.C.R().SetContext(ctx).SetSuccessResult(&t), http.MethodGet, cli.path(key)); err != nil {
		return nil, err
	}
	return &t, nil
}

func (cli *HTTPRestClient[T, PT]) GetList(ctx context.Context, opts apis.ListOptions) ([]PT, int64, error) {
	var objList apis.ObjectList[PT]
	r := cli.C.R().SetContext(ctx).SetSuccessResult(&objList).
		SetQueryParam("offset", strconv.Itoa(opts.Offset)).
		SetQueryParam("limit", strconv.Itoa(opts.Limit))
	if opts.Selector != "" {
		r.SetQueryParam("selector", opts.Selector)
	}
	if err := do(r, http.MethodGet, cli.ResourceName); err != nil {
		return nil, 0, err
	}
	return objList.Items, objList.Count, nil
}

func (cli *HTTPRestClient[T, PT]) Create(ctx context.Context, obj PT) (PT, error) {
	var t T
	if err := do(cli.C.R().SetContext(ctx).SetSuccessResult(&t).SetBody(obj), http.MethodPost, cli.ResourceName); err != nil {
		return nil, err
	}
	return &t, nil
}

func (cli *HTTPRestClient[T, PT]) Update(ctx context.Context, key string, obj PT) error {
	return do(cli.C.R().SetContext(ctx).SetSuccessResult(obj).SetBody(obj), http.MethodPut, cli.path(key))
}

func (cli *HTTPRestClient[T, PT]) PatchStatus(ctx context.Context, key string, patch []byte) error {
	r := cli.C.R().SetContext(ctx).
		SetHeader("Content-Type", MIMEMergePatch).
		SetBodyBytes(patch)
	return do(r, http.MethodPatch, cli.path(key)+"/status")
}

func (cli *HTTPRestClient[T, PT]) Delete(ctx context.Context, key string) error {
	return do(cli.C.R().SetContext(ctx), http.MethodDelete, cli.path(key))
}

// Discover lists the resources served by the server.
func (cli *HTTPRestClient[T, PT]) Discover(ctx context.Context) (*apis.APIResourceList, error) {
	var list apis.APIResourceList
	if err := do(cli.C.R().SetContext(ctx).SetSuccessResult(&list), http.MethodGet, "apis"); err != nil {
		return nil, err
	}
	return &list, nil
}
