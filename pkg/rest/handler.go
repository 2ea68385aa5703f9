package rest

import (
	"io"
	"net/http"
	"strconv"

	"github.com/emicklei/go-restful/v3"
	"github.com/go-logr/logr"
	"github.com/samber/lo"

	"github.com/sunyakun/foo-controller/pkg/apis"
	pkgerrors "github.com/sunyakun/foo-controller/pkg/errors"
)

const (
	paramNamespace = "namespace"
	paramName      = "name"
)

type Handler[T any, PT interface {
	apis.Object
	*T
}] struct {
	resource     Resource[PT]
	resourceName string
	logger       logr.Logger
}

func NewHandler[T any, PT interface {
	apis.Object
	*T
}](resource Resource[PT]) *Handler[T, PT] {
	return &Handler[T, PT]{
		resource:     resource,
		resourceName: resource.Name(),
		logger:       logr.Discard(),
	}
}

// WithLogger sets the logger used to report failed responses.
func (hdl *Handler[T, PT]) WithLogger(logger logr.Logger) *Handler[T, PT] {
	hdl.logger = logger
	return hdl
}

func keyOf(req *restful.Request) string {
	return req.PathParameter(paramNamespace) + "/" + req.PathParameter(paramName)
}

// WriteError writes err as an apis.Status. Errors without a status are
// reported as internal errors.
func WriteError(logger logr.Logger, resp *restful.Response, err error) {
	var status apis.Status
	if apiStatus, ok := err.(pkgerrors.APIStatus); ok {
		status = apiStatus.Status()
	} else {
		status = pkgerrors.NewInternalError(err).Status()
	}

	if err := resp.WriteHeaderAndJson(status.Code, status, restful.MIME_JSON); err != nil {
		logger.Error(err, "internal server error")
	}
}

func (hdl *Handler[T, PT]) Error(req *restful.Request, resp *restful.Response, err error) {
	WriteError(hdl.logger, resp, err)
}

func (hdl *Handler[T, PT]) Get(req *restful.Request, resp *restful.Response) {
	resource, err := hdl.resource.Get(req.Request.Context(), keyOf(req))
	if err != nil {
		hdl.Error(req, resp, err)
		return
	}
	if err := resp.WriteAsJson(resource); err != nil {
		hdl.Error(req, resp, err)
		return
	}
}

func intQuery(req *restful.Request, name string, defaultVal int) (int, error) {
	val := req.QueryParameter(name)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, pkgerrors.NewBadRequest("invalid " + name + ": " + err.Error())
	}
	return i, nil
}

func (hdl *Handler[T, PT]) List(req *restful.Request, resp *restful.Response) {
	offsetVal, err := intQuery(req, "offset", 0)
	if err != nil {
		hdl.Error(req, resp, err)
		return
	}
	limitVal, err := intQuery(req, "limit", 10)
	if err != nil {
		hdl.Error(req, resp, err)
		return
	}

	objs, cnt, err := hdl.resource.GetList(req.Request.Context(), apis.ListOptions{
		Offset:   offsetVal,
		Limit:    limitVal,
		Selector: req.QueryParameter("selector"),
	})
	if err != nil {
		hdl.Error(req, resp, err)
		return
	}

	objList := apis.ObjectList[PT]{
		Count: cnt,
		Items: objs,
	}

	if limitVal > 0 && int64(offsetVal)+int64(limitVal) < cnt {
		objList.Continue = true
	}

	err = resp.WriteAsJson(objList)
	if err != nil {
		hdl.Error(req, resp, err)
		return
	}
}

func (hdl *Handler[T, PT]) Update(req *restful.Request, resp *restful.Response) {
	var t PT = new(T)
	if err := req.ReadEntity(t); err != nil {
		hdl.Error(req, resp, pkgerrors.NewBadRequest(err.Error()))
		return
	}
	if err := hdl.resource.Update(req.Request.Context(), keyOf(req), t); err != nil {
		hdl.Error(req, resp, err)
		return
	}
	if err := resp.WriteAsJson(t); err != nil {
		hdl.Error(req, resp, err)
		return
	}
}

func (hdl *Handler[T, PT]) PatchStatus(req *restful.Request, resp *restful.Response) {
	patch, err := io.ReadAll(req.Request.Body)
	if err != nil {
		hdl.Error(req, resp, pkgerrors.NewBadRequest(err.Error()))
		return
	}
	key := keyOf(req)
	if err := hdl.resource.PatchStatus(req.Request.Context(), key, patch); err != nil {
		hdl.Error(req, resp, err)
		return
	}
	obj, err := hdl.resource.Get(req.Request.Context(), key)
	if err != nil {
		hdl.Error(req, resp, err)
		return
	}
	if err := resp.WriteAsJson(obj); err != nil {
		hdl.Error(req, resp, err)
		return
	}
}

func (hdl *Handler[T, PT]) Delete(req *restful.Request, resp *restful.Response) {
	if err := hdl.resource.Delete(req.Request.Context(), keyOf(req)); err != nil {
		hdl.Error(req, resp, err)
		return
	}
	if err := resp.WriteEntity(apis.Status{
		ObjectMeta: apis.ObjectMeta{Kind: "Status"},
		Code:       http.StatusOK,
		Status:     apis.StatusSuccess,
		Reason:     "",
		Message:    "",
	}); err != nil {
		hdl.Error(req, resp, err)
		return
	}
}

func (hdl *Handler[T, PT]) Create(req *restful.Request, resp *restful.Response) {
	var t PT = new(T)
	if err := req.ReadEntity(t); err != nil {
		hdl.Error(req, resp, pkgerrors.NewBadRequest(err.Error()))
		return
	}
	obj, err := hdl.resource.Create(req.Request.Context(), t)
	if err != nil {
		hdl.Error(req, resp, err)
		return
	}
	if err := resp.WriteHeaderAndJson(http.StatusCreated, obj, restful.MIME_JSON); err != nil {
		hdl.Error(req, resp, err)
		return
	}
}

func (hdl *Handler[T, PT]) AddToContainer(container *restful.Container) {
	ws := new(restful.WebService)
	nsParam := restful.PathParameter(paramNamespace, "the namespace of the "+hdl.resourceName).DataType("string")
	nameParam := restful.PathParameter(paramName, "the name of the "+hdl.resourceName).DataType("string")

	ws.Path("/" + hdl.resource.Name()).
		ApiVersion(hdl.resource.Version()).
		Doc("API for " + hdl.resource.Version() + "/" + hdl.resource.Name()).
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON)

	// get
	ws.Route(ws.GET("/{namespace}/{name}").
		To(hdl.Get).
		Param(nsParam).Param(nameParam))

	// update
	ws.Route(ws.PUT("/{namespace}/{name}").
		To(hdl.Update).
		Param(nsParam).Param(nameParam))

	// patch status
	ws.Route(ws.PATCH("/{namespace}/{name}/status").
		To(hdl.PatchStatus).
		Consumes(MIMEMergePatch, restful.MIME_JSON).
		Param(nsParam).Param(nameParam))

	// delete
	ws.Route(ws.DELETE("/{namespace}/{name}").
		To(hdl.Delete).
		Param(nsParam).Param(nameParam))

	// list
	ws.Route(ws.GET("/").
		To(hdl.List).
		Param(restful.QueryParameter("limit", "the limit size").DataType("int")).
		Param(restful.QueryParameter("offset", "the offset").DataType("int")).
		Param(restful.QueryParameter("selector", "selector expression").DataType("string")))

	// create
	ws.Route(ws.POST("/").
		To(hdl.Create))

	container.Add(ws)
}

// InstallDiscovery serves the resources registered in scheme on GET /apis.
func InstallDiscovery(container *restful.Container, scheme *apis.Scheme) {
	ws := new(restful.WebService)
	ws.Path("/apis").Produces(restful.MIME_JSON)
	ws.Route(ws.GET("/").To(func(req *restful.Request, resp *restful.Response) {
		list := apis.APIResourceList{Resources: lo.Map(scheme.Resources(), func(r apis.APIResource, _ int) apis.APIResource {
			r.Subresources = append([]string(nil), r.Subresources...)
			return r
		})}
		if err := resp.WriteAsJson(list); err != nil {
			WriteError(logr.Discard(), resp, err)
		}
	}))
	container.Add(ws)
}
