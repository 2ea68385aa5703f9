package apis

import (
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/types"
)

const (
	StatusFailure = "Failure"
	StatusSuccess = "Success"
)

// Object is implemented by every namespaced resource served by the store.
// The key of an object is "<namespace>/<name>".
type Object interface {
	GetKey() string
	SetKey(string)
	GetNamespace() string
	GetName() string
	GetKind() string
	SetKind(string)
	GetResourceVersion() string
	SetResourceVersion(string)
}

type ObjectMeta struct {
	Kind            string    `json:"kind,omitempty"`
	Namespace       string    `json:"namespace,omitempty"`
	Name            string    `json:"name,omitempty"`
	ResourceVersion string    `json:"resourceVersion,omitempty"`
	CreateTime      time.Time `json:"createTime,omitempty"`
	UpdateTime      time.Time `json:"updateTime,omitempty"`
}

func (o *ObjectMeta) GetKey() string {
	return NamespacedName(o).String()
}

func (o *ObjectMeta) SetKey(key string) {
	nn := ParseKey(key)
	o.Namespace, o.Name = nn.Namespace, nn.Name
}

func (o *ObjectMeta) GetNamespace() string {
	return o.Namespace
}

func (o *ObjectMeta) GetName() string {
	return o.Name
}

func (o *ObjectMeta) GetKind() string {
	return o.Kind
}

func (o *ObjectMeta) SetKind(kind string) {
	o.Kind = kind
}

func (o *ObjectMeta) GetResourceVersion() string {
	return o.ResourceVersion
}

func (o *ObjectMeta) SetResourceVersion(rv string) {
	o.ResourceVersion = rv
}

// NamespacedName returns the identifier of obj.
func NamespacedName(obj Object) types.NamespacedName {
	return types.NamespacedName{Namespace: obj.GetNamespace(), Name: obj.GetName()}
}

// ParseKey splits a "<namespace>/<name>" key. A key without a separator is
// treated as a name in the empty namespace.
func ParseKey(key string) types.NamespacedName {
	ns, name, found := strings.Cut(key, string(types.Separator))
	if !found {
		return types.NamespacedName{Name: key}
	}
	return types.NamespacedName{Namespace: ns, Name: name}
}

type ListOptions struct {
	Limit    int    `json:"limit,omitempty" query:"limit"`
	Offset   int    `json:"offset,omitempty" query:"offset"`
	Selector string `json:"selector,omitempty" query:"selector"`
}

type ObjectList[T Object] struct {
	Count    int64 `json:"count"`
	Continue bool  `json:"continue"`
	Items    []T   `json:"items"`
}

type Status struct {
	ObjectMeta `json:"metadata,omitempty"`
	Code       int `json:"code"`
	// Status of the the operation
	Status string `json:"status"`
	// Reason is the machine-readable description for current status
	Reason string `json:"reason"`
	// Message is the human-readable description for current status
	Message string `json:"message"`
}

// APIResource describes a resource installed in the API server.
type APIResource struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Version string `json:"version"`
	Group   string `json:"group,omitempty"`
	// Subresources lists the subresources served for the resource, e.g. "status".
	Subresources []string `json:"subresources,omitempty"`
}

type APIResourceList struct {
	Resources []APIResource `json:"resources"`
}
