// Package kube runs the foo controller against a kubernetes cluster, where
// Foo is the foos.clux.dev custom resource.
package kube

import (
	"context"

	"github.com/pkg/errors"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/sunyakun/foo-controller/pkg/apis"
	pkgerrors "github.com/sunyakun/foo-controller/pkg/errors"
)

var FooGVR = schema.GroupVersionResource{
	Group:    apis.FooGroup,
	Version:  apis.FooVersion,
	Resource: apis.FooResource,
}

// RestConfig loads the client config from kubeconfig, or from the default
// loading rules (KUBECONFIG, ~/.kube/config, in-cluster) when it is empty.
func RestConfig(kubeconfig string) (*rest.Config, error) {
	if kubeconfig != "" {
		return clientcmd.BuildConfigFromFlags("", kubeconfig)
	}
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, &clientcmd.ConfigOverrides{}).ClientConfig()
}

// FooFromUnstructured converts a foos.clux.dev object.
func FooFromUnstructured(u *unstructured.Unstructured) (*apis.Foo, error) {
	foo := &apis.Foo{
		ObjectMeta: apis.ObjectMeta{
			Kind:            apis.FooKind,
			Namespace:       u.GetNamespace(),
			Name:            u.GetName(),
			ResourceVersion: u.GetResourceVersion(),
			CreateTime:      u.GetCreationTimestamp().Time,
		},
	}
	var err error
	if foo.Spec.Name, _, err = unstructured.NestedString(u.Object, "spec", "name"); err != nil {
		return nil, errors.Wrapf(err, "decode %s", foo.GetKey())
	}
	if foo.Spec.Info, _, err = unstructured.NestedString(u.Object, "spec", "info"); err != nil {
		return nil, errors.Wrapf(err, "decode %s", foo.GetKey())
	}
	if foo.Status.IsBad, _, err = unstructured.NestedBool(u.Object, "status", "is_bad"); err != nil {
		return nil, errors.Wrapf(err, "decode %s", foo.GetKey())
	}
	return foo, nil
}

// FooClient reads Foos and patches their status subresource.
type FooClient struct {
	client dynamic.Interface
}

func NewFooClient(client dynamic.Interface) *FooClient {
	return &FooClient{client: client}
}

func (c *FooClient) resource(namespace string) dynamic.ResourceInterface {
	return c.client.Resource(FooGVR).Namespace(namespace)
}

func convertError(err error, key string) error {
	if apierrors.IsNotFound(err) {
		return pkgerrors.NewNotFound(apis.FooKind, key)
	}
	return err
}

func (c *FooClient) Get(ctx context.Context, key string) (*apis.Foo, error) {
	nn := apis.ParseKey(key)
	u, err := c.resource(nn.Namespace).Get(ctx, nn.Name, metav1.GetOptions{})
	if err != nil {
		return nil, convertError(err, key)
	}
	return FooFromUnstructured(u)
}

// PatchStatus sends patch as a merge patch to the status subresource.
func (c *FooClient) PatchStatus(ctx context.Context, key string, patch []byte) error {
	nn := apis.ParseKey(key)
	_, err := c.resource(nn.Namespace).Patch(ctx, nn.Name, types.MergePatchType, patch, metav1.PatchOptions{}, "status")
	return convertError(err, key)
}
