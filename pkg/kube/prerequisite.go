package kube

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/discovery"

	"github.com/sunyakun/foo-controller/pkg/controller"
)

// CRDInstalled checks that the cluster serves foos.clux.dev/v1 with its
// status subresource.
func CRDInstalled(client discovery.DiscoveryInterface) controller.Prerequisite {
	return controller.PrerequisiteFunc(func(ctx context.Context) error {
		gv := FooGVR.GroupVersion().String()
		list, err := client.ServerResourcesForGroupVersion(gv)
		if err != nil {
			return errors.Wrapf(err, "install the %s.%s crd first", FooGVR.Resource, FooGVR.Group)
		}
		names := lo.Map(list.APIResources, func(r metav1.APIResource, _ int) string { return r.Name })
		for _, name := range []string{FooGVR.Resource, FooGVR.Resource + "/status"} {
			if !lo.Contains(names, name) {
				return fmt.Errorf("install the %s.%s crd first: %s is not served by %s", FooGVR.Resource, FooGVR.Group, name, gv)
			}
		}
		return nil
	})
}
