package admission

import (
	"context"
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/util/validation"

	"github.com/sunyakun/foo-controller/pkg/apis"
	"github.com/sunyakun/foo-controller/pkg/errors"
)

// DefaultNamespace is assigned to Foos created without a namespace.
const DefaultNamespace = "default"

var (
	_ Mutator   = FooDefaulter{}
	_ Validator = FooValidator{}
)

// FooDefaulter fills the namespace of new Foos and clears the status a client
// may have sent, the status is owned by the controller.
type FooDefaulter struct{}

func (FooDefaulter) Handles(operation Operation) bool {
	return operation == Create
}

func (FooDefaulter) Admit(ctx context.Context, a Attributes) error {
	foo, ok := a.GetObject().(*apis.Foo)
	if !ok {
		return nil
	}
	if foo.Namespace == "" {
		foo.Namespace = DefaultNamespace
	}
	foo.Status = apis.FooStatus{}
	return nil
}

// FooValidator rejects Foos whose namespace or name is not a DNS-1123 label.
type FooValidator struct{}

func (FooValidator) Handles(operation Operation) bool {
	return operation == Create || operation == Update
}

func (FooValidator) Validate(ctx context.Context, a Attributes) error {
	foo, ok := a.GetObject().(*apis.Foo)
	if !ok {
		return nil
	}
	var msgs []string
	for field, value := range map[string]string{"metadata.namespace": foo.Namespace, "metadata.name": foo.Name} {
		for _, msg := range validation.IsDNS1123Label(value) {
			msgs = append(msgs, fmt.Sprintf("%s: %s", field, msg))
		}
	}
	if len(msgs) != 0 {
		return errors.NewBadRequest(fmt.Sprintf("invalid %s %q: %s", apis.FooKind, foo.GetKey(), strings.Join(msgs, "; ")))
	}
	return nil
}

// FooPlugins returns the admission plugins of the Foo resource.
func FooPlugins() []Interface {
	return []Interface{FooDefaulter{}, FooValidator{}}
}
