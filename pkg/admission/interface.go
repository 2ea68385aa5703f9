// Package admission runs the plugins that default and validate Foos before
// the resource API stores them.
package admission

import (
	"context"

	"github.com/sunyakun/foo-controller/pkg/apis"
)

// Operation is a write on the resource API.
type Operation string

const (
	Create Operation = "CREATE"
	Update Operation = "UPDATE"
	Delete Operation = "DELETE"
)

// Attributes describe the write being admitted.
type Attributes interface {
	GetOperation() Operation
	// GetObject is the object sent by the client, a Delete only carries its key
	GetObject() apis.Object
	GetResource() string
}

// Interface is implemented by every plugin.
type Interface interface {
	// Handles reports whether the plugin takes part in operation.
	Handles(operation Operation) bool
}

// Mutator may change the object before it is validated.
type Mutator interface {
	Interface
	Admit(ctx context.Context, a Attributes) error
}

// Validator rejects an object by returning an error, it must not change it.
type Validator interface {
	Interface
	Validate(ctx context.Context, a Attributes) error
}

type attributes struct {
	operation Operation
	resource  string
	object    apis.Object
}

func NewAttributes(operation Operation, resource string, obj apis.Object) Attributes {
	return &attributes{operation: operation, resource: resource, object: obj}
}

func (a *attributes) GetOperation() Operation { return a.operation }

func (a *attributes) GetObject() apis.Object { return a.object }

func (a *attributes) GetResource() string { return a.resource }
