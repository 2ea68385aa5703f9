package apis

const (
	FooGroup    = "clux.dev"
	FooVersion  = "v1"
	FooKind     = "Foo"
	FooResource = "foos"
)

// Foo is the resource reconciled by the foo controller.
type Foo struct {
	ObjectMeta `json:"metadata,omitempty"`
	Spec       FooSpec   `json:"spec"`
	Status     FooStatus `json:"status,omitempty"`
}

// FooSpec is owned by users, the controller never writes it.
type FooSpec struct {
	Name string `json:"name"`
	Info string `json:"info"`
}

// FooStatus is owned by the controller and only written through the status
// subresource.
type FooStatus struct {
	IsBad bool `json:"is_bad"`
}
