package rest

import "github.com/sunyakun/foo-controller/pkg/apis"

// IdentityConverter is used when the store keeps the api type itself.
type IdentityConverter[T any, PT interface {
	apis.Object
	*T
}] struct{}

func (IdentityConverter[T, PT]) FromStorage(from *T, to PT) error {
	*to = *from
	return nil
}

func (IdentityConverter[T, PT]) ToStorage(from PT, to *T) error {
	*to = *from
	return nil
}
