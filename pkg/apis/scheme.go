package apis

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Scheme maps Go types to kinds and kinds to the resources they are served as.
type Scheme struct {
	mu         sync.RWMutex
	typeToKind map[reflect.Type]string
	KindToType map[string]reflect.Type
	resources  map[string]APIResource
}

func NewScheme() *Scheme {
	return &Scheme{
		typeToKind: map[reflect.Type]string{},
		KindToType: map[string]reflect.Type{},
		resources:  map[string]APIResource{},
	}
}

func (s *Scheme) AddKnownTypes(types ...Object) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range types {
		rt := reflect.TypeOf(t)
		if rt.Kind() != reflect.Pointer {
			return fmt.Errorf("all types must be pointer")
		}
		rt = rt.Elem()
		if _, ok := s.KindToType[rt.Name()]; ok {
			return fmt.Errorf("type %q already added", rt.Name())
		}
		s.KindToType[rt.Name()] = rt
		s.typeToKind[rt] = rt.Name()
	}
	return nil
}

// AddKnownResource registers obj's kind and records the resource it is
// served as.
func (s *Scheme) AddKnownResource(resource APIResource, obj Object) error {
	if err := s.AddKnownTypes(obj); err != nil {
		return err
	}
	kind, err := s.ObjectKind(obj)
	if err != nil {
		return err
	}
	resource.Kind = kind

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.resources[resource.Name]; ok {
		return fmt.Errorf("resource %q already added", resource.Name)
	}
	s.resources[resource.Name] = resource
	return nil
}

// Resource returns the resource registered under name.
func (s *Scheme) Resource(name string) (APIResource, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.resources[name]
	return r, ok
}

// Resources returns every registered resource ordered by name.
func (s *Scheme) Resources() []APIResource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]APIResource, 0, len(s.resources))
	for _, r := range s.resources {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Scheme) AllKnownTypes() map[string]reflect.Type {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var allKnownTypes = map[string]reflect.Type{}
	for name, t := range s.KindToType {
		allKnownTypes[name] = t
	}
	return allKnownTypes
}

func (s *Scheme) ObjectKind(obj Object) (string, error) {
	rt := reflect.TypeOf(obj)
	if rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	s.mu.RLock()
	kind, ok := s.typeToKind[rt]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%q not registered", rt.Name())
	}
	return kind, nil
}

// NewFooScheme returns a scheme with the Foo resource registered.
func NewFooScheme() (*Scheme, error) {
	scheme := NewScheme()
	err := scheme.AddKnownResource(APIResource{
		Name:         FooResource,
		Group:        FooGroup,
		Version:      FooVersion,
		Subresources: []string{"status"},
	}, &Foo{})
	if err != nil {
		return nil, err
	}
	return scheme, nil
}
