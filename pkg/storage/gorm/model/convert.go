package model

import "github.com/sunyakun/foo-controller/pkg/apis"

// FooConverter converts between apis.Foo and its row.
type FooConverter struct{}

func (FooConverter) FromStorage(from *Foo, to *apis.Foo) error {
	to.Namespace = from.Namespace
	to.Name = from.Name
	to.ResourceVersion = from.ResourceVersion
	to.CreateTime = from.CreateTime
	to.UpdateTime = from.UpdateTime
	to.Spec = apis.FooSpec{Name: from.SpecName, Info: from.Info}
	to.Status = apis.FooStatus{IsBad: from.IsBad}
	return nil
}

func (FooConverter) ToStorage(from *apis.Foo, to *Foo) error {
	to.ObjectKey = from.GetKey()
	to.Namespace = from.Namespace
	to.Name = from.Name
	to.ResourceVersion = from.ResourceVersion
	to.SpecName = from.Spec.Name
	to.Info = from.Spec.Info
	to.IsBad = from.Status.IsBad
	return nil
}
