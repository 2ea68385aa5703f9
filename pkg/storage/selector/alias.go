// Package selector parses the label-selector syntax used to filter list
// requests on object fields, e.g. "namespace=default,is_bad=true".
package selector

import (
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/selection"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

type Operator = selection.Operator

type Requirement = labels.Requirement

type PathOption = field.PathOption

// Fields is the flattened view of an object that requirements are matched
// against by stores without a query language.
type Fields = labels.Set

func Parse(selector string, opts ...PathOption) ([]Requirement, error) {
	return labels.ParseToRequirements(selector, opts...)
}

func NewRequirement(key string, op Operator, vals []string, opts ...PathOption) (*Requirement, error) {
	return labels.NewRequirement(key, op, vals, opts...)
}

// Matches reports whether fields satisfies every requirement.
func Matches(requirements []Requirement, fields Fields) bool {
	for _, r := range requirements {
		if !r.Matches(fields) {
			return false
		}
	}
	return true
}

const (
	DoesNotExist Operator = selection.DoesNotExist
	Equals       Operator = selection.Equals
	DoubleEquals Operator = selection.DoubleEquals
	In           Operator = selection.In
	NotEquals    Operator = selection.NotEquals
	NotIn        Operator = selection.NotIn
	Exists       Operator = selection.Exists
	GreaterThan  Operator = selection.GreaterThan
	LessThan     Operator = selection.LessThan
)
