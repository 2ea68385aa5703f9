package gorm

import (
	"fmt"
	"strconv"
	"time"

	"gorm.io/gen"
	"gorm.io/gen/field"

	"github.com/sunyakun/foo-controller/pkg/storage/selector"
)

// Selector translates parsed selector requirements to gen conditions on the
// columns of a FieldGetter.
type Selector struct {
	fieldGetter FieldGetter
	parseToTime func(string) (time.Time, error)
}

func NewSelector(fieldGetter FieldGetter, parseToTime func(string) (time.Time, error)) *Selector {
	if parseToTime == nil {
		parseToTime = func(s string) (time.Time, error) { return time.Parse(time.RFC3339, s) }
	}
	return &Selector{
		fieldGetter: fieldGetter,
		parseToTime: parseToTime,
	}
}

func (s *Selector) GenerateConditions(requirements []selector.Requirement) ([]gen.Condition, error) {
	conditions := make([]gen.Condition, 0, len(requirements))
	for _, requirement := range requirements {
		expr, err := s.condition(requirement)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, expr)
	}
	return conditions, nil
}

type nullable interface {
	IsNull() field.Expr
	IsNotNull() field.Expr
}

func (s *Selector) condition(r selector.Requirement) (field.Expr, error) {
	target, ok := s.fieldGetter.GetFieldByName(r.Key())
	if !ok {
		return nil, NewFieldNotExistError(r.Key())
	}

	switch r.Operator() {
	case selector.Exists, selector.DoesNotExist:
		f, ok := target.(nullable)
		if !ok {
			return nil, fmt.Errorf("the column %q can't be tested for existence", r.Key())
		}
		if r.Operator() == selector.Exists {
			return f.IsNotNull(), nil
		}
		return f.IsNull(), nil
	}

	switch f := target.(type) {
	case field.String:
		return ordered(f.Eq, f.Neq, f.In, f.NotIn, f.Gt, f.Lt, func(s string) (string, error) { return s, nil }).build(r)
	case field.Int:
		return ordered(f.Eq, f.Neq, f.In, f.NotIn, f.Gt, f.Lt, parseInt[int]).build(r)
	case field.Int32:
		return ordered(f.Eq, f.Neq, f.In, f.NotIn, f.Gt, f.Lt, parseInt[int32]).build(r)
	case field.Int64:
		return ordered(f.Eq, f.Neq, f.In, f.NotIn, f.Gt, f.Lt, parseInt[int64]).build(r)
	case field.Float64:
		return ordered(f.Eq, f.Neq, f.In, f.NotIn, f.Gt, f.Lt, func(s string) (float64, error) {
			return strconv.ParseFloat(s, 64)
		}).build(r)
	case field.Time:
		return ordered(f.Eq, f.Neq, f.In, f.NotIn, f.Gt, f.Lt, s.parseToTime).build(r)
	case field.Bool:
		return operators[bool]{eq: f.Is, parse: strconv.ParseBool}.build(r)
	}
	return nil, fmt.Errorf("the column %q does not support selectors", r.Key())
}

func parseInt[T int | int32 | int64](s string) (T, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return T(v), nil
}

// operators holds the gen builders a column supports, nil ones reject their
// operator.
type operators[T any] struct {
	eq, neq, gt, lt func(T) field.Expr
	in, notIn       func(...T) field.Expr
	parse           func(string) (T, error)
}

func ordered[T any](eq, neq func(T) field.Expr, in, notIn func(...T) field.Expr, gt, lt func(T) field.Expr, parse func(string) (T, error)) operators[T] {
	return operators[T]{eq: eq, neq: neq, gt: gt, lt: lt, in: in, notIn: notIn, parse: parse}
}

func (o operators[T]) build(r selector.Requirement) (field.Expr, error) {
	var (
		single func(T) field.Expr
		multi  func(...T) field.Expr
	)
	switch r.Operator() {
	case selector.Equals, selector.DoubleEquals:
		single = o.eq
	case selector.NotEquals:
		single = o.neq
	case selector.GreaterThan:
		single = o.gt
	case selector.LessThan:
		single = o.lt
	case selector.In:
		multi = o.in
	case selector.NotIn:
		multi = o.notIn
	}
	if single == nil && multi == nil {
		return nil, fmt.Errorf("the operator %q is not supported on the column %q", r.Operator(), r.Key())
	}

	raw := r.Values().List()
	values := make([]T, len(raw))
	for i, s := range raw {
		v, err := o.parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q for the column %q: %w", s, r.Key(), err)
		}
		values[i] = v
	}
	if multi != nil {
		return multi(values...), nil
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("the operator %q on the column %q needs a value", r.Operator(), r.Key())
	}
	return single(values[0]), nil
}
