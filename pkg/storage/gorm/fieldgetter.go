package gorm

import (
	"github.com/pkg/errors"
	"gorm.io/gen/field"
)

// ErrUnknownColumn is returned when a selector or a write names a column the
// model does not have.
var ErrUnknownColumn = errors.New("unknown column")

func NewFieldNotExistError(column string) error {
	return errors.Wrapf(ErrUnknownColumn, "%q", column)
}

// FieldGetter resolves a column to its gen field, the generated query structs
// implement it.
type FieldGetter interface {
	GetFieldByName(fieldName string) (field.OrderExpr, bool)
}

// columnFields is a FieldGetter resolved once, lookups never reach the field
// map of the generated query afterwards.
type columnFields map[string]field.OrderExpr

func (c columnFields) GetFieldByName(column string) (field.OrderExpr, bool) {
	f, ok := c[column]
	return f, ok
}

// ResolveColumns looks up every column of getter once.
func ResolveColumns(getter FieldGetter, columns ...string) (FieldGetter, error) {
	fields := make(columnFields, len(columns))
	for _, column := range columns {
		f, ok := getter.GetFieldByName(column)
		if !ok {
			return nil, NewFieldNotExistError(column)
		}
		fields[column] = f
	}
	return fields, nil
}
