package util

import (
	"fmt"
	"reflect"

	"github.com/samber/lo"
	"gorm.io/gorm/schema"
)

// ReflectDefinedStruct returns the type of T, which must be a named struct.
func ReflectDefinedStruct[T any]() (reflect.Type, error) {
	rt := reflect.TypeOf((*T)(nil)).Elem()
	if rt.Name() == "" {
		return nil, fmt.Errorf("%s is not a defined type", rt)
	}
	if rt.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%s is not a struct", rt.Name())
	}
	return rt, nil
}

// Column is a struct field carrying a gorm `column` tag.
type Column struct {
	Name          string
	AutoIncrement bool
	Field         reflect.StructField
}

// GormColumns lists the columns of the struct type rt in field order.
func GormColumns(rt reflect.Type) []Column {
	var columns []Column
	for _, f := range reflect.VisibleFields(rt) {
		settings := schema.ParseTagSetting(f.Tag.Get("gorm"), ";")
		if settings["COLUMN"] == "" {
			continue
		}
		columns = append(columns, Column{
			Name:          settings["COLUMN"],
			AutoIncrement: settings["AUTOINCREMENT"] == "true",
			Field:         f,
		})
	}
	return columns
}

// InspectColumns returns the column names of rt, auto increment ones excluded.
func InspectColumns(rt reflect.Type) []string {
	return lo.FilterMap(GormColumns(rt), func(c Column, _ int) (string, bool) {
		return c.Name, !c.AutoIncrement
	})
}

// CheckColumns returns an error naming the first column rt has no field for.
func CheckColumns(rt reflect.Type, columns ...string) error {
	known := InspectColumns(rt)
	for _, col := range columns {
		if !lo.Contains(known, col) {
			return fmt.Errorf("%s has no column %q", rt.Name(), col)
		}
	}
	return nil
}

func GetFieldByGormColumnTag(rt reflect.Type, column string) (reflect.StructField, bool) {
	c, ok := lo.Find(GormColumns(rt), func(c Column) bool { return c.Name == column })
	return c.Field, ok
}

// StringField reads and writes the string field of T mapped to a column.
type StringField[T any] struct {
	column string
	index  []int
}

func NewStringField[T any](column string) (StringField[T], error) {
	rt, err := ReflectDefinedStruct[T]()
	if err != nil {
		return StringField[T]{}, err
	}
	f, ok := GetFieldByGormColumnTag(rt, column)
	if !ok {
		return StringField[T]{}, fmt.Errorf("%s.%s has no column %q", rt.PkgPath(), rt.Name(), column)
	}
	if f.Type.Kind() != reflect.String {
		return StringField[T]{}, fmt.Errorf("the column %q of %s must be a string", column, rt.Name())
	}
	return StringField[T]{column: column, index: f.Index}, nil
}

func (f StringField[T]) Column() string {
	return f.column
}

func (f StringField[T]) Get(obj *T) string {
	return reflect.ValueOf(obj).Elem().FieldByIndex(f.index).String()
}

func (f StringField[T]) Set(obj *T, val string) {
	reflect.ValueOf(obj).Elem().FieldByIndex(f.index).SetString(val)
}
