package gorm

import (
	"fmt"
	"slices"

	"gorm.io/gen"
	"gorm.io/gen/field"
)

func NewNotImplementError(iface string) error {
	return fmt.Errorf("storage runtime error, the given type not implement %s", iface)
}

// GenDoInterface is the chainable part of a gorm/gen generated DO.
type GenDoInterface[T any] interface {
	Where(...gen.Condition) T
	Returning(value interface{}, columns ...string) T
	Select(conds ...field.Expr) T
	TableName() string
}

// GenDaoInterface is the terminal part of a gorm/gen generated DO.
type GenDaoInterface[T any] interface {
	Create(values ...*T) error
	First() (*T, error)
	Find() ([]*T, error)
	FindByPage(offset int, limit int) (result []*T, count int64, err error)
	Updates(obj interface{}) (gen.ResultInfo, error)
	Delete(...*T) (info gen.ResultInfo, err error)
}

type returningInput struct {
	value   any
	columns []string
}

type equalInput struct {
	column string
	value  string
}

// Dao builds queries by column name on top of a generated DO. Every builder
// method returns a copy, so a Dao may be reused as a base query.
type Dao[GormModelT, GenDoT any] struct {
	genDo       GenDoInterface[GenDoT]
	fieldGetter FieldGetter

	conditions     []gen.Condition
	returningInput *returningInput
	equalInputs    []equalInput
	selectInput    []string
}

func NewDao[GormModelT, GenDoT any](genDo GenDoT, fieldGetter FieldGetter) (*Dao[GormModelT, GenDoT], error) {
	do, ok := interface{}(genDo).(GenDoInterface[GenDoT])
	if !ok {
		return nil, NewNotImplementError("GenDoInterface[T]")
	}
	return &Dao[GormModelT, GenDoT]{genDo: do, fieldGetter: fieldGetter}, nil
}

func (dao *Dao[GormModelT, GenDoT]) copy() *Dao[GormModelT, GenDoT] {
	return &Dao[GormModelT, GenDoT]{
		genDo:          dao.genDo,
		fieldGetter:    dao.fieldGetter,
		conditions:     slices.Clone(dao.conditions),
		returningInput: dao.returningInput,
		equalInputs:    slices.Clone(dao.equalInputs),
		selectInput:    slices.Clone(dao.selectInput),
	}
}

func (dao *Dao[GormModelT, GenDoT]) WithEqual(column, val string) *Dao[GormModelT, GenDoT] {
	d := dao.copy()
	d.equalInputs = append(d.equalInputs, equalInput{column: column, value: val})
	return d
}

func (dao *Dao[GormModelT, GenDoT]) Where(conds ...gen.Condition) *Dao[GormModelT, GenDoT] {
	d := dao.copy()
	d.conditions = append(d.conditions, conds...)
	return d
}

func (dao *Dao[GormModelT, GenDoT]) Select(columns []string) *Dao[GormModelT, GenDoT] {
	d := dao.copy()
	d.selectInput = slices.Clone(columns)
	return d
}

func (dao *Dao[GormModelT, GenDoT]) Returning(value interface{}, columns ...string) *Dao[GormModelT, GenDoT] {
	d := dao.copy()
	d.returningInput = &returningInput{
		value:   value,
		columns: columns,
	}
	return d
}

func (dao *Dao[GormModelT, GenDoT]) chain(next GenDoT) (GenDoInterface[GenDoT], error) {
	do, ok := interface{}(next).(GenDoInterface[GenDoT])
	if !ok {
		return nil, NewNotImplementError("GenDoInterface[T]")
	}
	return do, nil
}

// build applies the collected inputs to the generated DO without mutating dao.
func (dao *Dao[GormModelT, GenDoT]) build() (GenDaoInterface[GormModelT], error) {
	var (
		do  = dao.genDo
		err error
	)

	if len(dao.selectInput) != 0 {
		var selectedFields []field.Expr
		for _, column := range dao.selectInput {
			f, ok := dao.fieldGetter.GetFieldByName(column)
			if !ok {
				return nil, NewFieldNotExistError(column)
			}
			selectedFields = append(selectedFields, f)
		}
		if do, err = dao.chain(do.Select(selectedFields...)); err != nil {
			return nil, err
		}
	}

	conditions := slices.Clone(dao.conditions)
	for _, item := range dao.equalInputs {
		f, ok := dao.fieldGetter.GetFieldByName(item.column)
		if !ok {
			return nil, NewFieldNotExistError(item.column)
		}
		strfield, ok := f.(field.String)
		if !ok {
			return nil, fmt.Errorf("field '%s' is not type string", item.column)
		}
		conditions = append(conditions, strfield.Eq(item.value))
	}

	if len(conditions) != 0 {
		if do, err = dao.chain(do.Where(conditions...)); err != nil {
			return nil, err
		}
	}

	if dao.returningInput != nil {
		if do, err = dao.chain(do.Returning(dao.returningInput.value, dao.returningInput.columns...)); err != nil {
			return nil, err
		}
	}

	genDao, ok := interface{}(do).(GenDaoInterface[GormModelT])
	if !ok {
		return nil, NewNotImplementError("GenDaoInterface[T]")
	}
	return genDao, nil
}

func (dao *Dao[GormModelT, GenDoT]) Create(values ...*GormModelT) error {
	genDao, err := dao.build()
	if err != nil {
		return err
	}
	return genDao.Create(values...)
}

func (dao *Dao[GormModelT, GenDoT]) First() (*GormModelT, error) {
	genDao, err := dao.build()
	if err != nil {
		return nil, err
	}
	return genDao.First()
}

func (dao *Dao[GormModelT, GenDoT]) Find() ([]*GormModelT, error) {
	genDao, err := dao.build()
	if err != nil {
		return nil, err
	}
	return genDao.Find()
}

func (dao *Dao[GormModelT, GenDoT]) FindByPage(offset int, limit int) (result []*GormModelT, count int64, err error) {
	genDao, err := dao.build()
	if err != nil {
		return nil, 0, err
	}
	return genDao.FindByPage(offset, limit)
}

func (dao *Dao[GormModelT, GenDoT]) Updates(obj interface{}) (gen.ResultInfo, error) {
	genDao, err := dao.build()
	if err != nil {
		return gen.ResultInfo{}, err
	}
	return genDao.Updates(obj)
}

func (dao *Dao[GormModelT, GenDoT]) Delete(objs ...*GormModelT) (info gen.ResultInfo, err error) {
	genDao, err := dao.build()
	if err != nil {
		return gen.ResultInfo{}, err
	}
	return genDao.Delete(objs...)
}
