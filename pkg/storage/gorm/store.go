package gorm

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/sunyakun/foo-controller/pkg/storage"
	"github.com/sunyakun/foo-controller/pkg/util"
	"github.com/sunyakun/foo-controller/pkg/watch"
)

var (
	_ storage.WatchableStore[any] = &store[any, any]{}
	_ storage.SchemaChecker       = &store[any, any]{}
)

const mysqlErrDuplicateEntry = 1062

// Config used to construct store.
// <KeyColumnName> should be the unique key used to select the object from the underlying SQL database.
// <RevisionColumnName> is used to implement the optimistic lock, it is bumped on every write.
// <StatusColumnNames> are only written by UpdateStatus, Update never touches them.
// <ImmutableColumnNames> are written once by Create.
// <FieldGetter> can be obtained from the gorm/gen generated code.
// <ParseToTime> is used to convert the string-formatted time to time.Time{}.
// <PubSub> transports the watch events, an in-process gochannel is used when it's nil.
type Config struct {
	KeyColumnName        string
	RevisionColumnName   string
	StatusColumnNames    []string
	ImmutableColumnNames []string
	FieldGetter          FieldGetter
	ParseToTime          func(string) (time.Time, error)
	PubSub               watch.PubSub
}

// DaoGetter returns the generated DO bound to tx.
type DaoGetter[GenDoT any] func(ctx context.Context, tx *gorm.DB) GenDoT

type store[GormModelT, GenDoT any] struct {
	db             *gorm.DB
	typeName       string
	genDaoGetter   DaoGetter[GenDoT]
	specColumns    []string
	statusColumns  []string
	keyField       util.StringField[GormModelT]
	rvField        util.StringField[GormModelT]
	pubwatcher     watch.EventPubWatcher[GormModelT]
	selector       *Selector
	fieldGetter    FieldGetter
}

// New create gorm/gen based store that implement the storage.WatchableStore interface.
// <daoGetter> will be used to get the gorm DO instance inside every transaction.
func New[GormModelT, GenDoT any](db *gorm.DB, daoGetter DaoGetter[GenDoT], cfg Config) (*store[GormModelT, GenDoT], error) {
	// make sure the `GormModelT` is a go struct
	gormModelRt, err := util.ReflectDefinedStruct[GormModelT]()
	if err != nil {
		return nil, err
	}
	if cfg.RevisionColumnName == "" {
		return nil, fmt.Errorf("the revision column of %s is required", gormModelRt.Name())
	}

	pubsub := cfg.PubSub
	if pubsub == nil {
		pubsub = watch.NewGoChannelPubSub(nil)
	}
	pubwatcher, err := watch.NewPubWatcher[GormModelT](pubsub)
	if err != nil {
		return nil, err
	}

	keyField, err := util.NewStringField[GormModelT](cfg.KeyColumnName)
	if err != nil {
		return nil, err
	}
	revisionField, err := util.NewStringField[GormModelT](cfg.RevisionColumnName)
	if err != nil {
		return nil, err
	}
	if err := util.CheckColumns(gormModelRt, cfg.StatusColumnNames...); err != nil {
		return nil, err
	}
	if err := util.CheckColumns(gormModelRt, cfg.ImmutableColumnNames...); err != nil {
		return nil, err
	}

	// the key and the revision are never overwritten by a plain column copy
	excluded := append([]string{cfg.KeyColumnName, cfg.RevisionColumnName}, cfg.StatusColumnNames...)
	excluded = append(excluded, cfg.ImmutableColumnNames...)

	return &store[GormModelT, GenDoT]{
		db:             db,
		typeName:       gormModelRt.Name(),
		genDaoGetter:   daoGetter,
		specColumns:    lo.Without(util.InspectColumns(gormModelRt), excluded...),
		statusColumns:  cfg.StatusColumnNames,
		keyField:       keyField,
		rvField:        revisionField,
		pubwatcher:     pubwatcher,
		selector:       NewSelector(cfg.FieldGetter, cfg.ParseToTime),
		fieldGetter:    cfg.FieldGetter,
	}, nil
}

func nextRevision(rv string) (string, error) {
	if rv == "" {
		return "1", nil
	}
	i, err := strconv.ParseInt(rv, 10, 64)
	if err != nil {
		return "", fmt.Errorf("the revision must be number")
	}
	return strconv.FormatInt(i+1, 10), nil
}

func (s *store[GormModelT, GenDoT]) dao(ctx context.Context, tx *gorm.DB) (*Dao[GormModelT, GenDoT], error) {
	return NewDao[GormModelT](s.genDaoGetter(ctx, tx), s.fieldGetter)
}

func (s *store[GormModelT, GenDoT]) first(dao *Dao[GormModelT, GenDoT], key string) (*GormModelT, error) {
	obj, err := dao.WithEqual(s.keyField.Column(), key).First()
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.NewNotFoundError(s.typeName, key)
		}
		return nil, err
	}
	return obj, nil
}

func (s *store[GormModelT, GenDoT]) Get(ctx context.Context, key string) (*GormModelT, error) {
	dao, err := s.dao(ctx, s.db)
	if err != nil {
		return nil, err
	}
	return s.first(dao, key)
}

func (s *store[GormModelT, GenDoT]) GetList(ctx context.Context, opts storage.ListOptions) ([]*GormModelT, int64, error) {
	conditions, err := s.selector.GenerateConditions(opts.Requirements)
	if err != nil {
		return nil, 0, err
	}
	dao, err := s.dao(ctx, s.db)
	if err != nil {
		return nil, 0, err
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = -1
	}
	return dao.Where(conditions...).FindByPage(opts.Offset, limit)
}

func (s *store[GormModelT, GenDoT]) Create(ctx context.Context, obj *GormModelT) (out *GormModelT, err error) {
	err = s.db.Transaction(func(tx *gorm.DB) error {
		dao, err := s.dao(ctx, tx)
		if err != nil {
			return err
		}

		s.rvField.Set(obj, "1")

		if err := dao.Create(obj); err != nil {
			var mysqlErr *mysql.MySQLError
			if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry {
				return storage.NewAlreadyExistError(s.typeName, s.keyField.Get(obj))
			}
			return err
		}
		out = obj
		return s.pubwatcher.Publish(ctx, watch.EventTypeCreated, out)
	})
	return
}

// modify writes the given columns of obj with a compare-and-swap on the
// revision. A non-empty revision in obj must match the stored one. On success
// obj holds the stored row.
func (s *store[GormModelT, GenDoT]) modify(ctx context.Context, key string, obj *GormModelT, columns []string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		dao, err := s.dao(ctx, tx)
		if err != nil {
			return err
		}
		oldObj, err := s.first(dao, key)
		if err != nil {
			return err
		}

		oldRv := s.rvField.Get(oldObj)
		if rvInReq := s.rvField.Get(obj); rvInReq != "" && rvInReq != oldRv {
			return storage.NewConcurrentConflictError()
		}
		rv, err := nextRevision(oldRv)
		if err != nil {
			return err
		}
		s.keyField.Set(obj, key)
		s.rvField.Set(obj, rv)

		result, err := dao.
			WithEqual(s.keyField.Column(), key).
			WithEqual(s.rvField.Column(), oldRv).
			Select(append(slices.Clone(columns), s.rvField.Column())).
			Updates(obj)
		if err != nil {
			return err
		}
		if result.RowsAffected != 1 {
			return storage.NewConcurrentConflictError()
		}

		newObj, err := s.first(dao, key)
		if err != nil {
			return err
		}
		*obj = *newObj
		return s.pubwatcher.Publish(ctx, watch.EventTypeUpdated, obj)
	})
}

func (s *store[GormModelT, GenDoT]) Update(ctx context.Context, key string, obj *GormModelT) error {
	return s.modify(ctx, key, obj, s.specColumns)
}

func (s *store[GormModelT, GenDoT]) UpdateStatus(ctx context.Context, key string, obj *GormModelT) error {
	return s.modify(ctx, key, obj, s.statusColumns)
}

// Delete remove the object specified by key. If the key don't exists, it will
// return NotFound error
func (s *store[GormModelT, GenDoT]) Delete(ctx context.Context, key string, obj *GormModelT) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		dao, err := s.dao(ctx, tx)
		if err != nil {
			return err
		}
		oldObj, err := s.first(dao, key)
		if err != nil {
			return err
		}
		oldRv := s.rvField.Get(oldObj)
		if obj != nil {
			if rvInReq := s.rvField.Get(obj); rvInReq != "" && rvInReq != oldRv {
				return storage.NewConcurrentConflictError()
			}
		}

		result, err := dao.WithEqual(s.keyField.Column(), key).WithEqual(s.rvField.Column(), oldRv).Delete()
		if err != nil {
			return err
		}
		if result.RowsAffected != 1 {
			return storage.NewConcurrentConflictError()
		}
		if obj != nil {
			*obj = *oldObj
		}
		return s.pubwatcher.Publish(ctx, watch.EventTypeDeleted, oldObj)
	})
}

func (s *store[GormModelT, GenDoT]) Watch(ctx context.Context) (watch.Channel[GormModelT], error) {
	return s.pubwatcher.Watch(ctx)
}

// HasSchema reports whether the table of GormModelT exists.
func (s *store[GormModelT, GenDoT]) HasSchema(ctx context.Context) (bool, error) {
	return s.db.WithContext(ctx).Migrator().HasTable(new(GormModelT)), nil
}

// Migrate creates or alters the table of GormModelT.
func (s *store[GormModelT, GenDoT]) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(new(GormModelT))
}
