// Package gormexec 用 gorm 实现预加载的查询执行器。
//
// 只把 gorm 当作执行层：关联的归并仍由 preload 包完成，这里只负责
// `SELECT * FROM table WHERE key IN (...) ORDER BY key` 并把结果扫描为 *T。
package gormexec

import (
	"context"
	"fmt"
	"net/url"
	"reflect"
	"slices"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	dbcore "relmap/data/db"
	"relmap/data/db/dialect"
	"relmap/data/orm"
	"relmap/data/orm/preload"
	apperrors "relmap/errors"
	"relmap/logging"
)

// Executor 基于 *gorm.DB 的执行器。
type Executor struct {
	db     *gorm.DB
	logger logging.Logger
	batch  int
}

// Option 配置 Executor。
type Option func(*Executor)

// WithLogger 指定日志实现。
func WithLogger(l logging.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithBatchSize 限制单条语句 IN 列表的长度，默认取方言参数上限。
func WithBatchSize(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.batch = n
		}
	}
}

// New 创建执行器。
func New(db *gorm.DB, opts ...Option) *Executor {
	e := &Executor{
		db:     db,
		logger: logging.GetLogger(),
		batch:  dialect.New(db.Dialector.Name()).MaxParams(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Preloader 返回以该执行器为查询函数的预加载器。
func (e *Executor) Preloader(opts ...preload.Option) *preload.Preloader {
	return preload.New(e.Fetch, append([]preload.Option{preload.WithLogger(e.logger)}, opts...)...)
}

// Fetch 实现 preload.QueryFunc。
func (e *Executor) Fetch(ctx context.Context, q preload.Query) ([]any, error) {
	if q.Schema == nil {
		return nil, fmt.Errorf("gormexec.Fetch: nil schema")
	}
	column := q.Column
	if column == "" {
		column = q.Schema.Column(q.Field)
	}
	if column == "" {
		return nil, fmt.Errorf("%w: gormexec.Fetch: %s has no column for %s", orm.ErrUnknownAssociation, q.Schema.Name, q.Field)
	}

	qo := orm.CollectQueryOptions(q.Options...)
	// 自定义列表缺少关联列时补上，否则结果无法按键归并
	columns := qo.Select
	if len(columns) > 0 && !slices.Contains(columns, column) {
		columns = append(slices.Clone(columns), column)
	}
	out := make([]any, 0, len(q.Keys))
	for start := 0; start < len(q.Keys); start += e.batch {
		chunk := q.Keys[start:min(start+e.batch, len(q.Keys))]

		tx := e.db.WithContext(ctx).Table(q.Schema.Table).
			Where(clause.IN{Column: clause.Column{Name: column}, Values: chunk})
		for _, w := range qo.Where {
			tx = tx.Where(w.Expr, w.Args...)
		}
		for _, j := range qo.Joins {
			tx = tx.Joins(j.Expr, j.Args...)
		}
		if len(columns) > 0 {
			tx = tx.Select(columns)
		}
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: column}})
		for _, o := range qo.OrderBy {
			tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: o.Column, Raw: true}, Desc: o.Desc})
		}

		dest := reflect.New(reflect.SliceOf(reflect.PointerTo(q.Schema.Type)))
		if err := tx.Find(dest.Interface()).Error; err != nil {
			return nil, apperrors.WrapError(err, apperrors.ErrCodeDatabase, "gormexec: fetch "+q.Schema.Table)
		}
		for i := 0; i < dest.Elem().Len(); i++ {
			out = append(out, dest.Elem().Index(i).Interface())
		}
	}

	e.logger.Debug(ctx, "fetched related rows",
		logging.String("table", q.Schema.Table),
		logging.String("column", column),
		logging.Int("keys", len(q.Keys)),
		logging.Int("rows", len(out)),
	)
	return out, nil
}

// Connect 按 DBConfig 打开 MySQL 连接；gorm 自身日志静默，由调用方的 logger 输出。
func Connect(cfg dbcore.DBConfig) (*gorm.DB, error) {
	userInfo := url.UserPassword(cfg.Username, cfg.Password).String()
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	dsn := fmt.Sprintf("%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		userInfo, cfg.Host, port, cfg.Database)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("gormexec: connect: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gormexec: get sql.DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("gormexec: ping: %w", err)
	}
	return db, nil
}
