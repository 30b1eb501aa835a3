// Package basic 是基于 relmap/data/db + relmap/data/db/sql 的轻量 IOrm 实现。
//
// 它同时充当预加载的查询执行器：Fetch 把 preload.Query 翻译成
// `SELECT ... WHERE key IN (...) ORDER BY key`，IN 列表按方言参数上限分批。
package basic

import (
	"context"
	"fmt"

	dbcore "relmap/data/db"
	dbsql "relmap/data/db/sql"
	"relmap/data/orm"
	"relmap/data/orm/preload"
	"relmap/data/orm/schema"
	apperrors "relmap/errors"
	"relmap/logging"
)

// Orm 在 IDatabase 之上提供模型读取与批量预加载。
type Orm struct {
	db        dbcore.IDatabase
	sql       dbsql.ISql
	caps      orm.Capabilities
	registry  *schema.Registry
	logger    logging.Logger
	maxParams int
	cfg       preload.Config

	preloader *preload.Preloader
}

// Option 配置 Orm。
type Option func(*Orm)

// WithLogger 指定日志实现，同时传给内部的预加载器。
func WithLogger(l logging.Logger) Option {
	return func(o *Orm) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRegistry 指定实体元信息 Registry。
func WithRegistry(r *schema.Registry) Option {
	return func(o *Orm) {
		if r != nil {
			o.registry = r
		}
	}
}

// WithMaxParams 限制单条语句的参数个数，实际上限取该值与方言上限的较小者。
func WithMaxParams(n int) Option {
	return func(o *Orm) { o.maxParams = n }
}

// WithPreloadConfig 覆盖预加载器配置。
func WithPreloadConfig(cfg preload.Config) Option {
	return func(o *Orm) { o.cfg = cfg }
}

// New 创建一个基于指定 IDatabase 的 Orm 适配器。
func New(db dbcore.IDatabase, opts ...Option) *Orm {
	o := &Orm{
		db:  db,
		sql: dbsql.New(db),
		caps: orm.NewCapabilities(
			orm.CapabilityQuery,
			orm.CapabilityPreload,
			orm.CapabilityJoinAssembly,
			orm.CapabilityCustomLoader,
		),
		registry: schema.Default(),
		logger:   logging.GetLogger(),
		cfg:      preload.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.preloader = preload.New(o.Fetch,
		preload.WithRegistry(o.registry),
		preload.WithLogger(o.logger),
		preload.WithConfig(o.cfg),
	)
	return o
}

// Capabilities 返回适配器支持的能力。
func (o *Orm) Capabilities() orm.Capabilities { return o.caps }

// Model 返回模型级读取入口。
//
// 表名优先取 meta.Table，否则由模型类型推断（TableName() 或类型名复数）。
func (o *Orm) Model(meta *orm.ModelMeta) orm.IModel {
	if meta == nil || meta.Model == nil {
		panic("basic.Orm: ModelMeta.Model cannot be nil")
	}
	sch, err := o.registry.Parse(meta.Model)
	if err != nil {
		panic(fmt.Sprintf("basic.Orm: %v", err))
	}
	table := meta.Table
	if table == "" {
		table = sch.Table
	}
	return &model{orm: o, meta: meta, schema: sch, table: table}
}

// Preload 对已查询出的实体批量加载关联。
func (o *Orm) Preload(ctx context.Context, values []any, preloads ...orm.Preload) ([]any, error) {
	out, err := o.preloader.Preload(ctx, values, preloads...)
	if err != nil {
		return nil, apperrors.Normalize(err)
	}
	return out, nil
}

// Preloader 返回内部预加载器，便于调用 PreloadAt 等扩展入口。
func (o *Orm) Preloader() *preload.Preloader { return o.preloader }

// Database 返回底层数据库抽象。
func (o *Orm) Database() dbcore.IDatabase { return o.db }

// Raw 返回底层实现（此处为 dbcore.IDatabase）。
func (o *Orm) Raw() any { return o.db }

// paramLimit 返回单条语句可用的参数个数。
func (o *Orm) paramLimit() int {
	limit := o.sql.Dialect().MaxParams()
	if o.maxParams > 0 && o.maxParams < limit {
		limit = o.maxParams
	}
	return limit
}

var _ orm.IOrm = (*Orm)(nil)
