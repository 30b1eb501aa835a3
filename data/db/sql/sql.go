// Package sql 提供查询执行层使用的 SELECT 构建器。
//
// 只覆盖预加载与模型读取需要的形态：列、表、条件、IN 列表、排序与分页。
// 表名与列名经过安全校验并按方言加引号，值一律走占位符。
package sql

import (
	"context"

	core "relmap/data/db"
	"relmap/data/db/dialect"
)

// ISql 提供统一的 SQL 构建与执行接口。
type ISql interface {
	Select(columns ...string) ISelectBuilder

	// Dialect 返回推断出的方言，供调用方读取参数上限等能力。
	Dialect() dialect.Dialect

	// GetDB 返回底层 IDatabase（仅示例/特殊场景使用）。
	GetDB() core.IDatabase
}

// ISelectBuilder 构建 SELECT 语句。
type ISelectBuilder interface {
	From(table string) ISelectBuilder
	Where(cond string, args ...any) ISelectBuilder
	And(cond string, args ...any) ISelectBuilder
	Or(cond string, args ...any) ISelectBuilder
	// WhereIn 追加 column IN (?, ...) 条件；values 为空时生成恒假条件。
	WhereIn(column string, values ...any) ISelectBuilder
	// OrderBy 追加排序表达式，多次调用按调用顺序拼接。
	OrderBy(expr string) ISelectBuilder
	Limit(n int) ISelectBuilder
	Offset(n int) ISelectBuilder
	Build() (query string, args []any)
	Query(ctx context.Context) (core.IRows, error)
	QueryRow(ctx context.Context) core.IRow
}

type sqlImpl struct {
	db      core.IDatabase
	dialect dialect.Dialect
}

// New 创建 ISql 实例。
func New(db core.IDatabase) ISql {
	return &sqlImpl{
		db:      db,
		dialect: dialect.FromDatabase(db),
	}
}

func (s *sqlImpl) Select(columns ...string) ISelectBuilder {
	if len(columns) == 0 {
		columns = []string{"*"}
	}
	return &selectBuilder{
		db:      s.db,
		dialect: s.dialect,
		cols:    columns,
	}
}

func (s *sqlImpl) Dialect() dialect.Dialect {
	return s.dialect
}

func (s *sqlImpl) GetDB() core.IDatabase {
	return s.db
}
