package basic

import (
	"context"
	"fmt"
	"reflect"

	dbsql "relmap/data/db/sql"
	"relmap/data/orm"
	"relmap/data/orm/schema"
	apperrors "relmap/errors"
)

// model 实现 orm.IModel
type model struct {
	orm    *Orm
	meta   *orm.ModelMeta
	schema *schema.Schema
	table  string
}

func (m *model) Meta() *orm.ModelMeta           { return m.meta }
func (m *model) Capabilities() orm.Capabilities { return m.orm.caps }

// First 查询单条记录，dest 为 *T。
func (m *model) First(ctx context.Context, dest any, opts ...orm.QueryOption) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Type() != m.schema.Type {
		return fmt.Errorf("basic.First: dest must be *%s, got %T", m.schema.Name, dest)
	}

	qo := orm.CollectQueryOptions(opts...)
	// First 至少限制一条
	if qo.Limit <= 0 {
		qo.Limit = 1
	}
	entities, err := m.query(ctx, qo)
	if err != nil {
		return err
	}
	if len(entities) == 0 {
		return apperrors.Normalize(orm.ErrNotFound)
	}
	loaded, err := m.preload(ctx, entities[:1], qo.Preload)
	if err != nil {
		return err
	}
	rv.Elem().Set(reflect.ValueOf(loaded[0]).Elem())
	return nil
}

// Find 查询多条记录，dest 为 *[]*T 或 *[]T。
func (m *model) Find(ctx context.Context, dest any, opts ...orm.QueryOption) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("basic.Find: dest must be a non-nil pointer to slice, got %T", dest)
	}
	elemType := rv.Elem().Type().Elem()
	byPointer := elemType == reflect.PointerTo(m.schema.Type)
	if !byPointer && elemType != m.schema.Type {
		return fmt.Errorf("%w: basic.Find: dest %T does not hold %s", orm.ErrHeterogeneousInput, dest, m.schema.Name)
	}

	qo := orm.CollectQueryOptions(opts...)
	entities, err := m.query(ctx, qo)
	if err != nil {
		return err
	}
	loaded, err := m.preload(ctx, entities, qo.Preload)
	if err != nil {
		return err
	}

	out := reflect.MakeSlice(rv.Elem().Type(), 0, len(loaded))
	for _, e := range loaded {
		ev := reflect.ValueOf(e)
		if !byPointer {
			ev = ev.Elem()
		}
		out = reflect.Append(out, ev)
	}
	rv.Elem().Set(out)
	return nil
}

// Count 统计数量（忽略 Select/OrderBy，只做简单 COUNT(*)）。
func (m *model) Count(ctx context.Context, opts ...orm.QueryOption) (int64, error) {
	qo := orm.CollectQueryOptions(opts...)
	if len(qo.Joins) > 0 {
		return 0, fmt.Errorf("%w: basic.Count: joins", orm.ErrUnsupported)
	}

	builder := m.orm.sql.Select("COUNT(*)").From(m.table)
	for _, w := range qo.Where {
		builder = builder.Where(w.Expr, w.Args...)
	}

	var count int64
	if err := builder.QueryRow(ctx).Scan(&count); err != nil {
		return 0, apperrors.WrapError(err, apperrors.ErrCodeDatabase, "basic: count "+m.table)
	}
	return count, nil
}

func (m *model) query(ctx context.Context, qo orm.QueryOptions) ([]any, error) {
	if len(qo.Joins) > 0 {
		return nil, fmt.Errorf("%w: basic.Find: joins, use assemble for joined rows", orm.ErrUnsupported)
	}

	columns := qo.Select
	if len(columns) == 0 {
		columns = m.schema.Columns()
	}
	builder := m.orm.sql.Select(columns...).From(m.table)
	for _, w := range qo.Where {
		builder = builder.Where(w.Expr, w.Args...)
	}
	builder = applyOrderBy(builder, qo.OrderBy)
	if qo.Limit > 0 {
		builder = builder.Limit(qo.Limit)
	}
	if qo.Offset > 0 {
		builder = builder.Offset(qo.Offset)
	}

	rows, err := builder.Query(ctx)
	if err != nil {
		return nil, apperrors.WrapError(err, apperrors.ErrCodeDatabase, "basic: query "+m.table)
	}
	defer rows.Close()

	entities, err := scanEntities(rows, m.schema)
	if err != nil {
		return nil, apperrors.WrapError(err, apperrors.ErrCodeDatabase, "basic: scan "+m.table)
	}
	return entities, nil
}

func (m *model) preload(ctx context.Context, entities []any, reqs []orm.Preload) ([]any, error) {
	if len(reqs) == 0 || len(entities) == 0 {
		return entities, nil
	}
	loaded, err := m.orm.preloader.Preload(ctx, entities, reqs...)
	if err != nil {
		return nil, apperrors.Normalize(err)
	}
	return loaded, nil
}

func applyOrderBy(b dbsql.ISelectBuilder, orders []orm.OrderBy) dbsql.ISelectBuilder {
	for _, o := range orders {
		if o.Column == "" {
			continue
		}
		if o.Desc {
			b = b.OrderBy(o.Column + " DESC")
		} else {
			b = b.OrderBy(o.Column + " ASC")
		}
	}
	return b
}
