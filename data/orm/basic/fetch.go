package basic

import (
	"context"
	"fmt"
	"slices"

	"relmap/data/orm"
	"relmap/data/orm/preload"
	apperrors "relmap/errors"
	"relmap/logging"
)

// Fetch 实现 preload.QueryFunc：按 q.Field IN q.Keys 查询目标表，结果按该列升序。
//
// 附加条件的参数占用同一条语句的参数额度，IN 列表按剩余额度分批；
// 预加载器传入的键已按升序去重，因此按批顺序拼接后整体仍然有序。
func (o *Orm) Fetch(ctx context.Context, q preload.Query) ([]any, error) {
	if q.Schema == nil {
		return nil, fmt.Errorf("basic.Fetch: nil schema")
	}
	column := q.Column
	if column == "" {
		column = q.Schema.Column(q.Field)
	}
	if column == "" {
		return nil, fmt.Errorf("%w: basic.Fetch: %s has no column for %s", orm.ErrUnknownAssociation, q.Schema.Name, q.Field)
	}
	if len(q.Keys) == 0 {
		return []any{}, nil
	}

	qo := orm.CollectQueryOptions(q.Options...)
	if len(qo.Joins) > 0 {
		return nil, fmt.Errorf("%w: basic.Fetch: joins", orm.ErrUnsupported)
	}
	columns := qo.Select
	if len(columns) == 0 {
		columns = q.Schema.Columns()
	} else if !slices.Contains(columns, column) {
		columns = append(slices.Clone(columns), column)
	}

	batch := o.paramLimit()
	for _, w := range qo.Where {
		batch -= len(w.Args)
	}
	if batch <= 0 {
		return nil, fmt.Errorf("basic.Fetch: where clauses exceed parameter limit %d", o.paramLimit())
	}

	out := make([]any, 0, len(q.Keys))
	for start := 0; start < len(q.Keys); start += batch {
		chunk := q.Keys[start:min(start+batch, len(q.Keys))]

		builder := o.sql.Select(columns...).From(q.Schema.Table).WhereIn(column, chunk...)
		for _, w := range qo.Where {
			builder = builder.And(w.Expr, w.Args...)
		}
		builder = builder.OrderBy(o.sql.Dialect().QuoteIdentifier(column) + " ASC")
		builder = applyOrderBy(builder, qo.OrderBy)

		rows, err := builder.Query(ctx)
		if err != nil {
			return nil, apperrors.WrapError(err, apperrors.ErrCodeDatabase, "basic: fetch "+q.Schema.Table)
		}
		entities, err := scanEntities(rows, q.Schema)
		rows.Close()
		if err != nil {
			return nil, apperrors.WrapError(err, apperrors.ErrCodeDatabase, "basic: scan "+q.Schema.Table)
		}
		out = append(out, entities...)
	}

	o.logger.Debug(ctx, "fetched related rows",
		logging.String("table", q.Schema.Table),
		logging.String("column", column),
		logging.Int("keys", len(q.Keys)),
		logging.Int("rows", len(out)),
	)
	return out, nil
}
