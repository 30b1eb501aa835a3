package schema

import (
	"fmt"

	"relmap/data/orm"
)

// ResolveThrough 沿 Through 路径逐段解析关联，返回每一段的描述。
// 最后一段的目标类型必须与 Through 声明的目标类型一致。
func (r *Registry) ResolveThrough(owner *Schema, t orm.Through) ([]orm.Association, error) {
	if len(t.Path) < 2 {
		return nil, fmt.Errorf("%w: %s.%s through path needs at least two hops", orm.ErrMalformedSelector, owner.Name, t.Field)
	}
	hops := make([]orm.Association, 0, len(t.Path))
	cur := owner
	for _, name := range t.Path {
		a, err := cur.Association(name)
		if err != nil {
			return nil, fmt.Errorf("through %s.%s: %w", owner.Name, t.Field, err)
		}
		hops = append(hops, a)
		cur, err = r.ParseType(a.Related())
		if err != nil {
			return nil, err
		}
	}
	if cur.Type != t.RelatedType {
		return nil, fmt.Errorf("%w: %s.%s ends at %s, field holds %s",
			orm.ErrMalformedSelector, owner.Name, t.Field, cur.Name, t.RelatedType)
	}
	return hops, nil
}

// CollectThrough 从已加载的各段关联中收集 Through 的目标实体。
//
// 结果按身份键去重，保留首次出现的顺序；单值 Through 取去重后的第一个。
// 任一中间段未加载时返回 ErrAssociationNotLoaded。
func (r *Registry) CollectThrough(owner *Schema, entity any, t orm.Through) ([]any, error) {
	current := []any{entity}
	cur := owner
	for _, name := range t.Path {
		a, err := cur.Association(name)
		if err != nil {
			return nil, err
		}
		var next []any
		for _, e := range current {
			values, err := cur.AssociationValues(e, name)
			if err != nil {
				return nil, err
			}
			next = append(next, values...)
		}
		cur, err = r.ParseType(a.Related())
		if err != nil {
			return nil, err
		}
		current = next
	}

	seen := make(map[any]struct{}, len(current))
	out := make([]any, 0, len(current))
	for _, e := range current {
		if e == nil {
			continue
		}
		id, err := cur.Identity(e)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, e)
	}
	if t.Card == orm.CardinalityOne && len(out) > 1 {
		out = out[:1]
	}
	return out, nil
}
