package preload

import (
	"fmt"

	"relmap/data/orm"
	"relmap/data/orm/schema"
)

// expand 将 Through 请求改写为逐段嵌套的直接请求，并与同名的显式请求合并，
// 使中间段只查询一次且保持加载状态。返回的 throughs 按依赖顺序排列：
// 内层 Through 先于依赖它的外层计算。
func (p *Preloader) expand(sch *schema.Schema, reqs []orm.Preload, visiting []string) ([]orm.Preload, []orm.Through, error) {
	var (
		direct   []orm.Preload
		throughs []orm.Through
	)
	for _, req := range orm.MergePreloads(reqs) {
		assoc, err := sch.Association(req.Name)
		if err != nil {
			return nil, nil, err
		}
		t, ok := assoc.(orm.Through)
		if !ok {
			direct = append(direct, req)
			continue
		}

		for _, v := range visiting {
			if v == t.Field {
				return nil, nil, fmt.Errorf("%w: %s.%s through path is cyclic", orm.ErrMalformedSelector, sch.Name, t.Field)
			}
		}
		if _, err := p.registry.ResolveThrough(sch, t); err != nil {
			return nil, nil, err
		}

		d, ts, err := p.expand(sch, []orm.Preload{chain(t, req)}, append(visiting, t.Field))
		if err != nil {
			return nil, nil, err
		}
		direct = append(direct, d...)
		throughs = appendThrough(throughs, ts...)
		throughs = appendThrough(throughs, t)
	}
	return orm.MergePreloads(direct), throughs, nil
}

// chain 构造 Through 路径对应的嵌套请求；调用方的嵌套请求、查询选项与加载函数放在最后一段。
func chain(t orm.Through, req orm.Preload) orm.Preload {
	last := len(t.Path) - 1
	node := orm.Preload{
		Name:        t.Path[last],
		Nested:      req.Nested,
		Options:     req.Options,
		Loader:      req.Loader,
		AssocLoader: req.AssocLoader,
	}
	for i := last - 1; i >= 0; i-- {
		node = orm.Preload{Name: t.Path[i], Nested: []orm.Preload{node}}
	}
	return node
}

func appendThrough(list []orm.Through, ts ...orm.Through) []orm.Through {
outer:
	for _, t := range ts {
		for _, x := range list {
			if x.Field == t.Field {
				continue outer
			}
		}
		list = append(list, t)
	}
	return list
}

// collectThrough 在各段加载完成后计算 Through 字段：按身份去重并保留首次出现顺序。
func (p *Preloader) collectThrough(sch *schema.Schema, entities []any, t orm.Through) error {
	for _, e := range entities {
		if e == nil {
			continue
		}
		values, err := p.registry.CollectThrough(sch, e, t)
		if err != nil {
			return err
		}
		if err := sch.SetAssociation(e, t.Field, values); err != nil {
			return err
		}
	}
	return nil
}
