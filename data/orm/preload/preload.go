// Package preload 实现批量预加载：每个关联每层只发起一次查询，
// 按关联键归并（merge-join）把结果挂到所属实体上，避免 N+1。
//
// 基本流程（每个关联一次）：
//  1. 按位置路径从容器中取出实体，校验类型一致
//  2. 若关联键存在逆序相邻对，则按键稳定排序
//  3. 收集去重的非 nil 键；无键时不发起查询
//  4. 调用执行器（或请求自带的加载函数）获取按目标键升序的结果
//  5. 先对结果递归处理嵌套请求，再归并到所属实体
//  6. 按原位置放回容器，输出与输入同构
//
// 输入实体不会被修改：每次调用都会克隆实体后再写入关联字段。
package preload

import (
	"context"
	"fmt"
	"slices"

	"relmap/data/orm"
	"relmap/data/orm/container"
	"relmap/data/orm/schema"
	"relmap/logging"
)

// Query 是预加载发给执行器的查询：在目标类型上按 Field IN Keys 过滤，
// 结果须按 Field 升序排列。
type Query struct {
	Schema  *schema.Schema
	Field   string
	Column  string
	Keys    []any
	Options []orm.QueryOption
}

// QueryFunc 查询执行器，返回目标类型的实体（*T）。
type QueryFunc func(ctx context.Context, q Query) ([]any, error)

// Preloader 批量预加载器。调用之间不保留任何状态，可并发使用。
type Preloader struct {
	fetch    QueryFunc
	registry *schema.Registry
	logger   logging.Logger
	cfg      Config
}

// New 创建 Preloader；fetch 可为 nil，此时只能使用带自定义加载函数的请求。
func New(fetch QueryFunc, opts ...Option) *Preloader {
	p := &Preloader{
		fetch:    fetch,
		registry: schema.Default(),
		logger:   logging.GetLogger(),
		cfg:      DefaultConfig(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.WithFields(logging.String("component", "preload"))
	return p
}

// Preload 为实体列表加载请求的关联，返回新的实体列表；nil 元素原样保留。
func (p *Preloader) Preload(ctx context.Context, values []any, reqs ...orm.Preload) ([]any, error) {
	return p.PreloadAt(ctx, values, nil, reqs...)
}

// PreloadAt 同 Preload，但实体位于每个值的 path 位置（例如 []any{post, count} 的第 0 位）。
func (p *Preloader) PreloadAt(ctx context.Context, values []any, path container.Path, reqs ...orm.Preload) ([]any, error) {
	if len(values) == 0 {
		return []any{}, nil
	}
	entities, err := container.Extract(values, path)
	if err != nil {
		return nil, err
	}
	loaded, err := p.preloadList(ctx, entities, reqs)
	if err != nil {
		return nil, err
	}
	if len(path) == 0 {
		return loaded, nil
	}
	return container.Reinsert(values, path, loaded)
}

// PreloadOne 为单个实体加载关联。
func (p *Preloader) PreloadOne(ctx context.Context, value any, reqs ...orm.Preload) (any, error) {
	out, err := p.Preload(ctx, []any{value}, reqs...)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// Slice 是 Preload 的泛型便捷版本。
func Slice[T any](ctx context.Context, p *Preloader, values []*T, reqs ...orm.Preload) ([]*T, error) {
	in := make([]any, len(values))
	for i, v := range values {
		if v != nil {
			in[i] = v
		}
	}
	out, err := p.Preload(ctx, in, reqs...)
	if err != nil {
		return nil, err
	}
	res := make([]*T, len(out))
	for i, v := range out {
		if v == nil {
			continue
		}
		typed, ok := v.(*T)
		if !ok {
			return nil, fmt.Errorf("%w: want %T, got %T", orm.ErrHeterogeneousInput, typed, v)
		}
		res[i] = typed
	}
	return res, nil
}

// preloadList 校验类型一致、克隆实体，然后逐个处理请求。
func (p *Preloader) preloadList(ctx context.Context, entities []any, reqs []orm.Preload) ([]any, error) {
	var sch *schema.Schema
	for _, e := range entities {
		if e == nil {
			continue
		}
		s, err := p.registry.Parse(e)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", orm.ErrHeterogeneousInput, err)
		}
		sch = s
		break
	}
	if sch == nil {
		return slices.Clone(entities), nil
	}
	// 没有请求时同样要求类型一致
	for _, e := range entities {
		if e == nil {
			continue
		}
		if err := sch.Check(e); err != nil {
			return nil, err
		}
	}
	if len(reqs) == 0 {
		return slices.Clone(entities), nil
	}
	return p.preloadTyped(ctx, sch, entities, reqs)
}

func (p *Preloader) preloadTyped(ctx context.Context, sch *schema.Schema, entities []any, reqs []orm.Preload) ([]any, error) {
	out := make([]any, len(entities))
	for i, e := range entities {
		if e == nil {
			continue
		}
		c, err := sch.Clone(e)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	if len(reqs) == 0 {
		return out, nil
	}

	direct, throughs, err := p.expand(sch, reqs, nil)
	if err != nil {
		return nil, err
	}
	for _, req := range direct {
		if err := p.preloadAssoc(ctx, sch, out, req); err != nil {
			return nil, err
		}
	}
	for _, t := range throughs {
		if err := p.collectThrough(sch, out, t); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// preloadAssoc 处理一个直接关联（BelongsTo/HasOne/HasMany），结果就地写入 entities 中的克隆实体。
func (p *Preloader) preloadAssoc(ctx context.Context, sch *schema.Schema, entities []any, req orm.Preload) error {
	assoc, target, err := p.registry.Resolve(sch, req.Name)
	if err != nil {
		return err
	}
	ownerKey, relatedKey, ok := orm.LinkKeys(assoc)
	if !ok {
		return fmt.Errorf("%w: %s.%s has no direct link keys", orm.ErrMalformedSelector, sch.Name, req.Name)
	}

	items := make([]item, 0, len(entities))
	for _, e := range entities {
		if e == nil {
			continue
		}
		k, err := sch.LinkKey(e, ownerKey)
		if err != nil {
			return err
		}
		items = append(items, item{ent: e, key: k})
	}
	if len(items) == 0 {
		return nil
	}
	sortItems(items)

	var results []result
	if keys := distinctKeys(items); len(keys) > 0 {
		results, err = p.load(ctx, sch, assoc, target, relatedKey, keys, req)
		if err != nil {
			return err
		}
	}

	switch a := assoc.(type) {
	case orm.BelongsTo:
		return mergeBelongsTo(sch, req.Name, items, results)
	case orm.HasOne:
		return mergeHasMany(sch, req.Name, a.Cardinality(), items, results)
	case orm.HasMany:
		return mergeHasMany(sch, req.Name, a.Cardinality(), items, results)
	default:
		return fmt.Errorf("%w: %s.%s kind %s", orm.ErrUnsupported, sch.Name, req.Name, assoc.Kind())
	}
}

// load 获取目标实体、校验类型、保证按目标键升序，并递归处理嵌套请求。
func (p *Preloader) load(ctx context.Context, owner *schema.Schema, assoc orm.Association, target *schema.Schema,
	relatedKey string, keys []any, req orm.Preload) ([]result, error) {
	var (
		fetched []any
		custom  = true
		err     error
	)
	switch {
	case req.Loader != nil:
		fetched, err = req.Loader(ctx, keys)
	case req.AssocLoader != nil:
		fetched, err = req.AssocLoader(ctx, keys, assoc)
	case p.fetch != nil:
		custom = false
		fetched, err = p.fetch(ctx, Query{
			Schema:  target,
			Field:   relatedKey,
			Column:  target.Column(relatedKey),
			Keys:    keys,
			Options: req.Options,
		})
	default:
		return nil, fmt.Errorf("%w: no query executor for %s.%s", orm.ErrUnsupported, owner.Name, req.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("preload %s.%s: %w", owner.Name, req.Name, err)
	}

	p.logger.Debug(ctx, "preload fetch",
		logging.String("owner", owner.Name),
		logging.String("association", req.Name),
		logging.String("kind", string(assoc.Kind())),
		logging.Int("keys", len(keys)),
		logging.Int("results", len(fetched)),
		logging.Bool("custom", custom))

	for _, f := range fetched {
		if err := target.Check(f); err != nil {
			return nil, fmt.Errorf("preload %s.%s: %w", owner.Name, req.Name, err)
		}
	}

	if len(req.Nested) > 0 && len(fetched) > 0 {
		if fetched, err = p.preloadTyped(ctx, target, fetched, req.Nested); err != nil {
			return nil, err
		}
	}

	results := make([]result, len(fetched))
	for i, f := range fetched {
		k, err := target.LinkKey(f, relatedKey)
		if err != nil {
			return nil, err
		}
		results[i] = result{ent: f, key: k}
	}
	if custom || p.cfg.VerifyOrder {
		if !slices.IsSortedFunc(results, compareResults) {
			if !custom {
				p.logger.Warn(ctx, "query result out of order, re-sorting",
					logging.String("owner", owner.Name),
					logging.String("association", req.Name))
			}
			slices.SortStableFunc(results, compareResults)
		}
	}
	return results, nil
}
