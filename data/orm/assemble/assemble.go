// Package assemble 将联接查询返回的扁平行组装为嵌套的实体树。
//
// 一次联接查询的每一行包含若干绑定位置（根实体、各联接表实体），同一个根实体
// 会在多行中重复出现。Assembler 对所有行只折叠一遍：按身份键去重，
// 按各自的关联键放入字典，并记录首次出现的序号；折叠结束后深度优先地
// 为每个根实体挂接子实体，恢复首次出现的顺序。
//
//	rows := []assemble.Row{
//	    {post1, comment10, user7},
//	    {post1, comment11, user7},
//	    {post2, nil, nil}, // LEFT JOIN 未命中
//	}
//	posts, err := assemble.Assemble(rows, assemble.Selector{
//	    Root: 0,
//	    Assocs: []assemble.Join{
//	        {Field: "Comments", Binding: 1, Assocs: []assemble.Join{{Field: "Author", Binding: 2}}},
//	    },
//	})
//
// 输入的实体不会被修改，关联只写入克隆出来的新实体，因此重复调用结果一致。
package assemble

import (
	"context"
	"fmt"
	"slices"

	"relmap/data/orm"
	"relmap/data/orm/schema"
	"relmap/logging"
)

// Row 是联接结果的一行，每个绑定位置一个值；nil 表示外联接未命中。
type Row []any

// Join 选择一个关联并指明其实体所在的绑定位置。
//
// 对 Through 关联，Binding 为最终目标实体的位置，Through 依次给出中间各段
// 实体的位置（长度为路径段数减一）；中间段会与显式选择的同名关联共用。
type Join struct {
	Field   string
	Binding int
	Through []int
	Assocs  []Join
}

// Selector 描述根实体位置与需要组装的关联树。
type Selector struct {
	Root   int
	Assocs []Join
}

// Option 配置 Assembler。
type Option func(*Assembler)

// WithRegistry 指定解析实体元信息使用的 Registry。
func WithRegistry(r *schema.Registry) Option {
	return func(a *Assembler) {
		if r != nil {
			a.registry = r
		}
	}
}

// WithLogger 指定日志实现。
func WithLogger(l logging.Logger) Option {
	return func(a *Assembler) {
		if l != nil {
			a.logger = l
		}
	}
}

// Assembler 联接结果组装器，本身无状态，可并发使用。
type Assembler struct {
	registry *schema.Registry
	logger   logging.Logger
}

// New 创建 Assembler。
func New(opts ...Option) *Assembler {
	a := &Assembler{
		registry: schema.Default(),
		logger:   logging.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var defaultAssembler = New()

// Assemble 使用默认 Registry 组装联接结果。
func Assemble(rows []Row, sel Selector) ([]any, error) {
	return defaultAssembler.Assemble(context.Background(), rows, sel)
}

// node 是反射树上的一层：一个关联字段及其所在的绑定位置。
type node struct {
	field   string
	assoc   orm.Association
	binding int
	schema  *schema.Schema

	// ownerKey 在父实体上取值，relatedKey 在本层实体上取值
	ownerKey   string
	relatedKey string

	children []*node
	throughs []orm.Through
}

// level 是一层的折叠状态。
type level struct {
	seen     map[any]struct{}
	dict     map[any][]entry
	roots    []entry
	children []*level
}

type entry struct {
	seq   int
	value any
}

func newLevel(n *node) *level {
	l := &level{
		seen: make(map[any]struct{}),
		dict: make(map[any][]entry),
	}
	for _, c := range n.children {
		l.children = append(l.children, newLevel(c))
	}
	return l
}

// Assemble 组装联接结果，返回按首次出现顺序排列的去重根实体（*T）。
func (a *Assembler) Assemble(ctx context.Context, rows []Row, sel Selector) ([]any, error) {
	rootSchema, err := a.rootSchema(rows, sel.Root)
	if err != nil {
		return nil, err
	}
	if rootSchema == nil {
		return []any{}, nil
	}

	root := &node{binding: sel.Root, schema: rootSchema}
	for _, j := range sel.Assocs {
		if err := a.addJoin(root, j); err != nil {
			return nil, err
		}
	}

	st := newLevel(root)
	f := &folder{}
	for i, row := range rows {
		if err := f.foldRoot(root, st, row); err != nil {
			return nil, fmt.Errorf("assemble: row %d: %w", i, err)
		}
	}

	out := make([]any, 0, len(st.roots))
	for _, e := range st.roots {
		v, err := a.build(root, st, e.value)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}

	a.logger.Debug(ctx, "assembled joined rows",
		logging.String("root", rootSchema.Name),
		logging.Int("rows", len(rows)),
		logging.Int("roots", len(out)))
	return out, nil
}

// rootSchema 以首个非 nil 的根实体确定根类型；全部为 nil 时返回 nil。
func (a *Assembler) rootSchema(rows []Row, binding int) (*schema.Schema, error) {
	for i, row := range rows {
		if binding < 0 || binding >= len(row) {
			return nil, fmt.Errorf("%w: row %d has %d bindings, root is %d", orm.ErrMalformedSelector, i, len(row), binding)
		}
		if row[binding] == nil {
			continue
		}
		return a.registry.Parse(row[binding])
	}
	return nil, nil
}

// addJoin 将一个选择项解析并挂到 parent 下；Through 选择项展开为逐段的节点。
func (a *Assembler) addJoin(parent *node, j Join) error {
	assoc, _, err := a.registry.Resolve(parent.schema, j.Field)
	if err != nil {
		return err
	}

	t, ok := assoc.(orm.Through)
	if !ok {
		if len(j.Through) > 0 {
			return fmt.Errorf("%w: %s.%s is not a through association", orm.ErrMalformedSelector, parent.schema.Name, j.Field)
		}
		child, err := a.child(parent, j.Field, j.Binding)
		if err != nil {
			return err
		}
		for _, sub := range j.Assocs {
			if err := a.addJoin(child, sub); err != nil {
				return err
			}
		}
		return nil
	}

	if len(j.Through) != len(t.Path)-1 {
		return fmt.Errorf("%w: %s.%s has %d hops, selector binds %d intermediate",
			orm.ErrMalformedSelector, parent.schema.Name, j.Field, len(t.Path), len(j.Through))
	}
	hops, err := a.registry.ResolveThrough(parent.schema, t)
	if err != nil {
		return err
	}
	bindings := append(append([]int(nil), j.Through...), j.Binding)
	cur := parent
	for i, hop := range hops {
		if _, nested := hop.(orm.Through); nested {
			return fmt.Errorf("%w: %s.%s hop %s is itself a through association",
				orm.ErrMalformedSelector, parent.schema.Name, j.Field, hop.FieldName())
		}
		if cur, err = a.child(cur, hop.FieldName(), bindings[i]); err != nil {
			return err
		}
	}
	for _, sub := range j.Assocs {
		if err := a.addJoin(cur, sub); err != nil {
			return err
		}
	}
	parent.throughs = appendThrough(parent.throughs, t)
	return nil
}

// child 返回 parent 下指定字段的节点，不存在时创建；同一字段不能绑定到不同位置。
func (a *Assembler) child(parent *node, field string, binding int) (*node, error) {
	for _, c := range parent.children {
		if c.field != field {
			continue
		}
		if c.binding != binding {
			return nil, fmt.Errorf("%w: %s.%s bound to both %d and %d",
				orm.ErrMalformedSelector, parent.schema.Name, field, c.binding, binding)
		}
		return c, nil
	}

	assoc, related, err := a.registry.Resolve(parent.schema, field)
	if err != nil {
		return nil, err
	}
	ownerKey, relatedKey, ok := orm.LinkKeys(assoc)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s has no direct link keys", orm.ErrMalformedSelector, parent.schema.Name, field)
	}
	if binding < 0 {
		return nil, fmt.Errorf("%w: %s.%s negative binding %d", orm.ErrMalformedSelector, parent.schema.Name, field, binding)
	}
	c := &node{
		field:      field,
		assoc:      assoc,
		binding:    binding,
		schema:     related,
		ownerKey:   ownerKey,
		relatedKey: relatedKey,
	}
	parent.children = append(parent.children, c)
	return c, nil
}

func appendThrough(list []orm.Through, t orm.Through) []orm.Through {
	for _, x := range list {
		if x.Field == t.Field {
			return list
		}
	}
	return append(list, t)
}

// folder 持有一次调用内的全局插入序号。
type folder struct {
	seq int
}

func (f *folder) foldRoot(n *node, st *level, row Row) error {
	v, err := at(row, n)
	if err != nil {
		return err
	}
	present := v != nil
	if present {
		id, err := n.schema.Identity(v)
		if err != nil {
			return err
		}
		if _, ok := st.seen[id]; !ok {
			st.seen[id] = struct{}{}
			st.roots = append(st.roots, entry{seq: f.next(), value: v})
		}
	}
	return f.foldChildren(n, st, row, present)
}

// foldChildren 无论父实体是否存在都会继续向下折叠，以校验每一层的绑定位置；
// 父实体缺失时子实体不会被记录。
func (f *folder) foldChildren(n *node, st *level, row Row, parentPresent bool) error {
	for i, c := range n.children {
		cst := st.children[i]
		v, err := at(row, c)
		if err != nil {
			return err
		}
		present := parentPresent && v != nil
		if present {
			if err := f.insert(c, cst, v); err != nil {
				return err
			}
		}
		if err := f.foldChildren(c, cst, row, present); err != nil {
			return err
		}
	}
	return nil
}

// insert 以身份键去重，并按实体自身的关联键放入字典，供父实体按其键查找。
func (f *folder) insert(n *node, st *level, v any) error {
	id, err := n.schema.Identity(v)
	if err != nil {
		return err
	}
	if _, ok := st.seen[id]; ok {
		return nil
	}
	st.seen[id] = struct{}{}
	key, err := n.schema.LinkKey(v, n.relatedKey)
	if err != nil {
		return err
	}
	if key == nil {
		return nil
	}
	st.dict[key] = append(st.dict[key], entry{seq: f.next(), value: v})
	return nil
}

func (f *folder) next() int {
	f.seq++
	return f.seq
}

func at(row Row, n *node) (any, error) {
	if n.binding >= len(row) {
		return nil, fmt.Errorf("%w: binding %d out of range, row has %d", orm.ErrMalformedSelector, n.binding, len(row))
	}
	v := row[n.binding]
	if v == nil {
		return nil, nil
	}
	if err := n.schema.Check(v); err != nil {
		return nil, err
	}
	return v, nil
}

// build 克隆实体并深度优先挂接子实体，最后根据已加载的各段计算 Through 字段。
func (a *Assembler) build(n *node, st *level, entity any) (any, error) {
	clone, err := n.schema.Clone(entity)
	if err != nil {
		return nil, err
	}
	for i, c := range n.children {
		cst := st.children[i]
		key, err := n.schema.LinkKey(clone, c.ownerKey)
		if err != nil {
			return nil, err
		}
		var entries []entry
		if key != nil {
			entries = slices.Clone(cst.dict[key])
		}
		slices.SortStableFunc(entries, func(x, y entry) int { return x.seq - y.seq })
		if c.assoc.Cardinality() == orm.CardinalityOne && len(entries) > 1 {
			entries = entries[:1]
		}
		values := make([]any, 0, len(entries))
		for _, e := range entries {
			v, err := a.build(c, cst, e.value)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		if err := n.schema.SetAssociation(clone, c.field, values); err != nil {
			return nil, err
		}
	}
	for _, t := range n.throughs {
		values, err := a.registry.CollectThrough(n.schema, clone, t)
		if err != nil {
			return nil, err
		}
		if err := n.schema.SetAssociation(clone, t.Field, values); err != nil {
			return nil, err
		}
	}
	return clone, nil
}
