package orm

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Loadable 由关联字段类型实现（*Ref[T]、*Many[T]），
// 预加载与联接组装通过它写入结果，而不关心具体的 T。
type Loadable interface {
	// IsLoaded 报告字段是否已加载。
	IsLoaded() bool
	// Cardinality 返回字段基数。
	Cardinality() Cardinality
	// TargetType 返回目标结构体类型（非指针）。
	TargetType() reflect.Type
	// LoadValues 写入加载结果；元素必须为 *T，单值字段只取第一个。
	LoadValues(values []any) error
	// LoadedValues 以 []any 返回已加载的实体；未加载时返回 ErrAssociationNotLoaded。
	LoadedValues() ([]any, error)
}

// Ref 单值关联字段（BelongsTo/HasOne）。零值表示未加载。
type Ref[T any] struct {
	loaded bool
	value  *T
}

// LoadedRef 构造已加载的单值关联，v 可为 nil。
func LoadedRef[T any](v *T) Ref[T] {
	return Ref[T]{loaded: true, value: v}
}

// Get 返回关联实体；已加载但无匹配时返回 (nil, nil)。
func (r Ref[T]) Get() (*T, error) {
	if !r.loaded {
		return nil, ErrAssociationNotLoaded
	}
	return r.value, nil
}

// MustGet 同 Get，未加载时 panic。
func (r Ref[T]) MustGet() *T {
	v, err := r.Get()
	if err != nil {
		panic(err)
	}
	return v
}

func (r Ref[T]) IsLoaded() bool           { return r.loaded }
func (Ref[T]) Cardinality() Cardinality   { return CardinalityOne }
func (Ref[T]) TargetType() reflect.Type   { return reflect.TypeOf((*T)(nil)).Elem() }
func (r *Ref[T]) Reset()                  { *r = Ref[T]{} }
func (r *Ref[T]) LoadValues(values []any) error {
	var v *T
	if len(values) > 0 && values[0] != nil {
		typed, ok := values[0].(*T)
		if !ok {
			return fmt.Errorf("%w: want %T, got %T", ErrHeterogeneousInput, v, values[0])
		}
		v = typed
	}
	r.loaded = true
	r.value = v
	return nil
}

func (r Ref[T]) LoadedValues() ([]any, error) {
	if !r.loaded {
		return nil, ErrAssociationNotLoaded
	}
	if r.value == nil {
		return []any{}, nil
	}
	return []any{r.value}, nil
}

// MarshalJSON 未加载与 nil 均输出 null。
func (r Ref[T]) MarshalJSON() ([]byte, error) {
	if !r.loaded || r.value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(r.value)
}

// Many 多值关联字段（HasMany/ManyToMany/Through）。零值表示未加载。
type Many[T any] struct {
	loaded bool
	items  []*T
}

// LoadedMany 构造已加载的多值关联，无参数时为空序列。
func LoadedMany[T any](items ...*T) Many[T] {
	if items == nil {
		items = []*T{}
	}
	return Many[T]{loaded: true, items: items}
}

// Items 返回关联实体序列；已加载时永不为 nil。
func (m Many[T]) Items() ([]*T, error) {
	if !m.loaded {
		return nil, ErrAssociationNotLoaded
	}
	return m.items, nil
}

// MustItems 同 Items，未加载时 panic。
func (m Many[T]) MustItems() []*T {
	items, err := m.Items()
	if err != nil {
		panic(err)
	}
	return items
}

// Len 返回已加载元素个数，未加载时为 0。
func (m Many[T]) Len() int { return len(m.items) }

func (m Many[T]) IsLoaded() bool         { return m.loaded }
func (Many[T]) Cardinality() Cardinality { return CardinalityMany }
func (Many[T]) TargetType() reflect.Type { return reflect.TypeOf((*T)(nil)).Elem() }
func (m *Many[T]) Reset()                { *m = Many[T]{} }

func (m *Many[T]) LoadValues(values []any) error {
	items := make([]*T, 0, len(values))
	for _, v := range values {
		if v == nil {
			continue
		}
		typed, ok := v.(*T)
		if !ok {
			return fmt.Errorf("%w: want %T, got %T", ErrHeterogeneousInput, (*T)(nil), v)
		}
		items = append(items, typed)
	}
	m.loaded = true
	m.items = items
	return nil
}

func (m Many[T]) LoadedValues() ([]any, error) {
	if !m.loaded {
		return nil, ErrAssociationNotLoaded
	}
	out := make([]any, len(m.items))
	for i, it := range m.items {
		out[i] = it
	}
	return out, nil
}

// MarshalJSON 未加载输出 null，已加载输出数组（空序列为 []）。
func (m Many[T]) MarshalJSON() ([]byte, error) {
	if !m.loaded {
		return []byte("null"), nil
	}
	return json.Marshal(m.items)
}
