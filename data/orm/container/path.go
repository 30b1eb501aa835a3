// Package container 在固定的位置路径上读取/替换嵌套值。
//
// 支持的容器形态是封闭的：[]any（元组/列表）与裸值。空路径表示值本身。
// 所有函数都是纯函数，SetAt 返回替换后的新值，不修改输入。
package container

import (
	"fmt"

	"relmap/data/orm"
)

// Path 为逐层的下标序列，例如 Path{1, 0} 表示 v[1][0]。
type Path []int

func (p Path) String() string {
	return fmt.Sprint([]int(p))
}

// GetAt 读取 path 位置上的值。
func GetAt(v any, path Path) (any, error) {
	cur := v
	for depth, idx := range path {
		list, ok := cur.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: %v at depth %d is %T, want []any", orm.ErrInvalidPath, path, depth, cur)
		}
		if idx < 0 || idx >= len(list) {
			return nil, fmt.Errorf("%w: %v index %d out of range [0,%d)", orm.ErrInvalidPath, path, idx, len(list))
		}
		cur = list[idx]
	}
	return cur, nil
}

// SetAt 返回将 path 位置替换为 x 后的新值；沿途的 []any 都会被复制。
func SetAt(v any, path Path, x any) (any, error) {
	if len(path) == 0 {
		return x, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %v want []any, got %T", orm.ErrInvalidPath, path, v)
	}
	idx := path[0]
	if idx < 0 || idx >= len(list) {
		return nil, fmt.Errorf("%w: %v index %d out of range [0,%d)", orm.ErrInvalidPath, path, idx, len(list))
	}
	child, err := SetAt(list[idx], path[1:], x)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(list))
	copy(out, list)
	out[idx] = child
	return out, nil
}

// Extract 对列表中的每个元素取 path 位置的值。
func Extract(values []any, path Path) ([]any, error) {
	out := make([]any, len(values))
	for i, v := range values {
		x, err := GetAt(v, path)
		if err != nil {
			return nil, err
		}
		out[i] = x
	}
	return out, nil
}

// Reinsert 是 Extract 的逆操作：把 items[i] 放回 values[i] 的 path 位置。
func Reinsert(values []any, path Path, items []any) ([]any, error) {
	if len(values) != len(items) {
		return nil, fmt.Errorf("%w: reinsert %d items into %d values", orm.ErrInvalidPath, len(items), len(values))
	}
	out := make([]any, len(values))
	for i, v := range values {
		x, err := SetAt(v, path, items[i])
		if err != nil {
			return nil, err
		}
		out[i] = x
	}
	return out, nil
}
