package orm

import (
	"context"
	"strings"
)

// LoaderFunc 自定义加载函数：接收升序去重的关联键，返回目标实体（*T）。
// 返回结果无需排序，预加载器会按目标侧键重新稳定排序。
type LoaderFunc func(ctx context.Context, keys []any) ([]any, error)

// AssocLoaderFunc 同 LoaderFunc，额外接收关联描述。
type AssocLoaderFunc func(ctx context.Context, keys []any, assoc Association) ([]any, error)

// Preload 描述一次预加载请求：关联名 + 嵌套的子请求。
//
// Options 追加到默认查询（例如自定义过滤/排序）；Loader 或 AssocLoader
// 非空时替代默认查询，两者同时设置时 Loader 优先。
type Preload struct {
	Name        string
	Nested      []Preload
	Options     []QueryOption
	Loader      LoaderFunc
	AssocLoader AssocLoaderFunc
}

// PreloadOf 便捷构造预加载请求。
func PreloadOf(name string, nested ...Preload) Preload {
	return Preload{Name: name, Nested: nested}
}

// ParsePreloads 解析点号路径形式的预加载声明。
//
//	ParsePreloads("Comments.Author", "Comments", "Tags")
//	// => [Comments{Author}, Tags]
func ParsePreloads(paths ...string) []Preload {
	var out []Preload
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		parts := strings.Split(path, ".")
		var node *Preload
		for i := len(parts) - 1; i >= 0; i-- {
			name := strings.TrimSpace(parts[i])
			if name == "" {
				continue
			}
			p := Preload{Name: name}
			if node != nil {
				p.Nested = []Preload{*node}
			}
			node = &p
		}
		if node != nil {
			out = append(out, *node)
		}
	}
	return MergePreloads(out)
}

// MergePreloads 合并同名请求，保持首次出现的顺序。
// 同名请求的 Options 依次拼接，Loader/AssocLoader 以首个非空者为准。
func MergePreloads(preloads []Preload) []Preload {
	if len(preloads) == 0 {
		return preloads
	}
	index := make(map[string]int, len(preloads))
	out := make([]Preload, 0, len(preloads))
	for _, p := range preloads {
		i, ok := index[p.Name]
		if !ok {
			index[p.Name] = len(out)
			p.Nested = MergePreloads(append([]Preload(nil), p.Nested...))
			out = append(out, p)
			continue
		}
		cur := out[i]
		cur.Nested = MergePreloads(append(append([]Preload(nil), cur.Nested...), p.Nested...))
		cur.Options = append(append([]QueryOption(nil), cur.Options...), p.Options...)
		if cur.Loader == nil {
			cur.Loader = p.Loader
		}
		if cur.AssocLoader == nil {
			cur.AssocLoader = p.AssocLoader
		}
		out[i] = cur
	}
	return out
}
