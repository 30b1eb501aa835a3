package ormtest

import (
	"fmt"
	"reflect"
	"slices"
	"sync"

	"relmap/data/orm/schema"
)

// Call 记录一次查询
type Call struct {
	Type  string
	Field string
	Keys  []any
}

// Store 基于内存的实体存储，按 "字段 IN 键集合" 过滤并按该字段升序返回，
// 同时记录每次查询，便于断言查询次数（N+1 检查）。
type Store struct {
	mu    sync.Mutex
	rows  map[reflect.Type][]any
	calls []Call

	// Unordered 为 true 时按插入顺序的逆序返回，模拟未排序的执行器
	Unordered bool
}

// NewStore 创建空存储
func NewStore() *Store {
	return &Store{rows: make(map[reflect.Type][]any)}
}

// Add 追加实体（*T）
func (s *Store) Add(values ...any) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range values {
		t := reflect.TypeOf(v).Elem()
		s.rows[t] = append(s.rows[t], v)
	}
	return s
}

// Find 返回 sch 类型中 field 取值属于 keys 的实体
func (s *Store) Find(sch *schema.Schema, field string, keys []any) ([]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{Type: sch.Name, Field: field, Keys: slices.Clone(keys)})
	if _, ok := sch.LookupField(field); !ok {
		return nil, fmt.Errorf("ormtest: %s has no field %s", sch.Name, field)
	}

	var out []any
	for _, v := range s.rows[sch.Type] {
		k, err := sch.LinkKey(v, field)
		if err != nil {
			return nil, err
		}
		if slices.ContainsFunc(keys, func(x any) bool { return schema.KeysEqual(x, k) }) {
			out = append(out, v)
		}
	}
	slices.SortStableFunc(out, func(a, b any) int {
		ka, _ := sch.LinkKey(a, field)
		kb, _ := sch.LinkKey(b, field)
		return schema.CompareKeys(ka, kb)
	})
	if s.Unordered {
		slices.Reverse(out)
	}
	return out, nil
}

// Calls 返回已记录的查询
func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

// ResetCalls 清空查询记录
func (s *Store) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}
