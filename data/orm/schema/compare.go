package schema

import (
	"bytes"
	"cmp"
	"database/sql/driver"
	"fmt"
	"math"
	"reflect"
	"time"
)

// NormalizeKey 将关联键规范化为可比较、可作为 map 键的值。
//
//   - nil、nil 指针以及 Valuer 返回 nil 的值 => nil
//   - 有符号整数 => int64；不超过 MaxInt64 的无符号整数 => int64，否则 uint64
//   - 浮点 => float64；[]byte => string；time.Time => UTC 且去除单调时钟
//   - 实现 driver.Valuer 的值（如 uuid.UUID、sql.NullInt64）取其 Value()
//   - 其余不可比较的值退化为 fmt 字符串
func NormalizeKey(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	if t, ok := rv.Interface().(time.Time); ok {
		return t.UTC().Round(0)
	}

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u <= math.MaxInt64 {
			return int64(u)
		}
		return u
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return string(rv.Bytes())
		}
	}

	if valuer, ok := rv.Interface().(driver.Valuer); ok {
		val, err := valuer.Value()
		if err == nil {
			if val == nil {
				return nil
			}
			// driver.Value 只包含基础类型，不会再次命中 Valuer
			return NormalizeKey(val)
		}
	}

	if !rv.Type().Comparable() {
		return fmt.Sprintf("%v", rv.Interface())
	}
	return rv.Interface()
}

// CompareKeys 比较两个关联键，返回 -1/0/1；nil 小于任何非 nil 值。
// 不同类别的值按类别排序，保证全序以满足排序与归并的前提。
func CompareKeys(a, b any) int {
	a, b = NormalizeKey(a), NormalizeKey(b)
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	switch x := a.(type) {
	case int64:
		switch y := b.(type) {
		case int64:
			return cmp.Compare(x, y)
		case uint64:
			// 规范化后 uint64 一定大于 MaxInt64
			return -1
		case float64:
			return cmp.Compare(float64(x), y)
		}
	case uint64:
		switch y := b.(type) {
		case uint64:
			return cmp.Compare(x, y)
		case int64:
			return 1
		case float64:
			return cmp.Compare(float64(x), y)
		}
	case float64:
		switch y := b.(type) {
		case float64:
			return cmp.Compare(x, y)
		case int64:
			return cmp.Compare(x, float64(y))
		case uint64:
			return cmp.Compare(x, float64(y))
		}
	case string:
		if y, ok := b.(string); ok {
			return cmp.Compare(x, y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			default:
				return 1
			}
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	}

	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Type() == rb.Type() && ra.Kind() == reflect.Array && ra.Type().Elem().Kind() == reflect.Uint8 {
		return bytes.Compare(arrayBytes(ra), arrayBytes(rb))
	}

	if c := cmp.Compare(kindRank(a), kindRank(b)); c != 0 {
		return c
	}
	if c := cmp.Compare(ra.Type().String(), rb.Type().String()); c != 0 {
		return c
	}
	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

// KeysEqual 报告两个非 nil 关联键是否相等；任一为 nil 时返回 false。
func KeysEqual(a, b any) bool {
	a, b = NormalizeKey(a), NormalizeKey(b)
	if a == nil || b == nil {
		return false
	}
	return CompareKeys(a, b) == 0
}

func kindRank(v any) int {
	switch v.(type) {
	case bool:
		return 1
	case int64, uint64, float64:
		return 2
	case string:
		return 3
	case time.Time:
		return 4
	default:
		return 5
	}
}

func arrayBytes(v reflect.Value) []byte {
	b := make([]byte, v.Len())
	for i := range b {
		b[i] = byte(v.Index(i).Uint())
	}
	return b
}
