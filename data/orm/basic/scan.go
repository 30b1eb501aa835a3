package basic

import (
	"reflect"

	dbcore "relmap/data/db"
	"relmap/data/orm/schema"
)

// scanEntities 把结果集逐行扫描成 *T，列按 schema 的列映射写入字段，未知列丢弃。
func scanEntities(rows dbcore.IRows, sch *schema.Schema) ([]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := []any{}
	for rows.Next() {
		v := sch.New()
		if err := scanOneRow(rows, cols, v.Elem(), sch); err != nil {
			return nil, err
		}
		out = append(out, v.Interface())
	}
	return out, rows.Err()
}

func scanOneRow(rows dbcore.IRows, cols []string, v reflect.Value, sch *schema.Schema) error {
	destPtrs := make([]any, len(cols))
	for i, col := range cols {
		if f, ok := sch.FieldByColumn(col); ok {
			fv := fieldByIndexSafe(v, f.Index)
			if fv.IsValid() && fv.CanSet() {
				destPtrs[i] = fv.Addr().Interface()
				continue
			}
		}
		var tmp any
		destPtrs[i] = &tmp
	}
	return rows.Scan(destPtrs...)
}

// fieldByIndexSafe 按索引取字段，遇到 nil 内嵌指针时返回无效值而不是 panic。
func fieldByIndexSafe(v reflect.Value, index []int) reflect.Value {
	for _, i := range index {
		if v.Kind() == reflect.Ptr {
			if v.IsNil() {
				return reflect.Value{}
			}
			v = v.Elem()
		}
		if v.Kind() != reflect.Struct || i < 0 || i >= v.NumField() {
			return reflect.Value{}
		}
		v = v.Field(i)
	}
	return v
}
