package schema

import (
	"fmt"
	"reflect"
	"strings"

	"relmap/data/orm"
)

// structValue 校验 entity 为 *T 并返回可寻址的结构体值。
func (s *Schema) structValue(entity any) (reflect.Value, error) {
	rv := reflect.ValueOf(entity)
	if !rv.IsValid() || rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Type() != s.Type {
		return reflect.Value{}, fmt.Errorf("%w: want *%s, got %T", orm.ErrHeterogeneousInput, s.Name, entity)
	}
	return rv.Elem(), nil
}

// Check 校验 entity 是否为该 Schema 的实例指针。
func (s *Schema) Check(entity any) error {
	_, err := s.structValue(entity)
	return err
}

// FieldValue 读取具名字段的原始值。
func (s *Schema) FieldValue(entity any, name string) (any, error) {
	sv, err := s.structValue(entity)
	if err != nil {
		return nil, err
	}
	f, ok := s.fieldsByName[name]
	if !ok {
		return nil, fmt.Errorf("schema: %s has no field %s", s.Name, name)
	}
	fv := fieldByIndexSafe(sv, f.Index)
	if !fv.IsValid() {
		return nil, nil
	}
	return fv.Interface(), nil
}

// LinkKey 读取字段值并规范化为可比较、可作为 map 键的形式，nil 表示无键。
func (s *Schema) LinkKey(entity any, name string) (any, error) {
	v, err := s.FieldValue(entity, name)
	if err != nil {
		return nil, err
	}
	return NormalizeKey(v), nil
}

// Identity 返回实体的身份键（主键值）。
//
// 单主键返回规范化后的值；复合主键返回拼接后的字符串。
// 主键未定义、为 nil 指针、Valuer 返回 nil，或为非数值类型的零值（空串、零 UUID）
// 时返回 ErrMissingPrimaryKey。数值 0 是合法主键。
func (s *Schema) Identity(entity any) (any, error) {
	sv, err := s.structValue(entity)
	if err != nil {
		return nil, err
	}
	if len(s.PrimaryKeys) == 0 {
		return nil, fmt.Errorf("%w: %s declares no primary key", orm.ErrMissingPrimaryKey, s.Name)
	}
	parts := make([]any, 0, len(s.PrimaryKeys))
	for _, pk := range s.PrimaryKeys {
		fv := fieldByIndexSafe(sv, pk.Index)
		if !fv.IsValid() {
			return nil, fmt.Errorf("%w: %s.%s", orm.ErrMissingPrimaryKey, s.Name, pk.Name)
		}
		k := NormalizeKey(fv.Interface())
		if k == nil || (!isNumericKey(k) && fv.IsZero()) {
			return nil, fmt.Errorf("%w: %s.%s", orm.ErrMissingPrimaryKey, s.Name, pk.Name)
		}
		parts = append(parts, k)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	var sb strings.Builder
	for i, p := range parts {
		if i > 0 {
			sb.WriteByte(0x1f)
		}
		fmt.Fprintf(&sb, "%T=%v", p, p)
	}
	return sb.String(), nil
}

// Clone 浅拷贝实体：返回新的 *T，结构体值整体复制。
// 关联字段在拷贝上重新赋值不会影响原实体。
func (s *Schema) Clone(entity any) (any, error) {
	sv, err := s.structValue(entity)
	if err != nil {
		return nil, err
	}
	n := reflect.New(s.Type)
	n.Elem().Set(sv)
	return n.Interface(), nil
}

func (s *Schema) loadable(entity any, name string) (orm.Loadable, error) {
	sv, err := s.structValue(entity)
	if err != nil {
		return nil, err
	}
	index, ok := s.assocIndex[name]
	if !ok {
		_, err := s.Association(name)
		return nil, err
	}
	fv := fieldByIndexSafe(sv, index)
	if !fv.IsValid() || !fv.CanAddr() {
		return nil, fmt.Errorf("schema: %s.%s is not addressable", s.Name, name)
	}
	l, ok := fv.Addr().Interface().(orm.Loadable)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", orm.ErrNotAssociation, s.Name, name)
	}
	return l, nil
}

// SetAssociation 就地写入关联字段（调用方负责先 Clone）。
func (s *Schema) SetAssociation(entity any, name string, values []any) error {
	l, err := s.loadable(entity, name)
	if err != nil {
		return err
	}
	if err := l.LoadValues(values); err != nil {
		return fmt.Errorf("schema: %s.%s: %w", s.Name, name, err)
	}
	return nil
}

// AssociationValues 读取已加载的关联实体；未加载时返回 ErrAssociationNotLoaded。
func (s *Schema) AssociationValues(entity any, name string) ([]any, error) {
	l, err := s.loadable(entity, name)
	if err != nil {
		return nil, err
	}
	values, err := l.LoadedValues()
	if err != nil {
		return nil, fmt.Errorf("%w: %s.%s", err, s.Name, name)
	}
	return values, nil
}

// IsLoaded 报告关联字段是否已加载。
func (s *Schema) IsLoaded(entity any, name string) (bool, error) {
	l, err := s.loadable(entity, name)
	if err != nil {
		return false, err
	}
	return l.IsLoaded(), nil
}

func isNumericKey(k any) bool {
	switch k.(type) {
	case int64, uint64, float64:
		return true
	default:
		return false
	}
}

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
