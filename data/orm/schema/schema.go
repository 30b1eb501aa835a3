// Package schema 提供实体结构体的反射元信息：字段/列映射、主键、关联描述，
// 以及按字段名读写实体、比较关联键等公共工具。
//
// 关联字段使用 orm.Ref[T] / orm.Many[T] 声明，并通过 `orm:"..."` 标签描述：
//
//	type Post struct {
//	    ID       int64
//	    AuthorID int64
//	    Author   orm.Ref[User]     `orm:"belongs_to"`
//	    Comments orm.Many[Comment] `orm:"has_many;foreign_key:PostID"`
//	    Authors  orm.Many[User]    `orm:"through:Comments.Author"`
//	}
//
// 跨类型的键校验延迟到关联被使用时进行，因此循环引用的类型图可以正常解析。
package schema

import (
	"fmt"
	"reflect"
	"sync"

	"relmap/data/orm"
)

// Field 描述一个可按名读写的结构体字段。
type Field struct {
	Name       string
	Column     string
	Index      []int
	Type       reflect.Type
	PrimaryKey bool
	// Scalar 为 false 表示非标量字段（内嵌结构体、切片等），不参与列映射。
	Scalar bool
}

// Schema 描述一个实体类型。
type Schema struct {
	Name        string
	Type        reflect.Type
	Table       string
	Fields      []*Field
	PrimaryKeys []*Field

	Associations []orm.Association

	fieldsByName   map[string]*Field
	fieldsByColumn map[string]*Field
	assocByName    map[string]orm.Association
	assocIndex     map[string][]int
}

// LookupField 按 Go 字段名查找字段。
func (s *Schema) LookupField(name string) (*Field, bool) {
	f, ok := s.fieldsByName[name]
	return f, ok
}

// FieldByColumn 按列名查找标量字段。
func (s *Schema) FieldByColumn(column string) (*Field, bool) {
	f, ok := s.fieldsByColumn[column]
	return f, ok
}

// Column 返回字段对应的列名，字段不存在时返回空串。
func (s *Schema) Column(name string) string {
	if f, ok := s.fieldsByName[name]; ok {
		return f.Column
	}
	return ""
}

// Columns 返回全部标量列，顺序与结构体字段一致。
func (s *Schema) Columns() []string {
	cols := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		if f.Scalar {
			cols = append(cols, f.Column)
		}
	}
	return cols
}

// Association 返回具名关联描述。
//
// 名称不存在时返回 ErrUnknownAssociation；字段存在但不是关联时返回 ErrNotAssociation。
func (s *Schema) Association(name string) (orm.Association, error) {
	if a, ok := s.assocByName[name]; ok {
		return a, nil
	}
	if _, ok := s.fieldsByName[name]; ok {
		return nil, fmt.Errorf("%w: %s.%s", orm.ErrNotAssociation, s.Name, name)
	}
	return nil, fmt.Errorf("%w: %s.%s", orm.ErrUnknownAssociation, s.Name, name)
}

// New 返回该类型的新实例指针（*T）。
func (s *Schema) New() reflect.Value {
	return reflect.New(s.Type)
}

// Registry 缓存解析过的 Schema，并发安全。
type Registry struct {
	mu      sync.RWMutex
	schemas map[reflect.Type]*Schema
}

// NewRegistry 创建空的 Registry。
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[reflect.Type]*Schema)}
}

var defaultRegistry = NewRegistry()

// Default 返回进程级默认 Registry。
func Default() *Registry { return defaultRegistry }

// Parse 解析实体（T、*T 或 reflect.Type）对应的 Schema。
func (r *Registry) Parse(v any) (*Schema, error) {
	if t, ok := v.(reflect.Type); ok {
		return r.ParseType(t)
	}
	t := reflect.TypeOf(v)
	if t == nil {
		return nil, fmt.Errorf("schema: cannot parse nil value")
	}
	return r.ParseType(t)
}

// ParseType 解析结构体类型（允许传入指针类型）。
func (r *Registry) ParseType(t reflect.Type) (*Schema, error) {
	if t == nil {
		return nil, fmt.Errorf("schema: cannot parse nil type")
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("schema: unsupported type %s, want struct", t)
	}

	r.mu.RLock()
	if s, ok := r.schemas[t]; ok {
		r.mu.RUnlock()
		return s, nil
	}
	r.mu.RUnlock()

	s, err := build(t)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// 并发构建时以先写入者为准
	if existing, ok := r.schemas[t]; ok {
		return existing, nil
	}
	r.schemas[t] = s
	return s, nil
}

// MustParse 同 Parse，出错时 panic，适合包级初始化。
func (r *Registry) MustParse(v any) *Schema {
	s, err := r.Parse(v)
	if err != nil {
		panic(err)
	}
	return s
}

var loadableType = reflect.TypeOf((*orm.Loadable)(nil)).Elem()

type assocField struct {
	field reflect.StructField
	index []int
}

func build(t reflect.Type) (*Schema, error) {
	s := &Schema{
		Name:           t.Name(),
		Type:           t,
		Table:          tableName(t),
		fieldsByName:   make(map[string]*Field),
		fieldsByColumn: make(map[string]*Field),
		assocByName:    make(map[string]orm.Association),
		assocIndex:     make(map[string][]int),
	}

	var assocs []assocField
	var walk func(reflect.Type, []int)
	walk = func(cur reflect.Type, prefix []int) {
		for i := 0; i < cur.NumField(); i++ {
			f := cur.Field(i)
			// 跳过未导出字段；未导出类型的内嵌结构体仍展开其导出字段
			if f.PkgPath != "" && !(f.Anonymous && f.Type.Kind() == reflect.Struct) {
				continue
			}
			index := append(append([]int(nil), prefix...), i)

			if reflect.PointerTo(f.Type).Implements(loadableType) {
				assocs = append(assocs, assocField{field: f, index: index})
				continue
			}

			if f.Anonymous && f.Type.Kind() == reflect.Struct && !isTimeType(f.Type) {
				// 内嵌结构体，递归展开
				walk(f.Type, index)
				continue
			}

			field := &Field{
				Name:   f.Name,
				Index:  index,
				Type:   f.Type,
				Scalar: isScalarField(f.Type),
			}
			if field.Scalar {
				col, pk := parseColumnTag(f)
				if col == "" {
					col = toSnakeCase(f.Name)
				}
				field.Column = col
				field.PrimaryKey = pk
				// 后来的同名列覆盖之前的定义（以最内层为准）
				s.fieldsByColumn[col] = field
			}
			s.Fields = append(s.Fields, field)
			s.fieldsByName[f.Name] = field
		}
	}
	walk(t, nil)

	for _, f := range s.Fields {
		if f.PrimaryKey {
			s.PrimaryKeys = append(s.PrimaryKeys, f)
		}
	}
	if len(s.PrimaryKeys) == 0 {
		if id, ok := s.fieldsByName["ID"]; ok && id.Scalar {
			id.PrimaryKey = true
			s.PrimaryKeys = []*Field{id}
		}
	}

	for _, af := range assocs {
		a, err := parseAssociation(s, af.field)
		if err != nil {
			return nil, err
		}
		s.Associations = append(s.Associations, a)
		s.assocByName[af.field.Name] = a
		s.assocIndex[af.field.Name] = af.index
	}
	return s, nil
}

func isScalarField(t reflect.Type) bool {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if isTimeType(t) {
		return true
	}
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return true
	case reflect.Array:
		// 定长字节数组，例如 uuid.UUID
		return t.Elem().Kind() == reflect.Uint8
	case reflect.Slice:
		return t.Elem().Kind() == reflect.Uint8
	default:
		return false
	}
}

func isTimeType(t reflect.Type) bool {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.PkgPath() == "time" && t.Name() == "Time"
}

// tableName 优先使用 TableName()，否则为类型名的 snake_case 复数形式。
func tableName(t reflect.Type) string {
	// *T 的方法集同时覆盖值接收者与指针接收者
	if m, ok := reflect.New(t).Interface().(interface{ TableName() string }); ok {
		return m.TableName()
	}
	return toSnakeCase(t.Name()) + "s"
}
