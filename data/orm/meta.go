package orm

import "reflect"

// AssociationKind 表示关联类型。
type AssociationKind string

const (
	AssociationBelongsTo  AssociationKind = "belongs_to"
	AssociationHasOne     AssociationKind = "has_one"
	AssociationHasMany    AssociationKind = "has_many"
	AssociationManyToMany AssociationKind = "many_to_many"
	AssociationThrough    AssociationKind = "through"
)

// Cardinality 表示关联加载后的基数。
type Cardinality int

const (
	// CardinalityOne 加载结果为单个实体或 nil。
	CardinalityOne Cardinality = iota + 1
	// CardinalityMany 加载结果为有序序列（可为空，不为 nil）。
	CardinalityMany
)

func (c Cardinality) String() string {
	switch c {
	case CardinalityOne:
		return "one"
	case CardinalityMany:
		return "many"
	default:
		return "unknown"
	}
}

// Association 描述所属实体类型上的一个具名关联。
//
// 这是一个封闭的变体集合，只有本包中的 BelongsTo、HasOne、HasMany、Through
// 实现该接口；预加载与联接组装通过 type switch 选择合并策略。
type Association interface {
	// Kind 返回关联类型标识。
	Kind() AssociationKind
	// FieldName 返回所属实体上存放加载结果的字段名。
	FieldName() string
	// Cardinality 返回加载结果的基数。
	Cardinality() Cardinality
	// Related 返回关联目标的结构体类型（非指针）。
	Related() reflect.Type

	association()
}

// BelongsTo 所属实体持有外键：owner.OwnerKey == related.RelatedKey。
type BelongsTo struct {
	Field       string
	OwnerKey    string // 所属实体上的外键字段，例如 AuthorID
	RelatedKey  string // 目标实体上被引用的字段，通常为 ID
	RelatedType reflect.Type
}

// HasOne 目标实体持有外键，至多保留一个匹配。
type HasOne struct {
	Field       string
	OwnerKey    string // 所属实体上被引用的字段，通常为主键
	RelatedKey  string // 目标实体上的外键字段，例如 PostID
	RelatedType reflect.Type
}

// HasMany 目标实体持有外键，保留全部匹配。
type HasMany struct {
	Field       string
	OwnerKey    string
	RelatedKey  string
	RelatedType reflect.Type
}

// Through 由两段及以上的其他关联组合而成的虚拟关联（含多对多）。
//
// Path 为依次经过的关联字段名，例如 []string{"PostTags", "Tag"}；
// 每一段在上一段目标类型上解析。
type Through struct {
	Field       string
	Path        []string
	Card        Cardinality
	RelatedType reflect.Type
	JoinKind    AssociationKind // AssociationManyToMany 或 AssociationThrough
}

func (a BelongsTo) Kind() AssociationKind    { return AssociationBelongsTo }
func (a BelongsTo) FieldName() string        { return a.Field }
func (a BelongsTo) Cardinality() Cardinality { return CardinalityOne }
func (a BelongsTo) Related() reflect.Type    { return a.RelatedType }
func (BelongsTo) association()               {}

func (a HasOne) Kind() AssociationKind    { return AssociationHasOne }
func (a HasOne) FieldName() string        { return a.Field }
func (a HasOne) Cardinality() Cardinality { return CardinalityOne }
func (a HasOne) Related() reflect.Type    { return a.RelatedType }
func (HasOne) association()               {}

func (a HasMany) Kind() AssociationKind    { return AssociationHasMany }
func (a HasMany) FieldName() string        { return a.Field }
func (a HasMany) Cardinality() Cardinality { return CardinalityMany }
func (a HasMany) Related() reflect.Type    { return a.RelatedType }
func (HasMany) association()               {}

func (a Through) Kind() AssociationKind {
	if a.JoinKind == "" {
		return AssociationThrough
	}
	return a.JoinKind
}
func (a Through) FieldName() string        { return a.Field }
func (a Through) Cardinality() Cardinality { return a.Card }
func (a Through) Related() reflect.Type    { return a.RelatedType }
func (Through) association()               {}

// LinkKeys 返回直接关联两侧用于比较的字段名。
// Through 没有直接的比较键，ok 为 false。
func LinkKeys(a Association) (ownerKey, relatedKey string, ok bool) {
	switch v := a.(type) {
	case BelongsTo:
		return v.OwnerKey, v.RelatedKey, true
	case HasOne:
		return v.OwnerKey, v.RelatedKey, true
	case HasMany:
		return v.OwnerKey, v.RelatedKey, true
	default:
		return "", "", false
	}
}

// ModelMeta 描述模型级别元信息。
// Tags 可用于存放原始 orm/gorm 等标签内容，由适配器解析。
type ModelMeta struct {
	Model any
	Table string
	Tags  map[string]string
}

// Tag 返回模型级别的标签内容。
func (m *ModelMeta) Tag(key string) string {
	if m == nil || m.Tags == nil {
		return ""
	}
	return m.Tags[key]
}
