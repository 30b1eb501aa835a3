package schema

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"relmap/data/orm"
)

// parseColumnTag 解析列名与主键标记。
//
// 优先级：gorm:"column:x" > db:"x" > json:"x"；主键由 gorm:"primaryKey" 标记。
func parseColumnTag(f reflect.StructField) (column string, primaryKey bool) {
	gormTag := f.Tag.Get("gorm")
	if gormTag != "" {
		for _, part := range strings.Split(gormTag, ";") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if strings.HasPrefix(part, "column:") {
				column = strings.TrimPrefix(part, "column:")
			}
			if strings.EqualFold(part, "primaryKey") || strings.EqualFold(part, "primary_key") {
				primaryKey = true
			}
		}
	}

	if column == "" {
		if dbTag := f.Tag.Get("db"); dbTag != "" && dbTag != "-" {
			column = strings.Split(dbTag, ",")[0]
		} else if jsonTag := f.Tag.Get("json"); jsonTag != "" && jsonTag != "-" {
			column = strings.Split(jsonTag, ",")[0]
		}
	}

	return column, primaryKey
}

// assocTag 是 `orm:"..."` 标签解析后的设置。
type assocTag struct {
	kind       orm.AssociationKind
	foreignKey string
	references string
	through    []string
}

func parseAssocTag(tag string) (assocTag, error) {
	var out assocTag
	for _, part := range strings.Split(tag, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, hasValue := strings.Cut(part, ":")
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if !hasValue {
			switch orm.AssociationKind(key) {
			case orm.AssociationBelongsTo, orm.AssociationHasOne, orm.AssociationHasMany, orm.AssociationManyToMany:
				out.kind = orm.AssociationKind(key)
				continue
			}
			return out, fmt.Errorf("unknown tag option %q", part)
		}
		switch key {
		case "foreign_key", "foreignkey":
			out.foreignKey = value
		case "references":
			out.references = value
		case "through":
			for _, hop := range strings.Split(value, ".") {
				if hop = strings.TrimSpace(hop); hop != "" {
					out.through = append(out.through, hop)
				}
			}
		default:
			return out, fmt.Errorf("unknown tag option %q", key)
		}
	}
	return out, nil
}

// parseAssociation 根据字段类型与 orm 标签构造关联描述。
func parseAssociation(owner *Schema, f reflect.StructField) (orm.Association, error) {
	zero, _ := reflect.New(f.Type).Interface().(orm.Loadable)
	target := zero.TargetType()
	card := zero.Cardinality()

	tag, err := parseAssocTag(f.Tag.Get("orm"))
	if err != nil {
		return nil, fmt.Errorf("schema: %s.%s: %w", owner.Name, f.Name, err)
	}

	if len(tag.through) > 0 || tag.kind == orm.AssociationManyToMany {
		if len(tag.through) < 2 {
			return nil, fmt.Errorf("schema: %s.%s: through path needs at least two hops", owner.Name, f.Name)
		}
		joinKind := orm.AssociationThrough
		if tag.kind == orm.AssociationManyToMany {
			joinKind = orm.AssociationManyToMany
		}
		return orm.Through{
			Field:       f.Name,
			Path:        tag.through,
			Card:        card,
			RelatedType: target,
			JoinKind:    joinKind,
		}, nil
	}

	kind := tag.kind
	if kind == "" {
		switch {
		case card == orm.CardinalityMany:
			kind = orm.AssociationHasMany
		case hasScalar(owner, f.Name+"ID"):
			kind = orm.AssociationBelongsTo
		default:
			kind = orm.AssociationHasOne
		}
	}

	wantCard := orm.CardinalityOne
	if kind == orm.AssociationHasMany {
		wantCard = orm.CardinalityMany
	}
	if card != wantCard {
		return nil, fmt.Errorf("schema: %s.%s: %s needs cardinality %s, field has %s",
			owner.Name, f.Name, kind, wantCard, card)
	}

	if kind == orm.AssociationBelongsTo {
		ownerKey := orDefault(tag.foreignKey, f.Name+"ID")
		if !hasScalar(owner, ownerKey) {
			return nil, fmt.Errorf("schema: %s.%s: foreign key %s not found", owner.Name, f.Name, ownerKey)
		}
		return orm.BelongsTo{
			Field:       f.Name,
			OwnerKey:    ownerKey,
			RelatedKey:  orDefault(tag.references, "ID"),
			RelatedType: target,
		}, nil
	}

	ownerKey := tag.references
	if ownerKey == "" {
		ownerKey = "ID"
		if len(owner.PrimaryKeys) == 1 {
			ownerKey = owner.PrimaryKeys[0].Name
		}
	}
	if !hasScalar(owner, ownerKey) {
		return nil, fmt.Errorf("schema: %s.%s: references %s not found", owner.Name, f.Name, ownerKey)
	}
	relatedKey := orDefault(tag.foreignKey, owner.Name+"ID")

	if kind == orm.AssociationHasOne {
		return orm.HasOne{Field: f.Name, OwnerKey: ownerKey, RelatedKey: relatedKey, RelatedType: target}, nil
	}
	return orm.HasMany{Field: f.Name, OwnerKey: ownerKey, RelatedKey: relatedKey, RelatedType: target}, nil
}

func hasScalar(s *Schema, name string) bool {
	f, ok := s.fieldsByName[name]
	return ok && f.Scalar
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// toSnakeCase 将 Go 字段名转换为列名，连续大写视为缩写：UserID -> user_id。
func toSnakeCase(s string) string {
	runes := []rune(s)
	var sb strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					sb.WriteByte('_')
				}
			}
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
