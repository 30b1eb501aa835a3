package preload

import (
	"slices"

	"relmap/data/orm"
	"relmap/data/orm/schema"
)

// item 是参与归并的一个所属实体。ent 为本次调用克隆出的实体，结果就地写入，
// 因此排序只作用于 items，输入列表的原始顺序无需再恢复。
type item struct {
	ent any
	key any
}

func compareItems(a, b item) int {
	return schema.CompareKeys(a.key, b.key)
}

// sortItems 仅在存在逆序相邻对时稳定排序，已有序的输入保持原样。
func sortItems(items []item) bool {
	if slices.IsSortedFunc(items, compareItems) {
		return false
	}
	slices.SortStableFunc(items, compareItems)
	return true
}

// distinctKeys 返回有序 items 中去重后的非 nil 键。
func distinctKeys(items []item) []any {
	var keys []any
	for _, it := range items {
		if it.key == nil {
			continue
		}
		if n := len(keys); n > 0 && schema.CompareKeys(keys[n-1], it.key) == 0 {
			continue
		}
		keys = append(keys, it.key)
	}
	return keys
}

// result 是一条关联结果及其目标侧的比较键。
type result struct {
	ent any
	key any
}

func compareResults(a, b result) int {
	return schema.CompareKeys(a.key, b.key)
}

// mergeBelongsTo 每个实体至多匹配一个目标；匹配后游标原地不动，
// 外键相同的下一个实体仍可匹配同一目标。目标键重复时取排序后的第一个。
func mergeBelongsTo(owner *schema.Schema, field string, items []item, results []result) error {
	j := 0
	for _, it := range items {
		var values []any
		if it.key != nil {
			for j < len(results) && schema.CompareKeys(results[j].key, it.key) < 0 {
				j++
			}
			if j < len(results) && schema.CompareKeys(results[j].key, it.key) == 0 {
				values = []any{results[j].ent}
			}
		}
		if err := owner.SetAssociation(it.ent, field, values); err != nil {
			return err
		}
	}
	return nil
}

// mergeHasMany 收集与当前实体键相等的全部目标；游标停在匹配段的起点，
// 键相同的多个所属实体都能拿到同一段结果。card 为 One 时只取第一个。
func mergeHasMany(owner *schema.Schema, field string, card orm.Cardinality, items []item, results []result) error {
	j := 0
	for _, it := range items {
		values := []any{}
		if it.key != nil {
			for j < len(results) && schema.CompareKeys(results[j].key, it.key) < 0 {
				j++
			}
			for k := j; k < len(results) && schema.CompareKeys(results[k].key, it.key) == 0; k++ {
				values = append(values, results[k].ent)
				if card == orm.CardinalityOne {
					break
				}
			}
		}
		if err := owner.SetAssociation(it.ent, field, values); err != nil {
			return err
		}
	}
	return nil
}
