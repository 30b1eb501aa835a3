package schema

import (
	"fmt"

	"relmap/data/orm"
)

// Resolve 解析 owner 上的具名关联并返回目标类型的 Schema。
//
// 对直接关联同时校验两侧的比较键：键字段缺失属于模型定义错误。
// 这部分校验放在使用时而不是 Parse 时，循环引用的类型图才能正常解析。
func (r *Registry) Resolve(owner *Schema, name string) (orm.Association, *Schema, error) {
	a, err := owner.Association(name)
	if err != nil {
		return nil, nil, err
	}
	related, err := r.ParseType(a.Related())
	if err != nil {
		return nil, nil, fmt.Errorf("schema: %s.%s: %w", owner.Name, name, err)
	}
	if ownerKey, relatedKey, ok := orm.LinkKeys(a); ok {
		if !hasScalar(owner, ownerKey) {
			return nil, nil, fmt.Errorf("schema: %s.%s: key %s not found on %s", owner.Name, name, ownerKey, owner.Name)
		}
		if !hasScalar(related, relatedKey) {
			return nil, nil, fmt.Errorf("schema: %s.%s: key %s not found on %s", owner.Name, name, relatedKey, related.Name)
		}
	}
	return a, related, nil
}
