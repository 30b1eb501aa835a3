package orm

import (
	"context"

	"relmap/data/db"
)

// IOrm 表示 ORM 适配器入口。
// 仅定义接口，具体实现由业务侧选择并以适配器形式注入。
type IOrm interface {
	// Capabilities 返回适配器支持的能力集合。
	Capabilities() Capabilities
	// Model 返回指定模型的读取入口。
	Model(meta *ModelMeta) IModel
	// Preload 对已查询出的实体批量加载关联，每个关联每层只发出一次查询。
	// values 中的元素为 *T（同一类型），nil 元素原样保留。
	Preload(ctx context.Context, values []any, preloads ...Preload) ([]any, error)
	// Database 返回适配器绑定的通用数据库（可选，可为 nil）。
	Database() db.IDatabase
	// Raw 返回底层引擎实例，便于特殊场景透传。
	Raw() any
}

// IModel 封装模型级别的读取操作。
//
// First/Find 支持 WithPreload：先执行主查询，再按请求树批量预加载关联。
type IModel interface {
	Meta() *ModelMeta
	Capabilities() Capabilities

	First(ctx context.Context, dest any, opts ...QueryOption) error
	Find(ctx context.Context, dest any, opts ...QueryOption) error
	Count(ctx context.Context, opts ...QueryOption) (int64, error)
}
