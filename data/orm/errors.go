package orm

import "errors"

var (
	// ErrNotFound 表示记录未找到。
	ErrNotFound = errors.New("orm: record not found")
	// ErrUnsupported 表示当前适配器不支持请求的能力。
	ErrUnsupported = errors.New("orm: capability unsupported")

	// ErrAssociationNotLoaded 表示读取了尚未加载的关联字段，调用方需先预加载。
	ErrAssociationNotLoaded = errors.New("orm: association not loaded")
	// ErrHeterogeneousInput 表示同一预加载位置混入了不同类型的实体。
	ErrHeterogeneousInput = errors.New("orm: heterogeneous entities")
	// ErrMissingPrimaryKey 表示实体缺少可用的主键值，无法去重。
	ErrMissingPrimaryKey = errors.New("orm: missing primary key")
	// ErrUnknownAssociation 表示实体类型上不存在该关联。
	ErrUnknownAssociation = errors.New("orm: unknown association")
	// ErrNotAssociation 表示目标字段存在但不是关联字段（例如内嵌结构体）。
	ErrNotAssociation = errors.New("orm: field is not an association")
	// ErrMalformedSelector 表示联接组装选择器与行结构不匹配。
	ErrMalformedSelector = errors.New("orm: malformed selector")
	// ErrInvalidPath 表示容器位置路径无法在值上解析。
	ErrInvalidPath = errors.New("orm: invalid container path")
)
