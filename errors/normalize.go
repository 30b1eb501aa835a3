package errors

import (
	stdErrors "errors"

	"relmap/data/orm"
)

// Normalize 将关联加载层的哨兵错误规范化为 AppError。
//
// 错误链上已有 AppError（例如执行器包装的数据库错误）时原样返回；
// 未识别的错误也原样返回。原始错误作为 cause 保留。
func Normalize(err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stdErrors.As(err, &appErr) {
		return err
	}
	for _, m := range sentinelCodes {
		if stdErrors.Is(err, m.sentinel) {
			return WrapError(err, m.code, m.message)
		}
	}
	return err
}

var sentinelCodes = []struct {
	sentinel error
	code     ErrorCode
	message  string
}{
	{orm.ErrNotFound, ErrCodeNotFound, "记录未找到"},
	{orm.ErrAssociationNotLoaded, ErrCodeAssociationNotLoaded, "关联尚未加载"},
	{orm.ErrHeterogeneousInput, ErrCodeHeterogeneousInput, "实体类型不一致"},
	{orm.ErrMissingPrimaryKey, ErrCodeMissingPrimaryKey, "实体缺少主键"},
	{orm.ErrMalformedSelector, ErrCodeMalformedSelector, "联接选择器与行结构不匹配"},
	{orm.ErrUnsupported, ErrCodeUnsupported, "不支持的能力"},
	{orm.ErrUnknownAssociation, ErrCodeInvalidInput, "未知关联"},
	{orm.ErrNotAssociation, ErrCodeInvalidInput, "字段不是关联"},
	{orm.ErrInvalidPath, ErrCodeInvalidInput, "无效的容器路径"},
}
