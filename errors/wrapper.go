package errors

import (
	"context"

	"relmap/logging"
)

// WrapWithLog 规范化 err，以 msg 包装并记录一条警告日志。
// 错误码沿用规范化后的结果，未识别的错误记为 ErrCodeInternal。
func WrapWithLog(ctx context.Context, err error, msg string, fields ...logging.Field) error {
	if err == nil {
		return nil
	}
	err = Normalize(err)
	code := CodeOf(err)

	logging.GetLogger().Warn(ctx, msg, append([]logging.Field{
		logging.Error(err),
		logging.String("error_code", string(code)),
	}, fields...)...)

	return WrapError(err, code, msg)
}
