package errors

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relmap/data/orm"
	"relmap/logging"
)

func TestWrapError(t *testing.T) {
	cause := errors.New("连接失败")

	err := WrapError(cause, ErrCodeDatabase, "basic: fetch comments")
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsErrorCode(err, ErrCodeDatabase))
	assert.Equal(t, "[DATABASE_ERROR] basic: fetch comments: 连接失败", err.Error())

	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "basic: fetch comments", appErr.Message())
	assert.Equal(t, ErrCodeDatabase, appErr.Code())

	assert.NoError(t, WrapError(nil, ErrCodeDatabase, "x"))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrorCode(""), CodeOf(nil))
	assert.Equal(t, ErrCodeInternal, CodeOf(errors.New("plain")))

	inner := WrapError(errors.New("x"), ErrCodeDatabase, "db")
	assert.Equal(t, ErrCodeDatabase, CodeOf(fmt.Errorf("preload Post.Comments: %w", inner)))
	assert.False(t, IsErrorCode(nil, ErrCodeInternal))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
	}{
		{"未找到", orm.ErrNotFound, ErrCodeNotFound},
		{"未加载", fmt.Errorf("Post.Author: %w", orm.ErrAssociationNotLoaded), ErrCodeAssociationNotLoaded},
		{"类型不一致", orm.ErrHeterogeneousInput, ErrCodeHeterogeneousInput},
		{"缺少主键", orm.ErrMissingPrimaryKey, ErrCodeMissingPrimaryKey},
		{"选择器", orm.ErrMalformedSelector, ErrCodeMalformedSelector},
		{"不支持", orm.ErrUnsupported, ErrCodeUnsupported},
		{"未知关联", orm.ErrUnknownAssociation, ErrCodeInvalidInput},
		{"非关联字段", orm.ErrNotAssociation, ErrCodeInvalidInput},
		{"容器路径", orm.ErrInvalidPath, ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.err)
			assert.True(t, IsErrorCode(got, tt.code), "got %v", got)
			assert.ErrorIs(t, got, tt.err)
		})
	}

	assert.NoError(t, Normalize(nil))
	plain := errors.New("plain")
	assert.Same(t, plain, Normalize(plain))

	// 已带错误码的错误链不再改写
	db := fmt.Errorf("preload: %w", WrapError(orm.ErrUnsupported, ErrCodeDatabase, "db"))
	assert.Same(t, db, Normalize(db))
}

func TestWrapWithLog(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	orig := logging.GetLogger()
	logging.SetLogger(logging.NewStdLogger("[test]"))
	t.Cleanup(func() { logging.SetLogger(orig) })

	ctx := context.Background()
	err := WrapWithLog(ctx, fmt.Errorf("Post.Tags: %w", orm.ErrUnknownAssociation), "load articles",
		logging.String("command", "preload"))
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrCodeInvalidInput))
	assert.ErrorIs(t, err, orm.ErrUnknownAssociation)
	assert.Contains(t, buf.String(), "[WARN] [test] load articles")
	assert.Contains(t, buf.String(), "error_code=INVALID_INPUT command=preload")

	buf.Reset()
	err = WrapWithLog(ctx, errors.New("boom"), "load articles")
	assert.True(t, IsErrorCode(err, ErrCodeInternal))
	assert.Contains(t, buf.String(), "error_code=INTERNAL_ERROR")

	assert.NoError(t, WrapWithLog(ctx, nil, "noop"))
}
