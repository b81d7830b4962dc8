package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	err := New(KindNotFound, "用户不存在")
	require.Equal(t, KindNotFound, KindOf(err))

	// 包装后仍能取到原始类别
	wrapped := fmt.Errorf("查询失败: %w", err)
	require.Equal(t, KindNotFound, KindOf(wrapped))

	// 普通错误归为内部错误
	require.Equal(t, KindInternal, KindOf(errors.New("boom")))
	require.Equal(t, KindInternal, KindOf(nil))
}

func TestMessageOf(t *testing.T) {
	err := New(KindInsufficientPoints, "积分不足")
	require.Equal(t, "积分不足", MessageOf(err))

	// 非业务错误不向外暴露细节
	require.Equal(t, "服务器内部错误", MessageOf(errors.New("dial tcp: timeout")))
}

func TestErrorsIs(t *testing.T) {
	sentinel := New(KindConflict, "邮箱已被注册")
	wrapped := fmt.Errorf("注册失败: %w", sentinel)
	require.ErrorIs(t, wrapped, sentinel)

	other := New(KindConflict, "订单号重复")
	require.NotErrorIs(t, other, sentinel)
}

func TestWrap(t *testing.T) {
	cause := errors.New("record not found")
	err := Wrap(cause, KindNotFound, "商品不存在")
	require.Equal(t, KindNotFound, KindOf(err))
	require.ErrorIs(t, err, cause)
}
