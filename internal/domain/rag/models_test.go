package rag

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestNormalizeRole 测试角色规范化
func TestNormalizeRole(t *testing.T) {
	tests := []struct {
		input string
		want  Role
	}{
		{"strict", RoleStrict},
		{" Strict ", RoleStrict},
		{"default", RoleDefault},
		{"", RoleDefault},
		{"tutor", RoleDefault},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeRole(tt.input))
		})
	}
}

// TestSearchType_Accepts 测试检索范围过滤
func TestSearchType_Accepts(t *testing.T) {
	assert.True(t, SearchBoth.Accepts(TurnUserInput))
	assert.True(t, SearchBoth.Accepts(TurnAssistantResponse))
	assert.True(t, SearchUserOnly.Accepts(TurnUserInput))
	assert.False(t, SearchUserOnly.Accepts(TurnAssistantResponse))
	assert.False(t, SearchResponseOnly.Accepts(TurnUserInput))
	assert.Equal(t, SearchBoth, ParseSearchType("anything"))
	assert.Equal(t, SearchUserOnly, ParseSearchType("user_only"))
}

// TestExtractionError_Is 测试摄取错误分类
func TestExtractionError_Is(t *testing.T) {
	err := fmt.Errorf("wrap: %w", &ExtractionError{Source: "a.pdf"})
	assert.True(t, errors.Is(err, ErrExtraction))

	var extErr *ExtractionError
	assert.True(t, errors.As(err, &extErr))
	assert.Equal(t, "a.pdf", extErr.Source)
}

// TestMetaInt 测试数值元数据读取
func TestMetaInt(t *testing.T) {
	meta := map[string]any{"a": 3, "b": int64(4), "c": float64(5), "d": "x"}

	v, ok := MetaInt(meta, "a")
	assert.True(t, ok)
	assert.Equal(t, 3, v)
	v, _ = MetaInt(meta, "b")
	assert.Equal(t, 4, v)
	v, _ = MetaInt(meta, "c")
	assert.Equal(t, 5, v)
	_, ok = MetaInt(meta, "d")
	assert.False(t, ok)
	_, ok = MetaInt(nil, "a")
	assert.False(t, ok)
}
