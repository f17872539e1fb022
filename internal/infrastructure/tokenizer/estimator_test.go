package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTiktokenEstimator(t *testing.T) {
	estimator1, err := GetTiktokenEstimator()
	require.NoError(t, err, "should create estimator without error")
	require.NotNil(t, estimator1)

	estimator2, err := GetTiktokenEstimator()
	require.NoError(t, err)

	// 确保是同一个实例
	assert.Same(t, estimator1, estimator2, "should return the same instance")
}

func TestTiktokenEstimator_CountTokens(t *testing.T) {
	estimator, err := GetTiktokenEstimator()
	require.NoError(t, err)

	tests := []struct {
		name     string
		text     string
		minCount int
		maxCount int
	}{
		{name: "空字符串", text: "", minCount: 0, maxCount: 0},
		{name: "简单英文", text: "Hello, world!", minCount: 3, maxCount: 5},
		{name: "教材句子", text: "Photosynthesis converts light energy into chemical energy.", minCount: 8, maxCount: 14},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count := estimator.CountTokens(tt.text)
			assert.GreaterOrEqual(t, count, tt.minCount)
			assert.LessOrEqual(t, count, tt.maxCount)
		})
	}

	assert.Equal(t,
		estimator.CountTokens("Hello")+estimator.CountTokens("world"),
		estimator.CountTokensBatch([]string{"Hello", "world"}),
	)
	assert.Equal(t, "tiktoken", estimator.Method())
}

func TestWordCounter(t *testing.T) {
	var c WordCounter
	assert.Equal(t, 0, c.CountTokens("   "))
	assert.Equal(t, 4, c.CountTokens("one two\nthree\tfour"))
	assert.Equal(t, "words", c.Method())
}

func TestNewCounter(t *testing.T) {
	c := NewCounter()
	require.NotNil(t, c)
	assert.Greater(t, c.CountTokens("some text here"), 0)
}
