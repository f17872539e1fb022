package textproc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSplitIntoSentences 测试断句
func TestSplitIntoSentences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "三种句末标点",
			input: "One. Two? Three! Four",
			want:  []string{"One.", "Two?", "Three!", "Four"},
		},
		{
			name:  "没有句末标点",
			input: "no terminal punctuation here",
			want:  []string{"no terminal punctuation here"},
		},
		{
			name:  "标点后无空白不断句",
			input: "Version 1.2 is out. Done.",
			want:  []string{"Version 1.2 is out.", "Done."},
		},
		{
			name:  "多个空白",
			input: "A.   B.\n\nC.",
			want:  []string{"A.", "B.", "C."},
		},
		{
			name:  "空文本",
			input: "   ",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitIntoSentences(tt.input))
		})
	}
}

// TestChunkText 测试按长度贪心装块
func TestChunkText(t *testing.T) {
	t.Run("全部装入一个块", func(t *testing.T) {
		chunks := ChunkText("Alpha. Beta. Gamma.", 100)
		assert.Equal(t, []string{"Alpha. Beta. Gamma."}, chunks)
	})

	t.Run("超过上限时开启新块", func(t *testing.T) {
		// "Alpha. Beta." 长 12，再加 " Gamma." 为 19
		chunks := ChunkText("Alpha. Beta. Gamma.", 12)
		assert.Equal(t, []string{"Alpha. Beta.", "Gamma."}, chunks)
	})

	t.Run("单句超长整句成块", func(t *testing.T) {
		long := strings.Repeat("x", 30) + "."
		chunks := ChunkText("Hi. "+long+" Bye.", 10)
		assert.Equal(t, []string{"Hi.", long, "Bye."}, chunks)
	})

	t.Run("首句超长不产生空块", func(t *testing.T) {
		long := strings.Repeat("y", 20) + "."
		chunks := ChunkText(long+" End.", 10)
		assert.Equal(t, []string{long, "End."}, chunks)
	})

	t.Run("非正上限使用默认值", func(t *testing.T) {
		chunks := ChunkText("a. b.", 0)
		assert.Equal(t, []string{"a. b."}, chunks)
	})

	t.Run("空文本", func(t *testing.T) {
		assert.Empty(t, ChunkText("", 50))
	})
}

// TestChunkText_Properties 测试切块不丢句、不重复，且满足软上限
func TestChunkText_Properties(t *testing.T) {
	text := strings.Repeat("The mitochondria is the powerhouse of the cell. ", 20) +
		"Why? Because it produces ATP! " + strings.Repeat("z", 120) + ". Final words."

	for _, maxLen := range []int{10, 50, 100, 500} {
		chunks := ChunkText(text, maxLen)
		sentences := SplitIntoSentences(text)

		require.NotEmpty(t, chunks)
		assert.Equal(t, strings.Join(sentences, " "), strings.Join(chunks, " "))

		for _, c := range chunks {
			assert.NotEmpty(t, c)
			if len([]rune(c)) > maxLen {
				assert.Len(t, SplitIntoSentences(c), 1, "超限的块只能是单句")
			}
		}
	}
}
