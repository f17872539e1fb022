package textproc

import (
	"strings"
	"unicode"
)

// DefaultMaxChunkLen 默认块长度上限（字符数）
const DefaultMaxChunkLen = 500

// SplitIntoSentences 在 . ? ! 后紧跟空白处断句
// 没有句末标点时整段作为一个句子返回
func SplitIntoSentences(text string) []string {
	runes := []rune(text)
	sentences := make([]string, 0)
	start := 0

	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) {
			continue
		}
		// 句末标点之后必须紧跟空白
		j := i + 1
		if j >= len(runes) || !unicode.IsSpace(runes[j]) {
			continue
		}
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		sentences = appendTrimmed(sentences, string(runes[start:i+1]))
		start = j
		i = j - 1
	}
	sentences = appendTrimmed(sentences, string(runes[start:]))

	return sentences
}

// ChunkText 贪心地把相邻句子装入不超过 maxLen 的块
// 单句超过 maxLen 时整句独立成块，不在句中截断
func ChunkText(text string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = DefaultMaxChunkLen
	}

	chunks := make([]string, 0)
	var current strings.Builder
	currentLen := 0

	for _, sent := range SplitIntoSentences(text) {
		sentLen := len([]rune(sent))
		if currentLen > 0 && currentLen+1+sentLen > maxLen {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
		if currentLen > 0 {
			current.WriteByte(' ')
			currentLen++
		}
		current.WriteString(sent)
		currentLen += sentLen
	}
	if currentLen > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}

// isTerminal 判断是否为句末标点
func isTerminal(r rune) bool {
	return r == '.' || r == '?' || r == '!'
}

// appendTrimmed 追加非空的去空白片段
func appendTrimmed(parts []string, part string) []string {
	part = strings.TrimSpace(part)
	if part == "" {
		return parts
	}
	return append(parts, part)
}
