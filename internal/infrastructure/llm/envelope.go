package llm

import (
	"fmt"
	"sort"
)

// UnknownFormatError 响应不符合任何已知结构
type UnknownFormatError struct {
	Keys []string
}

func (e *UnknownFormatError) Error() string {
	return fmt.Sprintf("Unknown response format. Available keys: %v", e.Keys)
}

// envelopeMatcher 尝试从响应中取出回答文本
type envelopeMatcher struct {
	name  string
	match func(body map[string]any) (string, bool)
}

// envelopeMatchers 按优先级排列
var envelopeMatchers = []envelopeMatcher{
	{name: "choices", match: matchChoices},
	{name: "response", match: matchField("response")},
	{name: "content", match: matchField("content")},
	{name: "text", match: matchField("text")},
	{name: "answer", match: matchField("answer")},
}

// ExtractContent 依次尝试已知响应结构
func ExtractContent(body map[string]any) (string, error) {
	for _, m := range envelopeMatchers {
		if text, ok := m.match(body); ok {
			return text, nil
		}
	}

	keys := make([]string, 0, len(body))
	for k := range body {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "", &UnknownFormatError{Keys: keys}
}

// matchChoices OpenAI 结构 choices[0].message.content
func matchChoices(body map[string]any) (string, bool) {
	choices, ok := body["choices"].([]any)
	if !ok || len(choices) == 0 {
		return "", false
	}
	first, ok := choices[0].(map[string]any)
	if !ok {
		return "", false
	}
	message, ok := first["message"].(map[string]any)
	if !ok {
		return "", false
	}
	content, ok := message["content"].(string)
	return content, ok
}

// matchField 顶层字段直接承载回答
func matchField(key string) func(map[string]any) (string, bool) {
	return func(body map[string]any) (string, bool) {
		v, ok := body[key]
		if !ok || v == nil {
			return "", false
		}
		if s, ok := v.(string); ok {
			return s, true
		}
		return fmt.Sprint(v), true
	}
}
