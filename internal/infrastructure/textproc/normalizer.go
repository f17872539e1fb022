// Package textproc 提供教材文本清洗与切块
package textproc

import (
	"regexp"
	"strings"

	"github.com/forPelevin/gomoji"
)

var (
	urlPattern        = regexp.MustCompile(`http\S+|www\S+`)
	controlPattern    = regexp.MustCompile(`[\x00-\x1F]+`)
	// \s 只匹配 ASCII 空白，PDF 文本中常见的不换行空格等需要 \p{Z}
	whitespacePattern = regexp.MustCompile(`[\s\p{Z}\x{85}]+`)
)

// Normalize 清洗文本：去掉 URL、emoji、ASCII 控制字符，折叠空白并去除首尾空白
func Normalize(text string) string {
	text = urlPattern.ReplaceAllString(text, "")
	text = gomoji.RemoveEmojis(text)
	text = controlPattern.ReplaceAllString(text, "")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
