package middleware

import (
	"bytes"
	"io"
	"mime"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// maxDecodeBody 超过该大小的请求体不做转码
const maxDecodeBody = 1 << 20

// EnsureUTF8Body 把 JSON 请求体统一转成 UTF-8
// Content-Type 声明了 charset 时按声明解码，否则非 UTF-8 内容按 GBK 尝试
// multipart 上传等二进制请求体原样放行
func EnsureUTF8Body() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body == nil || c.Request.ContentLength == 0 || c.Request.ContentLength > maxDecodeBody {
			c.Next()
			return
		}

		mediaType, params, err := mime.ParseMediaType(c.GetHeader("Content-Type"))
		if err != nil || !isTextBody(mediaType) {
			c.Next()
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxDecodeBody+1))
		c.Request.Body.Close()
		if err != nil {
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
			c.Next()
			return
		}

		if decoded, ok := toUTF8(body, params["charset"]); ok {
			body = decoded
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Request.ContentLength = int64(len(body))
		c.Next()
	}
}

func isTextBody(mediaType string) bool {
	return mediaType == "application/json" || strings.HasPrefix(mediaType, "text/")
}

// toUTF8 返回转码结果，无需转码或转码失败时 ok 为 false
func toUTF8(body []byte, charset string) ([]byte, bool) {
	var enc encoding.Encoding
	switch cs := strings.ToLower(strings.TrimSpace(charset)); cs {
	case "", "utf-8", "utf8":
		if utf8.Valid(body) {
			return nil, false
		}
		// Windows 中文终端默认 GBK
		enc = simplifiedchinese.GBK
	default:
		e, err := htmlindex.Get(cs)
		if err != nil {
			return nil, false
		}
		enc = e
	}

	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(body), enc.NewDecoder()))
	if err != nil || !utf8.Valid(out) {
		return nil, false
	}
	return out, true
}
