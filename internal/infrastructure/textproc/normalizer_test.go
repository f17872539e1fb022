package textproc

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
)

// TestNormalize 测试文本清洗
func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "去除 URL",
			input: "See https://example.com/a?b=1 and www.test.org for more.",
			want:  "See and for more.",
		},
		{
			name:  "去除 emoji",
			input: "Cells 🧬 divide 🔬 quickly",
			want:  "Cells divide quickly",
		},
		{
			name:  "去除控制字符",
			input: "Line\x00one\x07 two",
			want:  "Lineone two",
		},
		{
			name:  "换行被视为控制字符",
			input: "first\nsecond",
			want:  "firstsecond",
		},
		{
			name:  "折叠空白并去除首尾空白",
			input: "   many    spaces here   ",
			want:  "many spaces here",
		},
		{
			name:  "折叠 Unicode 空白",
			input: "alpha\u00a0 beta\u2003\u2003gamma",
			want:  "alpha beta gamma",
		},
		{
			name:  "空字符串",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

// TestNormalize_Properties 测试清洗结果的不变式
func TestNormalize_Properties(t *testing.T) {
	inputs := []string{
		"Visit http://a.b now!!  😀😀 \t\r\n end",
		"www.x.y\x01\x02   tail",
		"  \n\n  ",
		"Photosynthesis 🌱 converts light. https://bio.example  Energy!",
		"alpha\u00a0 beta",
		"a\u2003\u2003b\u3000\u3000c",
		"\u00a0\u2009lead and trail\u202f\u0085",
	}

	for _, in := range inputs {
		out := Normalize(in)
		assert.NotContains(t, out, "http")
		assert.NotContains(t, out, "www")
		assert.NotContains(t, out, "  ")
		assert.Equal(t, strings.TrimSpace(out), out)
		for _, r := range out {
			if unicode.IsSpace(r) {
				assert.Equal(t, ' ', r, "空白应折叠为普通空格: %q", out)
			}
		}
		for _, r := range out {
			assert.False(t, r < 0x20, "不应包含控制字符: %q", out)
		}
		assert.NotContains(t, out, "😀")
		assert.NotContains(t, out, "🌱")
	}
}
