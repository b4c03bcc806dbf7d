package util

import (
	"fmt"
	"strings"
)

// FormatShare 占比格式化为百分比，保留一位小数（0.6857 -> "68.6%"）
func FormatShare(share float64) string {
	return fmt.Sprintf("%.1f%%", share*100)
}

// TruncateRunes 按字符（非字节）截断
func TruncateRunes(s string, n int) string {
	if n < 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Plural 计数 + 单复数名词
func Plural(n int, singular string) string {
	if n == 1 {
		return "1 " + singular
	}
	if strings.HasSuffix(singular, "y") {
		return fmt.Sprintf("%d %sies", n, strings.TrimSuffix(singular, "y"))
	}
	return fmt.Sprintf("%d %ss", n, singular)
}
