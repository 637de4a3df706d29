package parser

import (
	"sort"
	"strings"
	"unicode/utf8"
)

var digits = []string{"", "一", "二", "三", "四", "五", "六", "七", "八", "九"}

// ChineseNumeral 将 1..99 写成中文序数词（十、十一、二十、二十一……）；超出范围返回空串。
func ChineseNumeral(n int) string {
	if n < 1 || n > 99 {
		return ""
	}
	tens, ones := n/10, n%10
	var b strings.Builder
	switch {
	case tens == 0:
		return digits[ones]
	case tens == 1:
		b.WriteString("十")
	default:
		b.WriteString(digits[tens])
		b.WriteString("十")
	}
	b.WriteString(digits[ones])
	return b.String()
}

// 文档注释：生成二级标题可接受的序数词列表
// 约束：包含 一..max 与 extra 中的非空项，去重后按字符数降序排列，保证正则分支优先匹配较长序数（十一 先于 十）
func Ordinals(max int, extra []string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for i := 1; i <= max && i <= 99; i++ {
		add(ChineseNumeral(i))
	}
	for _, s := range extra {
		add(s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return utf8.RuneCountInString(out[i]) > utf8.RuneCountInString(out[j])
	})
	return out
}
