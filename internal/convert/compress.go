package convert

import (
	"regexp"
	"strings"
)

var (
	headingLine = regexp.MustCompile(`(?m)^#{1,6}[ \t]+.*$`)
	codeSpan    = regexp.MustCompile("(?s)```.*?```|`[^`]*`")
	whitespace  = regexp.MustCompile(`\s+`)
)

// 文档注释：压缩 Markdown
// 约束：标题行原样保留；标题之间的正文块折叠连续空白为单个空格并去除首尾空白；代码块与行内代码不变；
// 结果中各块以单个换行连接，空块丢弃
func Compress(md string) string {
	var blocks []string
	pos := 0
	for _, loc := range headingLine.FindAllStringIndex(md, -1) {
		blocks = append(blocks, compressBlock(md[pos:loc[0]]), md[loc[0]:loc[1]])
		pos = loc[1]
	}
	blocks = append(blocks, compressBlock(md[pos:]))

	out := blocks[:0]
	for _, b := range blocks {
		if b != "" {
			out = append(out, b)
		}
	}
	return strings.Join(out, "\n")
}

func compressBlock(s string) string {
	var b strings.Builder
	pos := 0
	for _, loc := range codeSpan.FindAllStringIndex(s, -1) {
		b.WriteString(collapse(s[pos:loc[0]]))
		b.WriteString(s[loc[0]:loc[1]])
		pos = loc[1]
	}
	b.WriteString(collapse(s[pos:]))
	return b.String()
}

func collapse(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}
