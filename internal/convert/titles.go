package convert

import (
	"bufio"
	"io"
	"strings"
)

// TitleHeader 标题导出的表头
var TitleHeader = []string{"一级标题", "二级标题", "三级标题"}

// TitleRow 每行只有一列非空，对应标题所在的层级
type TitleRow [3]string

// 文档注释：按出现顺序提取一至三级标题
// 约束：只识别 "# "、"## "、"### " 开头的行（去除首尾空白后），标题文本去除首尾空白
func ExtractTitles(r io.Reader) ([]TitleRow, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var out []TitleRow
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		for level, prefix := range []string{"# ", "## ", "### "} {
			if rest, ok := strings.CutPrefix(line, prefix); ok {
				if title := strings.TrimSpace(rest); title != "" {
					var row TitleRow
					row[level] = title
					out = append(out, row)
				}
				break
			}
		}
	}
	return out, sc.Err()
}

// Strings 转为导出记录。
func (t TitleRow) Strings() []string { return []string{t[0], t[1], t[2]} }
