package parser

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"

	"jiuyu/internal/region"
)

func parse(lines ...string) []*region.Region {
	return New(Options{}).ParseLines(lines)
}

func TestParseEmpty(t *testing.T) {
	forest := parse()
	assert.NotNil(t, forest)
	assert.Empty(t, forest)

	forest = parse("", "   ", "\r\n")
	assert.Empty(t, forest)
}

func TestParseSingleTopHeading(t *testing.T) {
	forest := parse("# 第1章 广东省")
	require.Len(t, forest, 1)
	gd := forest[0]
	assert.Equal(t, "广东省", gd.Name)
	assert.Equal(t, region.LevelProvince, gd.Level)
	assert.Empty(t, gd.TextGeneral)
	assert.Empty(t, gd.TextDetail)
	assert.Empty(t, gd.Children)
	assert.Empty(t, gd.Code)
	assert.Empty(t, gd.ParentName)
	assert.Nil(t, gd.Geometry)
}

func TestParseEndToEnd(t *testing.T) {
	forest := parse(
		"# 第1章 广东省",
		"## 一、广州市",
		"overview line",
		"### 1.越秀区",
		"detail line",
	)
	require.Len(t, forest, 1)
	gd := forest[0]
	assert.Equal(t, "广东省", gd.Name)
	require.Len(t, gd.Children, 1)

	gz := gd.Children[0]
	assert.Equal(t, "广州市", gz.Name)
	assert.Equal(t, region.LevelCity, gz.Level)
	assert.Equal(t, "overview line", gz.TextDetail)
	assert.Equal(t, "广东省", gz.ParentName)
	require.Len(t, gz.Children, 1)

	yx := gz.Children[0]
	assert.Equal(t, "越秀区", yx.Name)
	assert.Equal(t, region.LevelDistrict, yx.Level)
	assert.Equal(t, "detail line", yx.TextDetail)
	assert.Equal(t, "广州市", yx.ParentName)
	assert.Nil(t, yx.Children)
}

func TestParseTextJoining(t *testing.T) {
	forest := parse(
		"# 第1章 广东省",
		"  first line  ",
		"",
		"second line",
		"## 零、上位类说明",
		"general one",
		"## 一、广州市",
		"city detail",
		"## 零、上位类说明",
		"general two",
	)
	require.Len(t, forest, 1)
	gd := forest[0]
	assert.Equal(t, "first line  \nsecond line", gd.TextDetail)
	assert.Equal(t, "general one\ngeneral two", gd.TextGeneral)
	assert.Equal(t, "city detail", gd.Children[0].TextDetail)
	assert.Empty(t, gd.Children[0].TextGeneral)
}

func TestParseTopGeneralAfterMidContext(t *testing.T) {
	forest := parse(
		"# 第3章 广西壮族自治区",
		"## 二、南宁市",
		"### 0.上位类说明",
		"city general",
		"### 5.兴宁区",
		"district detail",
		"## 零、上位类说明",
		"province general",
		"### 6.青秀区",
	)
	require.Len(t, forest, 1)
	gx := forest[0]
	assert.Equal(t, "province general", gx.TextGeneral)

	nn := gx.Children[0]
	assert.Equal(t, "city general", nn.TextGeneral)
	assert.Empty(t, nn.TextDetail)
	require.Len(t, nn.Children, 2, "mid scope survives the top general marker")
	assert.Equal(t, "district detail", nn.Children[0].TextDetail)
	assert.Equal(t, "青秀区", nn.Children[1].Name)
}

func TestParseOutOfScopeHeadingsBecomeText(t *testing.T) {
	forest := parse(
		"## 一、孤立城市",
		"### 1.孤立区",
		"# 第1章 广东省",
		"### 1.越秀区",
		"### 0.上位类说明",
		"## 一、广州市",
	)
	require.Len(t, forest, 1)
	gd := forest[0]
	assert.Equal(t, "### 1.越秀区\n### 0.上位类说明", gd.TextDetail)
	require.Len(t, gd.Children, 1)
	assert.Equal(t, "广州市", gd.Children[0].Name)
}

func TestParseNewTopClearsScope(t *testing.T) {
	forest := parse(
		"# 第1章 广东省",
		"## 一、广州市",
		"# 第2章 海南省",
		"### 1.美兰区",
	)
	require.Len(t, forest, 2)
	assert.Empty(t, forest[0].Children[0].Children)
	assert.Empty(t, forest[1].Children)
	assert.Equal(t, "### 1.美兰区", forest[1].TextDetail)
}

func TestParseNewMidClearsBottom(t *testing.T) {
	forest := parse(
		"# 第1章 广东省",
		"## 一、广州市",
		"### 1.越秀区",
		"## 二、深圳市",
		"shenzhen detail",
	)
	gd := forest[0]
	require.Len(t, gd.Children, 2)
	assert.Empty(t, gd.Children[0].Children[0].TextDetail)
	assert.Equal(t, "shenzhen detail", gd.Children[1].TextDetail)
}

func TestParseHeadingVariants(t *testing.T) {
	forest := parse(
		"  # 第12章广东省  ",
		"##　十一、　韶关市",
		"###25.乐昌市",
		"### 26.不存在区",
		"## 三十八、超范围",
		"# 第章 无编号",
	)
	require.Len(t, forest, 1)
	gd := forest[0]
	assert.Equal(t, "广东省", gd.Name)
	require.Len(t, gd.Children, 1)
	sg := gd.Children[0]
	assert.Equal(t, "韶关市", sg.Name)
	require.Len(t, sg.Children, 1)
	assert.Equal(t, "乐昌市", sg.Children[0].Name)
	assert.Equal(t, "### 26.不存在区\n## 三十八、超范围\n# 第章 无编号", sg.Children[0].TextDetail)
}

func TestParseExtraOrdinals(t *testing.T) {
	p := New(Options{MidOrdinalMax: 2, MidOrdinalsExtra: []string{"三十八"}, BottomMax: 3})
	forest := p.ParseLines([]string{
		"# 第1章 甲省",
		"## 三、丙市",
		"## 三十八、丁市",
		"### 4.戊区",
		"### 3.己区",
	})
	gd := forest[0]
	assert.Equal(t, "## 三、丙市", gd.TextDetail)
	require.Len(t, gd.Children, 1)
	assert.Equal(t, "丁市", gd.Children[0].Name)
	require.Len(t, gd.Children[0].Children, 1)
	assert.Equal(t, "己区", gd.Children[0].Children[0].Name)
	assert.Equal(t, "### 4.戊区", gd.Children[0].TextDetail)
}

func TestParsePreambleCarried(t *testing.T) {
	p := New(Options{})
	var s State
	s = p.Step(s, "序言")
	s = p.Step(s, "# 第1章 广东省")
	assert.Equal(t, []string{"序言"}, s.Buffer)
	s = p.Step(s, "正文")
	forest, final := Finish(s)
	assert.Equal(t, "序言\n正文", forest[0].TextDetail)
	assert.Empty(t, final.Buffer)

	forest = p.ParseLines([]string{"前言一行", "# 第1章 广东省", "## 零、上位类说明", "概述"})
	require.Len(t, forest, 1)
	assert.Equal(t, "前言一行", forest[0].TextDetail)
	assert.Equal(t, "概述", forest[0].TextGeneral)
}

func TestParseTextWithoutHeadings(t *testing.T) {
	var s State
	p := New(Options{})
	s = p.Step(s, "只有正文")
	forest, final := Finish(s)
	assert.Empty(t, forest)
	assert.Equal(t, []string{"只有正文"}, final.Buffer)
}

func TestStepPhases(t *testing.T) {
	p := New(Options{})
	var s State
	assert.Equal(t, Idle, s.Phase())

	steps := []struct {
		line string
		want Phase
	}{
		{"# 第1章 广东省", InTop},
		{"## 零、上位类说明", InTopGeneral},
		{"## 一、广州市", InMid},
		{"### 0.上位类说明", InMidGeneral},
		{"### 1.越秀区", InBottom},
		{"## 零、上位类说明", InTopGeneral},
		{"### 2.海珠区", InBottom},
	}
	for _, st := range steps {
		s = p.Step(s, st.line)
		assert.Equal(t, st.want, s.Phase(), st.line)
	}
	assert.Equal(t, "InBottom", s.Phase().String())
}

func TestStepKeepsInteriorWhitespace(t *testing.T) {
	p := New(Options{})
	var s State
	s = p.Step(s, "# 第1章 广东省")
	s = p.Step(s, "a   b\r\n")
	assert.Equal(t, []string{"a   b"}, s.Buffer)
}

func TestParseReaderGBK(t *testing.T) {
	doc := "# 第1章 广东省\r\n## 一、广州市\r\n概述\r\n### 1.越秀区\r\n详情"
	gbk, err := simplifiedchinese.GBK.NewEncoder().String(doc)
	require.NoError(t, err)

	forest, err := New(Options{Encoding: "gbk"}).Parse(strings.NewReader(gbk))
	require.NoError(t, err)
	require.Len(t, forest, 1)
	assert.Equal(t, "详情", forest[0].Children[0].Children[0].TextDetail)
	assert.Equal(t, "概述", forest[0].Children[0].TextDetail)
}

func TestParseUnknownEncoding(t *testing.T) {
	forest, err := New(Options{Encoding: "ebcdic"}).Parse(strings.NewReader("x"))
	assert.Error(t, err)
	assert.Empty(t, forest)
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.md")
	require.NoError(t, os.WriteFile(path, []byte("# 第1章 广东省\n## 一、广州市\n"), 0o644))

	forest, err := New(Options{}).ParseFile(path)
	require.NoError(t, err)
	require.Len(t, forest, 1)
	assert.Len(t, forest[0].Children, 1)

	forest, err = New(Options{}).ParseFile(filepath.Join(dir, "missing.md"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.NotNil(t, forest)
	assert.Empty(t, forest)
}

func TestOrdinals(t *testing.T) {
	assert.Equal(t, "一", ChineseNumeral(1))
	assert.Equal(t, "十", ChineseNumeral(10))
	assert.Equal(t, "十一", ChineseNumeral(11))
	assert.Equal(t, "二十", ChineseNumeral(20))
	assert.Equal(t, "三十七", ChineseNumeral(37))
	assert.Equal(t, "", ChineseNumeral(0))
	assert.Equal(t, "", ChineseNumeral(100))

	ords := Ordinals(37, []string{"十", " ", "三十八"})
	assert.Len(t, ords, 38)
	assert.Equal(t, 3, len([]rune(ords[0])))
	assert.Equal(t, 1, len([]rune(ords[len(ords)-1])))
	assert.Contains(t, ords, "三十八")
}
