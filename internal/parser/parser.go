// 包 parser：将分级标题的沿革文档解析为 省 → 市 → 区/县 的森林
//
// 背景：文档按章（#）、中文序数（##）、数字序号（###）三级组织，
// 另有 "零、上位类说明"/"0.上位类说明" 两种概述标记；其余行均为正文。
// 约束：单遍扫描、无前瞻；任何行都不会导致错误，无法识别的标题按正文处理。
package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"jiuyu/internal/logger"
	"jiuyu/internal/metrics"
	"jiuyu/internal/region"
	"jiuyu/internal/textenc"
)

// 标题中的空白：兼容全角空格
const sp = `[\s\p{Zs}]`

// Options 解析选项；零值使用默认序数范围与 UTF-8。
type Options struct {
	MidOrdinalMax    int      // 二级标题序数上限（一..N），默认 37
	MidOrdinalsExtra []string // 额外接受的序数词
	BottomMax        int      // 三级标题数字上限（1..N），默认 25
	Encoding         string   // utf-8 | gbk | gb18030
}

// Parser 持有编译后的标题模式；可并发复用，解析状态不保存在 Parser 中。
type Parser struct {
	enc        string
	top        *regexp.Regexp
	topGeneral *regexp.Regexp
	mid        *regexp.Regexp
	midGeneral *regexp.Regexp
	bottom     *regexp.Regexp
}

func New(opts Options) *Parser {
	if opts.MidOrdinalMax <= 0 {
		opts.MidOrdinalMax = 37
	}
	if opts.BottomMax <= 0 {
		opts.BottomMax = 25
	}
	ords := Ordinals(opts.MidOrdinalMax, opts.MidOrdinalsExtra)
	quoted := make([]string, len(ords))
	for i, o := range ords {
		quoted[i] = regexp.QuoteMeta(o)
	}
	nums := make([]string, 0, opts.BottomMax)
	for i := opts.BottomMax; i >= 1; i-- {
		nums = append(nums, strconv.Itoa(i))
	}
	return &Parser{
		enc:        opts.Encoding,
		top:        regexp.MustCompile(`^#` + sp + `+第[0-9]+章` + sp + `*(.+)$`),
		topGeneral: regexp.MustCompile(`^##` + sp + `+零、上位类说明$`),
		mid:        regexp.MustCompile(`^##` + sp + `+(?:` + strings.Join(quoted, "|") + `)、` + sp + `*(.+)$`),
		midGeneral: regexp.MustCompile(`^###` + sp + `+0\.上位类说明$`),
		bottom:     regexp.MustCompile(`^###` + sp + `*(` + strings.Join(nums, "|") + `)\.` + sp + `*(.+)$`),
	}
}

// Phase 解析器所处阶段，由 State 推导
type Phase int

const (
	Idle Phase = iota
	InTop
	InTopGeneral
	InMid
	InMidGeneral
	InBottom
)

func (p Phase) String() string {
	return [...]string{"Idle", "InTop", "InTopGeneral", "InMid", "InMidGeneral", "InBottom"}[p]
}

// 文档注释：解析状态
// 约束：
// - Top/Mid/Bottom 为当前作用域内各层的最近节点；新的上层标题会清空其下层
// - Active/Field 为正文写入目标；"上位类说明"只切换 Field 与 Active，不改变作用域
// - Buffer 为尚未写入的正文行
type State struct {
	Forest []*region.Region
	Top    *region.Region
	Mid    *region.Region
	Bottom *region.Region
	Active *region.Region
	Field  region.Field
	Buffer []string
}

// Phase 返回当前阶段。
func (s State) Phase() Phase {
	if s.Active == nil {
		return Idle
	}
	general := s.Field == region.FieldGeneral
	switch s.Active.Level {
	case region.LevelProvince:
		if general {
			return InTopGeneral
		}
		return InTop
	case region.LevelCity:
		if general {
			return InMidGeneral
		}
		return InMid
	default:
		return InBottom
	}
}

// flush 将缓冲正文写入当前目标；没有目标时缓冲保持不变，留给下一个写入目标。
func flush(s State) State {
	if s.Active == nil || len(s.Buffer) == 0 {
		return s
	}
	s.Active.Append(s.Field, strings.Join(s.Buffer, "\n"))
	s.Buffer = nil
	return s
}

// 文档注释：处理一行输入并返回新状态
// 约束：按优先级依次尝试 一级标题、一级概述、二级标题、二级概述、三级标题；
// 依赖上层作用域的标题在作用域缺失时落入正文。空行直接跳过。
func (p *Parser) Step(s State, raw string) State {
	line := strings.TrimSpace(raw)
	if line == "" {
		return s
	}

	if m := p.top.FindStringSubmatch(line); m != nil {
		s = flush(s)
		node := region.NewProvince(strings.TrimSpace(m[1]))
		s.Forest = append(s.Forest, node)
		s.Top, s.Mid, s.Bottom = node, nil, nil
		s.Active, s.Field = node, region.FieldDetail
		return s
	}

	if s.Top != nil {
		if p.topGeneral.MatchString(line) {
			s = flush(s)
			s.Active, s.Field = s.Top, region.FieldGeneral
			return s
		}
		if m := p.mid.FindStringSubmatch(line); m != nil {
			s = flush(s)
			node := region.NewChild(s.Top, strings.TrimSpace(m[1]))
			s.Mid, s.Bottom = node, nil
			s.Active, s.Field = node, region.FieldDetail
			return s
		}
	}

	if s.Mid != nil {
		if p.midGeneral.MatchString(line) {
			s = flush(s)
			s.Active, s.Field = s.Mid, region.FieldGeneral
			return s
		}
		if m := p.bottom.FindStringSubmatch(line); m != nil {
			s = flush(s)
			node := region.NewChild(s.Mid, strings.TrimSpace(m[2]))
			s.Bottom = node
			s.Active, s.Field = node, region.FieldDetail
			return s
		}
	}

	s.Buffer = append(s.Buffer, strings.TrimRight(raw, "\r\n"))
	return s
}

// Finish 执行最后一次写入并返回森林；空输入返回非 nil 的空切片。
func Finish(s State) ([]*region.Region, State) {
	s = flush(s)
	if s.Forest == nil {
		s.Forest = []*region.Region{}
	}
	return s.Forest, s
}

// ParseLines 解析内存中的行序列。
func (p *Parser) ParseLines(lines []string) []*region.Region {
	var s State
	for _, l := range lines {
		s = p.Step(s, l)
	}
	forest, _ := Finish(s)
	return forest
}

// 文档注释：从 reader 逐行解析
// 约束：按 Options.Encoding 解码；单行长度不受限制；读错误时返回已解析的部分森林与错误
func (p *Parser) Parse(r io.Reader) ([]*region.Region, error) {
	dec, err := textenc.NewReader(r, p.enc)
	if err != nil {
		return []*region.Region{}, fmt.Errorf("parser: %w", err)
	}
	br := bufio.NewReader(dec)
	var s State
	var lines int
	for {
		line, rerr := br.ReadString('\n')
		if line != "" {
			if strings.TrimSpace(line) != "" {
				lines++
			}
			s = p.Step(s, line)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			forest, _ := Finish(s)
			return forest, fmt.Errorf("parser: read: %w", rerr)
		}
	}
	forest, final := Finish(s)
	metrics.ParseLinesTotal.Add(float64(lines))
	countNodes(forest)
	if len(final.Buffer) > 0 {
		logger.L().Debug("parse_text_unowned", "lines", len(final.Buffer))
	}
	return forest, nil
}

// 文档注释：解析文件
// 约束：文件不存在时返回空森林与包装后的 os.ErrNotExist，调用方记录后继续运行
func (p *Parser) ParseFile(path string) ([]*region.Region, error) {
	start := time.Now()
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*region.Region{}, fmt.Errorf("parser: document %s: %w", path, os.ErrNotExist)
		}
		return []*region.Region{}, fmt.Errorf("parser: open %s: %w", path, err)
	}
	defer f.Close()
	forest, err := p.Parse(f)
	if err != nil {
		return forest, err
	}
	st := region.Count(forest)
	logger.L().Info("parse_done",
		"path", path,
		"provinces", st.Province.Total,
		"cities", st.City.Total,
		"districts", st.District.Total,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return forest, nil
}

func countNodes(forest []*region.Region) {
	st := region.Count(forest)
	metrics.ParseNodesTotal.WithLabelValues("1").Add(float64(st.Province.Total))
	metrics.ParseNodesTotal.WithLabelValues("2").Add(float64(st.City.Total))
	metrics.ParseNodesTotal.WithLabelValues("3").Add(float64(st.District.Total))
}
