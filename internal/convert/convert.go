// 包 convert：把原始沿革文本整理为解析器可读的分级 Markdown，并提供压缩与标题提取
//
// 背景：原始文本只有 "第N章"、"一、" 与行内 "1.某某区" 三种结构信号；转换后依次成为 #、##、### 标题，
// 并在每个章与每个市之后插入 "零、上位类说明"/"0.上位类说明" 概述标题，使概述正文有归属。
// 约束：转换不丢弃任何非空文本；空行原样保留；编号不连续只记录告警，不修改内容。
package convert

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"jiuyu/internal/logger"
	"jiuyu/internal/parser"
	"jiuyu/internal/textenc"
)

const (
	topGeneralHeading = "## 零、上位类说明"
	midGeneralHeading = "### 0.上位类说明"
)

// 行内区县条目可接受的后缀
var entrySuffixes = []string{"自治县", "自治旗", "特区", "林区", "区", "市", "县", "旗"}

// DefaultOrdinalMax 转换器识别的市级序数上限（一..三十八）
const DefaultOrdinalMax = 38

type Options struct {
	MidOrdinalMax    int // 默认 DefaultOrdinalMax
	MidOrdinalsExtra []string
	BottomMax        int
	Encoding         string
	ShowProgress     bool
}

// Warning 编号告警
type Warning struct {
	Line     int
	Expected int
	Found    int
	Name     string
	Chapter  string
	City     string
}

func (w Warning) String() string {
	ctx := "章 '" + w.Chapter + "'"
	if w.City != "" {
		ctx = "市 '" + w.City + "'"
	}
	if w.Chapter == "" && w.City == "" {
		return fmt.Sprintf("L%d: 条目 '%d.%s' 缺少章/市上下文", w.Line, w.Found, w.Name)
	}
	return fmt.Sprintf("L%d: %s 下编号不连续，期望 %d，实际 %d（%s）", w.Line, ctx, w.Expected, w.Found, w.Name)
}

// Report 转换统计
type Report struct {
	Lines    int       `json:"lines"`
	Chapters int       `json:"chapters"`
	Cities   int       `json:"cities"`
	Entries  int       `json:"entries"`
	Warnings []Warning `json:"warnings,omitempty"`
}

type Converter struct {
	opts    Options
	chapter *regexp.Regexp
	city    *regexp.Regexp
	entry   *regexp.Regexp
}

func New(opts Options) *Converter {
	if opts.MidOrdinalMax <= 0 {
		opts.MidOrdinalMax = DefaultOrdinalMax
	}
	if opts.BottomMax <= 0 {
		opts.BottomMax = 25
	}
	ords := parser.Ordinals(opts.MidOrdinalMax, opts.MidOrdinalsExtra)
	for i, o := range ords {
		ords[i] = regexp.QuoteMeta(o)
	}
	nums := make([]string, 0, opts.BottomMax)
	for i := opts.BottomMax; i >= 1; i-- {
		nums = append(nums, strconv.Itoa(i))
	}
	return &Converter{
		opts:    opts,
		chapter: regexp.MustCompile(`^第[0-9]+章`),
		city:    regexp.MustCompile(`^(?:` + strings.Join(ords, "|") + `)、`),
		entry: regexp.MustCompile(`(` + strings.Join(nums, "|") + `)\.(\p{Han}{2,15}?(?:` +
			strings.Join(entrySuffixes, "|") + `)?)`),
	}
}

// 单次转换的可变状态
type run struct {
	rep        Report
	chapter    string
	city       string
	expected   int
	afterTop   bool
	afterMid   bool
	lineNumber int
}

// 文档注释：逐行转换
// 约束：输出统一为 UTF-8；读错误时返回已写出部分的统计与错误
func (c *Converter) Convert(r io.Reader, w io.Writer) (Report, error) {
	dec, err := textenc.NewReader(r, c.opts.Encoding)
	if err != nil {
		return Report{}, fmt.Errorf("convert: %w", err)
	}
	br := bufio.NewReader(dec)
	bw := bufio.NewWriter(w)
	st := &run{expected: 1}
	for {
		line, rerr := br.ReadString('\n')
		if line != "" {
			st.lineNumber++
			if _, err := bw.WriteString(c.convertLine(st, line)); err != nil {
				return st.rep, fmt.Errorf("convert: write: %w", err)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			_ = bw.Flush()
			return st.rep, fmt.Errorf("convert: read: %w", rerr)
		}
	}
	st.rep.Lines = st.lineNumber
	if err := bw.Flush(); err != nil {
		return st.rep, fmt.Errorf("convert: write: %w", err)
	}
	return st.rep, nil
}

func (c *Converter) convertLine(st *run, raw string) string {
	line := strings.TrimSpace(raw)
	if line == "" {
		return "\n"
	}
	var b strings.Builder
	if c.chapter.MatchString(line) {
		st.chapter, st.city = line, ""
		st.expected = 1
		st.afterTop, st.afterMid = true, false
		st.rep.Chapters++
		b.WriteString("# " + line + "\n")
		return b.String()
	}
	if st.afterTop {
		b.WriteString(topGeneralHeading + "\n")
		st.afterTop = false
	}
	if c.city.MatchString(line) {
		st.city = line
		st.expected = 1
		st.afterMid = true
		st.rep.Cities++
		b.WriteString("## " + line + "\n")
		return b.String()
	}
	if st.afterMid {
		b.WriteString(midGeneralHeading + "\n")
		st.afterMid = false
	}
	c.splitEntries(st, line, &b)
	return b.String()
}

// 把一行中的 "N.名称" 拆成独立的三级标题，其余文本各自成行
func (c *Converter) splitEntries(st *run, line string, b *strings.Builder) {
	pos := 0
	for pos < len(line) {
		loc := c.nextEntry(line, pos)
		if loc == nil {
			break
		}
		if before := strings.TrimSpace(line[pos:loc[0]]); before != "" {
			b.WriteString(before + "\n")
		}
		numText, name := line[loc[2]:loc[3]], line[loc[4]:loc[5]]
		n, _ := strconv.Atoi(numText)
		c.checkNumber(st, n, name)
		st.rep.Entries++
		b.WriteString("### " + line[loc[0]:loc[1]] + "\n")
		pos = loc[1]
	}
	if rest := strings.TrimSpace(line[pos:]); rest != "" {
		b.WriteString(rest + "\n")
	}
}

// 跳过紧跟在其它数字之后的匹配（如 "31." 中的 "1."）
func (c *Converter) nextEntry(line string, pos int) []int {
	for pos < len(line) {
		loc := c.entry.FindStringSubmatchIndex(line[pos:])
		if loc == nil {
			return nil
		}
		for i := range loc {
			loc[i] += pos
		}
		if loc[0] > 0 && isDigit(line[loc[0]-1]) {
			pos = loc[0] + 1
			continue
		}
		return loc
	}
	return nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func (c *Converter) checkNumber(st *run, n int, name string) {
	switch {
	case st.chapter == "" && st.city == "":
		st.rep.Warnings = append(st.rep.Warnings, Warning{Line: st.lineNumber, Found: n, Name: name})
	case n != st.expected:
		st.rep.Warnings = append(st.rep.Warnings, Warning{
			Line: st.lineNumber, Expected: st.expected, Found: n, Name: name,
			Chapter: st.chapter, City: st.city,
		})
	}
	st.expected = n + 1
}

// 文档注释：转换文件
// 背景：输入通常有数十 MB，开启 ShowProgress 时按读取字节数在 stderr 显示进度
func (c *Converter) ConvertFile(in, out string) (Report, error) {
	start := time.Now()
	src, err := os.Open(in)
	if err != nil {
		return Report{}, fmt.Errorf("convert: open %s: %w", in, err)
	}
	defer src.Close()
	dst, err := os.Create(out)
	if err != nil {
		return Report{}, fmt.Errorf("convert: create %s: %w", out, err)
	}

	var r io.Reader = src
	if c.opts.ShowProgress {
		bar, err := progressBar(src, "converting")
		if err == nil {
			r = io.TeeReader(src, bar)
			defer bar.Finish()
		}
	}
	rep, err := c.Convert(r, dst)
	if cerr := dst.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("convert: close %s: %w", out, cerr)
	}
	if err != nil {
		return rep, err
	}
	for _, w := range rep.Warnings {
		logger.L().Warn("convert_numbering", "detail", w.String())
	}
	logger.L().Info("convert_done",
		"in", in, "out", out,
		"lines", rep.Lines, "chapters", rep.Chapters, "cities", rep.Cities, "entries", rep.Entries,
		"warnings", len(rep.Warnings),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return rep, nil
}

func progressBar(f *os.File, description string) (*progressbar.ProgressBar, error) {
	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to get file stats: %w", err)
	}
	return progressbar.NewOptions64(
		stat.Size(),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(os.Stderr) }),
	), nil
}
