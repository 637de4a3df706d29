// 包 linker：按层级作用域将解析出的森林与参照表对齐，补充 adcode 与边界
//
// 背景：同名市/区在不同上级下大量存在（如各地的"城关区"），扁平的名称匹配会串号；
// 因此市只在所属省的 adcode 范围内匹配，区县只在所属市的 adcode 范围内匹配。
// 约束：
// - 只做归一化名称的相等比较，不做模糊匹配
// - 同一作用域内多行同名时取表中首行，并计入 Ambiguous
// - 省、市、区县任一表缺失或为空时整体跳过，森林保持原样
package linker

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"jiuyu/internal/logger"
	"jiuyu/internal/metrics"
	"jiuyu/internal/normalize"
	"jiuyu/internal/reftable"
	"jiuyu/internal/region"
)

// Options 链接选项
type Options struct {
	// Normalizer 为 nil 时使用默认后缀
	Normalizer *normalize.Normalizer
	// Workers 大于 1 时按省级分支并行
	Workers int
}

// Report 单次链接结果；计数数组的下标为层级，0 不用
type Report struct {
	Skipped   bool          `json:"skipped"`
	Linked    [4]int        `json:"linked"`
	Missed    [4]int        `json:"missed"`
	Ambiguous [4]int        `json:"ambiguous"`
	Duration  time.Duration `json:"duration_ns"`
}

// TotalLinked 三层合计
func (r Report) TotalLinked() int { return r.Linked[1] + r.Linked[2] + r.Linked[3] }

// TotalAmbiguous 三层合计
func (r Report) TotalAmbiguous() int { return r.Ambiguous[1] + r.Ambiguous[2] + r.Ambiguous[3] }

func (r *Report) merge(o Report) {
	for i := range r.Linked {
		r.Linked[i] += o.Linked[i]
		r.Missed[i] += o.Missed[i]
		r.Ambiguous[i] += o.Ambiguous[i]
	}
}

type Linker struct {
	norm    *normalize.Normalizer
	workers int
}

func New(opts Options) *Linker {
	n := opts.Normalizer
	if n == nil {
		n = normalize.New(nil)
	}
	w := opts.Workers
	if w < 1 {
		w = 1
	}
	return &Linker{norm: n, workers: w}
}

// entry 同一作用域内某归一化名称的首行及其出现次数
type entry struct {
	row   int
	count int
}

// index 作用域 → 归一化名称 → 首行
type index map[string]map[string]entry

// buildIndex 按表顺序建立索引；scoped 为 false 时所有行位于空作用域。
func (l *Linker) buildIndex(t *reftable.Table, scoped bool) index {
	idx := make(index)
	for i, row := range t.Rows {
		scope := ""
		if scoped {
			scope = row.ParentCode
			if scope == "" {
				continue
			}
		}
		byName, ok := idx[scope]
		if !ok {
			byName = make(map[string]entry)
			idx[scope] = byName
		}
		key := l.norm.Name(row.Name)
		if e, ok := byName[key]; ok {
			e.count++
			byName[key] = e
			continue
		}
		byName[key] = entry{row: i, count: 1}
	}
	return idx
}

// lookup 空 scope 只在非作用域索引中有效，作用域索引中的空 scope 不匹配任何行。
func (idx index) lookup(scope, key string) (entry, bool) {
	byName, ok := idx[scope]
	if !ok {
		return entry{}, false
	}
	e, ok := byName[key]
	return e, ok
}

type indexes struct {
	prov, city, dist    index
	provT, cityT, distT *reftable.Table
}

// 文档注释：链接整片森林（就地修改并返回同一森林）
// 约束：
// - Workers>1 时每个省级分支由单个 goroutine 处理，分支之间不共享可写状态
// - 已有 Code 的节点不会被覆盖
// - ctx 取消时尚未开始的分支不再处理，已处理的分支保持结果
func (l *Linker) Link(ctx context.Context, forest []*region.Region, ts reftable.Tables) ([]*region.Region, Report) {
	start := time.Now()
	var rep Report
	if !ts.Ready() {
		rep.Skipped = true
		metrics.LinkSkippedTotal.Inc()
		logger.L().Warn("link_skipped",
			"province_rows", ts.Province.Len(),
			"city_rows", ts.City.Len(),
			"district_rows", ts.District.Len(),
		)
		return forest, rep
	}
	ix := indexes{
		prov:  l.buildIndex(ts.Province, false),
		city:  l.buildIndex(ts.City, true),
		dist:  l.buildIndex(ts.District, true),
		provT: ts.Province,
		cityT: ts.City,
		distT: ts.District,
	}

	reps := make([]Report, len(forest))
	if l.workers == 1 {
		for i, p := range forest {
			if ctx.Err() != nil {
				break
			}
			reps[i] = l.linkBranch(p, &ix)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(l.workers)
		for i, p := range forest {
			i, p := i, p
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				reps[i] = l.linkBranch(p, &ix)
				return nil
			})
		}
		_ = g.Wait()
	}
	for _, r := range reps {
		rep.merge(r)
	}
	rep.Duration = time.Since(start)
	observe(rep)
	logger.L().Info("link_done",
		"linked_province", rep.Linked[1],
		"linked_city", rep.Linked[2],
		"linked_district", rep.Linked[3],
		"missed", rep.Missed[1]+rep.Missed[2]+rep.Missed[3],
		"ambiguous", rep.TotalAmbiguous(),
		"workers", l.workers,
		"duration_ms", rep.Duration.Milliseconds(),
	)
	return forest, rep
}

// linkBranch 处理单个省级分支，只写该分支内的节点。
func (l *Linker) linkBranch(p *region.Region, ix *indexes) Report {
	var rep Report
	if p == nil {
		return rep
	}
	l.match(p, ix.prov, ix.provT, "", &rep)
	for _, c := range p.Children {
		l.match(c, ix.city, ix.cityT, p.Code, &rep)
		for _, d := range c.Children {
			l.match(d, ix.dist, ix.distT, c.Code, &rep)
		}
	}
	return rep
}

// match scoped 索引中 scope 为空（上级未链接）时必然未命中。
func (l *Linker) match(n *region.Region, idx index, t *reftable.Table, scope string, rep *Report) {
	lvl := int(n.Level)
	if lvl < 1 || lvl > 3 {
		return
	}
	if n.Code != "" {
		rep.Linked[lvl]++
		return
	}
	e, ok := idx.lookup(scope, l.norm.Name(n.Name))
	if !ok {
		rep.Missed[lvl]++
		logger.L().Debug("link_miss", "name", n.Name, "level", lvl, "scope", scope)
		return
	}
	row := t.Rows[e.row]
	n.Code = row.Code
	if n.Geometry == nil && !row.Geometry.Empty() {
		n.Geometry = row.Geometry
	}
	rep.Linked[lvl]++
	if e.count > 1 {
		rep.Ambiguous[lvl]++
		logger.L().Debug("link_ambiguous", "name", n.Name, "level", lvl, "candidates", e.count, "code", row.Code)
	}
}

func observe(rep Report) {
	for lvl := 1; lvl <= 3; lvl++ {
		label := strconv.Itoa(lvl)
		metrics.LinkMatchedTotal.WithLabelValues(label).Add(float64(rep.Linked[lvl]))
		metrics.LinkMissedTotal.WithLabelValues(label).Add(float64(rep.Missed[lvl]))
		metrics.LinkAmbiguousTotal.WithLabelValues(label).Add(float64(rep.Ambiguous[lvl]))
	}
	metrics.LinkDurationMs.Observe(float64(rep.Duration.Milliseconds()))
}
