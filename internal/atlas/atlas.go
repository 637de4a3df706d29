// 包 atlas：解析 + 加载 + 链接的完整流程，以及对外发布的只读快照
//
// 背景：API 与命令行工具都需要同一份链接后的森林；服务重载时新快照构建完成后整体替换旧快照，
// 读路径不加锁。
// 约束：快照发布后不再修改；构建失败时旧快照保持可用。
package atlas

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"jiuyu/internal/config"
	"jiuyu/internal/geo"
	"jiuyu/internal/linker"
	"jiuyu/internal/logger"
	"jiuyu/internal/normalize"
	"jiuyu/internal/parser"
	"jiuyu/internal/reftable"
	"jiuyu/internal/region"
)

// Snapshot 一次完整构建的结果
type Snapshot struct {
	Forest  []*region.Region
	Country *geo.Boundary
	Tables  reftable.Tables
	Report  linker.Report
	Stats   region.Stats
	BuiltAt time.Time
}

// Version 快照版本标识，用作缓存键的一部分。
func (s *Snapshot) Version() string {
	if s == nil {
		return "0"
	}
	return strconv.FormatInt(s.BuiltAt.UnixNano(), 36)
}

// Builder 按配置构建快照；src 为 nil 时只能使用文件来源的参照表。
type Builder struct {
	cfg *config.Config
	src reftable.RowSource
}

func NewBuilder(cfg *config.Config, src reftable.RowSource) *Builder {
	return &Builder{cfg: cfg, src: src}
}

// ParserOptions 由配置得到解析选项。
func ParserOptions(cfg *config.Config) parser.Options {
	return parser.Options{
		MidOrdinalMax:    cfg.MidOrdinalMax,
		MidOrdinalsExtra: cfg.MidOrdinalsExtra,
		BottomMax:        cfg.BottomMax,
		Encoding:         cfg.DocEncoding,
	}
}

// LinkerOptions 由配置得到链接选项。
func LinkerOptions(cfg *config.Config) linker.Options {
	return linker.Options{
		Normalizer: normalize.New(cfg.NormSuffixes),
		Workers:    cfg.LinkWorkers,
	}
}

// 文档注释：构建快照
// 背景：文档缺失与参照表加载失败都只记录日志，得到的快照分别为空森林或未链接森林
// 约束：只有 ctx 取消与文档读取失败（文件存在但不可读）会返回错误
func (b *Builder) Build(ctx context.Context) (*Snapshot, error) {
	start := time.Now()
	forest, err := parser.New(ParserOptions(b.cfg)).ParseFile(b.cfg.DocPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("atlas: %w", err)
		}
		logger.L().Warn("document_missing", "path", b.cfg.DocPath)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ts, err := reftable.LoadAll(ctx, b.cfg, b.src)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.L().Warn("reftable_partial", "err", err)
	}

	forest, rep := linker.New(LinkerOptions(b.cfg)).Link(ctx, forest, ts)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := &Snapshot{
		Forest:  forest,
		Country: countryBoundary(ts.Country),
		Tables:  ts,
		Report:  rep,
		Stats:   region.Count(forest),
		BuiltAt: time.Now(),
	}
	logger.L().Info("snapshot_built",
		"nodes", s.Stats.Nodes(),
		"linked", rep.TotalLinked(),
		"skipped", rep.Skipped,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return s, nil
}

// 国家表可能拆成多行（本土与岛屿），合并为一个边界
func countryBoundary(t *reftable.Table) *geo.Boundary {
	if t.Empty() {
		return nil
	}
	var b geo.Boundary
	for _, r := range t.Rows {
		if r.Geometry != nil {
			b.Polys = append(b.Polys, r.Geometry.Polys...)
		}
	}
	if b.Empty() {
		return nil
	}
	return &b
}

// 文档注释：查找包含该点的最深层行政区
// 约束：
// - 有边界且不包含该点的节点整支跳过；没有边界的节点继续检查其子节点
// - 同层多个节点包含该点时取文档顺序中的第一个
// - 返回的 path 为新分配的切片
func (s *Snapshot) Locate(pt geo.Point) (*region.Region, []string, bool) {
	if s == nil {
		return nil, nil, false
	}
	n, path := locateIn(s.Forest, pt, nil)
	return n, path, n != nil
}

func locateIn(nodes []*region.Region, pt geo.Point, path []string) (*region.Region, []string) {
	for _, n := range nodes {
		if n == nil {
			continue
		}
		p := append(path[:len(path):len(path)], n.Name)
		if n.Geometry.Empty() {
			if hit, hp := locateIn(n.Children, pt, p); hit != nil {
				return hit, hp
			}
			continue
		}
		if !n.Geometry.Contains(pt) {
			continue
		}
		if hit, hp := locateIn(n.Children, pt, p); hit != nil {
			return hit, hp
		}
		return n, p
	}
	return nil, nil
}
