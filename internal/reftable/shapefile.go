package reftable

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"

	"jiuyu/internal/config"
	"jiuyu/internal/geo"
	"jiuyu/internal/textenc"
)

// 文档注释：读取 Shapefile 参照表（.shp + .dbf）
// 背景：属性编码优先取 enc 参数，其次读取同名 .cpg；都没有时按 UTF-8 读取，无效 UTF-8 的值回退为 GBK 解码
// 约束：面要素的各部分按环方向分组，顺时针为外环、逆时针为洞（ESRI 约定）；非面要素只保留属性
func LoadShapefile(path string, kind Kind, cols config.Columns, enc string) (*Table, error) {
	if enc == "" {
		enc = readCPG(path)
	}
	decoding, err := textenc.Lookup(enc)
	if err != nil {
		return nil, fmt.Errorf("reftable: %s: %w", path, err)
	}
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reftable: open %s: %w", path, err)
	}
	defer r.Close()

	fields := r.Fields()
	names := make([]string, len(fields))
	idx := make(map[string]int, len(fields))
	for i, f := range fields {
		names[i] = strings.TrimRight(f.String(), "\x00 ")
		idx[strings.ToLower(names[i])] = i
	}
	col := func(name string) (int, error) {
		i, ok := idx[strings.ToLower(name)]
		if !ok {
			return -1, fmt.Errorf("%w: %s.%s in %s", ErrMissingColumn, kind, name, path)
		}
		return i, nil
	}
	nameIdx, err := col(cols.Name)
	if err != nil {
		return nil, err
	}
	codeIdx, err := col(cols.Code)
	if err != nil {
		return nil, err
	}
	parentIdx := -1
	if cols.Parent != "" {
		if parentIdx, err = col(cols.Parent); err != nil {
			return nil, err
		}
	}

	t := &Table{Kind: kind}
	for r.Next() {
		n, shape := r.Shape()
		attr := func(i int) string {
			return decodeAttr(r.ReadAttribute(n, i), decoding)
		}
		row := Row{
			Name:  strings.TrimSpace(attr(nameIdx)),
			Code:  CanonicalCode(attr(codeIdx)),
			Attrs: make(map[string]string, len(names)),
		}
		if parentIdx >= 0 {
			row.ParentCode = CanonicalCode(attr(parentIdx))
		}
		for i, name := range names {
			row.Attrs[name] = attr(i)
		}
		row.Geometry = boundaryFromShape(shape)
		t.Rows = append(t.Rows, row)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("reftable: read %s: %w", path, err)
	}
	return t, nil
}

func readCPG(shpPath string) string {
	cpg := strings.TrimSuffix(shpPath, filepath.Ext(shpPath)) + ".cpg"
	b, err := os.ReadFile(cpg)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

func decodeAttr(s string, enc encoding.Encoding) string {
	s = strings.Trim(s, "\x00 ")
	if enc != encoding.Nop {
		return textenc.String(s, enc)
	}
	if !utf8.ValidString(s) {
		return textenc.String(s, simplifiedchinese.GBK)
	}
	return s
}

func boundaryFromShape(s shp.Shape) *geo.Boundary {
	var parts []int32
	var pts []shp.Point
	switch p := s.(type) {
	case *shp.Polygon:
		parts, pts = p.Parts, p.Points
	case *shp.PolygonZ:
		parts, pts = p.Parts, p.Points
	case *shp.PolygonM:
		parts, pts = p.Parts, p.Points
	default:
		return nil
	}
	return groupRings(splitParts(parts, pts))
}

func splitParts(parts []int32, pts []shp.Point) [][]geo.Point {
	var rings [][]geo.Point
	for i, start := range parts {
		end := int32(len(pts))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || start >= end || int(end) > len(pts) {
			continue
		}
		ring := make([]geo.Point, 0, end-start)
		for _, p := range pts[start:end] {
			ring = append(ring, geo.Point{Lat: p.Y, Lon: p.X})
		}
		rings = append(rings, ring)
	}
	return rings
}

// groupRings 顺时针环开启新面，逆时针环作为当前面的洞；首个环总是外环。
func groupRings(rings [][]geo.Point) *geo.Boundary {
	if len(rings) == 0 {
		return nil
	}
	b := &geo.Boundary{}
	var cur [][]geo.Point
	for _, ring := range rings {
		if geo.SignedArea(ring) <= 0 || cur == nil {
			if cur != nil {
				b.Polys = append(b.Polys, geo.NewPolygon(cur))
			}
			cur = [][]geo.Point{ring}
			continue
		}
		cur = append(cur, ring)
	}
	b.Polys = append(b.Polys, geo.NewPolygon(cur))
	return b
}
