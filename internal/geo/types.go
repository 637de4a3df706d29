// 包 geo：行政区边界的内存表示与空间判定
package geo

// 文档注释：点坐标（WGS84，经度在前的 GeoJSON 顺序只在编解码时出现）
type Point struct {
	Lat float64
	Lon float64
}

// Polygon：按 GeoJSON 约定的环集合，第一环是外环，其后为洞
type Polygon struct {
	Rings [][]Point
	BBox  [4]float64 // minLon, minLat, maxLon, maxLat
}

// 文档注释：一个行政区的完整边界，可由多个面组成（MultiPolygon）
// 约束：零个面的 Boundary 视为空，Contains 恒为 false。
type Boundary struct {
	Polys []Polygon
}

// NewPolygon 由环构造面并计算包围盒。
func NewPolygon(rings [][]Point) Polygon {
	p := Polygon{Rings: rings}
	p.BBox = computeBBox(p)
	return p
}

// Empty 报告边界是否不含任何有效外环。
func (b *Boundary) Empty() bool {
	if b == nil {
		return true
	}
	for _, p := range b.Polys {
		if len(p.Rings) > 0 && len(p.Rings[0]) > 0 {
			return false
		}
	}
	return true
}

// BBox 返回所有面的合并包围盒；空边界返回零值与 false。
func (b *Boundary) BBox() ([4]float64, bool) {
	if b.Empty() {
		return [4]float64{}, false
	}
	out := [4]float64{180, 90, -180, -90}
	for _, p := range b.Polys {
		if len(p.Rings) == 0 {
			continue
		}
		if p.BBox[0] < out[0] {
			out[0] = p.BBox[0]
		}
		if p.BBox[1] < out[1] {
			out[1] = p.BBox[1]
		}
		if p.BBox[2] > out[2] {
			out[2] = p.BBox[2]
		}
		if p.BBox[3] > out[3] {
			out[3] = p.BBox[3]
		}
	}
	return out, true
}

func computeBBox(p Polygon) [4]float64 {
	b := [4]float64{180, 90, -180, -90}
	for _, r := range p.Rings {
		for _, pt := range r {
			if pt.Lon < b[0] {
				b[0] = pt.Lon
			}
			if pt.Lat < b[1] {
				b[1] = pt.Lat
			}
			if pt.Lon > b[2] {
				b[2] = pt.Lon
			}
			if pt.Lat > b[3] {
				b[3] = pt.Lat
			}
		}
	}
	return b
}
