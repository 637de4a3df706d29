package geo

// Contains 报告点是否落在任一面内；每个面先按包围盒过滤。
func (b *Boundary) Contains(pt Point) bool {
	if b == nil {
		return false
	}
	for _, p := range b.Polys {
		if p.Contains(pt) {
			return true
		}
	}
	return false
}

// 文档注释：面内判定
// 约束：点在外环内且不在任何洞内视为命中；环的方向与是否闭合不影响结果；
// 恰好落在边上的点结果取决于边的走向，调用方不应依赖。
func (p Polygon) Contains(pt Point) bool {
	if len(p.Rings) == 0 {
		return false
	}
	if pt.Lon < p.BBox[0] || pt.Lon > p.BBox[2] || pt.Lat < p.BBox[1] || pt.Lat > p.BBox[3] {
		return false
	}
	if winding(pt, p.Rings[0]) == 0 {
		return false
	}
	for _, hole := range p.Rings[1:] {
		if winding(pt, hole) != 0 {
			return false
		}
	}
	return true
}

// winding 计算环绕数；非零即在环内。
func winding(pt Point, ring []Point) int {
	n := len(ring)
	if n < 3 {
		return 0
	}
	wn := 0
	for i := 0; i < n; i++ {
		a, b := ring[i], ring[(i+1)%n]
		switch {
		case a.Lat <= pt.Lat && b.Lat > pt.Lat:
			if side(a, b, pt) > 0 {
				wn++
			}
		case a.Lat > pt.Lat && b.Lat <= pt.Lat:
			if side(a, b, pt) < 0 {
				wn--
			}
		}
	}
	return wn
}

// side 大于零表示 pt 在有向边 a→b 的左侧。
func side(a, b, pt Point) float64 {
	return (b.Lon-a.Lon)*(pt.Lat-a.Lat) - (pt.Lon-a.Lon)*(b.Lat-a.Lat)
}
