package geo

import (
	"math"

	"github.com/golang/geo/s2"
)

// 文档注释：面积加权质心（平面近似，按外环计算，忽略洞）
// 约束：退化环（面积为零）回退到顶点平均；空边界返回 false。
func (b *Boundary) Centroid() (Point, bool) {
	if b.Empty() {
		return Point{}, false
	}
	var sumA, sumX, sumY float64
	var n int
	var avgX, avgY float64
	for _, p := range b.Polys {
		if len(p.Rings) == 0 {
			continue
		}
		ring := p.Rings[0]
		a, cx, cy := ringCentroid(ring)
		if a != 0 {
			sumA += a
			sumX += cx * a
			sumY += cy * a
		}
		for _, pt := range ring {
			avgX += pt.Lon
			avgY += pt.Lat
			n++
		}
	}
	if sumA != 0 {
		return Point{Lon: sumX / sumA, Lat: sumY / sumA}, true
	}
	if n == 0 {
		return Point{}, false
	}
	return Point{Lon: avgX / float64(n), Lat: avgY / float64(n)}, true
}

// ringCentroid 返回带符号面积（按绝对值参与加权）与质心。
func ringCentroid(ring []Point) (float64, float64, float64) {
	n := len(ring)
	if n < 3 {
		return 0, 0, 0
	}
	var a, cx, cy float64
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		cross := ring[j].Lon*ring[i].Lat - ring[i].Lon*ring[j].Lat
		a += cross
		cx += (ring[j].Lon + ring[i].Lon) * cross
		cy += (ring[j].Lat + ring[i].Lat) * cross
	}
	if a == 0 {
		return 0, 0, 0
	}
	a /= 2
	cx /= 6 * a
	cy /= 6 * a
	return math.Abs(a), cx, cy
}

// SignedArea 环的带符号面积：逆时针为正，顺时针为负。
func SignedArea(ring []Point) float64 {
	n := len(ring)
	var a float64
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a += ring[j].Lon*ring[i].Lat - ring[i].Lon*ring[j].Lat
	}
	return a / 2
}

// CellToken 返回点所在的 S2 单元在指定层级的 token。
func CellToken(pt Point, level int) string {
	if level < 0 {
		level = 0
	}
	if level > s2.MaxLevel {
		level = s2.MaxLevel
	}
	cell := s2.CellIDFromLatLng(s2.LatLngFromDegrees(pt.Lat, pt.Lon))
	return cell.Parent(level).ToToken()
}
