package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedGeometry 几何类型不是 Polygon/MultiPolygon。
var ErrUnsupportedGeometry = errors.New("geo: unsupported geometry type")

// 文档注释：从已解码的 GeoJSON geometry 对象构造边界
// 约束：仅支持 Polygon/MultiPolygon；坐标为 [lon, lat]，多余维度忽略；其它类型返回 ErrUnsupportedGeometry。
func FromGeometry(g map[string]any) (*Boundary, error) {
	if g == nil {
		return nil, nil
	}
	gt := strings.ToLower(getStr(g, "type"))
	coords, _ := g["coordinates"].([]any)
	b := &Boundary{}
	switch gt {
	case "polygon":
		b.Polys = append(b.Polys, NewPolygon(ringsFromAny(coords)))
	case "multipolygon":
		for _, part := range coords {
			rings, _ := part.([]any)
			b.Polys = append(b.Polys, NewPolygon(ringsFromAny(rings)))
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedGeometry, getStr(g, "type"))
	}
	return b, nil
}

func ringsFromAny(coords []any) [][]Point {
	var out [][]Point
	for _, ring := range coords {
		arr, ok := ring.([]any)
		if !ok {
			continue
		}
		var rr []Point
		for _, p := range arr {
			if vv, ok := p.([]any); ok && len(vv) >= 2 {
				rr = append(rr, Point{Lat: toFloat(vv[1]), Lon: toFloat(vv[0])})
			}
		}
		out = append(out, rr)
	}
	return out
}

type geometryJSON struct {
	Type        string `json:"type"`
	Coordinates any    `json:"coordinates"`
}

// MarshalJSON 以 GeoJSON geometry 输出：单面为 Polygon，多面为 MultiPolygon。
func (b Boundary) MarshalJSON() ([]byte, error) {
	ringsOut := func(p Polygon) [][][2]float64 {
		rs := make([][][2]float64, 0, len(p.Rings))
		for _, r := range p.Rings {
			pts := make([][2]float64, 0, len(r))
			for _, pt := range r {
				pts = append(pts, [2]float64{pt.Lon, pt.Lat})
			}
			rs = append(rs, pts)
		}
		return rs
	}
	if len(b.Polys) == 1 {
		return json.Marshal(geometryJSON{Type: "Polygon", Coordinates: ringsOut(b.Polys[0])})
	}
	parts := make([][][][2]float64, 0, len(b.Polys))
	for _, p := range b.Polys {
		parts = append(parts, ringsOut(p))
	}
	return json.Marshal(geometryJSON{Type: "MultiPolygon", Coordinates: parts})
}

// UnmarshalJSON 接受 Polygon/MultiPolygon geometry。
func (b *Boundary) UnmarshalJSON(data []byte) error {
	var g map[string]any
	if err := json.Unmarshal(data, &g); err != nil {
		return err
	}
	out, err := FromGeometry(g)
	if err != nil {
		return err
	}
	if out == nil {
		b.Polys = nil
		return nil
	}
	*b = *out
	return nil
}

func getStr(m map[string]any, k string) string {
	if v, ok := m[k].(string); ok {
		return v
	}
	return ""
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case json.Number:
		f, _ := x.Float64()
		return f
	default:
		return 0
	}
}
