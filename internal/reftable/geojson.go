package reftable

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"jiuyu/internal/config"
	"jiuyu/internal/geo"
)

// 文档注释：读取 GeoJSON 参照表
// 背景：接受 FeatureCollection 或单个 Feature；属性中按列名取名称、adcode 与上级 adcode
// 约束：
// - 所有要素都缺少名称列或 adcode 列时返回 ErrMissingColumn；配置了上级列而所有要素都缺少该列时同样报错
// - 几何不是 Polygon/MultiPolygon 的要素保留属性，边界为空
func ReadGeoJSON(r io.Reader, kind Kind, cols config.Columns) (*Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var gj map[string]any
	if err := dec.Decode(&gj); err != nil {
		return nil, fmt.Errorf("reftable: decode geojson: %w", err)
	}
	var feats []map[string]any
	switch strings.ToLower(stringOf(gj["type"])) {
	case "featurecollection":
		arr, _ := gj["features"].([]any)
		for _, it := range arr {
			if f, ok := it.(map[string]any); ok {
				feats = append(feats, f)
			}
		}
	case "feature":
		feats = append(feats, gj)
	default:
		return nil, fmt.Errorf("%w: geojson type %q", ErrUnknownFormat, stringOf(gj["type"]))
	}

	t := &Table{Kind: kind, Rows: make([]Row, 0, len(feats))}
	var seenName, seenCode, seenParent bool
	for _, f := range feats {
		props, _ := f["properties"].(map[string]any)
		row := Row{Attrs: make(map[string]string, len(props))}
		for k, v := range props {
			row.Attrs[k] = attrString(v)
		}
		if v, ok := props[cols.Name]; ok {
			seenName = true
			row.Name = strings.TrimSpace(attrString(v))
		}
		if v, ok := props[cols.Code]; ok {
			seenCode = true
			row.Code = CanonicalCode(v)
		}
		if cols.Parent != "" {
			if v, ok := props[cols.Parent]; ok {
				seenParent = true
				row.ParentCode = CanonicalCode(v)
			}
		}
		if g, ok := f["geometry"].(map[string]any); ok {
			if b, err := geo.FromGeometry(g); err == nil {
				row.Geometry = b
			}
		}
		t.Rows = append(t.Rows, row)
	}
	if len(feats) > 0 {
		switch {
		case !seenName:
			return nil, fmt.Errorf("%w: %s.%s", ErrMissingColumn, kind, cols.Name)
		case !seenCode:
			return nil, fmt.Errorf("%w: %s.%s", ErrMissingColumn, kind, cols.Code)
		case cols.Parent != "" && !seenParent:
			return nil, fmt.Errorf("%w: %s.%s", ErrMissingColumn, kind, cols.Parent)
		}
	}
	return t, nil
}

// LoadGeoJSON 从文件读取。
func LoadGeoJSON(path string, kind Kind, cols config.Columns) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reftable: open %s: %w", path, err)
	}
	defer f.Close()
	t, err := ReadGeoJSON(f, kind, cols)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func stringOf(v any) string {
	s, _ := v.(string)
	return s
}

func attrString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool, float64:
		return fmt.Sprint(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
