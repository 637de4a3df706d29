package api

import (
	"net/http"
	"strconv"
	"strings"

	"jiuyu/internal/geo"
	"jiuyu/internal/metrics"
	"jiuyu/internal/region"
)

// 定位结果；缓存值与坐标无关的部分
type locateResult struct {
	Found     bool         `json:"found"`
	Name      string       `json:"name,omitempty"`
	Level     region.Level `json:"level,omitempty"`
	LevelText string       `json:"level_text,omitempty"`
	Code      string       `json:"adcode,omitempty"`
	Path      []string     `json:"path,omitempty"`
	InCountry *bool        `json:"in_country,omitempty"`
}

type locateResponse struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	CoordSys string  `json:"coord_sys"`
	locateResult
}

// 文档注释：坐标反查行政区
// 背景：输入可为 WGS84/GCJ-02/BD-09，统一转换为 WGS84 后在快照中查找最深层包含该点的节点
// 约束：结果按 (快照版本, 转换后的精确坐标) 缓存在进程内 LRU，命中只来自同一点；坐标越界或无法解析返回 400
func (s *Server) handleLocate(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	snap := s.snapshot(w)
	if snap == nil {
		return
	}
	q := r.URL.Query()
	lat, err1 := strconv.ParseFloat(q.Get("lat"), 64)
	lon, err2 := strconv.ParseFloat(q.Get("lon"), 64)
	if err1 != nil || err2 != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		writeError(w, http.StatusBadRequest, "invalid lat/lon")
		return
	}
	cs := q.Get("coord_sys")
	if cs == "" {
		cs = s.cfg.CoordSys
	}
	coordSys, ok := parseCoordSys(cs)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown coord_sys")
		return
	}
	pt := geo.ToWGS84(geo.Point{Lat: lat, Lon: lon}, coordSys)
	key := snap.Version() + ":" + geo.CoordKey(pt)
	res, hit := s.locate.Get(key)
	if hit {
		metrics.LocateCacheHitsTotal.Inc()
	} else {
		if n, path, found := snap.Locate(pt); found {
			res = locateResult{
				Found:     true,
				Name:      n.Name,
				Level:     n.Level,
				LevelText: n.Level.String(),
				Code:      n.Code,
				Path:      path,
			}
		}
		if snap.Country != nil {
			in := snap.Country.Contains(pt)
			res.InCountry = &in
		}
		s.locate.Set(key, res)
	}
	writeJSON(w, http.StatusOK, locateResponse{Lat: pt.Lat, Lon: pt.Lon, CoordSys: geo.CoordWGS84, locateResult: res})
}

func parseCoordSys(s string) (string, bool) {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "")) {
	case "", "WGS84":
		return geo.CoordWGS84, true
	case "GCJ02":
		return geo.CoordGCJ02, true
	case "BD09":
		return geo.CoordBD09, true
	}
	return "", false
}
