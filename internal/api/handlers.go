package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"jiuyu/internal/atlas"
	"jiuyu/internal/cache"
	"jiuyu/internal/geo"
	"jiuyu/internal/linker"
	"jiuyu/internal/logger"
	"jiuyu/internal/region"
)

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	snap := s.snapshot(w)
	if snap == nil {
		return
	}
	writeJSON(w, http.StatusOK, region.OutlineOf(snap.Forest))
}

type pointJSON struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// 单个节点详情
type regionDetail struct {
	region.Summary
	Path       []string      `json:"path"`
	ParentCode string        `json:"parent_adcode,omitempty"`
	Centroid   *pointJSON    `json:"centroid,omitempty"`
	Cell       string        `json:"s2_cell,omitempty"`
	Geometry   *geo.Boundary `json:"geometry,omitempty"`
}

// 文档注释：按路径查询节点详情
// 约束：path 形如 "广东省/广州市"；geometry=0 时不返回边界，质心与 s2 单元仍返回
func (s *Server) handleRegion(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	snap := s.snapshot(w)
	if snap == nil {
		return
	}
	q := r.URL.Query()
	p := q.Get("path")
	if strings.TrimSpace(p) == "" {
		writeError(w, http.StatusBadRequest, "missing path")
		return
	}
	n, ok := region.FindPath(snap.Forest, p)
	if !ok {
		writeError(w, http.StatusNotFound, "region not found")
		return
	}
	d := regionDetail{
		Summary:    region.Describe(n),
		Path:       pathOf(snap.Forest, n),
		ParentCode: n.ParentCode,
	}
	if c, ok := n.Geometry.Centroid(); ok {
		d.Centroid = &pointJSON{Lat: c.Lat, Lon: c.Lon}
		d.Cell = geo.CellToken(c, s.cfg.S2CellLevel)
	}
	if q.Get("geometry") != "0" && !n.Geometry.Empty() {
		d.Geometry = n.Geometry
	}
	writeJSON(w, http.StatusOK, d)
}

func pathOf(forest []*region.Region, target *region.Region) []string {
	var out []string
	region.Walk(forest, func(n *region.Region, path []string) bool {
		if n == target {
			out = append([]string(nil), path...)
			return false
		}
		return true
	})
	return out
}

type searchHit struct {
	Name      string       `json:"name"`
	Level     region.Level `json:"level"`
	LevelText string       `json:"level_text"`
	Code      string       `json:"adcode,omitempty"`
	Path      string       `json:"path"`
}

type searchResponse struct {
	Query     string      `json:"query"`
	Total     int         `json:"total"`
	Truncated bool        `json:"truncated"`
	Results   []searchHit `json:"results"`
}

// 文档注释：名称子串搜索
// 背景：结果只依赖快照与查询词，按快照版本缓存到 Redis
// 约束：不足两个字符返回 400；结果最多 SEARCH_LIMIT 条，total 为截断前总数
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	snap := s.snapshot(w)
	if snap == nil {
		return
	}
	ctx := r.Context()
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	key := cache.Key("search", snap.Version(), q)
	if b, ok := s.cache.Get(ctx, key); ok {
		writeRaw(w, http.StatusOK, b)
		return
	}
	hits, err := region.Search(snap.Forest, q)
	if errors.Is(err, region.ErrQueryTooShort) {
		writeError(w, http.StatusBadRequest, "query must have at least 2 characters")
		return
	}
	res := searchResponse{Query: q, Total: len(hits), Results: make([]searchHit, 0, len(hits))}
	for _, h := range hits {
		if s.cfg.SearchLimit > 0 && len(res.Results) >= s.cfg.SearchLimit {
			res.Truncated = true
			break
		}
		res.Results = append(res.Results, searchHit{
			Name:      h.Region.Name,
			Level:     h.Region.Level,
			LevelText: h.Region.Level.String(),
			Code:      h.Region.Code,
			Path:      h.PathString(),
		})
	}
	b, err := json.Marshal(res)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encode error")
		return
	}
	s.cache.Set(ctx, key, b)
	writeRaw(w, http.StatusOK, b)
}

type countryFeature struct {
	Type       string            `json:"type"`
	Properties map[string]string `json:"properties"`
	Geometry   *geo.Boundary     `json:"geometry"`
}

func (s *Server) handleCountry(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	snap := s.snapshot(w)
	if snap == nil {
		return
	}
	if snap.Country == nil {
		writeError(w, http.StatusNotFound, "country boundary not loaded")
		return
	}
	props := map[string]string{}
	if t := snap.Tables.Country; !t.Empty() {
		props["name"] = t.Rows[0].Name
		props["code"] = t.Rows[0].Code
	}
	writeJSON(w, http.StatusOK, countryFeature{Type: "Feature", Properties: props, Geometry: snap.Country})
}

type statsResponse struct {
	Version string         `json:"version"`
	BuiltAt time.Time      `json:"built_at"`
	Nodes   int            `json:"nodes"`
	Levels  region.Stats   `json:"levels"`
	Link    linker.Report  `json:"link"`
	Tables  map[string]int `json:"tables"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	snap := s.snapshot(w)
	if snap == nil {
		return
	}
	writeJSON(w, http.StatusOK, statsOf(snap))
}

func statsOf(snap *atlas.Snapshot) statsResponse {
	tables := map[string]int{
		"country":  snap.Tables.Country.Len(),
		"province": snap.Tables.Province.Len(),
		"city":     snap.Tables.City.Len(),
		"district": snap.Tables.District.Len(),
	}
	return statsResponse{
		Version: snap.Version(),
		BuiltAt: snap.BuiltAt,
		Nodes:   snap.Stats.Nodes(),
		Levels:  snap.Stats,
		Link:    snap.Report,
		Tables:  tables,
	}
}

// 文档注释：重建快照
// 约束：仅 POST；x-admin-token 必须与 ADMIN_TOKEN 一致且后者非空；客户端断开不会中止重建
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	t := r.Header.Get("x-admin-token")
	if s.cfg.AdminToken == "" || subtle.ConstantTimeCompare([]byte(t), []byte(s.cfg.AdminToken)) != 1 {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	if s.reload == nil {
		writeError(w, http.StatusNotImplemented, "reload not configured")
		return
	}
	ctx := context.WithoutCancel(r.Context())
	snap, err := s.holder.Reload(ctx, s.cfg.ReloadTimeout, s.reload)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "reload failed: "+err.Error())
		return
	}
	logger.L().Info("snapshot_reloaded", "version", snap.Version(), "nodes", snap.Stats.Nodes())
	writeJSON(w, http.StatusOK, statsOf(snap))
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.holder.Load() == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "starting"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
