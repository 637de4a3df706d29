package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jiuyu/internal/atlas"
	"jiuyu/internal/cache"
	"jiuyu/internal/config"
	"jiuyu/internal/geo"
	"jiuyu/internal/reftable"
	"jiuyu/internal/region"
)

func box(minLon, minLat, maxLon, maxLat float64) *geo.Boundary {
	return &geo.Boundary{Polys: []geo.Polygon{geo.NewPolygon([][]geo.Point{{
		{Lat: minLat, Lon: minLon},
		{Lat: maxLat, Lon: minLon},
		{Lat: maxLat, Lon: maxLon},
		{Lat: minLat, Lon: maxLon},
		{Lat: minLat, Lon: minLon},
	}})}}
}

func testSnapshot(builtAt time.Time) *atlas.Snapshot {
	gd := region.NewProvince("广东省")
	gd.Code = "440000"
	gd.TextGeneral = "广东省概述"
	gd.Geometry = box(113, 22, 115, 25)
	gz := region.NewChild(gd, "广州市")
	gz.Code = "440100"
	gz.Geometry = box(113, 23, 114, 24)
	yx := region.NewChild(gz, "越秀区")
	yx.Code = "440104"
	yx.Geometry = box(113, 23, 113.5, 23.5)
	region.NewChild(gz, "天河区")
	region.NewChild(gd, "深圳市")
	forest := []*region.Region{gd}
	return &atlas.Snapshot{
		Forest:  forest,
		Country: box(73, 3, 135, 54),
		Tables: reftable.Tables{
			Country: &reftable.Table{Kind: reftable.KindCountry, Rows: []reftable.Row{{Name: "中国", Code: "100000"}}},
		},
		Stats:   region.Count(forest),
		BuiltAt: builtAt,
	}
}

func testConfig() *config.Config {
	return &config.Config{
		AdminToken:    "secret",
		S2CellLevel:   9,
		CoordSys:      "WGS84",
		LocateCache:   16,
		LocateTTL:     time.Minute,
		SearchTTL:     time.Minute,
		SearchLimit:   2,
		ReloadTimeout: time.Second,
	}
}

func newServer(t *testing.T, c *cache.Cache, reload ReloadFunc) (*httptest.Server, *atlas.Holder) {
	t.Helper()
	var h atlas.Holder
	h.Store(testSnapshot(time.Unix(1700000000, 0)))
	srv := httptest.NewServer(New(testConfig(), &h, reload, c).Routes())
	t.Cleanup(srv.Close)
	return srv, &h
}

func getJSON(t *testing.T, u string, out any) int {
	t.Helper()
	resp, err := http.Get(u)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json; charset=utf-8", resp.Header.Get("content-type"))
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestRegions(t *testing.T) {
	srv, _ := newServer(t, nil, nil)
	var out []region.Outline
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/regions", &out))
	require.Len(t, out, 1)
	assert.Equal(t, "广东省", out[0].Name)
	require.Len(t, out[0].Children, 2)
	assert.Len(t, out[0].Children[0].Children, 2)
}

func TestRegionDetail(t *testing.T) {
	srv, _ := newServer(t, nil, nil)

	var d map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/region?path="+url.QueryEscape("广东省/广州市"), &d))
	assert.Equal(t, "广州市", d["name"])
	assert.Equal(t, "440100", d["adcode"])
	assert.Equal(t, "440000", d["parent_adcode"])
	assert.Equal(t, "下辖区/县", d["child_label"])
	assert.Equal(t, []any{"广东省", "广州市"}, d["path"])
	assert.NotEmpty(t, d["s2_cell"])
	c := d["centroid"].(map[string]any)
	assert.InDelta(t, 23.5, c["lat"], 1e-9)
	assert.InDelta(t, 113.5, c["lon"], 1e-9)
	assert.Contains(t, d, "geometry")

	d = nil
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/region?geometry=0&path="+url.QueryEscape("广东/广州/天河区"), &d))
	assert.Equal(t, "天河区", d["name"])
	assert.Equal(t, "无", d["adcode"])
	assert.NotContains(t, d, "geometry")
	assert.NotContains(t, d, "centroid")

	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/region?path="+url.QueryEscape("广东省/杭州市"), nil))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/region", nil))
}

func TestSearch(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rc.Close()
	srv, h := newServer(t, cache.New(rc, time.Minute), nil)

	var res searchResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/search?q="+url.QueryEscape("广州"), &res))
	assert.Equal(t, 1, res.Total)
	assert.False(t, res.Truncated)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "广东省/广州市", res.Results[0].Path)

	key := cache.Key("search", h.Load().Version(), "广州")
	assert.True(t, mr.Exists(key))

	// 缓存命中时直接返回缓存内容
	require.NoError(t, mr.Set(key, `{"query":"广州","total":99,"truncated":false,"results":[]}`))
	res = searchResponse{}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/search?q="+url.QueryEscape("广州"), &res))
	assert.Equal(t, 99, res.Total)

	// 重载后版本变化，旧键不再使用
	h.Store(testSnapshot(time.Unix(1800000000, 0)))
	res = searchResponse{}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/search?q="+url.QueryEscape("广州"), &res))
	assert.Equal(t, 1, res.Total)
}

func TestSearchLimitAndShortQuery(t *testing.T) {
	snap := testSnapshot(time.Now())
	gz := snap.Forest[0].Children[0]
	for _, name := range []string{"东山区", "东山新区", "东山湖区"} {
		region.NewChild(gz, name)
	}
	var h atlas.Holder
	h.Store(snap)
	srv := httptest.NewServer(New(testConfig(), &h, nil, nil).Routes())
	defer srv.Close()

	var res searchResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/search?q="+url.QueryEscape("东山"), &res))
	assert.Equal(t, 3, res.Total)
	assert.True(t, res.Truncated)
	require.Len(t, res.Results, 2)
	assert.Equal(t, "广东省/广州市/东山区", res.Results[0].Path)
	assert.Equal(t, "区/县级", res.Results[0].LevelText)

	res = searchResponse{}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/search?q="+url.QueryEscape("广东省"), &res))
	assert.Equal(t, 1, res.Total)
	assert.False(t, res.Truncated)

	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/search?q="+url.QueryEscape(" 广 "), nil))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/search", nil))
}

func TestLocate(t *testing.T) {
	srv, _ := newServer(t, nil, nil)

	var res locateResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/locate?lat=23.2&lon=113.2", &res))
	assert.True(t, res.Found)
	assert.Equal(t, "越秀区", res.Name)
	assert.Equal(t, []string{"广东省", "广州市", "越秀区"}, res.Path)
	require.NotNil(t, res.InCountry)
	assert.True(t, *res.InCountry)
	assert.Equal(t, geo.CoordWGS84, res.CoordSys)

	res = locateResponse{}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/locate?lat=23.8&lon=113.8", &res))
	assert.Equal(t, "广州市", res.Name)

	res = locateResponse{}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/locate?lat=60&lon=10", &res))
	assert.False(t, res.Found)
	require.NotNil(t, res.InCountry)
	assert.False(t, *res.InCountry)

	res = locateResponse{}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/locate?lat=23.2&lon=113.2&coord_sys=gcj02", &res))
	assert.True(t, res.Found)
	assert.NotEqual(t, 23.2, res.Lat)

	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/locate?lat=abc&lon=113", nil))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/locate?lat=91&lon=113", nil))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/locate?lat=23&lon=113&coord_sys=utm", nil))
}

func TestLocateAcrossBorderNotShared(t *testing.T) {
	srv, _ := newServer(t, nil, nil)

	var in, out locateResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/locate?lat=23.4996&lon=113.2", &in))
	assert.Equal(t, "越秀区", in.Name)
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/locate?lat=23.5004&lon=113.2", &out))
	assert.Equal(t, "广州市", out.Name)

	in = locateResponse{}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/locate?lat=23.4996&lon=113.2", &in))
	assert.Equal(t, "越秀区", in.Name)
}

func TestParseCoordSys(t *testing.T) {
	for in, want := range map[string]string{"": geo.CoordWGS84, "wgs84": geo.CoordWGS84, "GCJ-02": geo.CoordGCJ02, "gcj02": geo.CoordGCJ02, "bd09": geo.CoordBD09} {
		got, ok := parseCoordSys(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := parseCoordSys("mercator")
	assert.False(t, ok)
}

func TestCountryAndStats(t *testing.T) {
	srv, h := newServer(t, nil, nil)

	var f map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/country", &f))
	assert.Equal(t, "Feature", f["type"])
	assert.Equal(t, map[string]any{"name": "中国", "code": "100000"}, f["properties"])
	assert.Equal(t, "Polygon", f["geometry"].(map[string]any)["type"])

	var st statsResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/stats", &st))
	assert.Equal(t, 5, st.Nodes)
	assert.Equal(t, 2, st.Levels.City.Total)
	assert.Equal(t, 1, st.Levels.City.Linked)
	assert.Equal(t, 1, st.Tables["country"])
	assert.Equal(t, 0, st.Tables["district"])
	assert.Equal(t, h.Load().Version(), st.Version)

	snap := testSnapshot(time.Now())
	snap.Country = nil
	h.Store(snap)
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/country", nil))
}

func TestReload(t *testing.T) {
	calls := 0
	next := testSnapshot(time.Unix(1900000000, 0))
	reload := func(ctx context.Context) (*atlas.Snapshot, error) {
		calls++
		if calls > 1 {
			return nil, errors.New("document unreadable")
		}
		return next, nil
	}
	srv, h := newServer(t, nil, reload)

	post := func(token string) int {
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/reload", nil)
		require.NoError(t, err)
		if token != "" {
			req.Header.Set("x-admin-token", token)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusForbidden, post(""))
	assert.Equal(t, http.StatusForbidden, post("wrong"))
	assert.Equal(t, 0, calls)

	assert.Equal(t, http.StatusOK, post("secret"))
	assert.Same(t, next, h.Load())

	assert.Equal(t, http.StatusInternalServerError, post("secret"))
	assert.Same(t, next, h.Load())

	assert.Equal(t, http.StatusMethodNotAllowed, getJSON(t, srv.URL+"/reload", nil))
}

func TestNotReady(t *testing.T) {
	var h atlas.Holder
	srv := httptest.NewServer(New(testConfig(), &h, nil, nil).Routes())
	defer srv.Close()

	assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, srv.URL+"/regions", nil))
	assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, srv.URL+"/healthz", nil))

	h.Store(testSnapshot(time.Now()))
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/healthz", nil))
}
