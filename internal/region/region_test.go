package region

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jiuyu/internal/geo"
)

func sampleForest() []*Region {
	gd := NewProvince("广东省")
	gd.Code = "440000"
	gz := NewChild(gd, "广州市")
	gz.Code = "440100"
	NewChild(gz, "越秀区")
	NewChild(gz, "海珠区")
	sz := NewChild(gd, "深圳市")
	NewChild(sz, "南山区")

	gx := NewProvince("广西壮族自治区")
	NewChild(gx, "南宁市")
	return []*Region{gd, gx}
}

func TestNewChildCopiesParentFields(t *testing.T) {
	gd := NewProvince("广东省")
	gd.Code = "440000"
	gz := NewChild(gd, "广州市")
	require.NotNil(t, gz)
	assert.Equal(t, LevelCity, gz.Level)
	assert.Equal(t, "广东省", gz.ParentName)
	assert.Equal(t, "440000", gz.ParentCode)
	assert.NotNil(t, gz.Children)

	yx := NewChild(gz, "越秀区")
	assert.Equal(t, LevelDistrict, yx.Level)
	assert.Nil(t, yx.Children)
	assert.Nil(t, NewChild(yx, "不存在"))
	assert.Nil(t, NewChild(nil, "不存在"))

	assert.Equal(t, []*Region{gz}, gd.Children)
	assert.Empty(t, gd.ParentName)
}

func TestAppend(t *testing.T) {
	r := NewProvince("广东省")
	r.Append(FieldGeneral, "  first  ")
	r.Append(FieldGeneral, "")
	r.Append(FieldGeneral, " \n ")
	r.Append(FieldGeneral, "second\nthird")
	r.Append(FieldNone, "ignored")
	r.Append(FieldDetail, "detail")

	assert.Equal(t, "first\nsecond\nthird", r.TextGeneral)
	assert.Equal(t, "detail", r.TextDetail)

	var nilR *Region
	assert.NotPanics(t, func() { nilR.Append(FieldDetail, "x") })
}

func TestMarshalJSONChildrenKey(t *testing.T) {
	forest := sampleForest()
	yx := forest[0].Children[0].Children[0]

	data, err := json.Marshal(yx)
	require.NoError(t, err)
	var leaf map[string]any
	require.NoError(t, json.Unmarshal(data, &leaf))
	assert.NotContains(t, leaf, "children")
	assert.NotContains(t, leaf, "adcode")
	assert.NotContains(t, leaf, "geometry")
	assert.Equal(t, "广州市", leaf["parent_name"])
	assert.Equal(t, "440100", leaf["parent_adcode"])
	assert.Equal(t, float64(3), leaf["level"])

	data, err = json.Marshal(forest[1].Children[0])
	require.NoError(t, err)
	var city map[string]any
	require.NoError(t, json.Unmarshal(data, &city))
	assert.Equal(t, []any{}, city["children"])

	top := &Region{Name: "x", Level: LevelProvince}
	data, err = json.Marshal(top)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"children":[]`)
}

func TestMarshalJSONGeometry(t *testing.T) {
	r := NewProvince("广东省")
	r.Geometry = &geo.Boundary{Polys: []geo.Polygon{geo.NewPolygon([][]geo.Point{{
		{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}, {Lat: 1, Lon: 1}, {Lat: 0, Lon: 0},
	}})}}
	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"geometry":{"type":"Polygon"`)
}

func TestWalkPreOrder(t *testing.T) {
	var names, paths []string
	Walk(sampleForest(), func(n *Region, path []string) bool {
		names = append(names, n.Name)
		paths = append(paths, Hit{Path: path}.PathString())
		return true
	})
	assert.Equal(t, []string{"广东省", "广州市", "越秀区", "海珠区", "深圳市", "南山区", "广西壮族自治区", "南宁市"}, names)
	assert.Equal(t, "广东省/深圳市/南山区", paths[5])
	assert.Equal(t, "广西壮族自治区/南宁市", paths[7])

	var count int
	Walk(sampleForest(), func(*Region, []string) bool {
		count++
		return count < 3
	})
	assert.Equal(t, 3, count)
}

func TestSearch(t *testing.T) {
	forest := sampleForest()

	hits, err := Search(forest, "广州")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "广东省/广州市", hits[0].PathString())

	hits, err = Search(forest, " 山区 ")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "南山区", hits[0].Region.Name)

	hits, err = Search(forest, "广西")
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	hits, err = Search(forest, "不存在的地方")
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, err = Search(forest, "广")
	assert.ErrorIs(t, err, ErrQueryTooShort)
	_, err = Search(forest, "  ")
	assert.ErrorIs(t, err, ErrQueryTooShort)
}

func TestFindPath(t *testing.T) {
	forest := sampleForest()

	n, ok := FindPath(forest, "广东省/广州市/海珠区")
	require.True(t, ok)
	assert.Equal(t, "海珠区", n.Name)

	n, ok = FindPath(forest, "广东/广州/越秀")
	require.True(t, ok)
	assert.Equal(t, "越秀区", n.Name)

	n, ok = FindPath(forest, "/广东省/")
	require.True(t, ok)
	assert.Equal(t, LevelProvince, n.Level)

	_, ok = FindPath(forest, "广东省/南宁市")
	assert.False(t, ok)
	_, ok = FindPath(forest, "")
	assert.False(t, ok)
}

func TestCountAndDescribe(t *testing.T) {
	forest := sampleForest()
	s := Count(forest)
	assert.Equal(t, LevelStats{Total: 2, Linked: 1}, s.Province)
	assert.Equal(t, LevelStats{Total: 3, Linked: 1}, s.City)
	assert.Equal(t, 3, s.District.Total)
	assert.Equal(t, 8, s.Nodes())
	assert.Nil(t, s.For(Level(9)))

	d := Describe(forest[0])
	assert.Equal(t, "省级", d.LevelText)
	assert.Equal(t, "下辖市", d.ChildLabel)
	assert.Equal(t, []string{"广州市", "深圳市"}, d.Children)

	d = Describe(forest[0].Children[0])
	assert.Equal(t, "下辖区/县", d.ChildLabel)

	d = Describe(forest[1].Children[0])
	assert.Equal(t, "无", d.Code)
	assert.Empty(t, d.ChildLabel)
}

func TestOutlineOf(t *testing.T) {
	o := OutlineOf(sampleForest())
	require.Len(t, o, 2)
	assert.Equal(t, "440000", o[0].Code)
	require.Len(t, o[0].Children, 2)
	assert.Equal(t, "越秀区", o[0].Children[0].Children[0].Name)
	assert.Nil(t, o[0].Children[0].Children[0].Children)
}
