package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"jiuyu/internal/region"
)

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatCSV, "CSV": FormatCSV, "xlsx": FormatXLSX, " Excel ": FormatXLSX} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("json")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestCSVWriter(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriterFactory().CreateWriter(&buf, Options{Format: FormatCSV})
	require.NoError(t, err)
	require.NoError(t, WriteAll(w, []string{"一级标题", "二级标题", "三级标题"}, [][]string{
		{"第1章 河北省", "", ""},
		{"", "一、石家庄市", ""},
		{"", "", "1.长安区, 旧称"},
	}))
	assert.Equal(t, "一级标题,二级标题,三级标题\n第1章 河北省,,\n,一、石家庄市,\n,,\"1.长安区, 旧称\"\n", buf.String())
}

func TestCSVWriterBOMAndDelimiter(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewCSVWriter(&buf, Options{BOM: true, Delimiter: '\t'})
	require.NoError(t, err)
	require.NoError(t, w.WriteHeader([]string{"a", "b"}))
	require.NoError(t, w.WriteRecord([]string{"1", "2"}))
	require.NoError(t, w.Close())
	assert.Equal(t, "\uFEFFa\tb\n1\t2\n", buf.String())
}

func TestUnsupportedWriter(t *testing.T) {
	_, err := NewWriterFactory().CreateWriter(&bytes.Buffer{}, Options{Format: "xml"})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestXLSXFileWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "titles.xlsx")
	w, err := NewWriterFactory().CreateFileWriter(path, Options{Format: FormatXLSX, SheetName: "标题"})
	require.NoError(t, err)
	require.NoError(t, WriteAll(w, []string{"一级标题", "二级标题", "三级标题"}, [][]string{
		{"第1章 河北省", "", ""},
		{"", "", "1.长安区"},
	}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"标题"}, f.GetSheetList())
	rows, err := f.GetRows("标题")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"一级标题", "二级标题", "三级标题"}, rows[0])
	assert.Equal(t, "第1章 河北省", rows[1][0])
	v, err := f.GetCellValue("标题", "C3")
	require.NoError(t, err)
	assert.Equal(t, "1.长安区", v)
}

func TestCreateFileWriterBadPath(t *testing.T) {
	_, err := NewWriterFactory().CreateFileWriter(filepath.Join(t.TempDir(), "no", "such", "x.csv"), Options{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRegionIndex(t *testing.T) {
	gd := region.NewProvince("广东省")
	gd.Code = "440000"
	gz := region.NewChild(gd, "广州市")
	region.NewChild(gz, "越秀区")

	rows := RegionIndex([]*region.Region{gd})
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"广东省", "广东省", "省级", "440000", "", "", "yes", "no"}, rows[0])
	assert.Equal(t, []string{"广东省/广州市/越秀区", "越秀区", "区/县级", "", "广州市", "", "no", "no"}, rows[2])
	assert.Len(t, rows[0], len(RegionIndexHeader))
}
