// 包 reftable：参照表（国家、省、市、区县）的内存表示与加载
//
// 背景：参照表来自外部数据（Shapefile、GeoJSON 或 PostgreSQL），提供名称、adcode、上级 adcode 与边界；
// 链接器只读使用这些表。
// 约束：行保持来源顺序，"首行优先"依赖该顺序；除列存在性外不做模式校验。
package reftable

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"jiuyu/internal/config"
	"jiuyu/internal/geo"
)

var (
	// ErrUnknownFormat 无法按扩展名识别的参照表文件。
	ErrUnknownFormat = errors.New("reftable: unknown file format")
	// ErrMissingColumn 参照表缺少配置的列。
	ErrMissingColumn = errors.New("reftable: missing column")
)

// Kind 参照表种类
type Kind string

const (
	KindCountry  Kind = "country"
	KindProvince Kind = "province"
	KindCity     Kind = "city"
	KindDistrict Kind = "district"
)

// Kinds 按层级顺序
var Kinds = []Kind{KindCountry, KindProvince, KindCity, KindDistrict}

// ParseKind 大小写不敏感。
func ParseKind(s string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range Kinds {
		if v == k {
			return k, true
		}
	}
	return "", false
}

// Row 参照表的一行
type Row struct {
	Name       string
	Code       string
	ParentCode string
	Geometry   *geo.Boundary
	Attrs      map[string]string
}

// Table 单张参照表
type Table struct {
	Kind Kind
	Rows []Row
}

// Len nil 安全。
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Empty nil 或零行。
func (t *Table) Empty() bool { return t.Len() == 0 }

// Tables 四张参照表；未加载的表为 nil
type Tables struct {
	Country  *Table
	Province *Table
	City     *Table
	District *Table
}

// Ready 链接所需的省、市、区县三张表均存在且非空。
func (ts Tables) Ready() bool {
	return !ts.Province.Empty() && !ts.City.Empty() && !ts.District.Empty()
}

// Get 按种类取表。
func (ts Tables) Get(k Kind) *Table {
	switch k {
	case KindCountry:
		return ts.Country
	case KindProvince:
		return ts.Province
	case KindCity:
		return ts.City
	case KindDistrict:
		return ts.District
	}
	return nil
}

// Set 按种类设置表。
func (ts *Tables) Set(k Kind, t *Table) {
	switch k {
	case KindCountry:
		ts.Country = t
	case KindProvince:
		ts.Province = t
	case KindCity:
		ts.City = t
	case KindDistrict:
		ts.District = t
	}
}

// ColumnsFor 取配置中对应种类的列名。
func ColumnsFor(cfg *config.Config, k Kind) config.Columns {
	switch k {
	case KindCountry:
		return cfg.CountryCols
	case KindProvince:
		return cfg.ProvinceCols
	case KindCity:
		return cfg.CityCols
	case KindDistrict:
		return cfg.DistrictCols
	}
	return config.Columns{}
}

// PathFor 取配置中对应种类的文件路径。
func PathFor(cfg *config.Config, k Kind) string {
	switch k {
	case KindCountry:
		return cfg.CountryPath
	case KindProvince:
		return cfg.ProvincePath
	case KindCity:
		return cfg.CityPath
	case KindDistrict:
		return cfg.DistrictPath
	}
	return ""
}

// 文档注释：规范化 adcode
// 约束：整数值的浮点表示（"110000.0"、110000.0）统一为 "110000"；其它内容去空白后原样保留
func CanonicalCode(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		s := strings.TrimSpace(x)
		if f, err := strconv.ParseFloat(s, 64); err == nil && strings.ContainsAny(s, ".eE") {
			if out, ok := integral(f); ok {
				return out
			}
		}
		return s
	case float64:
		if out, ok := integral(x); ok {
			return out
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return CanonicalCode(float64(x))
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case interface{ String() string }:
		return CanonicalCode(x.String())
	}
	return ""
}

func integral(f float64) (string, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > 1e15 {
		return "", false
	}
	return strconv.FormatInt(int64(f), 10), true
}
