// 包 region：行政区记录与森林（省 → 市 → 区/县）
//
// 背景：解析器产出未链接的森林，链接器在同一棵树上就地补充 adcode 与边界，
// 之后整棵树作为只读快照交给 API 与命令行工具。
// 约束：同一类型表示三个层级；第三层 Children 恒为空，序列化时不输出 children 键。
package region

import (
	"encoding/json"
	"strings"

	"jiuyu/internal/geo"
)

// Level 行政层级
type Level int

const (
	LevelProvince Level = 1
	LevelCity     Level = 2
	LevelDistrict Level = 3
)

func (l Level) String() string {
	switch l {
	case LevelProvince:
		return "省级"
	case LevelCity:
		return "市级"
	case LevelDistrict:
		return "区/县级"
	default:
		return "未知级别"
	}
}

// Valid 是否为 1..3 之一。
func (l Level) Valid() bool { return l >= LevelProvince && l <= LevelDistrict }

// Field 文本写入目标
type Field int

const (
	FieldNone Field = iota
	FieldGeneral
	FieldDetail
)

// 文档注释：行政区记录
// 约束：
// - Code/Geometry 只在匹配成功时写入一次，此后不被重置
// - ParentName/ParentCode 在创建时由内存父节点复制，链接器不再回写
// - 第一层没有父字段；第三层没有子节点
type Region struct {
	Name        string
	Level       Level
	Code        string
	ParentName  string
	ParentCode  string
	TextGeneral string
	TextDetail  string
	Geometry    *geo.Boundary
	Children    []*Region
}

// NewProvince 创建第一层节点。
func NewProvince(name string) *Region {
	return &Region{Name: name, Level: LevelProvince, Children: []*Region{}}
}

// NewChild 在 parent 下创建并追加下一层节点，父字段取自 parent 当前值。
// parent 为第三层或 nil 时返回 nil。
func NewChild(parent *Region, name string) *Region {
	if parent == nil || parent.Level >= LevelDistrict {
		return nil
	}
	child := &Region{
		Name:       name,
		Level:      parent.Level + 1,
		ParentName: parent.Name,
		ParentCode: parent.Code,
	}
	if child.Level < LevelDistrict {
		child.Children = []*Region{}
	}
	parent.Children = append(parent.Children, child)
	return child
}

// Append 将文本以换行追加到目标字段。
// 约束：文本先去首尾空白；为空时不做任何修改；字段非空时以单个 "\n" 分隔。
func (r *Region) Append(f Field, text string) {
	if r == nil {
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	var dst *string
	switch f {
	case FieldGeneral:
		dst = &r.TextGeneral
	case FieldDetail:
		dst = &r.TextDetail
	default:
		return
	}
	if *dst == "" {
		*dst = text
	} else {
		*dst += "\n" + text
	}
}

// Linked 是否已获得 adcode。
func (r *Region) Linked() bool { return r != nil && r.Code != "" }

type regionJSON struct {
	Name        string        `json:"name"`
	Level       Level         `json:"level"`
	Code        string        `json:"adcode,omitempty"`
	ParentName  string        `json:"parent_name,omitempty"`
	ParentCode  string        `json:"parent_adcode,omitempty"`
	TextGeneral string        `json:"text_general"`
	TextDetail  string        `json:"text_detail"`
	Geometry    *geo.Boundary `json:"geometry,omitempty"`
	Children    *[]*Region    `json:"children,omitempty"`
}

// MarshalJSON 第一、二层总是输出 children（可为空数组），第三层省略该键。
func (r *Region) MarshalJSON() ([]byte, error) {
	out := regionJSON{
		Name:        r.Name,
		Level:       r.Level,
		Code:        r.Code,
		ParentName:  r.ParentName,
		ParentCode:  r.ParentCode,
		TextGeneral: r.TextGeneral,
		TextDetail:  r.TextDetail,
	}
	if !r.Geometry.Empty() {
		out.Geometry = r.Geometry
	}
	if r.Level < LevelDistrict {
		kids := r.Children
		if kids == nil {
			kids = []*Region{}
		}
		out.Children = &kids
	}
	return json.Marshal(out)
}
