package region

// LevelStats 单一层级的计数
type LevelStats struct {
	Total        int `json:"total"`
	Linked       int `json:"linked"`
	WithGeometry int `json:"with_geometry"`
}

// Stats 森林计数，按层级
type Stats struct {
	Province LevelStats `json:"province"`
	City     LevelStats `json:"city"`
	District LevelStats `json:"district"`
}

// For 返回指定层级计数的指针；无效层级返回 nil。
func (s *Stats) For(l Level) *LevelStats {
	switch l {
	case LevelProvince:
		return &s.Province
	case LevelCity:
		return &s.City
	case LevelDistrict:
		return &s.District
	}
	return nil
}

// Nodes 全部节点数
func (s Stats) Nodes() int { return s.Province.Total + s.City.Total + s.District.Total }

// Count 统计森林各层节点数与链接情况。
func Count(forest []*Region) Stats {
	var s Stats
	Walk(forest, func(n *Region, _ []string) bool {
		ls := s.For(n.Level)
		if ls == nil {
			return true
		}
		ls.Total++
		if n.Linked() {
			ls.Linked++
		}
		if !n.Geometry.Empty() {
			ls.WithGeometry++
		}
		return true
	})
	return s
}

// Outline 森林提纲节点：不含正文与边界
type Outline struct {
	Name     string    `json:"name"`
	Level    Level     `json:"level"`
	Code     string    `json:"adcode,omitempty"`
	Children []Outline `json:"children,omitempty"`
}

// OutlineOf 生成森林提纲。
func OutlineOf(forest []*Region) []Outline {
	out := make([]Outline, 0, len(forest))
	for _, n := range forest {
		if n == nil {
			continue
		}
		o := Outline{Name: n.Name, Level: n.Level, Code: n.Code}
		if len(n.Children) > 0 {
			o.Children = OutlineOf(n.Children)
		}
		out = append(out, o)
	}
	return out
}

// Summary 单个节点的展示摘要
type Summary struct {
	Name        string   `json:"name"`
	Level       Level    `json:"level"`
	LevelText   string   `json:"level_text"`
	Code        string   `json:"adcode"`
	ParentName  string   `json:"parent_name,omitempty"`
	TextGeneral string   `json:"text_general,omitempty"`
	TextDetail  string   `json:"text_detail,omitempty"`
	ChildLabel  string   `json:"child_label,omitempty"`
	Children    []string `json:"children,omitempty"`
}

// 文档注释：生成节点摘要
// 约束：未链接时 Code 显示为 "无"；第三层没有 ChildLabel。
func Describe(n *Region) Summary {
	s := Summary{
		Name:        n.Name,
		Level:       n.Level,
		LevelText:   n.Level.String(),
		Code:        n.Code,
		ParentName:  n.ParentName,
		TextGeneral: n.TextGeneral,
		TextDetail:  n.TextDetail,
	}
	if s.Code == "" {
		s.Code = "无"
	}
	if len(n.Children) > 0 {
		switch n.Level {
		case LevelProvince:
			s.ChildLabel = "下辖市"
		case LevelCity:
			s.ChildLabel = "下辖区/县"
		default:
			s.ChildLabel = "下级区域"
		}
		for _, c := range n.Children {
			s.Children = append(s.Children, c.Name)
		}
	}
	return s
}
