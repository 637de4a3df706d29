package export

import (
	"strings"

	"jiuyu/internal/region"
)

// RegionIndexHeader 行政区索引表头
var RegionIndexHeader = []string{"path", "name", "level", "adcode", "parent_name", "parent_adcode", "linked", "has_geometry"}

// RegionIndex 按先序遍历森林，每个节点一行。
func RegionIndex(forest []*region.Region) [][]string {
	var out [][]string
	region.Walk(forest, func(n *region.Region, path []string) bool {
		out = append(out, []string{
			strings.Join(path, "/"),
			n.Name,
			n.Level.String(),
			n.Code,
			n.ParentName,
			n.ParentCode,
			yesNo(n.Linked()),
			yesNo(!n.Geometry.Empty()),
		})
		return true
	})
	return out
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
