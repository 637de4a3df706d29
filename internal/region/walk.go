package region

import (
	"errors"
	"strings"
	"unicode/utf8"

	"jiuyu/internal/normalize"
)

// MinQueryRunes 搜索词的最少字符数
const MinQueryRunes = 2

// ErrQueryTooShort 搜索词不足 MinQueryRunes 个字符。
var ErrQueryTooShort = errors.New("region: query too short")

// 文档注释：先序遍历整片森林（显式栈，无递归）
// 约束：
// - 访问顺序与文档顺序一致：父先于子，兄弟按 Children 顺序
// - path 为从根到当前节点的名称序列，回调返回后会被复用，需要保留时自行复制
// - 回调返回 false 时立即停止
func Walk(forest []*Region, fn func(n *Region, path []string) bool) {
	type frame struct {
		node  *Region
		depth int
	}
	stack := make([]frame, 0, len(forest))
	for i := len(forest) - 1; i >= 0; i-- {
		if forest[i] != nil {
			stack = append(stack, frame{node: forest[i], depth: 0})
		}
	}
	path := make([]string, 0, 3)
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		path = append(path[:f.depth], f.node.Name)
		if !fn(f.node, path) {
			return
		}
		for i := len(f.node.Children) - 1; i >= 0; i-- {
			if c := f.node.Children[i]; c != nil {
				stack = append(stack, frame{node: c, depth: f.depth + 1})
			}
		}
	}
}

// Hit 搜索命中项
type Hit struct {
	Region *Region
	Path   []string
}

// PathString 以 "/" 连接路径。
func (h Hit) PathString() string { return strings.Join(h.Path, "/") }

// 文档注释：按名称子串搜索
// 约束：搜索词去首尾空白后不足 MinQueryRunes 个字符返回 ErrQueryTooShort；结果按先序遍历顺序。
func Search(forest []*Region, query string) ([]Hit, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinQueryRunes {
		return nil, ErrQueryTooShort
	}
	var hits []Hit
	Walk(forest, func(n *Region, path []string) bool {
		if strings.Contains(n.Name, query) {
			hits = append(hits, Hit{Region: n, Path: append([]string(nil), path...)})
		}
		return true
	})
	return hits, nil
}

// 文档注释：按 "省/市/区" 路径定位节点
// 约束：每一段先按原名精确匹配，未命中再按归一化名称匹配；同层多个命中取第一个。
func FindPath(forest []*Region, p string) (*Region, bool) {
	var parts []string
	for _, s := range strings.Split(p, "/") {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return nil, false
	}
	level := forest
	var cur *Region
	for _, part := range parts {
		cur = pick(level, part)
		if cur == nil {
			return nil, false
		}
		level = cur.Children
	}
	return cur, true
}

func pick(nodes []*Region, name string) *Region {
	for _, n := range nodes {
		if n != nil && n.Name == name {
			return n
		}
	}
	key := normalize.Name(name)
	for _, n := range nodes {
		if n != nil && normalize.Name(n.Name) == key {
			return n
		}
	}
	return nil
}
