// 包 normalize：行政区名称的匹配键生成，仅用于比对，不改写记录中的原始名称
package normalize

import "strings"

// DefaultSuffixes：默认的行政单位后缀，按顺序逐个尝试，命中一个即停止。
// 约束：多字后缀必须排在其单字尾字之前（自治县 在 县 之前），否则永远不会命中。
var DefaultSuffixes = []string{"自治州", "自治县", "地区", "省", "市", "区", "县", "盟"}

// Normalizer 持有一组有序后缀；零值等价于 DefaultSuffixes。
type Normalizer struct {
	suffixes []string
}

// New 使用给定后缀构造；空列表回退到 DefaultSuffixes。空白与空串项被忽略。
func New(suffixes []string) *Normalizer {
	var out []string
	for _, s := range suffixes {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		out = DefaultSuffixes
	}
	return &Normalizer{suffixes: out}
}

// Suffixes 返回当前生效的后缀列表副本。
func (n *Normalizer) Suffixes() []string {
	return append([]string(nil), n.list()...)
}

func (n *Normalizer) list() []string {
	if n == nil || len(n.suffixes) == 0 {
		return DefaultSuffixes
	}
	return n.suffixes
}

// Name 去除首尾空白后最多去掉一个尾部后缀；名称恰好等于后缀时原样返回。
func (n *Normalizer) Name(name string) string {
	name = strings.TrimSpace(name)
	for _, suffix := range n.list() {
		if len(name) > len(suffix) && strings.HasSuffix(name, suffix) {
			return name[:len(name)-len(suffix)]
		}
	}
	return name
}

var std = New(nil)

// Name 使用默认后缀列表归一化。
func Name(name string) string { return std.Name(name) }
