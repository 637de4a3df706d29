package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"province", "广东省", "广东"},
		{"city", "广州市", "广州"},
		{"district", "越秀区", "越秀"},
		{"county", "从化县", "从化"},
		{"autonomous prefecture", "延边朝鲜族自治州", "延边朝鲜族"},
		{"autonomous county", "长白朝鲜族自治县", "长白朝鲜族"},
		{"prefecture", "阿里地区", "阿里"},
		{"league", "锡林郭勒盟", "锡林郭勒"},
		{"surrounding whitespace", "  广州市 \t", "广州"},
		{"full-width space", "　广州市　", "广州"},
		{"no suffix", "北京", "北京"},
		{"suffix only", "市", "市"},
		{"multi-rune suffix only", "自治州", "自治州"},
		{"only one suffix removed", "沙市市", "沙市"},
		{"empty", "", ""},
		{"blank", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Name(tt.input))
		})
	}
}

func TestNameIdempotent(t *testing.T) {
	for _, in := range []string{"广东省", "广州市", "越秀区", "锡林郭勒盟", "延边朝鲜族自治州", "市", "北京"} {
		once := Name(in)
		assert.Equal(t, once, Name(once), "input %q", in)
	}
}

func TestNewCustomSuffixes(t *testing.T) {
	n := New([]string{" 旗 ", "", "自治旗"})
	assert.Equal(t, []string{"旗", "自治旗"}, n.Suffixes())
	assert.Equal(t, "科尔沁右翼前", n.Name("科尔沁右翼前旗"))
	assert.Equal(t, "广州市", n.Name("广州市"))
}

func TestNewEmptyFallsBack(t *testing.T) {
	n := New(nil)
	assert.Equal(t, DefaultSuffixes, n.Suffixes())

	var zero *Normalizer
	assert.Equal(t, "广州", zero.Name("广州市"))
}
