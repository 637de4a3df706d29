// 包 textenc：输入文本编码（UTF-8 / GBK / GB18030）到 UTF-8 的解码
package textenc

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrUnknownEncoding 不支持的编码名。
var ErrUnknownEncoding = errors.New("textenc: unknown encoding")

// Lookup 按名称返回编码；空串与 utf-8 返回 Nop。
// 名称大小写与连字符不敏感，"936"、"cp936" 视为 GBK（DBF 的 .cpg 常见写法）。
func Lookup(name string) (encoding.Encoding, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, "-", "")
	key = strings.ReplaceAll(key, "_", "")
	switch key {
	case "", "utf8":
		return encoding.Nop, nil
	case "utf8bom":
		return unicode.UTF8BOM, nil
	case "gbk", "936", "cp936", "windows936", "gb2312":
		return simplifiedchinese.GBK, nil
	case "gb18030":
		return simplifiedchinese.GB18030, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
}

// NewReader 包装 r，读取时解码为 UTF-8。
func NewReader(r io.Reader, name string) (io.Reader, error) {
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	if enc == encoding.Nop {
		return r, nil
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}

// String 解码单个字段值；失败时原样返回。
func String(s string, enc encoding.Encoding) string {
	if enc == nil || enc == encoding.Nop {
		return s
	}
	out, _, err := transform.String(enc.NewDecoder(), s)
	if err != nil {
		return s
	}
	return out
}
