// 包 version：构建信息，发布时通过 -ldflags "-X jiuyu/internal/version.Commit=..." 注入
package version

var (
	Version = "0.1.0"
	Commit  = "dev"
)

// String 形如 "0.1.0 (dev)"。
func String() string { return Version + " (" + Commit + ")" }
