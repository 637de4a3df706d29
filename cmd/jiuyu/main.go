package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"jiuyu/internal/config"
	"jiuyu/internal/logger"
	"jiuyu/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat)

	rootCmd := &cobra.Command{
		Use:   "jiuyu",
		Short: "行政区沿革文档工具",
		Long: `jiuyu 处理行政区划沿革文档：

  - convert      原始文本 → 分级 Markdown
  - compress     压缩 Markdown 正文
  - titles       导出一至三级标题清单
  - inspect      解析并链接参照表，输出统计、JSON 或索引表
  - import-refs  将参照表文件导入 PostgreSQL`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(convertCmd(cfg))
	rootCmd.AddCommand(compressCmd())
	rootCmd.AddCommand(titlesCmd(cfg))
	rootCmd.AddCommand(inspectCmd(cfg))
	rootCmd.AddCommand(importRefsCmd(cfg))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
