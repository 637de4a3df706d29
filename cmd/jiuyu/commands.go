package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"jiuyu/internal/atlas"
	"jiuyu/internal/config"
	"jiuyu/internal/convert"
	"jiuyu/internal/export"
	"jiuyu/internal/migrate"
	"jiuyu/internal/reftable"
	"jiuyu/internal/region"
	"jiuyu/internal/store"
	"jiuyu/internal/utils"
)

func convertCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert raw text into leveled markdown",
		Long: `把原始沿革文本转换为分级 Markdown。

Example:
  jiuyu convert --in 沿革.txt --out output.md
  jiuyu convert --in 沿革.txt --encoding gbk`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, _ := cmd.Flags().GetString("in")
			out, _ := cmd.Flags().GetString("out")
			enc, _ := cmd.Flags().GetString("encoding")
			progress, _ := cmd.Flags().GetBool("progress")
			if in == "" {
				return fmt.Errorf("--in flag is required")
			}
			c := convert.New(convert.Options{
				MidOrdinalMax:    cfg.ConvertOrdinalMax,
				MidOrdinalsExtra: cfg.MidOrdinalsExtra,
				BottomMax:        cfg.BottomMax,
				Encoding:         enc,
				ShowProgress:     progress,
			})
			rep, err := c.ConvertFile(in, out)
			if err != nil {
				return err
			}
			fmt.Printf("Converted %d lines: %d chapters, %d cities, %d entries -> %s\n",
				rep.Lines, rep.Chapters, rep.Cities, rep.Entries, out)
			if len(rep.Warnings) > 0 {
				fmt.Printf("\n%d numbering warnings:\n", len(rep.Warnings))
				for _, w := range rep.Warnings {
					fmt.Println("  " + w.String())
				}
			}
			return nil
		},
	}
	cmd.Flags().String("in", "", "input text file (required)")
	cmd.Flags().String("out", cfg.DocPath, "output markdown file")
	cmd.Flags().String("encoding", cfg.DocEncoding, "input encoding: utf-8, gbk, gb18030")
	cmd.Flags().Bool("progress", cfg.ShowProgress, "show progress bar")
	return cmd
}

func compressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compress <input.md> [output.md]",
		Short: "Collapse whitespace in markdown body text",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := args[0]
			out := strings.TrimSuffix(in, filepath.Ext(in)) + "_compressed" + filepath.Ext(in)
			if len(args) > 1 {
				out = args[1]
			}
			b, err := os.ReadFile(in)
			if err != nil {
				return fmt.Errorf("read %s: %w", in, err)
			}
			if err := os.WriteFile(out, []byte(convert.Compress(string(b))), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Printf("Compressed markdown written to: %s\n", out)
			return nil
		},
	}
}

func titlesCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "titles <input.md> <output>",
		Short: "Export level 1-3 headings as a table",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			src, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer src.Close()
			rows, err := convert.ExtractTitles(src)
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			records := make([][]string, len(rows))
			for i, r := range rows {
				records[i] = r.Strings()
			}
			w, err := export.NewWriterFactory().CreateFileWriter(args[1], export.Options{Format: f, SheetName: "标题", BOM: true})
			if err != nil {
				return err
			}
			if err := export.WriteAll(w, convert.TitleHeader, records); err != nil {
				return err
			}
			fmt.Printf("Exported %d titles to %s\n", len(rows), args[1])
			return nil
		},
	}
	cmd.Flags().String("format", cfg.ExportFormat, "output format: csv, xlsx")
	return cmd
}

func inspectCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Parse the document, link reference tables and report",
		Long: `解析文档并链接参照表，打印每层计数与链接结果。

Example:
  jiuyu inspect --doc output.md
  jiuyu inspect --json forest.json --index regions.xlsx --format xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, _ := cmd.Flags().GetString("doc")
			jsonOut, _ := cmd.Flags().GetString("json")
			indexOut, _ := cmd.Flags().GetString("index")
			format, _ := cmd.Flags().GetString("format")
			workers, _ := cmd.Flags().GetInt("workers")
			cfg.DocPath = doc
			if workers > 0 {
				cfg.LinkWorkers = workers
			}

			ctx := cmd.Context()
			var src reftable.RowSource
			if cfg.RefSource == "postgres" {
				db, err := utils.OpenPostgres(ctx, cfg)
				if err != nil {
					return err
				}
				if db == nil {
					return fmt.Errorf("REF_SOURCE=postgres requires PG_ENABLE=true")
				}
				defer db.Close()
				src = store.AttachDB(db)
			}
			snap, err := atlas.NewBuilder(cfg, src).Build(ctx)
			if err != nil {
				return err
			}
			printSummary(snap)

			if jsonOut != "" {
				b, err := json.MarshalIndent(snap.Forest, "", "  ")
				if err != nil {
					return err
				}
				if err := os.WriteFile(jsonOut, b, 0o644); err != nil {
					return err
				}
				fmt.Printf("Forest written to %s\n", jsonOut)
			}
			if indexOut != "" {
				f, err := export.ParseFormat(format)
				if err != nil {
					return err
				}
				w, err := export.NewWriterFactory().CreateFileWriter(indexOut, export.Options{Format: f, SheetName: "行政区", BOM: true})
				if err != nil {
					return err
				}
				if err := export.WriteAll(w, export.RegionIndexHeader, export.RegionIndex(snap.Forest)); err != nil {
					return err
				}
				fmt.Printf("Region index written to %s\n", indexOut)
			}
			return nil
		},
	}
	cmd.Flags().String("doc", cfg.DocPath, "markdown document")
	cmd.Flags().String("json", "", "write the linked forest as JSON")
	cmd.Flags().String("index", "", "write a flat region index (csv/xlsx)")
	cmd.Flags().String("format", cfg.ExportFormat, "index format: csv, xlsx")
	cmd.Flags().Int("workers", 0, "link workers (default LINK_WORKERS)")
	return cmd
}

func printSummary(s *atlas.Snapshot) {
	fmt.Printf("%-8s %8s %8s %8s\n", "level", "total", "linked", "geometry")
	for _, l := range []region.Level{region.LevelProvince, region.LevelCity, region.LevelDistrict} {
		ls := s.Stats.For(l)
		fmt.Printf("%-8s %8d %8d %8d\n", l.String(), ls.Total, ls.Linked, ls.WithGeometry)
	}
	if s.Report.Skipped {
		fmt.Println("\nLinking skipped: province/city/district tables not all loaded")
		return
	}
	r := s.Report
	fmt.Printf("\nmissed: %d/%d/%d  ambiguous: %d  duration: %s\n",
		r.Missed[1], r.Missed[2], r.Missed[3], r.TotalAmbiguous(), r.Duration)
}

func importRefsCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-refs",
		Short: "Import reference table files into PostgreSQL",
		Long: `读取配置中的参照表文件（shp / geojson）并整表替换到 PostgreSQL。

Example:
  PG_ENABLE=true jiuyu import-refs
  PG_ENABLE=true jiuyu import-refs --kind city --kind district`,
		RunE: func(cmd *cobra.Command, args []string) error {
			kindNames, _ := cmd.Flags().GetStringSlice("kind")
			kinds, err := parseKinds(kindNames)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			db, err := utils.OpenPostgres(ctx, cfg)
			if err != nil {
				return err
			}
			if db == nil {
				return fmt.Errorf("import-refs requires PG_ENABLE=true")
			}
			defer db.Close()
			if err := migrate.EnsureSchema(db); err != nil {
				return err
			}
			return importKinds(ctx, cfg, store.AttachDB(db), kinds)
		},
	}
	cmd.Flags().StringSlice("kind", nil, "kinds to import: country, province, city, district (default all)")
	return cmd
}

func parseKinds(names []string) ([]reftable.Kind, error) {
	if len(names) == 0 {
		return reftable.Kinds, nil
	}
	var out []reftable.Kind
	for _, n := range names {
		k, ok := reftable.ParseKind(n)
		if !ok {
			return nil, fmt.Errorf("unknown kind %q", n)
		}
		out = append(out, k)
	}
	return out, nil
}

func importKinds(ctx context.Context, cfg *config.Config, st *store.Store, kinds []reftable.Kind) error {
	bar := progressbar.NewOptions(len(kinds),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("importing"),
		progressbar.OptionShowCount(),
	)
	defer bar.Finish()
	for _, k := range kinds {
		path := reftable.PathFor(cfg, k)
		t, err := reftable.LoadFile(path, k, reftable.ColumnsFor(cfg, k), cfg.DBFEncoding)
		if err != nil {
			return err
		}
		if err := st.ReplaceTable(ctx, k, t.Rows, path); err != nil {
			return err
		}
		_ = bar.Add(1)
	}
	imports, err := st.Imports(ctx)
	if err != nil {
		return err
	}
	fmt.Println()
	for _, it := range imports {
		fmt.Printf("%-9s %7d rows  %s  %s\n", it.Kind, it.Rows, it.ImportedAt.Format("2006-01-02 15:04:05"), it.Source)
	}
	return nil
}
