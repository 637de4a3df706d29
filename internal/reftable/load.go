package reftable

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"jiuyu/internal/config"
	"jiuyu/internal/logger"
	"jiuyu/internal/metrics"
)

// RowSource 按种类提供已导入的参照表行（PostgreSQL 等）
type RowSource interface {
	LoadRows(ctx context.Context, kind Kind) ([]Row, error)
}

// 文档注释：按扩展名加载单个参照表文件
// 约束：支持 .shp、.geojson、.json；其它扩展名返回 ErrUnknownFormat
func LoadFile(path string, kind Kind, cols config.Columns, dbfEncoding string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return LoadShapefile(path, kind, cols, dbfEncoding)
	case ".geojson", ".json":
		return LoadGeoJSON(path, kind, cols)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// LoadFromStore 从行来源读取一张表；零行返回空表而非 nil。
func LoadFromStore(ctx context.Context, src RowSource, kind Kind) (*Table, error) {
	rows, err := src.LoadRows(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("reftable: load %s from store: %w", kind, err)
	}
	return &Table{Kind: kind, Rows: rows}, nil
}

// 文档注释：按配置加载四张参照表
// 背景：REF_SOURCE=file 时逐个读取文件，文件不存在则该表保持 nil 并记录日志；
// REF_SOURCE=postgres 时从 src 读取
// 约束：
// - 单表失败不影响其它表，错误合并后返回，调用方据 Tables.Ready 决定是否链接
// - src 为 nil 且来源为 postgres 时四张表均为 nil
func LoadAll(ctx context.Context, cfg *config.Config, src RowSource) (Tables, error) {
	var ts Tables
	var errs []error
	start := time.Now()
	for _, k := range Kinds {
		if err := ctx.Err(); err != nil {
			return ts, err
		}
		var (
			t   *Table
			err error
		)
		switch cfg.RefSource {
		case "postgres":
			if src == nil {
				logger.L().Warn("reftable_store_unavailable", "kind", k)
				continue
			}
			t, err = LoadFromStore(ctx, src, k)
		default:
			path := PathFor(cfg, k)
			if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
				logger.L().Warn("reftable_file_missing", "kind", k, "path", path)
				continue
			}
			t, err = LoadFile(path, k, ColumnsFor(cfg, k), cfg.DBFEncoding)
		}
		if err != nil {
			logger.L().Error("reftable_load_error", "kind", k, "err", err)
			errs = append(errs, err)
			continue
		}
		ts.Set(k, t)
		metrics.RefRowsLoaded.WithLabelValues(string(k)).Set(float64(t.Len()))
		logger.L().Debug("reftable_loaded", "kind", k, "rows", t.Len())
	}
	logger.L().Info("reftable_load_done",
		"source", cfg.RefSource,
		"province", ts.Province.Len(),
		"city", ts.City.Len(),
		"district", ts.District.Len(),
		"country", ts.Country.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return ts, errors.Join(errs...)
}
