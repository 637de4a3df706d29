// 包 store: 参照表的 PostgreSQL 存储，导入时整表替换，服务启动时按种类读取
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"jiuyu/internal/geo"
	"jiuyu/internal/logger"
	"jiuyu/internal/reftable"
)

// Store: 数据库访问入口，持有连接池
type Store struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

// Close: 关闭数据库连接
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// 文档注释：整表替换某一种类的参照表
// 背景：导入来源是完整的参照文件，增量合并没有意义；删除与写入在同一事务内，读者不会看到半张表
// 约束：seq 按 rows 顺序从 0 递增，读取时据此恢复"首行优先"所依赖的顺序；写入使用 COPY
func (s *Store) ReplaceTable(ctx context.Context, kind reftable.Kind, rows []reftable.Row, source string) (err error) {
	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM _ref_regions WHERE kind = $1`, string(kind)); err != nil {
		return fmt.Errorf("store: clear %s: %w", kind, err)
	}
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("_ref_regions",
		"kind", "seq", "name", "code", "parent_code", "geometry_json", "attrs_json"))
	if err != nil {
		return fmt.Errorf("store: prepare copy: %w", err)
	}
	defer stmt.Close()
	for i, r := range rows {
		geom, attrs, encErr := encodeRow(r)
		if encErr != nil {
			return fmt.Errorf("store: encode %s row %d: %w", kind, i, encErr)
		}
		if _, err = stmt.ExecContext(ctx, string(kind), i, r.Name, r.Code, r.ParentCode, geom, attrs); err != nil {
			return fmt.Errorf("store: copy %s row %d: %w", kind, i, err)
		}
	}
	if _, err = stmt.ExecContext(ctx); err != nil {
		return fmt.Errorf("store: flush copy: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO _ref_imports(kind, source, rows, imported_at)
        VALUES($1, $2, $3, now())
        ON CONFLICT (kind) DO UPDATE SET source = EXCLUDED.source, rows = EXCLUDED.rows, imported_at = EXCLUDED.imported_at`,
		string(kind), source, len(rows)); err != nil {
		return fmt.Errorf("store: record import: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	logger.L().Info("store_replace_ok", "kind", kind, "rows", len(rows), "source", source, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

func encodeRow(r reftable.Row) (any, string, error) {
	var geom any
	if !r.Geometry.Empty() {
		b, err := json.Marshal(r.Geometry)
		if err != nil {
			return nil, "", err
		}
		geom = string(b)
	}
	attrs := "{}"
	if len(r.Attrs) > 0 {
		b, err := json.Marshal(r.Attrs)
		if err != nil {
			return nil, "", err
		}
		attrs = string(b)
	}
	return geom, attrs, nil
}

// 文档注释：按种类读取参照表行，实现 reftable.RowSource
// 约束：按 seq 升序；几何或属性 JSON 损坏的行保留名称与编码，对应字段置空并记录日志
func (s *Store) LoadRows(ctx context.Context, kind reftable.Kind) ([]reftable.Row, error) {
	rs, err := s.db.QueryContext(ctx, `SELECT name, code, parent_code, geometry_json, attrs_json
        FROM _ref_regions WHERE kind = $1 ORDER BY seq`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("store: query %s: %w", kind, err)
	}
	defer rs.Close()
	var out []reftable.Row
	for rs.Next() {
		var r reftable.Row
		var geom sql.NullString
		var attrs string
		if err := rs.Scan(&r.Name, &r.Code, &r.ParentCode, &geom, &attrs); err != nil {
			return nil, fmt.Errorf("store: scan %s: %w", kind, err)
		}
		if geom.Valid && geom.String != "" {
			var b geo.Boundary
			if err := json.Unmarshal([]byte(geom.String), &b); err != nil {
				logger.L().Warn("store_geometry_decode_error", "kind", kind, "name", r.Name, "err", err)
			} else {
				r.Geometry = &b
			}
		}
		if attrs != "" && attrs != "{}" {
			if err := json.Unmarshal([]byte(attrs), &r.Attrs); err != nil {
				logger.L().Warn("store_attrs_decode_error", "kind", kind, "name", r.Name, "err", err)
			}
		}
		out = append(out, r)
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("store: rows %s: %w", kind, err)
	}
	return out, nil
}

// ImportInfo 最近一次导入记录
type ImportInfo struct {
	Kind       string    `json:"kind"`
	Source     string    `json:"source"`
	Rows       int       `json:"rows"`
	ImportedAt time.Time `json:"imported_at"`
}

// Imports 列出各种类最近一次导入。
func (s *Store) Imports(ctx context.Context) ([]ImportInfo, error) {
	rs, err := s.db.QueryContext(ctx, `SELECT kind, source, rows, imported_at FROM _ref_imports ORDER BY kind`)
	if err != nil {
		return nil, fmt.Errorf("store: query imports: %w", err)
	}
	defer rs.Close()
	var out []ImportInfo
	for rs.Next() {
		var it ImportInfo
		if err := rs.Scan(&it.Kind, &it.Source, &it.Rows, &it.ImportedAt); err != nil {
			return nil, fmt.Errorf("store: scan import: %w", err)
		}
		out = append(out, it)
	}
	return out, rs.Err()
}
