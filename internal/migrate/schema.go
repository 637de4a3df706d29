package migrate

import (
	"database/sql"

	"jiuyu/internal/logger"
)

// 背景：首次运行自动创建参照表存储结构，导入与服务共用
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；只存参照表，不存链接后的森林
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS _ref_regions (
            kind TEXT NOT NULL,
            seq INT NOT NULL,
            name TEXT NOT NULL,
            code TEXT NOT NULL DEFAULT '',
            parent_code TEXT NOT NULL DEFAULT '',
            geometry_json TEXT,
            attrs_json TEXT NOT NULL DEFAULT '{}',
            PRIMARY KEY (kind, seq)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_ref_regions_kind_parent ON _ref_regions(kind, parent_code)`,
		`CREATE INDEX IF NOT EXISTS idx_ref_regions_kind_code ON _ref_regions(kind, code)`,
		`CREATE TABLE IF NOT EXISTS _ref_imports (
            kind TEXT PRIMARY KEY,
            source TEXT NOT NULL,
            rows INT NOT NULL,
            imported_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
	}
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
