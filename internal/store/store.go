package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"ecomreport/internal/config"
	"ecomreport/internal/model"
)

//go:embed schema.sql
var schemaFS embed.FS

// Executor 查询执行器
//
// 无状态：每次 Execute 打开并释放一个连接，任何退出路径都会关闭连接。
type Executor struct {
	cfg    config.DatabaseConfig
	driver string
	dsn    string
}

// NewExecutor 创建查询执行器
func NewExecutor(cfg config.DatabaseConfig) *Executor {
	dsn := cfg.DSN()
	if cfg.Driver == "sqlite3" && !strings.HasPrefix(dsn, "file:") {
		// 只读打开：文件不存在时连接失败，而不是创建空库
		dsn = "file:" + dsn + "?mode=ro"
	}
	return &Executor{
		cfg:    cfg,
		driver: cfg.Driver,
		dsn:    dsn,
	}
}

// Source 数据源描述（不含密码）
func (e *Executor) Source() string {
	return e.cfg.Redacted()
}

// Execute 执行查询并物化为结果表
//
// 数据源不可达返回 ConnectionError；查询被拒绝或结果读取失败返回 QueryError。不做重试。
func (e *Executor) Execute(ctx context.Context, query string, args ...any) (*model.Result, error) {
	db, err := sql.Open(e.driver, e.dsn)
	if err != nil {
		return nil, model.ConnectionErr("failed to open database", err, map[string]any{"source": e.Source()})
	}
	defer db.Close()

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, model.ConnectionErr("failed to connect database", err, map[string]any{"source": e.Source()})
	}
	defer conn.Close()

	if err := conn.PingContext(ctx); err != nil {
		return nil, model.ConnectionErr("failed to ping database", err, map[string]any{"source": e.Source()})
	}

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, model.QueryErr("query rejected", err, nil)
	}
	defer rows.Close()

	result, err := materialize(rows)
	if err != nil {
		return nil, model.QueryErr("failed to read result", err, nil)
	}
	return result, nil
}

// InitSnapshot 创建（或补齐）本地 SQLite 快照库的表结构
func InitSnapshot(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}
