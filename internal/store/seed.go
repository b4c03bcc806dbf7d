package store

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// seedFiles Olist 数据集 CSV 文件与快照表的对应关系（按导入顺序）
var seedFiles = []struct {
	table string
	file  string
}{
	{"olist_customers", "olist_customers_dataset.csv"},
	{"olist_sellers", "olist_sellers_dataset.csv"},
	{"olist_products", "olist_products_dataset.csv"},
	{"product_category_name_translation", "product_category_name_translation.csv"},
	{"olist_orders", "olist_orders_dataset.csv"},
	{"olist_order_items", "olist_order_items_dataset.csv"},
	{"olist_order_payments", "olist_order_payments_dataset.csv"},
}

// SeedCount 单表导入行数
type SeedCount struct {
	Table string
	File  string
	Rows  int
}

// SeedSnapshot 从数据集 CSV 目录建立（或刷新）本地 SQLite 快照
//
// 表头按列名匹配，快照中没有的列忽略，空串写为 NULL；目录中缺少的文件跳过，一个都没有时报错。
// 主键相同的行被覆盖，重复导入不会产生重复数据。
func SeedSnapshot(ctx context.Context, dbPath, csvDir string) ([]SeedCount, error) {
	var present []int
	for i, sf := range seedFiles {
		_, err := os.Stat(filepath.Join(csvDir, sf.file))
		switch {
		case err == nil:
			present = append(present, i)
		case os.IsNotExist(err):
		default:
			return nil, err
		}
	}
	if len(present) == 0 {
		return nil, fmt.Errorf("no dataset CSV files found in %s", csvDir)
	}

	if err := InitSnapshot(dbPath); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	counts := make([]SeedCount, 0, len(present))
	for _, i := range present {
		sf := seedFiles[i]
		n, err := importCSV(ctx, db, sf.table, filepath.Join(csvDir, sf.file))
		if err != nil {
			return counts, fmt.Errorf("import %s: %w", sf.file, err)
		}
		counts = append(counts, SeedCount{Table: sf.table, File: sf.file, Rows: n})
	}
	return counts, nil
}

func tableColumns(ctx context.Context, db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

func importCSV(ctx context.Context, db *sql.DB, table, path string) (int, error) {
	known, err := tableColumns(ctx, db, table)
	if err != nil {
		return 0, err
	}

	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("unable to read header: %w", err)
	}

	var (
		cols []string
		idx  []int
	)
	for i, h := range headers {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if known[name] {
			cols = append(cols, name)
			idx = append(idx, i)
		}
	}
	if len(cols) == 0 {
		return 0, fmt.Errorf("no header matches a column of %s", table)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), placeholders))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	n := 0
	args := make([]any, len(cols))
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0, fmt.Errorf("unable to read CSV: %w", err)
		}
		if len(record) == 0 {
			continue
		}
		for j, i := range idx {
			args[j] = nil
			if i < len(record) {
				if v := strings.TrimSpace(record[i]); v != "" {
					args[j] = v
				}
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("line %d: %w", n+2, err)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}
