package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecomreport/internal/config"
	"ecomreport/internal/model"
)

func newSnapshot(t *testing.T) string {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "olist.db")
	require.NoError(t, InitSnapshot(dbPath))

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	stmts := []string{
		`INSERT INTO olist_orders (order_id, customer_id, order_status, order_purchase_timestamp) VALUES
			('o1', 'c1', 'delivered', '2017-01-05 10:00:00'),
			('o2', 'c2', 'delivered', '2017-02-11 12:30:00'),
			('o3', 'c1', 'canceled',  '2017-02-20 08:15:00')`,
		`INSERT INTO olist_order_payments (order_id, payment_sequential, payment_type, payment_installments, payment_value) VALUES
			('o1', 1, 'credit_card', 1, 120.5),
			('o2', 1, 'boleto', 1, 45),
			('o3', 1, 'credit_card', 2, NULL)`,
	}
	for _, s := range stmts {
		_, err := db.Exec(s)
		require.NoError(t, err)
	}
	return dbPath
}

func sqliteExecutor(path string) *Executor {
	return NewExecutor(config.DatabaseConfig{Driver: "sqlite3", Name: path})
}

func TestExecuteMaterializesTypedColumns(t *testing.T) {
	exec := sqliteExecutor(newSnapshot(t))

	res, err := exec.Execute(context.Background(), `
		SELECT p.payment_type, COUNT(*) AS payment_count, SUM(p.payment_value) AS total_value
		FROM olist_order_payments p
		GROUP BY p.payment_type
		ORDER BY payment_count DESC`)
	require.NoError(t, err)

	require.Equal(t, []string{"payment_type", "payment_count", "total_value"}, res.ColumnNames())
	require.Equal(t, 2, res.NumRows())

	cols := res.Columns()
	assert.Equal(t, model.ColumnText, cols[0].Kind)
	assert.Equal(t, model.ColumnNumeric, cols[1].Kind)
	assert.Equal(t, model.ColumnNumeric, cols[2].Kind)

	assert.Equal(t, []any{"credit_card", int64(2), 120.5}, res.Row(0))
	assert.Equal(t, []any{"boleto", int64(1), float64(45)}, res.Row(1))
}

func TestExecuteWithArgsAndEmptyResult(t *testing.T) {
	exec := sqliteExecutor(newSnapshot(t))

	res, err := exec.Execute(context.Background(),
		`SELECT order_id, payment_value FROM olist_order_payments WHERE payment_type = ?`, "voucher")
	require.NoError(t, err)
	assert.True(t, res.IsEmpty())
	assert.Equal(t, []string{"order_id", "payment_value"}, res.ColumnNames())
}

func TestExecuteNullableColumn(t *testing.T) {
	exec := sqliteExecutor(newSnapshot(t))

	res, err := exec.Execute(context.Background(),
		`SELECT order_id, payment_value FROM olist_order_payments ORDER BY order_id`)
	require.NoError(t, err)

	col, ok := res.Column("payment_value")
	require.True(t, ok)
	assert.Equal(t, model.ColumnNumeric, col.Kind)
	assert.True(t, col.Nullable)
	assert.Nil(t, res.Value(2, 1))
}

func TestExecuteQueryError(t *testing.T) {
	exec := sqliteExecutor(newSnapshot(t))

	_, err := exec.Execute(context.Background(), `SELECT * FROM no_such_table`)
	require.Error(t, err)
	assert.True(t, model.ErrIs(err, model.CodeQuery), err.Error())
}

func TestExecuteConnectionError(t *testing.T) {
	exec := sqliteExecutor(filepath.Join(t.TempDir(), "missing", "olist.db"))

	_, err := exec.Execute(context.Background(), `SELECT 1`)
	require.Error(t, err)
	assert.True(t, model.ErrIs(err, model.CodeConnection), err.Error())
}

func TestKindOfDatabaseType(t *testing.T) {
	cases := map[string]model.ColumnKind{
		"INT8":        model.ColumnNumeric,
		"NUMERIC":     model.ColumnNumeric,
		"float8":      model.ColumnNumeric,
		"TIMESTAMP":   model.ColumnTemporal,
		"TIMESTAMPTZ": model.ColumnTemporal,
		"TEXT":        model.ColumnText,
		"VARCHAR":     model.ColumnText,
		"":            "",
	}
	for in, want := range cases {
		assert.Equal(t, want, kindOfDatabaseType(in), in)
	}
}

func TestNormalizeNumericText(t *testing.T) {
	assert.Equal(t, int64(42), normalizeValue("42", model.ColumnNumeric))
	assert.Equal(t, 23.45, normalizeValue([]byte("23.45"), model.ColumnNumeric))
	assert.Equal(t, "23.45", normalizeValue("23.45", model.ColumnText))
	assert.Equal(t, int64(3), normalizeValue(int32(3), ""))
}

func writeCSV(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestSeedSnapshotFromDatasetCSV(t *testing.T) {
	csvDir := t.TempDir()
	writeCSV(t, csvDir, "olist_customers_dataset.csv", "\ufeffcustomer_id,customer_unique_id,customer_zip_code_prefix,customer_city,customer_state\n"+
		"c1,u1,01001,sao paulo,SP\n"+
		"c2,u2,20010,rio de janeiro,RJ\n")
	writeCSV(t, csvDir, "olist_orders_dataset.csv", "order_id,customer_id,order_status,order_purchase_timestamp,order_approved_at,order_delivered_carrier_date,order_delivered_customer_date,order_estimated_delivery_date\n"+
		"o1,c1,delivered,2017-01-05 10:00:00,,,2017-01-12 18:00:00,2017-01-20 00:00:00\n"+
		"o2,c2,canceled,2017-02-11 12:30:00,,,,2017-02-28 00:00:00\n")
	// 快照中没有的列（product_name_lenght）被忽略
	writeCSV(t, csvDir, "olist_order_payments_dataset.csv", "order_id,payment_sequential,payment_type,payment_installments,payment_value,product_name_lenght\n"+
		"o1,1,credit_card,1,120.5,7\n"+
		"o2,1,boleto,1,,9\n")

	dbPath := filepath.Join(t.TempDir(), "data", "olist.db")
	counts, err := SeedSnapshot(context.Background(), dbPath, csvDir)
	require.NoError(t, err)
	assert.Equal(t, []SeedCount{
		{Table: "olist_customers", File: "olist_customers_dataset.csv", Rows: 2},
		{Table: "olist_orders", File: "olist_orders_dataset.csv", Rows: 2},
		{Table: "olist_order_payments", File: "olist_order_payments_dataset.csv", Rows: 2},
	}, counts)

	exec := sqliteExecutor(dbPath)
	res, err := exec.Execute(context.Background(), `
		SELECT c.customer_state, p.payment_type, p.payment_value, o.order_delivered_customer_date
		FROM olist_orders o
		JOIN olist_customers c ON o.customer_id = c.customer_id
		JOIN olist_order_payments p ON o.order_id = p.order_id
		ORDER BY o.order_id`)
	require.NoError(t, err)
	require.Equal(t, 2, res.NumRows())
	assert.Equal(t, []any{"SP", "credit_card", 120.5, "2017-01-12 18:00:00"}, res.Row(0))
	assert.Equal(t, []any{"RJ", "boleto", nil, nil}, res.Row(1))

	// 重复导入覆盖同主键行
	_, err = SeedSnapshot(context.Background(), dbPath, csvDir)
	require.NoError(t, err)
	res, err = exec.Execute(context.Background(), `SELECT COUNT(*) AS n FROM olist_orders`)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Value(0, 0))
}

func TestSeedSnapshotWithoutDatasetFiles(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "olist.db")
	_, err := SeedSnapshot(context.Background(), dbPath, t.TempDir())
	require.Error(t, err)
	assert.NoFileExists(t, dbPath)
}
