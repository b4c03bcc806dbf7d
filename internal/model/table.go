package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ColumnKind 列的值类型
type ColumnKind string

const (
	ColumnNumeric  ColumnKind = "numeric"  // int64 / float64
	ColumnText     ColumnKind = "text"     // string
	ColumnTemporal ColumnKind = "temporal" // time.Time
	ColumnNull     ColumnKind = "null"     // 全部为空，无法推断类型
)

// Column 列定义
type Column struct {
	Name     string     `json:"name"`
	Kind     ColumnKind `json:"kind"`
	Nullable bool       `json:"nullable"`
}

// Result 查询结果表（列有序、行有序）
//
// 由 store.Executor 生成后只读：所有列行数一致，单元格取值为 nil / int64 / float64 / string / time.Time / bool。
type Result struct {
	columns []Column
	rows    [][]any
}

// NewResult 创建结果表，校验每一行的列数
func NewResult(columns []Column, rows [][]any) (*Result, error) {
	seen := make(map[string]struct{}, len(columns))
	for i, c := range columns {
		if strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("column %d has empty name", i+1)
		}
		if _, dup := seen[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column name: %s", c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, fmt.Errorf("row %d has %d values, want %d", i+1, len(r), len(columns))
		}
	}
	cols := make([]Column, len(columns))
	copy(cols, columns)
	return &Result{columns: cols, rows: rows}, nil
}

// MustResult 测试/常量数据使用
func MustResult(columns []Column, rows [][]any) *Result {
	r, err := NewResult(columns, rows)
	if err != nil {
		panic(err)
	}
	return r
}

// Columns 列定义（副本）
func (r *Result) Columns() []Column {
	out := make([]Column, len(r.columns))
	copy(out, r.columns)
	return out
}

// ColumnNames 列名
func (r *Result) ColumnNames() []string {
	names := make([]string, len(r.columns))
	for i, c := range r.columns {
		names[i] = c.Name
	}
	return names
}

// NumRows 数据行数
func (r *Result) NumRows() int {
	if r == nil {
		return 0
	}
	return len(r.rows)
}

// NumColumns 列数
func (r *Result) NumColumns() int {
	return len(r.columns)
}

// IsEmpty 是否无数据行
func (r *Result) IsEmpty() bool {
	return r.NumRows() == 0
}

// ColumnIndex 按列名查找，未找到返回 -1
func (r *Result) ColumnIndex(name string) int {
	for i, c := range r.columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Column 按列名取列定义
func (r *Result) Column(name string) (Column, bool) {
	idx := r.ColumnIndex(name)
	if idx < 0 {
		return Column{}, false
	}
	return r.columns[idx], true
}

// Row 第 i 行（副本）
func (r *Result) Row(i int) []any {
	out := make([]any, len(r.rows[i]))
	copy(out, r.rows[i])
	return out
}

// Value 第 row 行 col 列
func (r *Result) Value(row, col int) any {
	return r.rows[row][col]
}

// Values 按列名取整列的值
func (r *Result) Values(name string) ([]any, error) {
	idx := r.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("column not found: %s", name)
	}
	out := make([]any, len(r.rows))
	for i, row := range r.rows {
		out[i] = row[idx]
	}
	return out, nil
}

// Floats 按列名取数值列；nil 单元格跳过，非数值报错
func (r *Result) Floats(name string) ([]float64, error) {
	values, err := r.Values(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(values))
	for i, v := range values {
		if v == nil {
			continue
		}
		f, ok := ToFloat(v)
		if !ok {
			return nil, fmt.Errorf("column %s row %d is not numeric: %v", name, i+1, v)
		}
		out = append(out, f)
	}
	return out, nil
}

// Head 返回前 n 行组成的新结果表
func (r *Result) Head(n int) *Result {
	if n < 0 || n >= len(r.rows) {
		return r
	}
	return &Result{columns: r.columns, rows: r.rows[:n]}
}

// ToFloat 数值单元格转换为 float64；NaN 与 ±Inf 视为非数值
func ToFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case int64:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case float64:
		f = x
	case float32:
		f = float64(x)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// FormatValue 单元格的稳定文本表示（用于坐标轴标签、分类名）
func FormatValue(v any, timeLayout string) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		if timeLayout == "" {
			timeLayout = "2006-01-02"
		}
		return x.Format(timeLayout)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprint(x)
	}
}
