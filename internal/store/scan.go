package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ecomreport/internal/model"
)

// materialize 读取全部行，统一单元格类型并推断列类型
func materialize(rows *sql.Rows) (*model.Result, error) {
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("column types: %w", err)
	}

	n := len(colTypes)
	declared := make([]model.ColumnKind, n)
	for i, ct := range colTypes {
		declared[i] = kindOfDatabaseType(ct.DatabaseTypeName())
	}

	var data [][]any
	for rows.Next() {
		raw := make([]any, n)
		ptrs := make([]any, n)
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row %d: %w", len(data)+1, err)
		}
		for i := range raw {
			raw[i] = normalizeValue(raw[i], declared[i])
		}
		data = append(data, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	columns := make([]model.Column, n)
	for i, ct := range colTypes {
		kind, sawNull := inferKind(data, i)
		if kind == model.ColumnNull && declared[i] != "" {
			kind = declared[i]
		}
		nullable, ok := ct.Nullable()
		columns[i] = model.Column{
			Name:     ct.Name(),
			Kind:     kind,
			Nullable: sawNull || (ok && nullable),
		}
	}

	return model.NewResult(columns, data)
}

// kindOfDatabaseType 根据驱动报告的列类型名推断；无法判断时返回空串
func kindOfDatabaseType(name string) model.ColumnKind {
	t := strings.ToUpper(strings.TrimSpace(name))
	switch {
	case t == "":
		return ""
	case strings.Contains(t, "INT"), strings.Contains(t, "NUMERIC"), strings.Contains(t, "DECIMAL"),
		strings.Contains(t, "REAL"), strings.Contains(t, "FLOAT"), strings.Contains(t, "DOUBLE"):
		return model.ColumnNumeric
	case strings.Contains(t, "DATE"), strings.Contains(t, "TIME"):
		return model.ColumnTemporal
	default:
		return model.ColumnText
	}
}

// normalizeValue 统一驱动返回的 Go 类型：整数 -> int64，浮点 -> float64，字节 -> string
func normalizeValue(v any, declared model.ColumnKind) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		return normalizeValue(string(x), declared)
	case string:
		// pgx 对 NUMERIC 返回文本形式
		if declared == model.ColumnNumeric {
			if i, err := strconv.ParseInt(x, 10, 64); err == nil {
				return i
			}
			if f, err := strconv.ParseFloat(x, 64); err == nil {
				return f
			}
		}
		return x
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}

// inferKind 按实际值推断列类型；第二个返回值表示是否出现过空值
func inferKind(data [][]any, col int) (model.ColumnKind, bool) {
	kind := model.ColumnNull
	sawNull := false
	for _, row := range data {
		var k model.ColumnKind
		switch row[col].(type) {
		case nil:
			sawNull = true
			continue
		case int64, float64:
			k = model.ColumnNumeric
		case time.Time:
			k = model.ColumnTemporal
		default:
			k = model.ColumnText
		}
		if kind == model.ColumnNull {
			kind = k
		} else if kind != k {
			kind = model.ColumnText
		}
	}
	return kind, sawNull
}
