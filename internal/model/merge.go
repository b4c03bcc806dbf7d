package model

import (
	"errors"
	"fmt"
)

// OtherLabel 合并后小占比扇区的名称
const OtherLabel = "Other"

// MinorShare 被合并进“Other”的原始行
type MinorShare struct {
	Label string
	Value float64
	Share float64 // 0~1
}

// MergeMinorShares 把占比低于 threshold 的行合并为一行 “Other”
//
// 返回只含 label/value 两列的新结果表（主要行保持原顺序，Other 在最后）以及被合并的原始行。
// threshold<=0 或不存在小占比行时，结果表与输入的两列一致、minors 为空。
func MergeMinorShares(r *Result, label, value string, threshold float64) (*Result, []MinorShare, error) {
	li := r.ColumnIndex(label)
	if li < 0 {
		return nil, nil, fmt.Errorf("column not found: %s", label)
	}
	vi := r.ColumnIndex(value)
	if vi < 0 {
		return nil, nil, fmt.Errorf("column not found: %s", value)
	}

	values := make([]float64, r.NumRows())
	total := 0.0
	for i := range r.rows {
		v, ok := ToFloat(r.rows[i][vi])
		if !ok {
			return nil, nil, fmt.Errorf("column %s row %d is not numeric: %v", value, i+1, r.rows[i][vi])
		}
		values[i] = v
		total += v
	}
	if total == 0 {
		return nil, nil, errors.New("sum of values is zero")
	}

	cols := []Column{
		{Name: label, Kind: ColumnText},
		{Name: value, Kind: ColumnNumeric},
	}
	var (
		rows     [][]any
		minors   []MinorShare
		otherSum float64
	)
	for i := range r.rows {
		name := FormatValue(r.rows[i][li], "")
		share := values[i] / total
		if threshold > 0 && share < threshold {
			minors = append(minors, MinorShare{Label: name, Value: values[i], Share: share})
			otherSum += values[i]
			continue
		}
		rows = append(rows, []any{name, values[i]})
	}
	if len(minors) > 0 {
		rows = append(rows, []any{OtherLabel, otherSum})
	}

	out, err := NewResult(cols, rows)
	if err != nil {
		return nil, nil, err
	}
	return out, minors, nil
}
