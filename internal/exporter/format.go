package exporter

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"ecomreport/internal/model"
)

// 色阶颜色：最小值红、中位数黄、最大值绿
const (
	scaleMinColor = "#F8696B"
	scaleMidColor = "#FFEB84"
	scaleMaxColor = "#63BE7B"
)

// 内置日期/时间数字格式
var builtinDateFormats = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 18: true, 19: true, 20: true, 21: true, 22: true,
	45: true, 46: true, 47: true,
}

// format 第二阶段：重新打开已保存的工作簿，逐表设置冻结窗格、筛选与色阶
func (a *Aggregator) format(plan []plannedSheet, path string) (int, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return 0, model.WriteErr("failed to reopen workbook", err, map[string]any{"path": path})
	}
	defer f.Close()

	rules := 0
	for i, p := range plan {
		n, err := formatSheet(f, p.sheet, p.result.NumColumns(), p.result.NumRows())
		if err != nil {
			return 0, model.WriteErr("failed to format sheet", err, map[string]any{"sheet": p.sheet})
		}
		rules += n
		reportProgress(a.Progress, 50+45*(i+1)/len(plan), "格式化 "+p.sheet)
	}

	if err := f.Save(); err != nil {
		return 0, model.WriteErr("failed to save workbook", err, map[string]any{"path": path})
	}
	return rules, nil
}

func formatSheet(f *excelize.File, sheet string, numCols, numRows int) (int, error) {
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		XSplit:      1,
		YSplit:      1,
		TopLeftCell: "B2",
		ActivePane:  "bottomRight",
		Selection: []excelize.Selection{
			{SQRef: "B2", ActiveCell: "B2", Pane: "bottomRight"},
		},
	}); err != nil {
		return 0, fmt.Errorf("set panes: %w", err)
	}
	if numCols == 0 {
		return 0, nil
	}

	lastCell, err := excelize.CoordinatesToCellName(numCols, numRows+1)
	if err != nil {
		return 0, err
	}
	if err := f.AutoFilter(sheet, "A1:"+lastCell, nil); err != nil {
		return 0, fmt.Errorf("auto filter: %w", err)
	}

	grid, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return 0, fmt.Errorf("read back: %w", err)
	}

	scan := newCellScanner(f, sheet)
	rules := 0
	for col := 1; col <= numCols; col++ {
		values, ok, err := scan.numericColumn(grid, col, numRows)
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}
		stats := Stats(values)
		rangeRef, err := columnRange(col, numRows)
		if err != nil {
			return 0, err
		}
		if err := f.SetConditionalFormat(sheet, rangeRef, []excelize.ConditionalFormatOptions{stats.colorScale()}); err != nil {
			return 0, fmt.Errorf("color scale %s: %w", rangeRef, err)
		}
		rules++
	}
	return rules, nil
}

func columnRange(col, numRows int) (string, error) {
	first, err := excelize.CoordinatesToCellName(col, 2)
	if err != nil {
		return "", err
	}
	last, err := excelize.CoordinatesToCellName(col, numRows+1)
	if err != nil {
		return "", err
	}
	return first + ":" + last, nil
}

// cellScanner 按单元格实际存储类型判断是否为数值
type cellScanner struct {
	f         *excelize.File
	sheet     string
	dateStyle map[int]bool
}

func newCellScanner(f *excelize.File, sheet string) *cellScanner {
	return &cellScanner{f: f, sheet: sheet, dateStyle: make(map[int]bool)}
}

// numericColumn 第 col 列全部数据单元格为数值或空时返回其数值；全空列不参与
func (s *cellScanner) numericColumn(grid [][]string, col, numRows int) ([]float64, bool, error) {
	var values []float64
	for r := 1; r <= numRows; r++ {
		raw := ""
		if r < len(grid) && col-1 < len(grid[r]) {
			raw = grid[r][col-1]
		}
		if raw == "" {
			continue
		}

		cell, err := excelize.CoordinatesToCellName(col, r+1)
		if err != nil {
			return nil, false, err
		}
		v, ok, err := s.numericCell(cell, raw)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		values = append(values, v)
	}
	return values, len(values) > 0, nil
}

func (s *cellScanner) numericCell(cell, raw string) (float64, bool, error) {
	typ, err := s.f.GetCellType(s.sheet, cell)
	if err != nil {
		return 0, false, err
	}
	if typ != excelize.CellTypeUnset && typ != excelize.CellTypeNumber {
		return 0, false, nil
	}

	styleID, err := s.f.GetCellStyle(s.sheet, cell)
	if err != nil {
		return 0, false, err
	}
	if styleID != 0 {
		isDate, err := s.isDateStyle(styleID)
		if err != nil {
			return 0, false, err
		}
		if isDate {
			return 0, false, nil
		}
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, nil
	}
	return v, true, nil
}

func (s *cellScanner) isDateStyle(id int) (bool, error) {
	if v, ok := s.dateStyle[id]; ok {
		return v, nil
	}
	style, err := s.f.GetStyle(id)
	if err != nil {
		return false, err
	}
	isDate := builtinDateFormats[style.NumFmt]
	if style.CustomNumFmt != nil {
		isDate = isDateFormatCode(*style.CustomNumFmt)
	}
	s.dateStyle[id] = isDate
	return isDate, nil
}

// isDateFormatCode 自定义格式中出现年/日/时/秒占位符即视为日期格式（忽略引号内文本）
func isDateFormatCode(code string) bool {
	var sb strings.Builder
	quoted := false
	for _, r := range strings.ToLower(code) {
		if r == '"' {
			quoted = !quoted
			continue
		}
		if !quoted {
			sb.WriteRune(r)
		}
	}
	plain := sb.String()
	for _, token := range []string{"yy", "dd", "hh", "ss", "d/", "m/d", "mmm"} {
		if strings.Contains(plain, token) {
			return true
		}
	}
	return false
}
