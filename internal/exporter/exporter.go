package exporter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"ecomreport/internal/model"
	"ecomreport/internal/util"
)

// MaxSheetNameLen 工作表名长度上限（字符）
const MaxSheetNameLen = 31

// Aggregator 工作簿汇总器
//
// 两阶段：先逐表写入并保存，再重新打开做格式后处理（冻结窗格、筛选、色阶）。
type Aggregator struct {
	// 文档属性
	Title   string
	Creator string
	RunID   string

	Progress func(ProgressEvent)
}

// NewAggregator 创建汇总器
func NewAggregator() *Aggregator {
	return &Aggregator{
		Title:   "E-commerce Report",
		Creator: "reportgen",
	}
}

// WorkbookSummary 汇总结果
type WorkbookSummary struct {
	Path   string   `json:"path"`
	Sheets []string `json:"sheets"` // 实际工作表名（已截断），按写入顺序
	Rows   int      `json:"rows"`   // 数据行数合计，不含表头
	Rules  int      `json:"rules"`  // 色阶规则数量
}

// SheetCount 工作表数量
func (s *WorkbookSummary) SheetCount() int {
	return len(s.Sheets)
}

func (s *WorkbookSummary) String() string {
	return fmt.Sprintf("%s: %s, %s", filepath.Base(s.Path), util.Plural(len(s.Sheets), "sheet"), util.Plural(s.Rows, "row"))
}

// SheetName 工作表名：截断到 31 个字符
func SheetName(name string) string {
	return util.TruncateRunes(name, MaxSheetNameLen)
}

type plannedSheet struct {
	sheet  string
	source string
	result *model.Result
}

// planSheets 截断名称并检测冲突（不区分大小写）
func planSheets(results *model.NamedResults) ([]plannedSheet, error) {
	seen := make(map[string]string)
	plan := make([]plannedSheet, 0, results.Len())
	for _, e := range results.Entries() {
		sheet := SheetName(e.Name)
		key := strings.ToLower(sheet)
		if prev, ok := seen[key]; ok {
			return nil, model.DuplicateSheetErr("sheet names collide after truncation", map[string]any{
				"sheet":  sheet,
				"first":  prev,
				"second": e.Name,
			})
		}
		seen[key] = e.Name
		plan = append(plan, plannedSheet{sheet: sheet, source: e.Name, result: e.Result})
	}
	return plan, nil
}

// Aggregate 把命名结果集写成一个多表工作簿
//
// 名称冲突返回 DuplicateSheetError，且不写任何文件；路径不可写返回 WriteError。
func (a *Aggregator) Aggregate(results *model.NamedResults, path string) (*WorkbookSummary, error) {
	data := map[string]any{"path": path}
	if results == nil || results.Len() == 0 {
		return nil, model.WriteErr("no results to write", nil, data)
	}

	plan, err := planSheets(results)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, model.WriteErr("failed to create export directory", err, data)
	}

	reportProgress(a.Progress, 5, "写入工作表")
	if err := a.write(plan, path); err != nil {
		return nil, err
	}

	reportProgress(a.Progress, 50, "格式化")
	rules, err := a.format(plan, path)
	if err != nil {
		return nil, err
	}

	summary := &WorkbookSummary{Path: path, Rules: rules}
	for _, p := range plan {
		summary.Sheets = append(summary.Sheets, p.sheet)
		summary.Rows += p.result.NumRows()
	}
	reportProgress(a.Progress, 100, "完成")
	return summary, nil
}

// write 第一阶段：表头 + 数据行，保存
func (a *Aggregator) write(plan []plannedSheet, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E2E8F0"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return model.WriteErr("failed to create header style", err, nil)
	}

	for i, p := range plan {
		if i == 0 {
			err = f.SetSheetName("Sheet1", p.sheet)
		} else {
			_, err = f.NewSheet(p.sheet)
		}
		if err != nil {
			return model.WriteErr("failed to create sheet", err, map[string]any{"sheet": p.sheet})
		}
		if err := writeSheet(f, p, headerStyle); err != nil {
			return model.WriteErr("failed to write sheet", err, map[string]any{"sheet": p.sheet})
		}
		reportProgress(a.Progress, 5+45*(i+1)/len(plan), "写入 "+p.sheet)
	}

	f.SetActiveSheet(0)
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:      a.Title,
		Creator:    a.Creator,
		Identifier: a.RunID,
	}); err != nil {
		return model.WriteErr("failed to set document properties", err, nil)
	}
	if err := f.SaveAs(path); err != nil {
		return model.WriteErr("failed to save workbook", err, map[string]any{"path": path})
	}
	return nil
}

func writeSheet(f *excelize.File, p plannedSheet, headerStyle int) error {
	names := p.result.ColumnNames()
	header := make([]any, len(names))
	for i, n := range names {
		header[i] = n
	}
	if err := f.SetSheetRow(p.sheet, "A1", &header); err != nil {
		return err
	}
	if err := f.SetRowStyle(p.sheet, 1, 1, headerStyle); err != nil {
		return err
	}

	for r := 0; r < p.result.NumRows(); r++ {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		row := p.result.Row(r)
		if err := f.SetSheetRow(p.sheet, cell, &row); err != nil {
			return fmt.Errorf("row %d: %w", r+1, err)
		}
	}

	if len(names) > 0 {
		last, err := excelize.ColumnNumberToName(len(names))
		if err != nil {
			return err
		}
		if err := f.SetColWidth(p.sheet, "A", last, 18); err != nil {
			return err
		}
	}
	return nil
}
