package pipeline

import (
	"fmt"
	"path/filepath"
	"time"

	"ecomreport/internal/exporter"
	"ecomreport/internal/interactive"
)

// ReportOutcome 单个报表（或抽样）的执行结果
type ReportOutcome struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Rows    int    `json:"rows"`
	Chart   string `json:"chart,omitempty"` // 生成的图片文件名
	Skipped bool   `json:"skipped,omitempty"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Failed 是否失败
func (o ReportOutcome) Failed() bool {
	return o.Error != ""
}

// RunReport 一次运行的汇总
type RunReport struct {
	RunID         string                    `json:"run_id"`
	StartedAt     time.Time                 `json:"started_at"`
	FinishedAt    time.Time                 `json:"finished_at"`
	Reports       []ReportOutcome           `json:"reports"`
	Workbook      *exporter.WorkbookSummary `json:"workbook,omitempty"`
	WorkbookError string                    `json:"workbook_error,omitempty"`
	View          *interactive.Artifact     `json:"-"`
	ViewError     string                    `json:"view_error,omitempty"`
}

// Charts 成功生成的图片
func (r *RunReport) Charts() []string {
	var out []string
	for _, o := range r.Reports {
		if o.Chart != "" {
			out = append(out, o.Chart)
		}
	}
	return out
}

// Failures 失败的报表
func (r *RunReport) Failures() []ReportOutcome {
	var out []ReportOutcome
	for _, o := range r.Reports {
		if o.Failed() {
			out = append(out, o)
		}
	}
	return out
}

// SummaryLine 完成提示：工作簿文件名、工作表数、数据行数
func (r *RunReport) SummaryLine() string {
	if r.Workbook == nil {
		return fmt.Sprintf("工作簿未生成：%s", r.WorkbookError)
	}
	return fmt.Sprintf("已生成 %s：%d 个工作表，共 %d 行数据",
		filepath.Base(r.Workbook.Path), r.Workbook.SheetCount(), r.Workbook.Rows)
}
