package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"ecomreport/internal/catalog"
	"ecomreport/internal/exporter"
	"ecomreport/internal/interactive"
	"ecomreport/internal/model"
)

// LockFileName 导出目录中的运行锁文件
const LockFileName = ".reportgen.lock"

// Executor 查询执行
type Executor interface {
	Execute(ctx context.Context, query string, args ...any) (*model.Result, error)
}

// ChartRenderer 静态图渲染
type ChartRenderer interface {
	Render(res *model.Result, kind model.ChartKind, title, outputPath string) error
}

// ViewBuilder 交互视图构建
type ViewBuilder interface {
	Build(res *model.Result, timeCol, categoryCol, magnitudeCol, title string) (*interactive.Artifact, error)
}

// Options 运行参数
type Options struct {
	ChartDir     string
	WorkbookPath string
}

// Pipeline 报表流水线：顺序执行目录中的报表，出图并汇总为一个工作簿
type Pipeline struct {
	catalog    *catalog.Catalog
	exec       Executor
	renderer   ChartRenderer
	aggregator *exporter.Aggregator
	views      ViewBuilder
	opts       Options

	// Progress 每个步骤完成后回调（可选）
	Progress func(exporter.ProgressEvent)
	// Logf 诊断输出，默认 log.Printf
	Logf func(format string, args ...any)
}

// New 创建流水线
func New(c *catalog.Catalog, exec Executor, renderer ChartRenderer, aggregator *exporter.Aggregator, views ViewBuilder, opts Options) *Pipeline {
	return &Pipeline{
		catalog:    c,
		exec:       exec,
		renderer:   renderer,
		aggregator: aggregator,
		views:      views,
		opts:       opts,
		Logf:       log.Printf,
	}
}

// Run 执行一次完整运行
//
// 单个报表的查询/绘图失败只记录并跳过；工作簿与交互视图失败只影响各自步骤。
// 仅在无法获得导出目录锁或 ctx 取消时返回错误。
func (p *Pipeline) Run(ctx context.Context) (*RunReport, error) {
	exportDir := filepath.Dir(p.opts.WorkbookPath)
	if err := os.MkdirAll(exportDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	lock := flock.New(filepath.Join(exportDir, LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another run is writing to %s", exportDir)
	}
	defer lock.Unlock()

	run := &RunReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	p.aggregator.RunID = run.RunID

	reports := p.catalog.Reports()
	extracts := p.catalog.Extracts()
	steps := len(reports) + len(extracts) + 2
	done := 0
	step := func(stage string) {
		done++
		p.progress(100*done/steps, stage)
	}

	results := model.NewNamedResults()
	for _, def := range reports {
		if err := ctx.Err(); err != nil {
			return run, err
		}
		run.Reports = append(run.Reports, p.runReport(ctx, def, results))
		step(def.Name)
	}

	for _, ex := range extracts {
		if err := ctx.Err(); err != nil {
			return run, err
		}
		run.Reports = append(run.Reports, p.runExtract(ctx, ex, results))
		step(ex.Name)
	}

	summary, err := p.aggregator.Aggregate(results, p.opts.WorkbookPath)
	if err != nil {
		p.Logf("workbook: %v", err)
		run.WorkbookError = errorText(err)
	} else {
		run.Workbook = summary
	}
	step("workbook")

	if ts := p.catalog.Interactive(); ts != nil {
		view, err := p.buildView(ctx, *ts)
		if err != nil {
			p.Logf("interactive %s: %v", ts.Name, err)
			run.ViewError = errorText(err)
		} else {
			run.View = view
		}
	}
	step("interactive")

	run.FinishedAt = time.Now()
	return run, nil
}

func (p *Pipeline) runReport(ctx context.Context, def model.ReportDefinition, results *model.NamedResults) ReportOutcome {
	out := ReportOutcome{Name: def.Name, Kind: def.Chart.Name()}

	res, err := p.exec.Execute(ctx, def.Query)
	if err != nil {
		p.fail(&out, err)
		return out
	}
	out.Rows = res.NumRows()
	if !results.Add(def.Name, res) {
		out.Skipped = true
		p.Logf("report %s: empty result, skipped", def.Name)
		return out
	}

	chartPath := filepath.Join(p.opts.ChartDir, def.Output)
	if err := p.renderer.Render(res, def.Chart, def.Title, chartPath); err != nil {
		p.fail(&out, err)
		return out
	}
	out.Chart = def.Output
	return out
}

func (p *Pipeline) runExtract(ctx context.Context, ex model.Extract, results *model.NamedResults) ReportOutcome {
	out := ReportOutcome{Name: ex.Name, Kind: "extract"}

	res, err := p.exec.Execute(ctx, ex.Query)
	if err != nil {
		p.fail(&out, err)
		return out
	}
	if ex.RowLimit > 0 {
		res = res.Head(ex.RowLimit)
	}
	out.Rows = res.NumRows()
	if !results.Add(ex.Name, res) {
		out.Skipped = true
		p.Logf("report %s: empty result, skipped", ex.Name)
	}
	return out
}

func (p *Pipeline) buildView(ctx context.Context, ts model.TimeSlice) (*interactive.Artifact, error) {
	res, err := p.exec.Execute(ctx, ts.Query)
	if err != nil {
		return nil, err
	}
	return p.views.Build(res, ts.Time, ts.Category, ts.Magnitude, ts.Title)
}

func (p *Pipeline) fail(out *ReportOutcome, err error) {
	out.Code = model.ErrCode(err)
	out.Error = errorText(err)
	p.Logf("report %s: %v", out.Name, err)
}

func (p *Pipeline) progress(percent int, stage string) {
	if p.Progress == nil {
		return
	}
	p.Progress(exporter.ProgressEvent{Percent: percent, Stage: stage})
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
