package chart

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"ecomreport/internal/model"
)

// 类目超过该数量时 X 轴标签旋转
const rotateLabelsAbove = 6

// DefaultLineLayout 折线图时间类 X 值的默认格式
const DefaultLineLayout = "2006-01"

// Renderer 静态图表渲染器
type Renderer struct {
	Width  vg.Length
	Height vg.Length
}

// NewRenderer 创建渲染器（10x6 英寸）
func NewRenderer() *Renderer {
	return &Renderer{Width: 10 * vg.Inch, Height: 6 * vg.Inch}
}

// Render 把结果表按图表类型绘制到 outputPath
//
// 输出目录不存在时创建。任何失败都返回 RenderError，且不会留下残缺的文件。
func (r *Renderer) Render(res *model.Result, kind model.ChartKind, title, outputPath string) error {
	data := map[string]any{"output": filepath.Base(outputPath)}
	if kind == nil {
		return model.RenderErr("chart kind is nil", nil, data)
	}
	data["kind"] = kind.Name()

	if res.IsEmpty() {
		return model.RenderErr("result is empty", nil, data)
	}
	if err := requireColumns(res, kind); err != nil {
		return err
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(outputPath)), ".")
	if format == "" {
		return model.RenderErr("output path has no image extension", nil, data)
	}

	var (
		p    *plot.Plot
		err  error
		w, h = r.Width, r.Height
	)
	switch k := kind.(type) {
	case model.Pie:
		p, err = pie(res, k)
		w = h
	case model.BarVertical:
		p, err = barVertical(res, k)
	case model.BarHorizontal:
		p, err = barHorizontal(res, k)
	case model.Line:
		p, err = line(res, k)
	case model.Histogram:
		p, err = histogram(res, k)
	case model.Scatter:
		p, err = scatter(res, k)
	default:
		return model.RenderErr("unsupported chart kind", nil, data)
	}
	if err != nil {
		return err
	}
	p.Title.Text = title

	wt, err := p.WriterTo(w, h, format)
	if err != nil {
		return model.RenderErr("failed to create canvas", err, data)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return model.RenderErr("failed to encode image", err, data)
	}

	if err := writeFileAtomic(outputPath, buf.Bytes()); err != nil {
		return model.RenderErr("failed to write image", err, data)
	}
	return nil
}

func requireColumns(res *model.Result, kind model.ChartKind) error {
	for _, role := range kind.Roles() {
		if res.ColumnIndex(role) < 0 {
			return model.RenderErr("role column missing from result", nil, map[string]any{
				"kind":    kind.Name(),
				"column":  role,
				"columns": res.ColumnNames(),
			})
		}
	}
	return nil
}

func pie(res *model.Result, k model.Pie) (*plot.Plot, error) {
	wedges, err := PieWedges(res, k)
	if err != nil {
		return nil, err
	}
	p := plot.New()
	p.HideAxes()
	p.Add(newPieChart(wedges))
	return p, nil
}

func barVertical(res *model.Result, k model.BarVertical) (*plot.Plot, error) {
	names, values, err := categorySeries(res, k, k.Category, k.Value)
	if err != nil {
		return nil, err
	}

	p := plot.New()
	p.Y.Label.Text = k.Value
	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return nil, model.RenderErr("failed to build bars", err, map[string]any{"kind": k.Name()})
	}
	bars.Color = plotutil.Color(0)
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(names...)
	if len(names) > rotateLabelsAbove {
		p.X.Tick.Label.Rotation = math.Pi / 4
		p.X.Tick.Label.XAlign = draw.XRight
		p.X.Tick.Label.YAlign = draw.YCenter
	}
	return p, nil
}

func barHorizontal(res *model.Result, k model.BarHorizontal) (*plot.Plot, error) {
	names, values, err := categorySeries(res, k, k.Category, k.Value)
	if err != nil {
		return nil, err
	}

	// NominalY 从下往上排，反转后第一行在最上面
	n := len(names)
	for i := 0; i < n/2; i++ {
		names[i], names[n-1-i] = names[n-1-i], names[i]
		values[i], values[n-1-i] = values[n-1-i], values[i]
	}

	p := plot.New()
	p.X.Label.Text = k.Value
	bars, err := plotter.NewBarChart(values, vg.Points(12))
	if err != nil {
		return nil, model.RenderErr("failed to build bars", err, map[string]any{"kind": k.Name()})
	}
	bars.Horizontal = true
	bars.Color = plotutil.Color(1)
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalY(names...)
	return p, nil
}

func line(res *model.Result, k model.Line) (*plot.Plot, error) {
	data := map[string]any{"kind": k.Name()}
	layout := k.TimeLayout
	if layout == "" {
		layout = DefaultLineLayout
	}

	xcol, _ := res.Column(k.X)
	numericX := xcol.Kind == model.ColumnNumeric
	xs, _ := res.Values(k.X)
	ys, _ := res.Values(k.Y)

	var (
		pts    plotter.XYs
		labels []string
	)
	for i := range xs {
		y, ok := model.ToFloat(ys[i])
		if ys[i] == nil || xs[i] == nil {
			continue
		}
		if !ok {
			data["row"] = i + 1
			return nil, model.RenderErr("line y value is not numeric", nil, data)
		}
		if numericX {
			x, okx := model.ToFloat(xs[i])
			if !okx {
				data["row"] = i + 1
				return nil, model.RenderErr("line x value is not numeric", nil, data)
			}
			pts = append(pts, plotter.XY{X: x, Y: y})
			continue
		}
		pts = append(pts, plotter.XY{X: float64(len(labels)), Y: y})
		labels = append(labels, axisLabel(xs[i], layout))
	}
	if len(pts) == 0 {
		return nil, model.RenderErr("no plottable points", nil, data)
	}

	p := plot.New()
	p.X.Label.Text = k.X
	p.Y.Label.Text = k.Y
	p.Add(plotter.NewGrid())
	l, s, err := plotter.NewLinePoints(pts)
	if err != nil {
		return nil, model.RenderErr("failed to build line", err, data)
	}
	l.Color = plotutil.Color(0)
	s.Shape = draw.CircleGlyph{}
	s.Color = plotutil.Color(0)
	p.Add(l, s)
	if !numericX {
		p.NominalX(labels...)
		if len(labels) > rotateLabelsAbove {
			p.X.Tick.Label.Rotation = math.Pi / 4
			p.X.Tick.Label.XAlign = draw.XRight
			p.X.Tick.Label.YAlign = draw.YCenter
		}
	}
	return p, nil
}

func histogram(res *model.Result, k model.Histogram) (*plot.Plot, error) {
	data := map[string]any{"kind": k.Name()}
	values, err := res.Floats(k.Value)
	if err != nil {
		return nil, model.RenderErr("histogram values must be numeric", err, data)
	}
	if len(values) == 0 {
		return nil, model.RenderErr("no values to bucket", nil, data)
	}

	// 分桶覆盖全部观测值，Max 只裁剪 X 轴
	bins := HistogramBins(values, k.BinCount())
	width := bins[0].Max - bins[0].Min
	if k.Max > 0 {
		bins = ClipBins(bins, k.Max)
		if len(bins) == 0 {
			data["max"] = k.Max
			return nil, model.RenderErr("all values are above the axis limit", nil, data)
		}
	}

	p := plot.New()
	p.X.Label.Text = k.Value
	p.Y.Label.Text = "Frequency"
	p.Add(&plotter.Histogram{
		Bins:      bins,
		Width:     width,
		FillColor: plotutil.Color(2),
		LineStyle: plotter.DefaultLineStyle,
	})
	if k.Max > 0 {
		p.X.Min = math.Min(0, bins[0].Min)
		p.X.Max = k.Max
	}
	return p, nil
}

func scatter(res *model.Result, k model.Scatter) (*plot.Plot, error) {
	data := map[string]any{"kind": k.Name()}
	xs, _ := res.Values(k.X)
	ys, _ := res.Values(k.Y)

	var pts plotter.XYs
	for i := range xs {
		if xs[i] == nil || ys[i] == nil {
			continue
		}
		x, okx := model.ToFloat(xs[i])
		y, oky := model.ToFloat(ys[i])
		if !okx || !oky {
			data["row"] = i + 1
			return nil, model.RenderErr("scatter values must be numeric", nil, data)
		}
		pts = append(pts, plotter.XY{X: x, Y: y})
	}
	if len(pts) == 0 {
		return nil, model.RenderErr("no plottable points", nil, data)
	}

	p := plot.New()
	p.X.Label.Text = k.X
	p.Y.Label.Text = k.Y
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, model.RenderErr("failed to build scatter", err, data)
	}
	s.Shape = draw.CircleGlyph{}
	s.Color = plotutil.Color(0)
	s.Radius = vg.Points(2)
	p.Add(s)
	return p, nil
}

// HistogramBins 在观测范围上等宽分桶；所有值相同时以该值为中心展开一个单位
func HistogramBins(values []float64, n int) []plotter.HistogramBin {
	if n <= 0 {
		n = model.DefaultHistogramBins
	}
	finite := values[:0:0]
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	values = finite

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if len(values) == 0 {
		lo, hi = 0, 1
	}
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}

	width := (hi - lo) / float64(n)
	bins := make([]plotter.HistogramBin, n)
	for i := range bins {
		bins[i].Min = lo + float64(i)*width
		bins[i].Max = lo + float64(i+1)*width
	}
	bins[n-1].Max = hi

	for _, v := range values {
		idx := int((v - lo) / width)
		if idx < 0 {
			idx = 0
		}
		if idx >= n {
			idx = n - 1
		}
		bins[idx].Weight++
	}
	return bins
}

// ClipBins 去掉起点不小于 limit 的桶，跨越 limit 的桶截到 limit
func ClipBins(bins []plotter.HistogramBin, limit float64) []plotter.HistogramBin {
	out := make([]plotter.HistogramBin, 0, len(bins))
	for _, b := range bins {
		if b.Min >= limit {
			break
		}
		if b.Max > limit {
			b.Max = limit
		}
		out = append(out, b)
	}
	return out
}

func categorySeries(res *model.Result, kind model.ChartKind, category, value string) ([]string, plotter.Values, error) {
	cats, _ := res.Values(category)
	raw, _ := res.Values(value)

	names := make([]string, len(cats))
	values := make(plotter.Values, len(raw))
	for i := range cats {
		names[i] = axisLabel(cats[i], DefaultLineLayout)
		if raw[i] == nil {
			continue
		}
		v, ok := model.ToFloat(raw[i])
		if !ok {
			return nil, nil, model.RenderErr("bar value is not numeric", nil, map[string]any{
				"kind": kind.Name(),
				"row":  i + 1,
			})
		}
		values[i] = v
	}
	return names, values, nil
}

// 文本形式的日期（SQLite 方言返回 "2017-01-01"）按日期格式化
var dateLayouts = []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05Z07:00", "2006-01-02"}

func axisLabel(v any, layout string) string {
	if s, ok := v.(string); ok {
		for _, l := range dateLayouts {
			if t, err := time.Parse(l, s); err == nil {
				return t.Format(layout)
			}
		}
		return s
	}
	if v == nil {
		return "(empty)"
	}
	return model.FormatValue(v, layout)
}
