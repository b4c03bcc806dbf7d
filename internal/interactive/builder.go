package interactive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"ecomreport/internal/model"
)

// PeriodLayout 时间桶格式（年-月）
const PeriodLayout = "2006-01"

// 分类颜色，按分类名排序后循环分配
var palette = []string{
	"#5470c6", "#91cc75", "#fac858", "#ee6666", "#73c0de",
	"#3ba272", "#fc8452", "#9a60b4", "#ea7ccc", "#2f4554",
}

// Frame 一个时间桶的柱状图数据，分类按数值降序
type Frame struct {
	Period     string    `json:"period"`
	Categories []string  `json:"categories"`
	Values     []float64 `json:"values"`
}

// Artifact 交互视图
type Artifact struct {
	ID     string // 图表元素 id
	Title  string
	Frames []Frame
	Colors map[string]string // 分类 -> 颜色，跨帧不变
	HTML   []byte
}

// Periods 全部时间桶（升序）
func (a *Artifact) Periods() []string {
	out := make([]string, len(a.Frames))
	for i, f := range a.Frames {
		out[i] = f.Period
	}
	return out
}

// WriteTo 输出 HTML
func (a *Artifact) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(a.HTML)
	return int64(n), err
}

// Builder 交互视图构建器
type Builder struct {
	Width  string
	Height string
}

// NewBuilder 创建构建器
func NewBuilder() *Builder {
	return &Builder{Width: "1100px", Height: "560px"}
}

// Build 把结果表按时间桶切片，生成带时间滑块的动画柱状图
//
// 时间值先截断到自然月再分组，同一 (月, 分类) 的多行数值相加。
func (b *Builder) Build(res *model.Result, timeCol, categoryCol, magnitudeCol, title string) (*Artifact, error) {
	data := map[string]any{"title": title}
	if res.IsEmpty() {
		return nil, model.ViewErr("result is empty", nil, data)
	}
	for _, col := range []string{timeCol, categoryCol, magnitudeCol} {
		if res.ColumnIndex(col) < 0 {
			data["column"] = col
			return nil, model.ViewErr("column missing from result", nil, data)
		}
	}

	frames, err := slice(res, timeCol, categoryCol, magnitudeCol)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, model.ViewErr("no rows with time, category and magnitude", nil, data)
	}

	a := &Artifact{
		ID:     chartID(title),
		Title:  title,
		Frames: frames,
		Colors: assignColors(frames),
	}
	html, err := b.render(a, magnitudeCol)
	if err != nil {
		return nil, model.ViewErr("failed to render interactive view", err, data)
	}
	a.HTML = html
	return a, nil
}

func slice(res *model.Result, timeCol, categoryCol, magnitudeCol string) ([]Frame, error) {
	times, _ := res.Values(timeCol)
	cats, _ := res.Values(categoryCol)
	mags, _ := res.Values(magnitudeCol)

	sums := make(map[string]map[string]float64)
	for i := range times {
		if times[i] == nil || cats[i] == nil || mags[i] == nil {
			continue
		}
		period, err := TruncateToMonth(times[i])
		if err != nil {
			return nil, model.ViewErr("time value cannot be bucketed", err, map[string]any{"row": i + 1})
		}
		v, ok := model.ToFloat(mags[i])
		if !ok {
			return nil, model.ViewErr("magnitude is not numeric", nil, map[string]any{"row": i + 1, "value": mags[i]})
		}
		if sums[period] == nil {
			sums[period] = make(map[string]float64)
		}
		sums[period][model.FormatValue(cats[i], "")] += v
	}

	periods := make([]string, 0, len(sums))
	for p := range sums {
		periods = append(periods, p)
	}
	sort.Strings(periods)

	frames := make([]Frame, 0, len(periods))
	for _, p := range periods {
		byCat := sums[p]
		names := make([]string, 0, len(byCat))
		for c := range byCat {
			names = append(names, c)
		}
		sort.Slice(names, func(i, j int) bool {
			if byCat[names[i]] != byCat[names[j]] {
				return byCat[names[i]] > byCat[names[j]]
			}
			return names[i] < names[j]
		})
		values := make([]float64, len(names))
		for i, c := range names {
			values[i] = byCat[c]
		}
		frames = append(frames, Frame{Period: p, Categories: names, Values: values})
	}
	return frames, nil
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006-01",
}

// TruncateToMonth 时间值截断到月，返回 "YYYY-MM"
func TruncateToMonth(v any) (string, error) {
	switch x := v.(type) {
	case time.Time:
		return x.Format(PeriodLayout), nil
	case string:
		s := strings.TrimSpace(x)
		for _, l := range timeLayouts {
			if t, err := time.Parse(l, s); err == nil {
				return t.Format(PeriodLayout), nil
			}
		}
		return "", fmt.Errorf("unrecognized time value %q", x)
	default:
		return "", fmt.Errorf("unsupported time value %T", v)
	}
}

func assignColors(frames []Frame) map[string]string {
	set := make(map[string]bool)
	for _, f := range frames {
		for _, c := range f.Categories {
			set[c] = true
		}
	}
	names := make([]string, 0, len(set))
	for c := range set {
		names = append(names, c)
	}
	sort.Strings(names)

	colors := make(map[string]string, len(names))
	for i, c := range names {
		colors[c] = palette[i%len(palette)]
	}
	return colors
}

func chartID(title string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	id := strings.Trim(sb.String(), "_")
	if id == "" {
		return "timeslice"
	}
	return "timeslice_" + id
}

func (b *Builder) render(a *Artifact, magnitude string) (out []byte, err error) {
	first := a.Frames[0]

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: a.Title,
			Width:     b.Width,
			Height:    b.Height,
			ChartID:   a.ID,
		}),
		charts.WithTitleOpts(opts.Title{Title: a.Title, Subtitle: first.Period}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Rotate: 45, Interval: "0"}}),
		charts.WithYAxisOpts(opts.YAxis{Name: magnitude}),
	)
	bar.SetXAxis(first.Categories).AddSeries(magnitude, barData(first, a.Colors))

	framesJSON, err := json.Marshal(a.Frames)
	if err != nil {
		return nil, err
	}
	colorsJSON, err := json.Marshal(a.Colors)
	if err != nil {
		return nil, err
	}
	bar.AddJSFuncStrs(opts.FuncOpts(fmt.Sprintf(sliderJS, framesJSON, colorsJSON, a.ID, b.Width)))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render chart: %v", r)
		}
	}()
	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func barData(f Frame, colors map[string]string) []opts.BarData {
	items := make([]opts.BarData, len(f.Categories))
	for i, c := range f.Categories {
		items[i] = opts.BarData{
			Name:      c,
			Value:     f.Values[i],
			ItemStyle: &opts.ItemStyle{Color: colors[c]},
		}
	}
	return items
}

// 滑块 + 播放按钮；换行与制表符会被去掉，语句必须以分号结尾
const sliderJS = `
(function () {
	var chart = %%MY_ECHARTS%%;
	var frames = %s;
	var colors = %s;
	var host = document.getElementById('%s').parentNode;
	var bar = document.createElement('div');
	bar.style.cssText = 'margin:12px auto;width:%s;display:flex;align-items:center;gap:12px;font-family:sans-serif;';
	var btn = document.createElement('button');
	btn.textContent = 'Play';
	var slider = document.createElement('input');
	slider.type = 'range';
	slider.min = 0;
	slider.max = frames.length - 1;
	slider.value = 0;
	slider.style.flex = '1';
	var label = document.createElement('span');
	bar.appendChild(btn);
	bar.appendChild(slider);
	bar.appendChild(label);
	host.parentNode.insertBefore(bar, host.nextSibling);
	var show = function (i) {
		var f = frames[i];
		label.textContent = f.period;
		slider.value = i;
		chart.setOption({
			title: {subtext: f.period},
			xAxis: {data: f.categories},
			series: [{data: f.categories.map(function (c, j) {
				return {name: c, value: f.values[j], itemStyle: {color: colors[c]}};
			})}]
		});
	};
	var timer = null;
	var stop = function () {
		clearInterval(timer);
		timer = null;
		btn.textContent = 'Play';
	};
	btn.onclick = function () {
		if (timer) { stop(); return; }
		btn.textContent = 'Pause';
		if (Number(slider.value) === frames.length - 1) { show(0); }
		timer = setInterval(function () {
			var next = Number(slider.value) + 1;
			show(next);
			if (next >= frames.length - 1) { stop(); }
		}, 800);
	};
	slider.oninput = function () { show(Number(slider.value)); };
	show(0);
})();
`
