package chart

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"ecomreport/internal/model"
	"ecomreport/internal/util"
)

// Wedge 饼图扇区
type Wedge struct {
	Label  string
	Value  float64
	Share  float64  // 0~1
	Detail []string // 合并进 Other 的原始行说明
}

// Caption 扇区标签，如 "credit_card 68.6%"
func (w Wedge) Caption() string {
	return fmt.Sprintf("%s %s", w.Label, util.FormatShare(w.Share))
}

// PieWedges 按行计算扇区与占比
//
// 数值和为零（或含负值）时返回 RenderError。MinorShare>0 时先合并小占比行。
func PieWedges(res *model.Result, kind model.Pie) ([]Wedge, error) {
	data := map[string]any{"kind": kind.Name()}
	if err := requireColumns(res, kind); err != nil {
		return nil, err
	}

	src := res
	var minors []model.MinorShare
	if kind.MinorShare > 0 {
		merged, m, err := model.MergeMinorShares(res, kind.Label, kind.Value, kind.MinorShare)
		if err != nil {
			return nil, model.RenderErr("failed to merge minor wedges", err, data)
		}
		src, minors = merged, m
	}

	values, err := src.Floats(kind.Value)
	if err != nil {
		return nil, model.RenderErr("pie values must be numeric", err, data)
	}
	if len(values) != src.NumRows() {
		return nil, model.RenderErr("pie value column contains empty cells", nil, data)
	}
	labels, _ := src.Values(kind.Label)

	total := 0.0
	for i, v := range values {
		if v < 0 {
			data["row"] = i + 1
			return nil, model.RenderErr("pie value is negative", nil, data)
		}
		total += v
	}
	if total == 0 {
		return nil, model.RenderErr("sum of pie values is zero", nil, data)
	}

	wedges := make([]Wedge, len(values))
	for i, v := range values {
		wedges[i] = Wedge{
			Label: model.FormatValue(labels[i], ""),
			Value: v,
			Share: v / total,
		}
	}
	if len(minors) > 0 {
		last := &wedges[len(wedges)-1]
		for _, m := range minors {
			last.Detail = append(last.Detail, fmt.Sprintf("%s: %s", m.Label, util.FormatShare(m.Share)))
		}
	}
	return wedges, nil
}

// pieChart 自绘饼图（plot 没有内置饼图）
type pieChart struct {
	wedges []Wedge
	text   draw.TextStyle
}

func newPieChart(wedges []Wedge) *pieChart {
	return &pieChart{
		wedges: wedges,
		text: draw.TextStyle{
			Color:   color.Black,
			Font:    font.From(plot.DefaultFont, 10),
			XAlign:  draw.XCenter,
			YAlign:  draw.YCenter,
			Handler: plot.DefaultTextHandler,
		},
	}
}

// Plot 实现 plot.Plotter
func (pc *pieChart) Plot(c draw.Canvas, _ *plot.Plot) {
	center := c.Center()
	w := c.Max.X - c.Min.X
	h := c.Max.Y - c.Min.Y
	radius := vg.Length(math.Min(float64(w), float64(h))) * 0.35

	// 从 12 点方向起，顺时针
	start := math.Pi / 2
	for i, wd := range pc.wedges {
		sweep := wd.Share * 2 * math.Pi
		end := start - sweep
		if sweep > 0 {
			c.FillPolygon(plotutil.Color(i), arcPolygon(center, radius, start, end))
		}

		mid := (start + end) / 2
		sty := pc.text
		if math.Cos(mid) < -0.1 {
			sty.XAlign = draw.XRight
		} else if math.Cos(mid) > 0.1 {
			sty.XAlign = draw.XLeft
		}
		at := vg.Point{
			X: center.X + radius*1.1*vg.Length(math.Cos(mid)),
			Y: center.Y + radius*1.1*vg.Length(math.Sin(mid)),
		}
		c.FillText(sty, at, wd.Caption())
		start = end
	}

	// 合并行说明写在左下角
	note := pc.text
	note.XAlign = draw.XLeft
	note.YAlign = draw.YBottom
	y := c.Min.Y
	for _, wd := range pc.wedges {
		for j := len(wd.Detail) - 1; j >= 0; j-- {
			c.FillText(note, vg.Point{X: c.Min.X, Y: y}, wd.Detail[j])
			y += note.Height(wd.Detail[j])
		}
	}
}

func arcPolygon(center vg.Point, r vg.Length, from, to float64) []vg.Point {
	steps := int(math.Ceil(math.Abs(from-to)/(math.Pi/90))) + 1
	pts := make([]vg.Point, 0, steps+2)
	pts = append(pts, center)
	for i := 0; i <= steps; i++ {
		a := from + (to-from)*float64(i)/float64(steps)
		pts = append(pts, vg.Point{
			X: center.X + r*vg.Length(math.Cos(a)),
			Y: center.Y + r*vg.Length(math.Sin(a)),
		})
	}
	return pts
}
