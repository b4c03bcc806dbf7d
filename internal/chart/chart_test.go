package chart

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/plotter"

	"ecomreport/internal/model"
)

func paymentResult() *model.Result {
	return model.MustResult(
		[]model.Column{
			{Name: "payment_type", Kind: model.ColumnText},
			{Name: "payment_count", Kind: model.ColumnNumeric},
		},
		[][]any{
			{"credit_card", int64(120)},
			{"boleto", int64(45)},
			{"voucher", int64(10)},
		},
	)
}

func TestPieWedgeShares(t *testing.T) {
	wedges, err := PieWedges(paymentResult(), model.Pie{Label: "payment_type", Value: "payment_count"})
	require.NoError(t, err)
	require.Len(t, wedges, 3)

	assert.InDelta(t, 120.0/175, wedges[0].Share, 1e-9)
	assert.InDelta(t, 45.0/175, wedges[1].Share, 1e-9)
	assert.InDelta(t, 10.0/175, wedges[2].Share, 1e-9)
	assert.Equal(t, "credit_card 68.6%", wedges[0].Caption())
	assert.Equal(t, "boleto 25.7%", wedges[1].Caption())
	assert.Equal(t, "voucher 5.7%", wedges[2].Caption())
}

func TestPieWedgesZeroSum(t *testing.T) {
	res := model.MustResult(
		[]model.Column{{Name: "l", Kind: model.ColumnText}, {Name: "v", Kind: model.ColumnNumeric}},
		[][]any{{"a", int64(0)}, {"b", int64(0)}},
	)
	_, err := PieWedges(res, model.Pie{Label: "l", Value: "v"})
	require.Error(t, err)
	assert.True(t, model.ErrIs(err, model.CodeRender))
}

func TestPieWedgesZeroValueLabel(t *testing.T) {
	res := model.MustResult(
		[]model.Column{{Name: "l", Kind: model.ColumnText}, {Name: "v", Kind: model.ColumnNumeric}},
		[][]any{{"a", int64(5)}, {"b", int64(0)}},
	)
	wedges, err := PieWedges(res, model.Pie{Label: "l", Value: "v"})
	require.NoError(t, err)
	assert.Equal(t, "b 0.0%", wedges[1].Caption())
}

func TestPieWedgesMergeMinor(t *testing.T) {
	res := model.MustResult(
		[]model.Column{{Name: "order_status", Kind: model.ColumnText}, {Name: "status_count", Kind: model.ColumnNumeric}},
		[][]any{
			{"delivered", int64(900)},
			{"shipped", int64(60)},
			{"canceled", int64(25)},
			{"unavailable", int64(15)},
		},
	)
	wedges, err := PieWedges(res, model.Pie{Label: "order_status", Value: "status_count", MinorShare: 0.03})
	require.NoError(t, err)
	require.Len(t, wedges, 3)

	other := wedges[2]
	assert.Equal(t, model.OtherLabel, other.Label)
	assert.InDelta(t, 0.04, other.Share, 1e-9)
	assert.Equal(t, []string{"canceled: 2.5%", "unavailable: 1.5%"}, other.Detail)
}

func TestHistogramBins(t *testing.T) {
	bins := HistogramBins([]float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 5)
	require.Len(t, bins, 5)
	assert.Equal(t, 0.0, bins[0].Min)
	assert.Equal(t, 10.0, bins[4].Max)

	total := 0.0
	for _, b := range bins {
		assert.InDelta(t, 2.0, b.Max-b.Min, 1e-9)
		total += b.Weight
	}
	assert.Equal(t, 11.0, total)
	assert.Equal(t, 3.0, bins[4].Weight)

	flat := HistogramBins([]float64{7, 7, 7}, 30)
	require.Len(t, flat, 30)
	assert.Equal(t, 6.5, flat[0].Min)
	assert.Equal(t, 7.5, flat[29].Max)
}

func fixtures() map[string]struct {
	res  *model.Result
	kind model.ChartKind
} {
	month := func(m time.Month) time.Time { return time.Date(2017, m, 1, 0, 0, 0, 0, time.UTC) }
	categories := [][]any{}
	for _, c := range []string{"bed_bath_table", "health_beauty", "sports_leisure", "furniture_decor", "computers_accessories", "housewares", "watches_gifts", "telephony"} {
		categories = append(categories, []any{c, 100.5})
	}

	return map[string]struct {
		res  *model.Result
		kind model.ChartKind
	}{
		"pie.png": {paymentResult(), model.Pie{Label: "payment_type", Value: "payment_count"}},
		"bar.png": {
			model.MustResult([]model.Column{{Name: "category_name", Kind: model.ColumnText}, {Name: "total_revenue", Kind: model.ColumnNumeric}}, categories),
			model.BarVertical{Category: "category_name", Value: "total_revenue"},
		},
		"barh.svg": {
			model.MustResult(
				[]model.Column{{Name: "customer_state", Kind: model.ColumnText}, {Name: "avg_delivery_days", Kind: model.ColumnNumeric}},
				[][]any{{"RR", 29.3}, {"AP", 27.2}, {"SP", nil}},
			),
			model.BarHorizontal{Category: "customer_state", Value: "avg_delivery_days"},
		},
		"line.png": {
			model.MustResult(
				[]model.Column{{Name: "month", Kind: model.ColumnTemporal}, {Name: "total_sales", Kind: model.ColumnNumeric}},
				[][]any{{month(1), 120.0}, {month(2), 240.0}, {month(3), 180.0}},
			),
			model.Line{X: "month", Y: "total_sales"},
		},
		"hist.png": {
			model.MustResult(
				[]model.Column{{Name: "price", Kind: model.ColumnNumeric, Nullable: true}},
				[][]any{{10.0}, {25.5}, {nil}, {499.0}, {1200.0}},
			),
			model.Histogram{Value: "price", Bins: 50, Max: 500},
		},
		"scatter.png": {
			model.MustResult(
				[]model.Column{{Name: "freight_value", Kind: model.ColumnNumeric}, {Name: "payment_value", Kind: model.ColumnNumeric}},
				[][]any{{13.29, 72.19}, {19.93, 259.83}, {17.87, 216.87}},
			),
			model.Scatter{X: "freight_value", Y: "payment_value"},
		},
	}
}

func TestRenderEveryKindWritesOneFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "charts")
	r := NewRenderer()

	for name, fx := range fixtures() {
		out := filepath.Join(dir, name)
		require.NoError(t, r.Render(fx.res, fx.kind, "Title "+name, out), name)

		info, err := os.Stat(out)
		require.NoError(t, err, name)
		assert.Greater(t, info.Size(), int64(0), name)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, len(fixtures()))
}

type radar struct{ model.Scatter }

func (radar) Name() string { return "radar" }

func TestRenderUnsupportedKindLeavesNoFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "radar.png")
	res := model.MustResult(
		[]model.Column{{Name: "x", Kind: model.ColumnNumeric}, {Name: "y", Kind: model.ColumnNumeric}},
		[][]any{{1.0, 2.0}},
	)

	err := NewRenderer().Render(res, radar{model.Scatter{X: "x", Y: "y"}}, "radar", out)
	require.Error(t, err)
	assert.True(t, model.ErrIs(err, model.CodeRender))
	assert.NoFileExists(t, out)
}

func TestRenderRejectsEmptyAndMissingRole(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer()

	empty := model.MustResult([]model.Column{{Name: "payment_type"}, {Name: "payment_count"}}, nil)
	err := r.Render(empty, model.Pie{Label: "payment_type", Value: "payment_count"}, "t", filepath.Join(dir, "empty.png"))
	require.Error(t, err)
	assert.True(t, model.ErrIs(err, model.CodeRender))
	assert.NoFileExists(t, filepath.Join(dir, "empty.png"))

	err = r.Render(paymentResult(), model.BarVertical{Category: "payment_type", Value: "revenue"}, "t", filepath.Join(dir, "missing.png"))
	require.Error(t, err)
	assert.True(t, model.ErrIs(err, model.CodeRender))
	assert.Contains(t, err.Error(), "revenue")
	assert.NoFileExists(t, filepath.Join(dir, "missing.png"))
}

func TestAxisLabel(t *testing.T) {
	assert.Equal(t, "2017-03", axisLabel("2017-03-01", DefaultLineLayout))
	assert.Equal(t, "2017-03", axisLabel(time.Date(2017, 3, 14, 9, 0, 0, 0, time.UTC), DefaultLineLayout))
	assert.Equal(t, "SP", axisLabel("SP", DefaultLineLayout))
}

func TestWriteFileAtomicFailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "charts")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	err := NewRenderer().Render(paymentResult(), model.Pie{Label: "payment_type", Value: "payment_count"}, "Payments", filepath.Join(blocker, "pie.png"))
	require.Error(t, err)
	assert.True(t, model.ErrIs(err, model.CodeRender))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteFileAtomicReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "chart.png")
	require.NoError(t, writeFileAtomic(path, []byte("one")))
	require.NoError(t, writeFileAtomic(path, []byte("two")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
	assert.NoFileExists(t, path+".tmp")
}

func TestRenderRejectsNonFiniteValues(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer()
	numeric := func(rows ...[]any) *model.Result {
		return model.MustResult([]model.Column{{Name: "freight_value", Kind: model.ColumnNumeric}, {Name: "payment_value", Kind: model.ColumnNumeric}}, rows)
	}

	cases := map[string]struct {
		res  *model.Result
		kind model.ChartKind
	}{
		"hist_inf.png":    {numeric([]any{1.0, 1.0}, []any{2.0, math.Inf(1)}), model.Histogram{Value: "payment_value"}},
		"hist_nan.png":    {numeric([]any{1.0, "NaN"}, []any{2.0, 3.0}), model.Histogram{Value: "payment_value"}},
		"scatter_inf.png": {numeric([]any{math.Inf(-1), 1.0}), model.Scatter{X: "freight_value", Y: "payment_value"}},
		"line_nan.png":    {numeric([]any{1.0, math.NaN()}), model.Line{X: "freight_value", Y: "payment_value"}},
		"line_x_inf.png":  {numeric([]any{math.Inf(1), 2.0}), model.Line{X: "freight_value", Y: "payment_value"}},
		"bar_inf.png":     {numeric([]any{1.0, "Infinity"}), model.BarVertical{Category: "freight_value", Value: "payment_value"}},
	}
	for name, c := range cases {
		var err error
		require.NotPanics(t, func() {
			err = r.Render(c.res, c.kind, name, filepath.Join(dir, name))
		}, name)
		require.Error(t, err, name)
		assert.True(t, model.ErrIs(err, model.CodeRender), name)
		assert.NoFileExists(t, filepath.Join(dir, name))
	}
}

func TestHistogramBinsIgnoresNonFinite(t *testing.T) {
	var bins []plotter.HistogramBin
	require.NotPanics(t, func() {
		bins = HistogramBins([]float64{1, 2, math.Inf(1), math.NaN(), math.Inf(-1)}, 4)
	})
	require.Len(t, bins, 4)
	assert.Equal(t, 1.0, bins[0].Min)
	assert.Equal(t, 2.0, bins[3].Max)

	total := 0.0
	for _, b := range bins {
		total += b.Weight
	}
	assert.Equal(t, 2.0, total)
}

func TestHistogramMaxClipsAxisNotBins(t *testing.T) {
	res := model.MustResult(
		[]model.Column{{Name: "price", Kind: model.ColumnNumeric}},
		[][]any{{0.0}, {100.0}, {400.0}, {999.0}, {1000.0}},
	)
	p, err := histogram(res, model.Histogram{Value: "price", Bins: 10, Max: 500})
	require.NoError(t, err)
	assert.Equal(t, 0.0, p.X.Min)
	assert.Equal(t, 500.0, p.X.Max)

	// 全范围 10 个桶宽 100；500 以内保留 5 个
	bins := ClipBins(HistogramBins([]float64{0, 100, 400, 999, 1000}, 10), 500)
	require.Len(t, bins, 5)
	assert.InDelta(t, 100.0, bins[0].Max-bins[0].Min, 1e-9)
	assert.Equal(t, 500.0, bins[4].Max)

	straddle := ClipBins(HistogramBins([]float64{0, 1000}, 3), 500)
	require.Len(t, straddle, 2)
	assert.Equal(t, 500.0, straddle[1].Max)

	_, err = histogram(model.MustResult(
		[]model.Column{{Name: "price", Kind: model.ColumnNumeric}},
		[][]any{{600.0}, {700.0}},
	), model.Histogram{Value: "price", Max: 500})
	require.Error(t, err)
	assert.True(t, model.ErrIs(err, model.CodeRender))
}
