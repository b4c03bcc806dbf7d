package exporter

import (
	"math"
	"sort"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// ColumnStats 色阶三个节点
type ColumnStats struct {
	Min float64
	Mid float64 // 第 50 百分位
	Max float64
}

// Stats 计算最小值、中位（最近秩）与最大值；values 不能为空
func Stats(values []float64) ColumnStats {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return ColumnStats{
		Min: sorted[0],
		Mid: percentileSorted(sorted, 50),
		Max: sorted[len(sorted)-1],
	}
}

// Percentile 最近秩百分位：第 ceil(p/100*n) 小的值
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return percentileSorted(sorted, p)
}

func percentileSorted(sorted []float64, p float64) float64 {
	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}

func (s ColumnStats) colorScale() excelize.ConditionalFormatOptions {
	return excelize.ConditionalFormatOptions{
		Type:     "3_color_scale",
		Criteria: "=",
		MinType:  "num",
		MidType:  "num",
		MaxType:  "num",
		MinValue: formatStop(s.Min),
		MidValue: formatStop(s.Mid),
		MaxValue: formatStop(s.Max),
		MinColor: scaleMinColor,
		MidColor: scaleMidColor,
		MaxColor: scaleMaxColor,
	}
}

func formatStop(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
