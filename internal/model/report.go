package model

// ChartKind 图表类型（封闭集合：Pie / BarVertical / BarHorizontal / Line / Histogram / Scatter）
//
// 每种类型只携带自身需要的列角色；chart.Renderer 通过类型分支分派。
type ChartKind interface {
	// Name 类型名（用于日志与文件名）
	Name() string
	// Roles 该类型必须出现在结果表中的列，按声明顺序
	Roles() []string

	chartKind()
}

// Pie 饼图：每行一个扇区
type Pie struct {
	Label string // 扇区名称列
	Value string // 扇区数值列
	// MinorShare 占比低于该阈值的行合并为“Other”，0 表示不合并
	MinorShare float64
}

// BarVertical 竖向柱状图
type BarVertical struct {
	Category string
	Value    string
}

// BarHorizontal 横向柱状图，按结果表行序自上而下绘制
type BarHorizontal struct {
	Category string
	Value    string
}

// Line 折线图（带点标记）
type Line struct {
	X string
	Y string
	// TimeLayout 时间类 X 值的格式化布局，默认 "2006-01"
	TimeLayout string
}

// Histogram 直方图：单个数值列，等宽分桶
type Histogram struct {
	Value string
	Bins  int     // 0 表示默认 30
	Max   float64 // >0 时 X 轴显示到 Max；分桶仍覆盖全部观测值
}

// Scatter 散点图
type Scatter struct {
	X string
	Y string
}

// DefaultHistogramBins 直方图默认分桶数
const DefaultHistogramBins = 30

func (Pie) Name() string           { return "pie" }
func (BarVertical) Name() string   { return "bar" }
func (BarHorizontal) Name() string { return "barh" }
func (Line) Name() string          { return "line" }
func (Histogram) Name() string     { return "hist" }
func (Scatter) Name() string       { return "scatter" }

func (k Pie) Roles() []string           { return []string{k.Label, k.Value} }
func (k BarVertical) Roles() []string   { return []string{k.Category, k.Value} }
func (k BarHorizontal) Roles() []string { return []string{k.Category, k.Value} }
func (k Line) Roles() []string          { return []string{k.X, k.Y} }
func (k Histogram) Roles() []string     { return []string{k.Value} }
func (k Scatter) Roles() []string       { return []string{k.X, k.Y} }

func (Pie) chartKind()           {}
func (BarVertical) chartKind()   {}
func (BarHorizontal) chartKind() {}
func (Line) chartKind()          {}
func (Histogram) chartKind()     {}
func (Scatter) chartKind()       {}

// BinCount 实际分桶数
func (k Histogram) BinCount() int {
	if k.Bins <= 0 {
		return DefaultHistogramBins
	}
	return k.Bins
}

// ReportDefinition 报表定义：一次查询 + 一张图 + 一个工作表
type ReportDefinition struct {
	Name   string    // 唯一键，同时作为工作表名（超过 31 字符会被截断）
	Query  string    // SQL
	Chart  ChartKind // 图表类型与列角色
	Title  string    // 图表标题
	Output string    // 图片文件名（相对图表输出目录）
}

// Extract 仅写入工作簿、不出图的原始数据抽样
type Extract struct {
	Name     string
	Query    string
	RowLimit int // <=0 不限制
}

// TimeSlice 交互视图（按时间切片的动画柱状图）定义
type TimeSlice struct {
	Name      string
	Query     string
	Time      string // 时间列
	Category  string // 分类列
	Magnitude string // 数值列
	Title     string
}
