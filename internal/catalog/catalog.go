package catalog

import (
	"embed"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"ecomreport/internal/model"
)

//go:embed queries/postgres/*.sql queries/sqlite/*.sql
var queryFS embed.FS

// 方言目录
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// 输出图片支持的扩展名
var imageExts = map[string]bool{".png": true, ".svg": true, ".jpg": true, ".jpeg": true, ".pdf": true}

// Catalog 报表目录：全部报表、原始抽样与交互视图定义
//
// 目录在构建时一次性校验，之后只读。
type Catalog struct {
	Dialect     string
	reports     []model.ReportDefinition
	extracts    []model.Extract
	interactive *model.TimeSlice
}

// Reports 报表定义（按执行顺序）
func (c *Catalog) Reports() []model.ReportDefinition {
	out := make([]model.ReportDefinition, len(c.reports))
	copy(out, c.reports)
	return out
}

// Extracts 原始数据抽样定义
func (c *Catalog) Extracts() []model.Extract {
	out := make([]model.Extract, len(c.extracts))
	copy(out, c.extracts)
	return out
}

// Interactive 交互视图定义，未配置时返回 nil
func (c *Catalog) Interactive() *model.TimeSlice {
	if c.interactive == nil {
		return nil
	}
	ts := *c.interactive
	return &ts
}

// Report 按名称查找报表
func (c *Catalog) Report(name string) (model.ReportDefinition, bool) {
	for _, r := range c.reports {
		if r.Name == name {
			return r, true
		}
	}
	return model.ReportDefinition{}, false
}

// New 构建并校验报表目录
func New(dialect string, reports []model.ReportDefinition, extracts []model.Extract, interactive *model.TimeSlice) (*Catalog, error) {
	seen := make(map[string]string)
	claim := func(name, owner string) error {
		if prev, ok := seen[name]; ok {
			return model.CatalogErr("duplicate name", map[string]any{"name": name, "first": prev, "second": owner})
		}
		seen[name] = owner
		return nil
	}

	for i, r := range reports {
		if err := validateReport(r); err != nil {
			return nil, err
		}
		if err := claim(r.Name, fmt.Sprintf("report #%d", i+1)); err != nil {
			return nil, err
		}
	}
	for i, e := range extracts {
		if strings.TrimSpace(e.Name) == "" {
			return nil, model.CatalogErr("extract name is empty", map[string]any{"index": i})
		}
		if strings.TrimSpace(e.Query) == "" {
			return nil, model.CatalogErr("extract query is empty", map[string]any{"extract": e.Name})
		}
		if err := claim(e.Name, fmt.Sprintf("extract #%d", i+1)); err != nil {
			return nil, err
		}
	}
	if interactive != nil {
		if err := validateTimeSlice(*interactive); err != nil {
			return nil, err
		}
	}

	return &Catalog{
		Dialect:     dialect,
		reports:     append([]model.ReportDefinition(nil), reports...),
		extracts:    append([]model.Extract(nil), extracts...),
		interactive: interactive,
	}, nil
}

func validateReport(r model.ReportDefinition) error {
	if strings.TrimSpace(r.Name) == "" {
		return model.CatalogErr("report name is empty", map[string]any{"title": r.Title})
	}
	data := map[string]any{"report": r.Name}

	if strings.TrimSpace(r.Query) == "" {
		return model.CatalogErr("report query is empty", data)
	}
	if r.Chart == nil {
		return model.CatalogErr("report has no chart kind", data)
	}

	switch k := r.Chart.(type) {
	case model.Pie:
		if k.MinorShare < 0 || k.MinorShare >= 1 {
			data["minor_share"] = k.MinorShare
			return model.CatalogErr("pie minor share out of range [0, 1)", data)
		}
	case model.Histogram:
		if k.Bins < 0 {
			data["bins"] = k.Bins
			return model.CatalogErr("histogram bins must not be negative", data)
		}
		if k.Max < 0 {
			data["max"] = k.Max
			return model.CatalogErr("histogram max must not be negative", data)
		}
	case model.BarVertical, model.BarHorizontal, model.Line, model.Scatter:
	default:
		data["kind"] = fmt.Sprintf("%T", r.Chart)
		return model.CatalogErr("unknown chart kind", data)
	}

	for _, role := range r.Chart.Roles() {
		if strings.TrimSpace(role) == "" {
			data["kind"] = r.Chart.Name()
			return model.CatalogErr("chart role column is empty", data)
		}
	}

	if strings.TrimSpace(r.Output) == "" {
		return model.CatalogErr("report output file is empty", data)
	}
	if filepath.Base(r.Output) != r.Output {
		data["output"] = r.Output
		return model.CatalogErr("report output must be a bare file name", data)
	}
	if !imageExts[strings.ToLower(filepath.Ext(r.Output))] {
		data["output"] = r.Output
		return model.CatalogErr("unsupported image format", data)
	}
	return nil
}

func validateTimeSlice(ts model.TimeSlice) error {
	data := map[string]any{"interactive": ts.Name}
	switch {
	case strings.TrimSpace(ts.Name) == "":
		return model.CatalogErr("interactive view name is empty", nil)
	case strings.TrimSpace(ts.Query) == "":
		return model.CatalogErr("interactive view query is empty", data)
	case ts.Time == "" || ts.Category == "" || ts.Magnitude == "":
		return model.CatalogErr("interactive view needs time, category and magnitude columns", data)
	}
	return nil
}

// DialectFor 驱动名 -> 查询方言
func DialectFor(driver string) (string, error) {
	switch driver {
	case "pgx", "postgres":
		return DialectPostgres, nil
	case "sqlite3":
		return DialectSQLite, nil
	default:
		return "", model.CatalogErr("no query dialect for driver", map[string]any{"driver": driver})
	}
}

// LoadQuery 读取内置 SQL
func LoadQuery(dialect, name string) (string, error) {
	b, err := queryFS.ReadFile(path.Join("queries", dialect, name+".sql"))
	if err != nil {
		return "", model.CatalogErr("query not found", map[string]any{"dialect": dialect, "query": name})
	}
	return strings.TrimSpace(string(b)), nil
}
