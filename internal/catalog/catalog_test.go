package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecomreport/internal/model"
)

func TestDefaultCatalogBothDialects(t *testing.T) {
	for _, driver := range []string{"pgx", "sqlite3"} {
		c, err := Default(driver)
		require.NoError(t, err, driver)

		reports := c.Reports()
		require.Len(t, reports, 12)
		assert.Equal(t, "payment_analysis", reports[0].Name)
		assert.Equal(t, model.Pie{Label: "payment_type", Value: "payment_count"}, reports[0].Chart)

		for _, r := range reports {
			assert.NotEmpty(t, r.Query, r.Name)
			for _, role := range r.Chart.Roles() {
				assert.Contains(t, r.Query, role, "%s: query must select role column %q", r.Name, role)
			}
		}

		require.Len(t, c.Extracts(), 1)
		assert.Equal(t, OrdersSampleLimit, c.Extracts()[0].RowLimit)

		ts := c.Interactive()
		require.NotNil(t, ts)
		assert.Contains(t, ts.Query, "customer_state")
	}
}

func TestDefaultCatalogDialectSQL(t *testing.T) {
	pg, err := Default("pgx")
	require.NoError(t, err)
	lite, err := Default("sqlite3")
	require.NoError(t, err)

	pgMonthly, _ := pg.Report("monthly_sales")
	liteMonthly, _ := lite.Report("monthly_sales")
	assert.Contains(t, pgMonthly.Query, "DATE_TRUNC")
	assert.Contains(t, liteMonthly.Query, "strftime")

	liteDelivery, _ := lite.Report("delivery_analysis")
	assert.Contains(t, liteDelivery.Query, "julianday")
	assert.False(t, strings.Contains(liteDelivery.Query, "EPOCH"))
}

func TestDefaultCatalogUnknownDriver(t *testing.T) {
	_, err := Default("oracle")
	require.Error(t, err)
	assert.True(t, model.ErrIs(err, model.CodeCatalog))
}

func TestNewRejectsInvalidDefinitions(t *testing.T) {
	valid := model.ReportDefinition{
		Name:   "r1",
		Query:  "SELECT 1",
		Chart:  model.BarVertical{Category: "c", Value: "v"},
		Output: "r1.png",
	}

	cases := map[string]func(r *model.ReportDefinition){
		"empty name":      func(r *model.ReportDefinition) { r.Name = "" },
		"empty query":     func(r *model.ReportDefinition) { r.Query = "  " },
		"nil chart":       func(r *model.ReportDefinition) { r.Chart = nil },
		"missing role":    func(r *model.ReportDefinition) { r.Chart = model.Scatter{X: "x"} },
		"bad minor share": func(r *model.ReportDefinition) { r.Chart = model.Pie{Label: "l", Value: "v", MinorShare: 1.5} },
		"negative bins":   func(r *model.ReportDefinition) { r.Chart = model.Histogram{Value: "v", Bins: -1} },
		"no output":       func(r *model.ReportDefinition) { r.Output = "" },
		"nested output":   func(r *model.ReportDefinition) { r.Output = "sub/r1.png" },
		"unknown format":  func(r *model.ReportDefinition) { r.Output = "r1.bmp" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			r := valid
			mutate(&r)
			_, err := New(DialectSQLite, []model.ReportDefinition{r}, nil, nil)
			require.Error(t, err)
			assert.True(t, model.ErrIs(err, model.CodeCatalog), err.Error())
		})
	}

	_, err := New(DialectSQLite, []model.ReportDefinition{valid}, nil, nil)
	require.NoError(t, err)
}

func TestNewRejectsDuplicateNames(t *testing.T) {
	r := model.ReportDefinition{
		Name:   "dup",
		Query:  "SELECT 1",
		Chart:  model.Histogram{Value: "v"},
		Output: "dup.png",
	}
	_, err := New(DialectSQLite, []model.ReportDefinition{r, r}, nil, nil)
	require.Error(t, err)
	assert.True(t, model.ErrIs(err, model.CodeCatalog))

	_, err = New(DialectSQLite, []model.ReportDefinition{r}, []model.Extract{{Name: "dup", Query: "SELECT 1"}}, nil)
	require.Error(t, err)
}

func TestNewRejectsIncompleteTimeSlice(t *testing.T) {
	_, err := New(DialectSQLite, nil, nil, &model.TimeSlice{Name: "ts", Query: "SELECT 1", Time: "month"})
	require.Error(t, err)
	assert.True(t, model.ErrIs(err, model.CodeCatalog))
}

func TestCatalogAccessorsReturnCopies(t *testing.T) {
	c, err := Default("sqlite3")
	require.NoError(t, err)

	reports := c.Reports()
	reports[0].Name = "changed"
	assert.Equal(t, "payment_analysis", c.Reports()[0].Name)

	_, ok := c.Report("no_such_report")
	assert.False(t, ok)
}
