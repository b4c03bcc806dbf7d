package catalog

import "ecomreport/internal/model"

// OrdersSampleLimit 原始订单抽样行数
const OrdersSampleLimit = 1000

type reportEntry struct {
	name   string
	chart  model.ChartKind
	title  string
	output string
}

// 报表清单，执行与写表顺序即此顺序
var defaultReports = []reportEntry{
	{
		name:   "payment_analysis",
		chart:  model.Pie{Label: "payment_type", Value: "payment_count"},
		title:  "Distribution of Payment Types",
		output: "payment_types_pie.png",
	},
	{
		name:   "top_categories",
		chart:  model.BarVertical{Category: "category_name", Value: "total_revenue"},
		title:  "Top 10 Product Categories by Revenue",
		output: "top_categories_bar.png",
	},
	{
		name:   "delivery_analysis",
		chart:  model.BarHorizontal{Category: "customer_state", Value: "avg_delivery_days"},
		title:  "Average Delivery Time by State",
		output: "delivery_time_barh.png",
	},
	{
		name:   "monthly_sales",
		chart:  model.Line{X: "month", Y: "total_sales"},
		title:  "Monthly Sales Trend",
		output: "monthly_sales_line.png",
	},
	{
		name:   "order_values",
		chart:  model.Histogram{Value: "payment_value"},
		title:  "Distribution of Order Values",
		output: "order_values_hist.png",
	},
	{
		name:   "freight_vs_payment",
		chart:  model.Scatter{X: "freight_value", Y: "payment_value"},
		title:  "Freight Value vs Payment Value",
		output: "freight_payment_scatter.png",
	},
	{
		name:   "horizontal_bar_avg_delay",
		chart:  model.BarHorizontal{Category: "customer_state", Value: "avg_delay_days"},
		title:  "Average Delivery Delay by State",
		output: "horizontal_bar_avg_delay.png",
	},
	{
		name:   "vertical_bar_canceled_orders",
		chart:  model.BarVertical{Category: "product_category_name_english", Value: "canceled_orders"},
		title:  "Top 10 Product Categories by Canceled Orders",
		output: "vertical_bar_canceled_orders.png",
	},
	{
		name:   "pie_order_status_distribution",
		chart:  model.Pie{Label: "order_status", Value: "status_count", MinorShare: 0.03},
		title:  "Order Status Distribution",
		output: "pie_order_status_distribution.png",
	},
	{
		name:   "line_avg_shipping_cost",
		chart:  model.Line{X: "month", Y: "avg_shipping_cost"},
		title:  "Average Shipping Cost by Month",
		output: "line_avg_shipping_cost.png",
	},
	{
		name:   "histogram_product_prices",
		chart:  model.Histogram{Value: "price", Bins: 50, Max: 500},
		title:  "Distribution of Product Prices",
		output: "histogram_product_prices.png",
	},
	{
		name:   "scatter_product_count_vs_total_value",
		chart:  model.Scatter{X: "product_count", Y: "total_order_value"},
		title:  "Product Count vs Total Order Value",
		output: "scatter_product_count_vs_total_value.png",
	},
}

// Default 内置报表目录，driver 决定 SQL 方言
func Default(driver string) (*Catalog, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}

	reports := make([]model.ReportDefinition, 0, len(defaultReports))
	for _, e := range defaultReports {
		q, err := LoadQuery(dialect, e.name)
		if err != nil {
			return nil, err
		}
		reports = append(reports, model.ReportDefinition{
			Name:   e.name,
			Query:  q,
			Chart:  e.chart,
			Title:  e.title,
			Output: e.output,
		})
	}

	sampleQuery, err := LoadQuery(dialect, "orders_sample")
	if err != nil {
		return nil, err
	}
	extracts := []model.Extract{
		{Name: "orders_sample", Query: sampleQuery, RowLimit: OrdersSampleLimit},
	}

	sliceQuery, err := LoadQuery(dialect, "sales_by_state_month")
	if err != nil {
		return nil, err
	}
	interactive := &model.TimeSlice{
		Name:      "sales_by_state_month",
		Query:     sliceQuery,
		Time:      "month",
		Category:  "customer_state",
		Magnitude: "total_sales",
		Title:     "Monthly Sales by State",
	}

	return New(dialect, reports, extracts, interactive)
}
