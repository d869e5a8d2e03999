package render

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/grigta/covid-tracker/services/dashboard-service/internal/models"
)

const graphDateFormat = "01/02/06"

var seriesNames = map[models.Category]string{
	models.CategoryCases:     "New cases",
	models.CategoryRecovered: "New recoveries",
	models.CategoryDeaths:    "New deaths",
}

// BuildLineGraph charts daily changes for one category.
func BuildLineGraph(series models.HistoricalSeries) *charts.Line {
	style := StyleFor(series.Category)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:     "100%",
			Height:    "320px",
			PageTitle: "Worldwide new " + string(series.Category),
		}),
		charts.WithTitleOpts(opts.Title{
			Title: "Worldwide new " + string(series.Category),
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: "Date",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: "Count",
		}),
	)

	dates := make([]string, len(series.Points))
	data := make([]opts.LineData, len(series.Points))
	for i, p := range series.Points {
		dates[i] = p.Date.Format(graphDateFormat)
		data[i] = opts.LineData{Value: p.Value}
	}

	line.SetXAxis(dates)
	line.AddSeries(seriesNames[StyleCategory(series.Category)], data)
	line.SetSeriesOptions(
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: style.Color}),
	)

	return line
}

// RenderLineGraph writes the chart as a standalone HTML page.
func RenderLineGraph(w io.Writer, series models.HistoricalSeries) error {
	return BuildLineGraph(series).Render(w)
}

// StyleCategory maps unknown categories to cases, matching StyleFor.
func StyleCategory(category models.Category) models.Category {
	if category.Valid() {
		return category
	}
	return models.CategoryCases
}
