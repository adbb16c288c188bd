package chart

import (
	"bytes"
	"fmt"
	"io"

	"decodo-usage-bot/pkg/models"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// echartsAssetsHost echarts 脚本 CDN
const echartsAssetsHost = "https://cdn.jsdelivr.net/npm/echarts@5.4.3/dist/"

// RenderHTML 渲染可交互的每日用量柱状图（go-echarts），返回完整的 HTML 页面
func (r *Renderer) RenderHTML(records []models.TrafficRecord, title string) ([]byte, error) {
	series, err := BuildSeries(records, title)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := r.writeHTML(&buf, series); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeHTML 将序列渲染为 HTML 写入 w
func (r *Renderer) writeHTML(w io.Writer, s *Series) error {
	colors := models.GetChartColors(r.isDark)

	page := components.NewPage()
	page.PageTitle = s.Title
	page.AssetsHost = echartsAssetsHost

	bar := charts.NewBar()

	theme := "light"
	if r.isDark {
		theme = "dark"
	}

	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:           "1200px",
			Height:          "600px",
			Theme:           theme,
			BackgroundColor: colors.Background,
		}),
		charts.WithTitleOpts(opts.Title{
			Title: s.Title,
			Left:  "center",
			Top:   "2%",
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Trigger: "axis",
		}),
		charts.WithGridOpts(opts.Grid{
			Left:   "8%",
			Right:  "4%",
			Bottom: "15%",
			Top:    "12%",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: "Day",
			AxisLabel: &opts.AxisLabel{
				Rotate: 45,
			},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: "GB",
		}),
	)

	barData := make([]opts.BarData, 0, len(s.ValuesGB))
	for _, v := range s.ValuesGB {
		barData = append(barData, opts.BarData{Value: fmt.Sprintf("%.6f", v)})
	}

	bar.SetXAxis(s.Labels).
		AddSeries("Daily usage (GB)", barData,
			charts.WithItemStyleOpts(opts.ItemStyle{
				Color:       colors.Bar,
				BorderColor: colors.BarStroke,
			}),
		)

	page.AddCharts(bar)

	if err := page.Render(w); err != nil {
		return fmt.Errorf("渲染HTML失败: %w", err)
	}
	return nil
}
