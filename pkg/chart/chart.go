package chart

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"decodo-usage-bot/pkg/models"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNoData 没有可绘制的记录
var ErrNoData = errors.New("no traffic records")

// 图表尺寸
const (
	minChartWidth   = 1000
	maxChartWidth   = 3000
	chartHeight     = 600
	defaultBarWidth = 40
	minBarWidth     = 8
	barSpacing      = 12
	noDataSuffix    = " (no data)"
)

// Series 每日用量序列，PNG/HTML/JSON 共用
type Series struct {
	Title    string
	Days     []time.Time
	Labels   []string
	ValuesGB []float64
	TotalGB  float64
}

// NoData 整个窗口都没有流量
func (s *Series) NoData() bool {
	return s.TotalGB == 0
}

// MaxGB 返回最大单日用量
func (s *Series) MaxGB() float64 {
	var peak float64
	for _, v := range s.ValuesGB {
		if v > peak {
			peak = v
		}
	}
	return peak
}

// BuildSeries 由每日记录生成序列，records 需要已按日期排序
func BuildSeries(records []models.TrafficRecord, title string) (*Series, error) {
	if len(records) == 0 {
		return nil, ErrNoData
	}

	layout := models.TimeFormatChartDay
	if records[0].Date.Year() != records[len(records)-1].Date.Year() {
		layout = models.TimeFormatDay
	}

	s := &Series{
		Title:    title,
		Days:     make([]time.Time, 0, len(records)),
		Labels:   make([]string, 0, len(records)),
		ValuesGB: make([]float64, 0, len(records)),
	}
	for _, r := range records {
		gb := r.GB()
		s.Days = append(s.Days, r.Date)
		s.Labels = append(s.Labels, r.Date.Format(layout))
		s.ValuesGB = append(s.ValuesGB, gb)
		s.TotalGB += gb
	}
	if s.NoData() {
		s.Title += noDataSuffix
	}
	return s, nil
}

// Title 生成图表标题，例如 "Daily usage (GB) | mobile_proxies | 2024-05-01 → 2024-05-19"
func Title(proxyType string, window models.UsageWindow) string {
	parts := []string{"Daily usage (GB)"}
	if proxyType != "" {
		parts = append(parts, proxyType)
	}
	parts = append(parts, window.Label())
	return strings.Join(parts, " | ")
}

// Renderer 图表渲染器（只在内存中生成，不落盘）
type Renderer struct {
	isDark bool
}

// NewRenderer 创建渲染器
func NewRenderer(isDark bool) *Renderer {
	return &Renderer{isDark: isDark}
}

// RenderPNG 渲染每日用量柱状图，返回 PNG 字节
func (r *Renderer) RenderPNG(records []models.TrafficRecord, title string) ([]byte, error) {
	series, err := BuildSeries(records, title)
	if err != nil {
		return nil, err
	}

	graph := r.buildBarChart(series)

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return buf.Bytes(), nil
}

// buildBarChart 构建柱状图，每天一根柱子
func (r *Renderer) buildBarChart(s *Series) chart.BarChart {
	colors := models.GetChartColors(r.isDark)
	barFill := hexColor(colors.Bar)
	barStroke := hexColor(colors.BarStroke)
	textColor := hexColor(colors.TextColor)
	axisColor := hexColor(colors.AxisLine)

	bars := make([]chart.Value, 0, len(s.ValuesGB))
	for i, v := range s.ValuesGB {
		bars = append(bars, chart.Value{
			Label: s.Labels[i],
			Value: v,
			Style: chart.Style{
				FillColor:   barFill,
				StrokeColor: barStroke,
				StrokeWidth: 1,
			},
		})
	}

	// 根据天数调整柱子宽度和图表宽度
	dayCount := len(bars)
	barWidth := defaultBarWidth
	chartWidth := dayCount*(barWidth+barSpacing) + 200
	if chartWidth < minChartWidth {
		chartWidth = minChartWidth
	}
	if chartWidth > maxChartWidth {
		chartWidth = maxChartWidth
		barWidth = (chartWidth-200)/dayCount - barSpacing
		if barWidth < minBarWidth {
			barWidth = minBarWidth
		}
	}

	// Y 轴从 0 开始，全 0 时也给出非零范围，否则 go-chart 拒绝渲染
	yMax := s.MaxGB() * 1.15
	if yMax <= 0 {
		yMax = 1
	}

	return chart.BarChart{
		Title: s.Title,
		TitleStyle: chart.Style{
			FontSize:  18,
			FontColor: textColor,
			Padding:   chart.Box{Top: 10, Bottom: 10},
		},
		Width:  chartWidth,
		Height: chartHeight,
		Background: chart.Style{
			FillColor: hexColor(colors.Background),
			Padding:   chart.Box{Top: 50, Left: 80, Right: 40, Bottom: 40},
		},
		Canvas: chart.Style{
			FillColor: hexColor(colors.Canvas),
		},
		XAxis: chart.Style{
			FontSize:    10,
			FontColor:   textColor,
			StrokeColor: axisColor,
			StrokeWidth: 1,
		},
		YAxis: chart.YAxis{
			Name: "GB",
			NameStyle: chart.Style{
				FontSize:  12,
				FontColor: textColor,
			},
			Style: chart.Style{
				FontSize:    11,
				FontColor:   textColor,
				StrokeColor: axisColor,
				StrokeWidth: 1,
			},
			Range: &chart.ContinuousRange{
				Min: 0,
				Max: yMax,
			},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.2f", f)
				}
				return ""
			},
			GridMajorStyle: chart.Style{
				StrokeColor: hexColor(colors.SplitLine),
				StrokeWidth: 1,
			},
		},
		BarWidth:   barWidth,
		BarSpacing: barSpacing,
		Bars:       bars,
	}
}

// hexColor 将 "#rrggbb" 转为 go-chart 颜色
func hexColor(hex string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
}
