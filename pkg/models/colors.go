package models

// ChartColors 图表配色方案
type ChartColors struct {
	Bar        string // 柱子填充色
	BarStroke  string // 柱子边框色
	Background string // 背景色
	Canvas     string // 画布色
	TextColor  string // 文字颜色
	AxisLine   string // 坐标轴线颜色
	SplitLine  string // 分割线颜色
}

// GetChartColors 获取图表配色（支持主题）
func GetChartColors(isDark bool) ChartColors {
	if isDark {
		return ChartColors{
			Bar:        "#5cb3ff",
			BarStroke:  "#409eff",
			Background: "#1f1f1f",
			Canvas:     "#2d2d2d",
			TextColor:  "#e4e7ed",
			AxisLine:   "#4c4d4f",
			SplitLine:  "#3a3a3a",
		}
	}
	return ChartColors{
		Bar:        "#3b82f6",
		BarStroke:  "#1e40af",
		Background: "#fafafa",
		Canvas:     "#ffffff",
		TextColor:  "#2c3e50",
		AxisLine:   "#dcdfe6",
		SplitLine:  "#e6e6e6",
	}
}
