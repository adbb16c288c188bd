package chart

import (
	"encoding/json"
	"fmt"
	"time"

	"decodo-usage-bot/pkg/models"
)

// ExportDay JSON 导出中的单日数据
type ExportDay struct {
	Date  string  `json:"date"`
	Bytes uint64  `json:"bytes"`
	GB    float64 `json:"gb"`
}

// Export JSON 导出结构
type Export struct {
	ProxyType   string              `json:"proxy_type"`
	Window      models.UsageWindow  `json:"window"`
	GeneratedAt time.Time           `json:"generated_at"`
	DataPoints  int                 `json:"data_points"`
	Days        []ExportDay         `json:"days"`
	Summary     models.UsageSummary `json:"summary"`
}

// RenderJSON 导出每日用量和汇总（缩进格式）
func RenderJSON(proxyType string, window models.UsageWindow, records []models.TrafficRecord, summary models.UsageSummary, now time.Time) ([]byte, error) {
	if len(records) == 0 {
		return nil, ErrNoData
	}

	export := Export{
		ProxyType:   proxyType,
		Window:      window,
		GeneratedAt: now.UTC(),
		DataPoints:  len(records),
		Days:        make([]ExportDay, 0, len(records)),
		Summary:     summary,
	}
	for _, r := range records {
		export.Days = append(export.Days, ExportDay{
			Date:  r.Date.Format(models.TimeFormatDay),
			Bytes: r.Bytes,
			GB:    r.GB(),
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("编码JSON失败: %w", err)
	}
	return data, nil
}
