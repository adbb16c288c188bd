package models

import "time"

// Config 主配置结构（启动时加载一次，之后只读）
type Config struct {
	APIKey         string         `validate:"required"`
	APIBaseURL     string         `validate:"required,url"`
	ServiceType    string         // 服务类型，支持别名 (mobile/residential/...)
	RequestTimeout time.Duration  `validate:"gt=0"`
	BotToken       string         `validate:"required"`
	AllowedChatIDs map[int64]bool // 聊天白名单，空表示允许所有人
	Subscription   SubscriptionConfig
	TimezoneName   string
	Timezone       *time.Location // 仅用于显示，API 查询始终使用 UTC
	Log            LogConfig
	MetricsAddr    string `validate:"omitempty,hostname_port"`
}

// SubscriptionConfig 订阅周期与流量上限
type SubscriptionConfig struct {
	LimitGB   *float64 `validate:"omitempty,gt=0"`
	StartDate string
	EndDate   string
	AnchorDay int       `validate:"gte=0,lte=31"` // 计费锚定日 (1-31)，0 表示未设置
	FixedEnd  time.Time // 固定结束时间 (UTC)，零值表示未设置
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=json console"`
}

// HasLimit 是否配置了流量上限
func (s SubscriptionConfig) HasLimit() bool {
	return s.LimitGB != nil
}

// IsAllowed 检查聊天是否在白名单内（白名单为空时允许所有人）
func (c *Config) IsAllowed(chatID int64) bool {
	if len(c.AllowedChatIDs) == 0 {
		return true
	}
	return c.AllowedChatIDs[chatID]
}

// Location 返回显示用时区
func (c *Config) Location() *time.Location {
	if c.Timezone == nil {
		return time.UTC
	}
	return c.Timezone
}

// UsageWindow 统计时间窗口（每次请求重新计算，不持久化）
type UsageWindow struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	CycleEnd time.Time `json:"cycle_end,omitempty"` // 计费周期结束日（仅锚定模式）
}

// Days 返回窗口覆盖的每一天（UTC 零点），至少包含一天
func (w UsageWindow) Days() []time.Time {
	start := TruncateDay(w.Start)
	end := TruncateDay(w.End)
	if end.Before(start) {
		start, end = end, start
	}

	days := make([]time.Time, 0, int(end.Sub(start).Hours()/24)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Label 返回窗口的日期描述，例如 "2024-05-01 → 2024-05-19"
func (w UsageWindow) Label() string {
	end := w.End
	if !w.CycleEnd.IsZero() {
		end = w.CycleEnd
	}
	return w.Start.Format(TimeFormatDay) + " → " + end.Format(TimeFormatDay)
}

// TrafficRecord 单日流量记录
type TrafficRecord struct {
	Date  time.Time `json:"date"`
	Bytes uint64    `json:"bytes"`
}

// GB 返回该日流量（十进制 GB）
func (r TrafficRecord) GB() float64 {
	return BytesToGB(r.Bytes)
}

// UsageSummary 用量汇总
type UsageSummary struct {
	UsedBytes   uint64   `json:"used_bytes"`
	UsedGB      float64  `json:"used_gb"`
	LimitGB     *float64 `json:"limit_gb,omitempty"`
	RemainingGB *float64 `json:"remaining_gb,omitempty"`
	OverGB      float64  `json:"over_gb,omitempty"` // 超出上限的部分，未超出为 0
	UsedPercent *float64 `json:"used_percent,omitempty"`
}

// TruncateDay 截断到 UTC 零点
func TruncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// BytesToGB 字节转十进制 GB
func BytesToGB(bytes uint64) float64 {
	return float64(bytes) / BytesPerGB
}
