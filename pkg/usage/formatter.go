package usage

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"decodo-usage-bot/pkg/models"
)

// 文本格式
const (
	titleText      = "Decodo Usage"
	asOfTimeFormat = "2006-01-02 15:04:05"
	minDecimals    = 2
	maxDecimals    = 6
)

// SumRecords 汇总每日记录的字节数
func SumRecords(records []models.TrafficRecord) uint64 {
	var total uint64
	for _, r := range records {
		total += r.Bytes
	}
	return total
}

// Summarize 计算用量汇总
// 剩余量不会为负数，超出部分记录在 OverGB；未配置上限时剩余量和百分比为 nil
func Summarize(usedBytes uint64, limitGB *float64) models.UsageSummary {
	s := models.UsageSummary{
		UsedBytes: usedBytes,
		UsedGB:    models.BytesToGB(usedBytes),
	}
	if limitGB == nil {
		return s
	}

	limit := *limitGB
	remaining := limit - s.UsedGB
	if remaining < 0 {
		s.OverGB = -remaining
		remaining = 0
	}
	s.LimitGB = &limit
	s.RemainingGB = &remaining

	if limit > 0 {
		pct := s.UsedGB / limit * 100
		s.UsedPercent = &pct
	}
	return s
}

// Report 一次用量查询的展示数据
type Report struct {
	Window    models.UsageWindow
	ProxyType string // 展示用类型名
	Summary   models.UsageSummary
	Now       time.Time
	Location  *time.Location // 仅影响 "As of" 行
}

// Format 生成用量文本
func Format(r Report) string {
	var b strings.Builder

	b.WriteString(titleText)
	if r.ProxyType != "" {
		b.WriteString(" | ")
		b.WriteString(r.ProxyType)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Period: %s\n", r.Window.Label())

	s := r.Summary
	if s.LimitGB != nil {
		fmt.Fprintf(&b, "Usage: %s GB of %s GB", FormatGB(s.UsedGB), FormatGB(*s.LimitGB))
		if s.UsedPercent != nil {
			fmt.Fprintf(&b, " (%.2f%%)", *s.UsedPercent)
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "Remaining: %s GB\n", FormatGB(*s.RemainingGB))
		if s.OverGB > 0 {
			fmt.Fprintf(&b, "Over limit by %s GB\n", FormatGB(s.OverGB))
		}
	} else {
		fmt.Fprintf(&b, "Used: %s GB\n", FormatGB(s.UsedGB))
	}
	fmt.Fprintf(&b, "Traffic: %s bytes\n", strconv.FormatUint(s.UsedBytes, 10))

	loc := r.Location
	if loc == nil {
		loc = time.UTC
	}
	now := r.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.In(loc)
	fmt.Fprintf(&b, "\nAs of: %s %s", now.Format(asOfTimeFormat), now.Format("MST"))

	return b.String()
}

// FormatGB 格式化 GB 数值：最多6位小数，去掉末尾的 0，至少保留2位
// 例如 0.000005、0.999995、12.50
func FormatGB(v float64) string {
	s := strconv.FormatFloat(v, 'f', maxDecimals, 64)
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return s
	}
	keep := len(s)
	for keep > dot+1+minDecimals && s[keep-1] == '0' {
		keep--
	}
	return s[:keep]
}
