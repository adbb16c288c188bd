package period

import (
	"fmt"
	"time"

	"decodo-usage-bot/pkg/models"
)

// Mode 周期模式
type Mode string

const (
	ModeAnchor   Mode = "anchor"    // 按计费锚定日每月滚动
	ModeFixedEnd Mode = "fixed_end" // 固定结束日期所在月
	ModeCalendar Mode = "calendar"  // 自然月
)

// Calculator 统计窗口计算器（无状态，每次调用根据 now 重新计算）
type Calculator struct {
	anchorDay int
	fixedEnd  time.Time
}

// NewCalculator 根据订阅配置创建窗口计算器
func NewCalculator(sub models.SubscriptionConfig) *Calculator {
	return &Calculator{
		anchorDay: sub.AnchorDay,
		fixedEnd:  sub.FixedEnd,
	}
}

// Mode 返回当前生效的周期模式（锚定日优先于固定结束日期）
func (c *Calculator) Mode() Mode {
	switch {
	case c.anchorDay > 0:
		return ModeAnchor
	case !c.fixedEnd.IsZero():
		return ModeFixedEnd
	default:
		return ModeCalendar
	}
}

// Window 计算 now 所在的统计窗口，所有时间均为 UTC
func (c *Calculator) Window(now time.Time) (models.UsageWindow, error) {
	now = now.UTC()

	var w models.UsageWindow
	switch c.Mode() {
	case ModeAnchor:
		start := anchorDate(now.Year(), now.Month(), c.anchorDay)
		if start.After(models.TruncateDay(now)) {
			prev := time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, time.UTC)
			start = anchorDate(prev.Year(), prev.Month(), c.anchorDay)
		}
		next := time.Date(start.Year(), start.Month()+1, 1, 0, 0, 0, 0, time.UTC)
		w = models.UsageWindow{
			Start:    start,
			End:      now,
			CycleEnd: anchorDate(next.Year(), next.Month(), c.anchorDay),
		}

	case ModeFixedEnd:
		end := c.fixedEnd.UTC()
		w = models.UsageWindow{
			Start: time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC),
			End:   end,
		}

	default:
		w = models.UsageWindow{
			Start: time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC),
			End:   now,
		}
	}

	if w.End.Before(w.Start) {
		return models.UsageWindow{}, fmt.Errorf("统计窗口无效: 结束时间 %s 早于开始时间 %s",
			w.End.Format(models.TimeFormatAPI), w.Start.Format(models.TimeFormatAPI))
	}
	return w, nil
}

// anchorDate 返回指定月份的锚定日，超出当月天数时取当月最后一天
func anchorDate(year int, month time.Month, day int) time.Time {
	last := DaysInMonth(year, month)
	if day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DaysInMonth 返回某月的天数
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// FormatMode 格式化周期描述（用于日志和 check 命令输出）
func (c *Calculator) FormatMode() string {
	switch c.Mode() {
	case ModeAnchor:
		return fmt.Sprintf("计费周期 (每月%d日开始)", c.anchorDay)
	case ModeFixedEnd:
		return fmt.Sprintf("固定周期 (截止 %s)", c.fixedEnd.Format(models.TimeFormatAPI))
	default:
		return "自然月周期"
	}
}
