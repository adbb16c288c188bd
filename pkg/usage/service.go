package usage

import (
	"context"
	"fmt"
	"time"

	"decodo-usage-bot/pkg/decodo"
	"decodo-usage-bot/pkg/metrics"
	"decodo-usage-bot/pkg/models"
	"decodo-usage-bot/pkg/period"
)

// Fetcher 按窗口查询每日用量
type Fetcher interface {
	Fetch(ctx context.Context, window models.UsageWindow) (*decodo.Usage, error)
}

// Result 一次查询的完整结果
type Result struct {
	Window  models.UsageWindow
	Usage   *decodo.Usage
	Summary models.UsageSummary
	Now     time.Time
}

// ProxyType 实际使用的服务类型名
func (r *Result) ProxyType() string {
	return r.Usage.ProxyTypeLabel()
}

// Service 计算窗口、查询用量并汇总
type Service struct {
	calculator *period.Calculator
	fetcher    Fetcher
	limitGB    *float64
	location   *time.Location
	now        func() time.Time
}

// NewService 创建用量服务
func NewService(cfg *models.Config, fetcher Fetcher) *Service {
	return &Service{
		calculator: period.NewCalculator(cfg.Subscription),
		fetcher:    fetcher,
		limitGB:    cfg.Subscription.LimitGB,
		location:   cfg.Location(),
		now:        time.Now,
	}
}

// WithClock 替换时间来源
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Query 查询当前窗口的用量
func (s *Service) Query(ctx context.Context) (*Result, error) {
	now := s.now().UTC()
	window, err := s.calculator.Window(now)
	if err != nil {
		return nil, err
	}

	u, err := s.fetcher.Fetch(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("查询用量失败: %w", err)
	}

	metrics.UsedBytes.Set(float64(u.TotalBytes))

	return &Result{
		Window:  window,
		Usage:   u,
		Summary: Summarize(u.TotalBytes, s.limitGB),
		Now:     now,
	}, nil
}

// Text 生成用量文本
func (s *Service) Text(r *Result) string {
	return Format(Report{
		Window:    r.Window,
		ProxyType: r.ProxyType(),
		Summary:   r.Summary,
		Now:       r.Now,
		Location:  s.location,
	})
}
