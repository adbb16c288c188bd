package decodo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"decodo-usage-bot/pkg/models"

	"go.uber.org/zap"
)

// ErrNoRecords 所有候选类型都没有可识别的数据行
var ErrNoRecords = errors.New("统计接口没有返回可识别的数据")

// 服务类型别名
var serviceAliases = map[string]string{
	"residential":    models.ProxyTypeResidential,
	"mobile":         models.ProxyTypeMobile,
	"datacenter":     models.ProxyTypeDatacenter,
	"site_unblocker": models.ProxyTypeSiteUnblocker,
}

// 依次尝试的候选类型（配置的类型和服务商默认值之后）
var fallbackProxyTypes = []string{
	models.ProxyTypeMobile,
	models.ProxyTypeResidential,
	models.ProxyTypeUniversal,
	models.ProxyTypeUniversalCore,
	models.ProxyTypeDatacenter,
	models.ProxyTypeSiteUnblocker,
	models.ProxyTypeSiteUnblockerReq,
}

// MapServiceType 将配置的服务类型映射为统计接口的 proxyType
// 别名（mobile/residential/...）展开，其余值原样返回
func MapServiceType(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return ""
	}
	if mapped, ok := serviceAliases[v]; ok {
		return mapped
	}
	return v
}

// Candidates 返回有序的候选 proxyType 列表
// 顺序: 配置类型 -> 服务商默认 ("") -> 固定列表（跳过与配置类型重复的项）
func Candidates(serviceType string) []string {
	first := MapServiceType(serviceType)
	candidates := make([]string, 0, len(fallbackProxyTypes)+2)
	if first != "" {
		candidates = append(candidates, first)
	}
	candidates = append(candidates, models.ProxyTypeProviderDefault)
	for _, pt := range fallbackProxyTypes {
		if pt != first {
			candidates = append(candidates, pt)
		}
	}
	return candidates
}

// FetchError 所有候选类型均失败
type FetchError struct {
	Attempted []string // 按尝试顺序，服务商默认记为 "default"
	Last      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("所有服务类型均查询失败 (尝试: %s): %v", strings.Join(e.Attempted, ", "), e.Last)
}

func (e *FetchError) Unwrap() error {
	return e.Last
}

// StatusCode 返回最后一次失败的 HTTP 状态码，未知时返回 0
func (e *FetchError) StatusCode() int {
	var se *StatusError
	if errors.As(e.Last, &se) {
		return se.StatusCode
	}
	return 0
}

// TrafficSource 统计数据来源，便于测试替换
type TrafficSource interface {
	GetTraffic(ctx context.Context, window models.UsageWindow, proxyType, groupBy string) ([]byte, error)
}

// Usage 一次成功查询的结果
type Usage struct {
	ProxyType  string                 // 实际成功的类型，服务商默认时为空
	Records    []models.TrafficRecord // 窗口内每天一条，按日期升序
	TotalBytes uint64
	Hourly     bool // 是否使用了小时粒度回退
}

// ProxyTypeLabel 返回用于展示的类型名
func (u *Usage) ProxyTypeLabel() string {
	return proxyTypeLabel(u.ProxyType)
}

// Fetcher 按候选类型顺序查询用量
type Fetcher struct {
	source     TrafficSource
	candidates []string
	logger     *zap.Logger
}

// NewFetcher 创建用量查询器
func NewFetcher(source TrafficSource, serviceType string, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		source:     source,
		candidates: Candidates(serviceType),
		logger:     logger,
	}
}

// Fetch 查询窗口内的每日用量
// 候选类型依次尝试，第一个成功的生效；上下文取消时立即返回
func (f *Fetcher) Fetch(ctx context.Context, window models.UsageWindow) (*Usage, error) {
	attempted := make([]string, 0, len(f.candidates))
	var lastErr error

	for _, pt := range f.candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		attempted = append(attempted, proxyTypeLabel(pt))

		body, err := f.source.GetTraffic(ctx, window, pt, models.GroupByDay)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			f.logger.Warn("查询失败，尝试下一个服务类型",
				zap.String("proxy_type", proxyTypeLabel(pt)),
				zap.Error(err))
			lastErr = err
			continue
		}

		traffic, err := ParseTraffic(body)
		if err != nil {
			f.logger.Warn("解析统计响应失败，尝试下一个服务类型",
				zap.String("proxy_type", proxyTypeLabel(pt)),
				zap.Error(err))
			lastErr = err
			continue
		}

		usage := &Usage{ProxyType: pt}
		if traffic.Rows == 0 {
			if hourly := f.fetchHourly(ctx, window, pt); hourly != nil && hourly.Rows > 0 {
				traffic = hourly
				usage.Hourly = true
			}
		}

		usage.Records = traffic.Records(window)
		for _, r := range usage.Records {
			usage.TotalBytes += r.Bytes
		}
		if usage.TotalBytes == 0 && traffic.TotalBytes != nil {
			usage.TotalBytes = *traffic.TotalBytes
		}

		f.logger.Info("查询用量成功",
			zap.String("proxy_type", proxyTypeLabel(pt)),
			zap.Int("rows", traffic.Rows),
			zap.Bool("hourly", usage.Hourly),
			zap.Uint64("bytes", usage.TotalBytes))
		return usage, nil
	}

	if lastErr == nil {
		lastErr = ErrNoRecords
	}
	return nil, &FetchError{Attempted: attempted, Last: lastErr}
}

// fetchHourly 日粒度没有数据行时按小时粒度再查一次同一类型，失败时返回 nil
func (f *Fetcher) fetchHourly(ctx context.Context, window models.UsageWindow, proxyType string) *Traffic {
	body, err := f.source.GetTraffic(ctx, window, proxyType, models.GroupByHour)
	if err != nil {
		f.logger.Debug("小时粒度查询失败", zap.String("proxy_type", proxyTypeLabel(proxyType)), zap.Error(err))
		return nil
	}
	traffic, err := ParseTraffic(body)
	if err != nil {
		f.logger.Debug("小时粒度响应解析失败", zap.Error(err))
		return nil
	}
	return traffic
}
