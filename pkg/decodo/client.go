package decodo

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"decodo-usage-bot/pkg/metrics"
	"decodo-usage-bot/pkg/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// TrafficPath 流量统计接口路径
const TrafficPath = "/api/v2/statistics/traffic"

// maxErrorBody 错误信息中保留的响应体长度
const maxErrorBody = 300

// Client Decodo 统计接口客户端
type Client struct {
	client *resty.Client
	logger *zap.Logger
}

// TrafficRequest 统计接口请求体
type TrafficRequest struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	ProxyType string `json:"proxyType,omitempty"`
	GroupBy   string `json:"groupBy"`
}

// StatusError 上游返回非 2xx 状态码
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// NewClient 创建统计接口客户端
func NewClient(cfg *models.Config, logger *zap.Logger) *Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	client := resty.New()
	client.SetTransport(transport)
	client.SetDisableWarn(true)
	client.SetBaseURL(cfg.APIBaseURL)
	client.SetTimeout(cfg.RequestTimeout)
	client.SetHeaders(map[string]string{
		"Accept":        "application/json",
		"Content-Type":  "application/json",
		"Authorization": cfg.APIKey, // 原始 API Key，无 Bearer 前缀
	})

	return &Client{
		client: client,
		logger: logger.Named("decodo"),
	}
}

// GetTraffic 查询窗口内的流量统计，返回原始响应体
// proxyType 为空时不传该字段，由服务商使用账户默认类型
func (c *Client) GetTraffic(ctx context.Context, window models.UsageWindow, proxyType, groupBy string) ([]byte, error) {
	req := TrafficRequest{
		StartDate: window.Start.UTC().Format(models.TimeFormatAPI),
		EndDate:   window.End.UTC().Format(models.TimeFormatAPI),
		ProxyType: proxyType,
		GroupBy:   groupBy,
	}

	label := proxyTypeLabel(proxyType)
	c.logger.Debug("请求流量统计",
		zap.String("proxy_type", label),
		zap.String("start", req.StartDate),
		zap.String("end", req.EndDate),
		zap.String("group_by", groupBy))

	started := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		Post(TrafficPath)
	if err != nil {
		metrics.ObserveUpstream(label, 0, time.Since(started))
		return nil, fmt.Errorf("请求统计接口失败: %w", err)
	}
	metrics.ObserveUpstream(label, resp.StatusCode(), time.Since(started))

	c.logger.Debug("统计接口响应",
		zap.String("proxy_type", label),
		zap.Int("status", resp.StatusCode()),
		zap.Int("bytes", len(resp.Body())),
		zap.Duration("elapsed", resp.Time()))

	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, &StatusError{
			StatusCode: resp.StatusCode(),
			Body:       truncate(strings.TrimSpace(resp.String()), maxErrorBody),
		}
	}

	if len(resp.Body()) == 0 {
		return nil, fmt.Errorf("统计接口返回空响应")
	}

	return resp.Body(), nil
}

// proxyTypeLabel 日志和指标中使用的类型名
func proxyTypeLabel(proxyType string) string {
	if proxyType == models.ProxyTypeProviderDefault {
		return models.ProxyTypeProviderDefaultName
	}
	return proxyType
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
