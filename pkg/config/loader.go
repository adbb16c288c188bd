package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"decodo-usage-bot/pkg/models"

	"github.com/spf13/viper"
)

// 环境变量名
const (
	EnvAPIKey           = "DECODO_API_KEY"
	EnvAPIBaseURL       = "DECODO_API_BASE_URL"
	EnvServiceType      = "DECODO_SERVICE_TYPE"
	EnvRequestTimeout   = "DECODO_REQUEST_TIMEOUT"
	EnvLimitGB          = "DECODO_SUBSCRIPTION_LIMIT_GB"
	EnvStartDate        = "DECODO_SUBSCRIPTION_START_DATE"
	EnvEndDate          = "DECODO_SUBSCRIPTION_END_DATE"
	EnvBotToken         = "TELEGRAM_BOT_TOKEN"
	EnvAllowedChatIDs   = "TELEGRAM_ALLOWED_CHAT_IDS"
	EnvTimezone         = "TIMEZONE"
	EnvTZ               = "TZ"
	EnvLogLevel         = "LOG_LEVEL"
	EnvLogFormat        = "LOG_FORMAT"
	EnvMetricsAddr      = "METRICS_ADDR"
	DefaultEnvFile      = ".env"
	defaultTimezoneName = "UTC"
)

// 支持的日期格式（依次尝试）
var dateLayouts = []string{
	models.TimeFormatAPI,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	models.TimeFormatDay,
}

// Load 从 .env 文件（可选）和环境变量加载配置，环境变量优先。
// 任何格式错误都会在这里返回，保证启动时失败而不是请求时失败。
func Load(envFile string) (*models.Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("读取配置文件 %s 失败: %w", envFile, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("获取配置文件信息失败: %w", err)
		}
	}

	return build(v)
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault(EnvAPIBaseURL, models.DefaultAPIBaseURL)
	v.SetDefault(EnvServiceType, models.DefaultServiceType)
	v.SetDefault(EnvRequestTimeout, models.DefaultRequestTimeout.String())
	v.SetDefault(EnvLogLevel, models.DefaultLogLevel)
	v.SetDefault(EnvLogFormat, models.DefaultLogFormat)
}

// build 解析所有配置项并校验
func build(v *viper.Viper) (*models.Config, error) {
	cfg := &models.Config{
		APIKey:      strings.TrimSpace(v.GetString(EnvAPIKey)),
		APIBaseURL:  strings.TrimRight(strings.TrimSpace(v.GetString(EnvAPIBaseURL)), "/"),
		ServiceType: strings.TrimSpace(v.GetString(EnvServiceType)),
		BotToken:    strings.TrimSpace(v.GetString(EnvBotToken)),
		Log: models.LogConfig{
			Level:  strings.ToLower(strings.TrimSpace(v.GetString(EnvLogLevel))),
			Format: strings.ToLower(strings.TrimSpace(v.GetString(EnvLogFormat))),
		},
		MetricsAddr: strings.TrimSpace(v.GetString(EnvMetricsAddr)),
	}

	timeout, err := time.ParseDuration(strings.TrimSpace(v.GetString(EnvRequestTimeout)))
	if err != nil {
		return nil, fmt.Errorf("%s 格式无效 (示例: 15s): %w", EnvRequestTimeout, err)
	}
	cfg.RequestTimeout = timeout

	ids, err := ParseAllowedChatIDs(v.GetString(EnvAllowedChatIDs))
	if err != nil {
		return nil, err
	}
	cfg.AllowedChatIDs = ids

	if err := loadSubscription(v, &cfg.Subscription); err != nil {
		return nil, err
	}

	tzName := strings.TrimSpace(v.GetString(EnvTimezone))
	if tzName == "" {
		tzName = strings.TrimSpace(v.GetString(EnvTZ))
	}
	if tzName == "" {
		tzName = defaultTimezoneName
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("%s 无效: %q: %w", EnvTimezone, tzName, err)
	}
	cfg.TimezoneName = tzName
	cfg.Timezone = loc

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	return cfg, nil
}

// loadSubscription 解析订阅相关配置
func loadSubscription(v *viper.Viper, sub *models.SubscriptionConfig) error {
	if raw := strings.TrimSpace(v.GetString(EnvLimitGB)); raw != "" {
		limit, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("%s 必须是数字 (单位 GB)，当前值: %q", EnvLimitGB, raw)
		}
		sub.LimitGB = &limit
	}

	sub.StartDate = strings.TrimSpace(v.GetString(EnvStartDate))
	if sub.StartDate != "" {
		day, err := ParseAnchorDay(sub.StartDate)
		if err != nil {
			return fmt.Errorf("%s 无效: %w", EnvStartDate, err)
		}
		sub.AnchorDay = day
	}

	sub.EndDate = strings.TrimSpace(v.GetString(EnvEndDate))
	if sub.EndDate != "" {
		end, err := ParseEndDate(sub.EndDate)
		if err != nil {
			return fmt.Errorf("%s 无效: %w", EnvEndDate, err)
		}
		sub.FixedEnd = end
	}

	return nil
}

// ParseAllowedChatIDs 解析逗号分隔的聊天ID列表，空字符串返回空集合
func ParseAllowedChatIDs(value string) (map[int64]bool, error) {
	ids := make(map[int64]bool)
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s 必须是逗号分隔的整数，无法解析: %q", EnvAllowedChatIDs, part)
		}
		ids[id] = true
	}
	return ids, nil
}

// ParseAnchorDay 解析计费锚定日，支持日期 (YYYY-MM-DD[ HH:MM:SS]) 或直接的日数 (1-31)
func ParseAnchorDay(value string) (int, error) {
	value = strings.TrimSpace(value)
	if len(value) <= 2 {
		day, err := strconv.Atoi(value)
		if err != nil || day < 1 || day > 31 {
			return 0, fmt.Errorf("锚定日必须在1-31之间: %q", value)
		}
		return day, nil
	}

	t, err := ParseDateTime(value)
	if err != nil {
		return 0, err
	}
	return t.Day(), nil
}

// ParseEndDate 解析固定结束时间，仅有日期时扩展到当天 23:59:59
func ParseEndDate(value string) (time.Time, error) {
	t, err := ParseDateTime(value)
	if err != nil {
		return time.Time{}, err
	}
	if isDateOnly(value) {
		t = t.Add(24*time.Hour - time.Second)
	}
	return t, nil
}

// ParseDateTime 解析时间参数（支持多种格式，按 UTC 解释）
func ParseDateTime(value string) (time.Time, error) {
	s := normalizeDate(value)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("无效的时间格式: %q (支持格式: 2006-01-02 或 2006-01-02 15:04:05)", value)
}

// normalizeDate 去掉 ISO 时间中的 Z 后缀和小数秒
func normalizeDate(value string) string {
	s := strings.TrimSpace(value)
	s = strings.TrimSuffix(s, "Z")
	if i := strings.Index(s, "."); i > 0 {
		s = s[:i]
	}
	return s
}

func isDateOnly(value string) bool {
	return len(normalizeDate(value)) == len(models.TimeFormatDay)
}
