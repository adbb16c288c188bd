package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate 共享的校验器实例
var validate = validator.New()

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return describeValidationErrors(verrs)
		}
		return err
	}

	if err := c.Subscription.Validate(); err != nil {
		return fmt.Errorf("订阅配置错误: %w", err)
	}

	return nil
}

// Validate 验证订阅配置
func (s *SubscriptionConfig) Validate() error {
	if s.LimitGB != nil && *s.LimitGB <= 0 {
		return fmt.Errorf("DECODO_SUBSCRIPTION_LIMIT_GB 必须大于0，当前值: %.2f", *s.LimitGB)
	}

	if s.AnchorDay < 0 || s.AnchorDay > 31 {
		return fmt.Errorf("计费锚定日必须在1-31之间，当前值: %d", s.AnchorDay)
	}

	if s.StartDate != "" && s.AnchorDay == 0 {
		return errors.New("DECODO_SUBSCRIPTION_START_DATE 未解析出锚定日")
	}

	if s.EndDate != "" && s.FixedEnd.IsZero() {
		return errors.New("DECODO_SUBSCRIPTION_END_DATE 未解析出结束时间")
	}

	return nil
}

// envNames 结构体字段到环境变量名的映射，用于输出可读的错误信息
var envNames = map[string]string{
	"APIKey":         "DECODO_API_KEY",
	"APIBaseURL":     "DECODO_API_BASE_URL",
	"RequestTimeout": "DECODO_REQUEST_TIMEOUT",
	"BotToken":       "TELEGRAM_BOT_TOKEN",
	"MetricsAddr":    "METRICS_ADDR",
	"LimitGB":        "DECODO_SUBSCRIPTION_LIMIT_GB",
	"AnchorDay":      "DECODO_SUBSCRIPTION_START_DATE",
	"Level":          "LOG_LEVEL",
	"Format":         "LOG_FORMAT",
}

func describeValidationErrors(verrs validator.ValidationErrors) error {
	missing := make([]string, 0)
	invalid := make([]string, 0)

	for _, fe := range verrs {
		name := envNames[fe.StructField()]
		if name == "" {
			name = fe.Namespace()
		}
		if fe.Tag() == "required" {
			missing = append(missing, name)
			continue
		}
		invalid = append(invalid, fmt.Sprintf("%s=%v (%s)", name, fe.Value(), fe.Tag()))
	}

	parts := make([]string, 0, 2)
	if len(missing) > 0 {
		parts = append(parts, "缺少必需的环境变量: "+strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		parts = append(parts, "无效的配置值: "+strings.Join(invalid, "; "))
	}
	return errors.New(strings.Join(parts, "; "))
}
