package bot

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"decodo-usage-bot/pkg/chart"
	"decodo-usage-bot/pkg/decodo"
	"decodo-usage-bot/pkg/metrics"
	"decodo-usage-bot/pkg/models"
	"decodo-usage-bot/pkg/usage"

	tu "github.com/mymmrac/telego/telegoutil"
	"go.uber.org/zap"
)

// 命令
const (
	CommandStart     = "start"
	CommandHelp      = "help"
	CommandUsage     = "usage"
	CommandChart     = "chart"
	CommandChartHTML = "charthtml"
)

// 回复键盘按钮
const (
	ButtonUsage = "Usage"
	ButtonChart = "Daily chart"
)

// 回复文本
const (
	TextGreeting      = "Hi. Use the button below or send /usage to get Decodo usage."
	TextNotAuthorized = "Not authorized."
	TextHelp          = "Commands:\n" +
		"/usage - traffic used and remaining in the current period\n" +
		"/chart - daily usage bar chart\n" +
		"/charthtml - interactive daily usage chart (HTML file)\n" +
		"/help - this message"

	chartFilename     = "daily_usage.png"
	chartHTMLFilename = "daily_usage.html"
)

// Chat actions
const (
	ActionTyping         = "typing"
	ActionUploadPhoto    = "upload_photo"
	ActionUploadDocument = "upload_document"
)

// handlerTimeout 单个命令的最长处理时间（包含所有候选类型的回退请求）
const handlerTimeout = 2 * time.Minute

// 纯文本别名（大小写不敏感）
var textAliases = map[string]string{
	"usage":           CommandUsage,
	"chart":           CommandChart,
	"daily chart":     CommandChart,
	"stats image":     CommandChart,
	"statistic image": CommandChart,
	"daily usage":     CommandChart,
}

// Sender 消息发送接口，由 telego 适配器实现
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string, keyboard bool) error
	SendPhoto(ctx context.Context, chatID int64, png []byte, filename, caption string) error
	SendDocument(ctx context.Context, chatID int64, data []byte, filename, caption string) error
	SendAction(ctx context.Context, chatID int64, action string) error
}

// UsageSource 用量查询接口
type UsageSource interface {
	Query(ctx context.Context) (*usage.Result, error)
	Text(r *usage.Result) string
}

// ChartRenderer 图表渲染接口
type ChartRenderer interface {
	RenderPNG(records []models.TrafficRecord, title string) ([]byte, error)
	RenderHTML(records []models.TrafficRecord, title string) ([]byte, error)
}

// Dispatcher 命令分发器：鉴权后路由到对应处理函数
type Dispatcher struct {
	cfg      *models.Config
	source   UsageSource
	renderer ChartRenderer
	sender   Sender
	logger   *zap.Logger
}

// NewDispatcher 创建命令分发器
func NewDispatcher(cfg *models.Config, source UsageSource, renderer ChartRenderer, sender Sender, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		source:   source,
		renderer: renderer,
		sender:   sender,
		logger:   logger,
	}
}

// Route 解析消息文本，返回命令名；非命令且不是按钮的文本返回空字符串
// 未知命令路由到 help
func Route(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	if strings.HasPrefix(text, "/") {
		cmd, _, _ := tu.ParseCommand(text)
		switch strings.ToLower(cmd) {
		case CommandStart:
			return CommandStart
		case CommandUsage:
			return CommandUsage
		case CommandChart:
			return CommandChart
		case CommandChartHTML:
			return CommandChartHTML
		default:
			return CommandHelp
		}
	}

	return textAliases[strings.ToLower(text)]
}

// Handle 处理一条消息，错误只记录日志和回复，不向上返回
func (d *Dispatcher) Handle(ctx context.Context, chatID int64, text string) {
	command := Route(text)
	if command == "" {
		return
	}

	log := d.logger.With(zap.Int64("chat_id", chatID), zap.String("command", command))

	defer func() {
		if r := recover(); r != nil {
			log.Error("处理命令时发生panic",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			metrics.CommandsTotal.WithLabelValues(command, "panic").Inc()
			d.reply(ctx, log, chatID, "Internal error.", false)
		}
	}()

	if !d.cfg.IsAllowed(chatID) {
		log.Warn("未授权的聊天")
		metrics.CommandsTotal.WithLabelValues(command, "unauthorized").Inc()
		d.reply(ctx, log, chatID, TextNotAuthorized, false)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	var err error
	switch command {
	case CommandStart:
		d.reply(ctx, log, chatID, TextGreeting, true)
	case CommandHelp:
		d.reply(ctx, log, chatID, TextHelp, true)
	case CommandUsage:
		err = d.handleUsage(ctx, log, chatID)
	case CommandChart:
		err = d.handleChart(ctx, log, chatID)
	case CommandChartHTML:
		err = d.handleChartHTML(ctx, log, chatID)
	}

	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.CommandsTotal.WithLabelValues(command, result).Inc()
}

// handleUsage 查询并回复用量文本
func (d *Dispatcher) handleUsage(ctx context.Context, log *zap.Logger, chatID int64) error {
	d.action(ctx, log, chatID, ActionTyping)

	res, err := d.source.Query(ctx)
	if err != nil {
		log.Error("查询用量失败", zap.Error(err))
		d.reply(ctx, log, chatID, ErrorReply("Error fetching usage", err), false)
		return err
	}

	d.reply(ctx, log, chatID, d.source.Text(res), true)
	return nil
}

// handleChart 查询并回复每日用量柱状图，没有记录时退化为文本
func (d *Dispatcher) handleChart(ctx context.Context, log *zap.Logger, chatID int64) error {
	d.action(ctx, log, chatID, ActionUploadPhoto)

	res, err := d.source.Query(ctx)
	if err != nil {
		log.Error("查询用量失败", zap.Error(err))
		d.reply(ctx, log, chatID, ErrorReply("Error fetching chart", err), false)
		return err
	}

	png, err := d.renderer.RenderPNG(res.Usage.Records, chart.Title(res.ProxyType(), res.Window))
	if errors.Is(err, chart.ErrNoData) {
		d.reply(ctx, log, chatID, d.source.Text(res), true)
		return nil
	}
	if err != nil {
		log.Error("生成图表失败", zap.Error(err))
		d.reply(ctx, log, chatID, ErrorReply("Error generating chart", err), false)
		return err
	}
	metrics.ChartsRenderedTotal.WithLabelValues("png").Inc()

	if err := d.sender.SendPhoto(ctx, chatID, png, chartFilename, Caption(res)); err != nil {
		log.Error("发送图表失败", zap.Error(err))
		return err
	}
	return nil
}

// handleChartHTML 回复可交互的 HTML 图表文件
func (d *Dispatcher) handleChartHTML(ctx context.Context, log *zap.Logger, chatID int64) error {
	d.action(ctx, log, chatID, ActionUploadDocument)

	res, err := d.source.Query(ctx)
	if err != nil {
		log.Error("查询用量失败", zap.Error(err))
		d.reply(ctx, log, chatID, ErrorReply("Error fetching chart", err), false)
		return err
	}

	page, err := d.renderer.RenderHTML(res.Usage.Records, chart.Title(res.ProxyType(), res.Window))
	if errors.Is(err, chart.ErrNoData) {
		d.reply(ctx, log, chatID, d.source.Text(res), true)
		return nil
	}
	if err != nil {
		log.Error("生成HTML图表失败", zap.Error(err))
		d.reply(ctx, log, chatID, ErrorReply("Error generating chart", err), false)
		return err
	}
	metrics.ChartsRenderedTotal.WithLabelValues("html").Inc()

	if err := d.sender.SendDocument(ctx, chatID, page, chartHTMLFilename, Caption(res)); err != nil {
		log.Error("发送HTML图表失败", zap.Error(err))
		return err
	}
	return nil
}

// reply 发送文本，失败只记录日志
func (d *Dispatcher) reply(ctx context.Context, log *zap.Logger, chatID int64, text string, keyboard bool) {
	if err := d.sender.SendText(ctx, chatID, text, keyboard); err != nil {
		log.Error("发送消息失败", zap.Error(err))
	}
}

// action 发送 chat action，失败忽略
func (d *Dispatcher) action(ctx context.Context, log *zap.Logger, chatID int64, action string) {
	if err := d.sender.SendAction(ctx, chatID, action); err != nil {
		log.Debug("发送 chat action 失败", zap.String("action", action), zap.Error(err))
	}
}

// Caption 图表说明：窗口和总用量
func Caption(res *usage.Result) string {
	caption := fmt.Sprintf("%s\nUsed: %s GB", res.Window.Label(), usage.FormatGB(res.Summary.UsedGB))
	if res.Summary.LimitGB != nil {
		caption += fmt.Sprintf(" of %s GB", usage.FormatGB(*res.Summary.LimitGB))
	}
	return caption
}

// ErrorReply 生成简短的错误回复，已知 HTTP 状态码时只显示状态码
func ErrorReply(prefix string, err error) string {
	var fe *decodo.FetchError
	if errors.As(err, &fe) {
		if code := fe.StatusCode(); code > 0 {
			return fmt.Sprintf("%s: HTTP %d", prefix, code)
		}
		if errors.Is(fe, decodo.ErrNoRecords) {
			return prefix + ": no usage data returned"
		}
		return fmt.Sprintf("%s: all %d service types failed", prefix, len(fe.Attempted))
	}
	var se *decodo.StatusError
	if errors.As(err, &se) {
		return fmt.Sprintf("%s: HTTP %d", prefix, se.StatusCode)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return prefix + ": request timed out"
	}
	return fmt.Sprintf("%s: %v", prefix, err)
}
