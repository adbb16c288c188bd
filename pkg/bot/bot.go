package bot

import (
	"context"
	"fmt"

	"decodo-usage-bot/pkg/models"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"
	"go.uber.org/zap"
)

// longPollTimeout getUpdates 长轮询超时（秒）
const longPollTimeout = 30

// Bot Telegram 机器人
type Bot struct {
	bot        *telego.Bot
	dispatcher *Dispatcher
	logger     *zap.Logger
}

// New 创建机器人，token 格式错误时返回错误
func New(cfg *models.Config, source UsageSource, renderer ChartRenderer, logger *zap.Logger) (*Bot, error) {
	tg, err := telego.NewBot(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("创建 Telegram 客户端失败: %w", err)
	}

	log := logger.Named("bot")
	return &Bot{
		bot:        tg,
		dispatcher: NewDispatcher(cfg, source, renderer, NewTelegoSender(tg), log),
		logger:     log,
	}, nil
}

// Run 启动长轮询，阻塞直到 ctx 取消
func (b *Bot) Run(ctx context.Context) error {
	me, err := b.bot.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("验证 Bot Token 失败: %w", err)
	}
	b.logger.Info("Bot 已连接", zap.String("username", me.Username), zap.Int64("id", me.ID))

	if err := b.bot.SetMyCommands(ctx, &telego.SetMyCommandsParams{
		Commands: []telego.BotCommand{
			{Command: CommandUsage, Description: "Traffic used and remaining"},
			{Command: CommandChart, Description: "Daily usage chart"},
			{Command: CommandChartHTML, Description: "Interactive daily usage chart"},
			{Command: CommandHelp, Description: "Show help"},
		},
	}); err != nil {
		// 命令菜单只影响客户端提示，不影响功能
		b.logger.Warn("设置命令菜单失败", zap.Error(err))
	}

	updates, err := b.bot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout:        longPollTimeout,
		AllowedUpdates: []string{"message"},
	})
	if err != nil {
		return fmt.Errorf("启动长轮询失败: %w", err)
	}

	h, err := th.NewBotHandler(b.bot, updates)
	if err != nil {
		return fmt.Errorf("创建更新处理器失败: %w", err)
	}

	h.HandleMessage(func(hctx *th.Context, message telego.Message) error {
		b.dispatcher.Handle(hctx, message.Chat.ID, message.Text)
		return nil
	}, th.AnyMessageWithText())

	go func() {
		<-ctx.Done()
		b.logger.Info("停止接收更新")
		h.Stop()
	}()

	b.logger.Info("开始接收更新")
	h.Start()
	return nil
}

// MainKeyboard 主回复键盘
func MainKeyboard() *telego.ReplyKeyboardMarkup {
	return tu.Keyboard(
		tu.KeyboardRow(
			tu.KeyboardButton(ButtonUsage),
			tu.KeyboardButton(ButtonChart),
		),
	).WithResizeKeyboard().WithInputFieldPlaceholder("Choose an action")
}
