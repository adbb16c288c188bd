package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"decodo-usage-bot/pkg/api"
	"decodo-usage-bot/pkg/bot"
	"decodo-usage-bot/pkg/metrics"
	"decodo-usage-bot/pkg/period"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Telegram bot (default)",
	Long:  `Start long polling and answer chat commands until SIGINT/SIGTERM.`,
	RunE:  runBot,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runBot(cmd *cobra.Command, _ []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.logger.Info("启动 Decodo 用量机器人",
		zap.String("version", version),
		zap.String("service_type", a.cfg.ServiceType),
		zap.String("period", period.NewCalculator(a.cfg.Subscription).FormatMode()),
		zap.Int("allowed_chats", len(a.cfg.AllowedChatIDs)),
		zap.String("timezone", a.cfg.TimezoneName))

	if len(a.cfg.AllowedChatIDs) == 0 {
		a.logger.Warn("TELEGRAM_ALLOWED_CHAT_IDS 未设置，所有聊天都可以查询用量")
	}

	var status *api.Server
	if a.cfg.MetricsAddr != "" {
		metrics.Register()
		status = api.NewServer(a.cfg.MetricsAddr, a.service, a.renderer, a.logger)
		go func() {
			if err := status.Start(ctx); err != nil {
				a.logger.Error("状态服务器异常退出", zap.Error(err))
			}
		}()
	}

	b, err := bot.New(a.cfg, a.service, a.renderer, a.logger)
	if err != nil {
		return err
	}

	if status != nil {
		status.SetReady(true)
	}
	if err := b.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("机器人运行失败: %w", err)
	}

	a.logger.Info("已退出")
	return nil
}

// commandContext 带信号取消的上下文，供一次性命令使用
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}
