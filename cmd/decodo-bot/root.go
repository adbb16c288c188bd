package main

import (
	"fmt"
	"os"

	"decodo-usage-bot/pkg/config"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	envFile   string
	logLevel  string
	logFormat string
)

// rootCmd 不带子命令时启动机器人
var rootCmd = &cobra.Command{
	Use:   "decodo-bot",
	Short: "Telegram bot reporting Decodo proxy traffic usage",
	Long: `decodo-bot answers /usage and /chart in authorized Telegram chats with the
traffic used in the current billing window, queried from the Decodo statistics API.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runBot,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&envFile, "env-file", config.DefaultEnvFile, "可选的 .env 文件路径（环境变量优先）")
	pf.StringVar(&logLevel, "log-level", "", "日志级别 (debug/info/warn/error)，覆盖 LOG_LEVEL")
	pf.StringVar(&logFormat, "log-format", "", "日志格式 (json/console)，覆盖 LOG_FORMAT")
}

// Execute 执行根命令，出错时以状态码 1 退出
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "错误:", err)
		os.Exit(1)
	}
}
