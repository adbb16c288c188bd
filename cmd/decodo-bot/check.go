package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"decodo-usage-bot/pkg/decodo"
	"decodo-usage-bot/pkg/models"
	"decodo-usage-bot/pkg/period"

	"github.com/spf13/cobra"
)

var checkLive bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate configuration and show the computed window",
	Long: `Load and validate the configuration, then print the statistics window and the
service type candidates that would be used. With --live also queries the API once.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkLive, "live", false, "同时请求一次统计接口")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	out := cmd.OutOrStdout()
	cfg := a.cfg
	calc := period.NewCalculator(cfg.Subscription)
	window, err := calc.Window(time.Now())
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "配置有效")
	fmt.Fprintf(out, "  API:        %s%s\n", cfg.APIBaseURL, decodo.TrafficPath)
	fmt.Fprintf(out, "  周期:       %s\n", calc.FormatMode())
	fmt.Fprintf(out, "  统计窗口:   %s ~ %s (UTC)\n",
		window.Start.Format(models.TimeFormatAPI), window.End.Format(models.TimeFormatAPI))
	fmt.Fprintf(out, "  服务类型:   %s\n", candidateList(cfg.ServiceType))
	if cfg.Subscription.HasLimit() {
		fmt.Fprintf(out, "  流量上限:   %.2f GB\n", *cfg.Subscription.LimitGB)
	} else {
		fmt.Fprintln(out, "  流量上限:   未设置")
	}
	fmt.Fprintf(out, "  聊天白名单: %s\n", chatList(cfg.AllowedChatIDs))
	fmt.Fprintf(out, "  时区:       %s\n", cfg.TimezoneName)
	if cfg.MetricsAddr != "" {
		fmt.Fprintf(out, "  状态服务:   %s\n", cfg.MetricsAddr)
	}

	if !checkLive {
		return nil
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	res, err := a.service.Query(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, a.service.Text(res))
	return nil
}

func candidateList(serviceType string) string {
	candidates := decodo.Candidates(serviceType)
	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c == models.ProxyTypeProviderDefault {
			c = models.ProxyTypeProviderDefaultName
		}
		names = append(names, c)
	}
	return strings.Join(names, " -> ")
}

func chatList(ids map[int64]bool) string {
	if len(ids) == 0 {
		return "未设置（允许所有聊天）"
	}
	list := make([]int64, 0, len(ids))
	for id := range ids {
		list = append(list, id)
	}
	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
	parts := make([]string, 0, len(list))
	for _, id := range list {
		parts = append(parts, fmt.Sprintf("%d", id))
	}
	return strings.Join(parts, ", ")
}
