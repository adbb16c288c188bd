package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"decodo-usage-bot/pkg/chart"
	"decodo-usage-bot/pkg/metrics"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	exportFormat string
	exportDir    string
	exportDark   bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the daily usage of the current window to a file",
	Example: `  decodo-bot export --format png
  decodo-bot export --format html --dark --output ./exports
  decodo-bot export --format json`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "png", "导出格式 (png/html/json)")
	exportCmd.Flags().StringVarP(&exportDir, "output", "o", "exports", "导出目录")
	exportCmd.Flags().BoolVar(&exportDark, "dark", false, "使用暗色主题 (png/html)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	switch exportFormat {
	case "png", "html", "json":
	default:
		return fmt.Errorf("不支持的导出格式: %s (支持: png, html, json)", exportFormat)
	}

	a, err := newApp(exportDark)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	res, err := a.service.Query(ctx)
	if err != nil {
		return err
	}

	title := chart.Title(res.ProxyType(), res.Window)
	var data []byte
	switch exportFormat {
	case "png":
		data, err = a.renderer.RenderPNG(res.Usage.Records, title)
	case "html":
		data, err = a.renderer.RenderHTML(res.Usage.Records, title)
	case "json":
		data, err = chart.RenderJSON(res.ProxyType(), res.Window, res.Usage.Records, res.Summary, res.Now)
	}
	if err != nil {
		return fmt.Errorf("生成%s失败: %w", exportFormat, err)
	}
	metrics.ChartsRenderedTotal.WithLabelValues(exportFormat).Inc()

	if err := os.MkdirAll(exportDir, 0755); err != nil {
		return fmt.Errorf("创建导出目录失败: %w", err)
	}

	filename := filepath.Join(exportDir, fmt.Sprintf("daily_usage_%s_to_%s_%s.%s",
		res.Window.Start.Format("20060102"),
		res.Window.End.Format("20060102"),
		time.Now().Format("20060102_150405"),
		exportFormat))

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("写入文件失败: %w", err)
	}

	a.logger.Info("导出完成", zap.String("file", filename), zap.Int("bytes", len(data)))
	fmt.Fprintln(cmd.OutOrStdout(), filename)
	return nil
}
