package main

import (
	"fmt"

	"decodo-usage-bot/pkg/chart"
	"decodo-usage-bot/pkg/config"
	"decodo-usage-bot/pkg/decodo"
	"decodo-usage-bot/pkg/logger"
	"decodo-usage-bot/pkg/models"
	"decodo-usage-bot/pkg/usage"

	"go.uber.org/zap"
)

// app 各命令共用的组件
type app struct {
	cfg      *models.Config
	logger   *zap.Logger
	service  *usage.Service
	renderer *chart.Renderer
}

// newApp 加载配置并组装组件，配置错误时直接返回
func newApp(darkTheme bool) (*app, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	client := decodo.NewClient(cfg, log)
	fetcher := decodo.NewFetcher(client, cfg.ServiceType, log.Named("fetcher"))

	return &app{
		cfg:      cfg,
		logger:   log,
		service:  usage.NewService(cfg, fetcher),
		renderer: chart.NewRenderer(darkTheme),
	}, nil
}

func (a *app) close() {
	logger.Sync(a.logger)
}
