package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"decodo-usage-bot/pkg/chart"
	"decodo-usage-bot/pkg/usage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// shutdownTimeout 优雅退出等待时间
const shutdownTimeout = 5 * time.Second

// UsageSource 用量查询接口
type UsageSource interface {
	Query(ctx context.Context) (*usage.Result, error)
}

// Server 状态服务器：/healthz、/metrics 以及只读的用量接口
type Server struct {
	addr     string
	source   UsageSource
	renderer *chart.Renderer
	logger   *zap.Logger
	router   chi.Router
	ready    atomic.Bool
}

// NewServer 创建状态服务器
func NewServer(addr string, source UsageSource, renderer *chart.Renderer, logger *zap.Logger) *Server {
	s := &Server{
		addr:     addr,
		source:   source,
		renderer: renderer,
		logger:   logger.Named("api"),
	}
	s.setupRoutes()
	return s
}

// SetReady 标记机器人已开始接收更新
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Handler 返回路由（测试使用）
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/usage", s.handleUsage)
		r.Get("/chart.png", s.handleChart)
	})

	s.router = r
}

// Start 启动服务器，阻塞直到 ctx 取消
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("状态服务器已启动", zap.String("addr", s.addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// loggingMiddleware 请求日志
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("HTTP请求",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.sendJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !s.ready.Load() {
		s.sendError(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	s.sendJSON(w, http.StatusOK, map[string]interface{}{"status": "ready"})
}

// handleUsage 当前窗口的用量汇总
func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	res, err := s.source.Query(r.Context())
	if err != nil {
		s.logger.Error("查询用量失败", zap.Error(err))
		s.sendError(w, err.Error(), http.StatusBadGateway)
		return
	}

	s.sendJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"proxy_type": res.ProxyType(),
		"window":     res.Window,
		"summary":    res.Summary,
		"records":    res.Usage.Records,
		"hourly":     res.Usage.Hourly,
	})
}

// handleChart 当前窗口的每日用量 PNG
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	res, err := s.source.Query(r.Context())
	if err != nil {
		s.logger.Error("查询用量失败", zap.Error(err))
		s.sendError(w, err.Error(), http.StatusBadGateway)
		return
	}

	png, err := s.renderer.RenderPNG(res.Usage.Records, chart.Title(res.ProxyType(), res.Window))
	if errors.Is(err, chart.ErrNoData) {
		s.sendError(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("生成图表失败", zap.Error(err))
		s.sendError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// sendJSON 发送 JSON 响应
func (s *Server) sendJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("编码响应失败", zap.Error(err))
	}
}

// sendError 发送错误响应
func (s *Server) sendError(w http.ResponseWriter, message string, code int) {
	s.sendJSON(w, code, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
