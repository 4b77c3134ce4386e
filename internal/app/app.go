package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"darklake-client/internal/config"
	"darklake-client/internal/lifecycle"
	"darklake-client/internal/metrics"
	"darklake-client/internal/monitor"
	"darklake-client/internal/store"
)

// App 聚合核心依赖，负责交易跟踪任务与监控接口。
type App struct {
	cfg      *config.Config
	logger   *zap.Logger
	driver   lifecycle.Driver
	monitor  *monitor.Service
	gatherer prometheus.Gatherer
}

// New 创建 App 实例。reg 为空时使用独立的注册表。
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, st *store.Store, service lifecycle.Service, reg *prometheus.Registry) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: 配置不能为空")
	}
	if service == nil {
		return nil, fmt.Errorf("app: 交易服务不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	collector, err := metrics.NewCollector(reg)
	if err != nil {
		return nil, fmt.Errorf("初始化指标失败: %w", err)
	}

	monitorSvc, err := monitor.NewService(ctx, st, logger)
	if err != nil {
		return nil, fmt.Errorf("初始化事件服务失败: %w", err)
	}

	return &App{
		cfg:      cfg,
		logger:   logger,
		driver:   lifecycle.New(service, collector, logger),
		monitor:  monitorSvc,
		gatherer: reg,
	}, nil
}

// Monitor 返回事件服务。
func (a *App) Monitor() *monitor.Service {
	return a.monitor
}

// StartMonitor 在启用时启动事件与指标接口，ctx 结束后自动关闭。
func (a *App) StartMonitor(ctx context.Context) error {
	if !a.cfg.Monitor.Enabled {
		return nil
	}
	return startMonitorServer(ctx, newMonitorHandler(a.monitor, a.gatherer, a.logger), a.cfg.Monitor.Port, a.logger)
}
