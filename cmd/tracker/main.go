package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"darklake-client/internal/app"
	"darklake-client/internal/config"
	"darklake-client/internal/log"
	"darklake-client/internal/rpc"
	"darklake-client/internal/store"
	"darklake-client/internal/trade"
)

func main() {
	var (
		configPath string
		submitPath string
		tradeID    string
		trackingID string
		watchIDs   string
		listUser   string
		quote      string
		serve      bool
	)
	flag.StringVar(&configPath, "config", "", "配置文件路径，默认使用 configs/config.yaml")
	flag.StringVar(&submitPath, "submit", "", "已签名交易文件（base64），配合 -trade 使用")
	flag.StringVar(&tradeID, "trade", "", "交易 ID")
	flag.StringVar(&trackingID, "tracking", "", "可选的 tracking id，默认自动生成")
	flag.StringVar(&watchIDs, "watch", "", "逗号分隔的交易 ID，并发跟踪至终态")
	flag.StringVar(&listUser, "list", "", "按钱包地址列出历史交易")
	flag.StringVar(&quote, "quote", "", "询价：mintX,mintY,amount[,x2y]，x2y 默认为 true")
	flag.BoolVar(&serve, "serve", false, "任务结束后保持监控接口运行，直到收到退出信号")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger, err := log.NewLogger(cfg.Logging, zap.String("network", cfg.Service.Network))
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	if err := run(cfg, logger, options{
		submitPath: submitPath,
		tradeID:    tradeID,
		trackingID: trackingID,
		watchIDs:   watchIDs,
		listUser:   listUser,
		quote:      quote,
		serve:      serve,
	}); err != nil {
		logger.Error("运行失败", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}

	logger.Info("已安全退出")
}

type options struct {
	submitPath string
	tradeID    string
	trackingID string
	watchIDs   string
	listUser   string
	quote      string
	serve      bool
}

func (o options) validate(cfg *config.Config) error {
	if o.submitPath == "" && o.watchIDs == "" && o.listUser == "" && o.quote == "" && !o.serve {
		return errors.New("需要指定 -submit、-watch、-list、-quote 或 -serve")
	}
	if o.submitPath != "" && o.tradeID == "" {
		return errors.New("-submit 需要同时指定 -trade")
	}
	if o.serve && !cfg.Monitor.Enabled {
		return errors.New("-serve 需要启用 monitor")
	}
	if o.quote != "" {
		if _, err := parseQuote(o.quote); err != nil {
			return err
		}
	}
	return nil
}

// parseQuote 解析 mintX,mintY,amount[,x2y]。
func parseQuote(raw string) (trade.QuoteRequest, error) {
	parts := strings.Split(raw, ",")
	if len(parts) < 3 || len(parts) > 4 {
		return trade.QuoteRequest{}, fmt.Errorf("-quote 格式应为 mintX,mintY,amount[,x2y]: %q", raw)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if parts[0] == "" || parts[1] == "" {
		return trade.QuoteRequest{}, errors.New("-quote 缺少代币 mint")
	}

	amount, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return trade.QuoteRequest{}, fmt.Errorf("-quote 数量无效: %w", err)
	}
	req := trade.QuoteRequest{
		TokenMintX: parts[0],
		TokenMintY: parts[1],
		AmountIn:   amount,
		IsSwapXToY: true,
	}
	if len(parts) == 4 {
		if req.IsSwapXToY, err = strconv.ParseBool(parts[3]); err != nil {
			return trade.QuoteRequest{}, fmt.Errorf("-quote 方向无效: %w", err)
		}
	}
	return req, nil
}

func run(cfg *config.Config, logger *zap.Logger, opts options) error {
	if err := opts.validate(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sqliteStore, err := store.NewSQLite(cfg.Database)
	if err != nil {
		return fmt.Errorf("初始化数据库失败: %w", err)
	}
	defer func() {
		if closeErr := sqliteStore.Close(); closeErr != nil {
			logger.Warn("关闭数据库失败", zap.Error(closeErr))
		}
	}()

	client, err := rpc.Dial(cfg.Service, logger)
	if err != nil {
		return fmt.Errorf("连接交易服务失败: %w", err)
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("关闭交易服务连接失败", zap.Error(closeErr))
		}
	}()

	tracker, err := app.New(ctx, cfg, logger, sqliteStore, client, nil)
	if err != nil {
		return err
	}
	if err := tracker.StartMonitor(ctx); err != nil {
		return err
	}

	switch {
	case opts.submitPath != "":
		raw, err := os.ReadFile(opts.submitPath)
		if err != nil {
			return fmt.Errorf("读取签名交易失败: %w", err)
		}
		outcome, err := tracker.SubmitAndPoll(ctx, strings.TrimSpace(string(raw)), opts.tradeID, opts.trackingID)
		if err != nil {
			return err
		}
		printJSON(outcome)

	case opts.watchIDs != "":
		results, err := tracker.Watch(ctx, strings.Split(opts.watchIDs, ","))
		for _, r := range results {
			if r.Err == nil {
				printJSON(r.Outcome)
			}
		}
		if err != nil {
			return err
		}

	case opts.listUser != "":
		resp, err := client.GetTradesListByUser(ctx, trade.ListRequest{
			UserAddress: opts.listUser,
			PageSize:    50,
			PageNumber:  1,
		})
		if err != nil {
			return err
		}
		printJSON(resp)

	case opts.quote != "":
		req, err := parseQuote(opts.quote)
		if err != nil {
			return err
		}
		resp, err := client.Quote(ctx, req)
		if err != nil {
			return err
		}
		printJSON(resp)
	}

	if opts.serve {
		logger.Info("监控接口保持运行，等待退出信号")
		<-ctx.Done()
	}
	return nil
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
