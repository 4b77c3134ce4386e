package rpc

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"darklake-client/internal/config"
	"darklake-client/internal/trade"
)

const defaultRequestTimeout = 30 * time.Second

// Client 负责与交易服务的 gRPC 交互，单次调用失败直接返回，不做重试。
type Client struct {
	conn    grpc.ClientConnInterface
	closer  func() error
	timeout time.Duration
	logger  *zap.Logger
}

// NewClient 基于已有连接构造客户端，连接生命周期由调用方管理。
func NewClient(conn grpc.ClientConnInterface, cfg config.ServiceConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Client{
		conn:    conn,
		timeout: timeout,
		logger:  logger,
	}
}

// Dial 解析服务地址并建立连接。
func Dial(cfg config.ServiceConfig, logger *zap.Logger, opts ...grpc.DialOption) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	ep, err := ResolveEndpoint(cfg)
	if err != nil {
		return nil, err
	}

	creds := insecure.NewCredentials()
	if ep.Secure {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	dialOpts := append([]grpc.DialOption{grpc.WithTransportCredentials(creds)}, opts...)
	conn, err := grpc.NewClient(ep.Target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("创建 gRPC 连接失败: %w", err)
	}

	logger.Info("已创建交易服务连接",
		zap.String("network", cfg.Network),
		zap.String("url", ep.URL),
		zap.Bool("tls", ep.Secure),
	)

	client := NewClient(conn, cfg, logger)
	client.closer = conn.Close
	return client, nil
}

// Close 关闭由 Dial 创建的连接。
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

// SendSignedTransaction 提交已签名交易。
func (c *Client) SendSignedTransaction(ctx context.Context, req trade.SubmitRequest) (trade.SubmitResponse, error) {
	out := newMessage("SendSignedTransactionResponse")
	if err := c.invoke(ctx, "send_signed_transaction", methodSendSignedTransaction, encodeSubmitRequest(req), out,
		zap.String("trade_id", req.TradeID),
		zap.String("tracking_id", req.TrackingID),
	); err != nil {
		return trade.SubmitResponse{}, err
	}
	return decodeSubmitResponse(out), nil
}

// CheckTradeStatus 查询一次交易状态，服务端未回填 trade_id 时沿用请求值。
func (c *Client) CheckTradeStatus(ctx context.Context, req trade.StatusRequest) (trade.Outcome, error) {
	out := newMessage("CheckTradeStatusResponse")
	if err := c.invoke(ctx, "check_trade_status", methodCheckTradeStatus, encodeStatusRequest(req), out,
		zap.String("trade_id", req.TradeID),
		zap.String("tracking_id", req.TrackingID),
	); err != nil {
		return trade.Outcome{}, err
	}

	outcome := decodeStatusResponse(out)
	if outcome.TradeID == "" {
		outcome.TradeID = req.TradeID
	}
	return outcome, nil
}

// Quote 询价。
func (c *Client) Quote(ctx context.Context, req trade.QuoteRequest) (trade.QuoteResponse, error) {
	out := newMessage("QuoteResponse")
	if err := c.invoke(ctx, "quote", methodQuote, encodeQuoteRequest(req), out,
		zap.String("token_mint_x", req.TokenMintX),
		zap.String("token_mint_y", req.TokenMintY),
	); err != nil {
		return trade.QuoteResponse{}, err
	}
	return decodeQuoteResponse(out), nil
}

// GetTradesListByUser 分页查询用户的历史交易。
func (c *Client) GetTradesListByUser(ctx context.Context, req trade.ListRequest) (trade.ListResponse, error) {
	out := newMessage("GetTradesListByUserResponse")
	if err := c.invoke(ctx, "get_trades_list_by_user", methodGetTradesListByUser, encodeListRequest(req), out,
		zap.String("user_address", req.UserAddress),
		zap.Int32("page_number", req.PageNumber),
	); err != nil {
		return trade.ListResponse{}, err
	}
	return decodeListResponse(out), nil
}

func (c *Client) invoke(ctx context.Context, operation, method string, in, out message, fields ...zap.Field) error {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := c.conn.Invoke(callCtx, method, in.Interface(), out.Interface())
	latency := time.Since(start)

	fields = append(fields, zap.String("operation", operation), zap.Duration("latency", latency))
	if err != nil {
		fields = append(fields, zap.Bool("retryable", IsRetryable(err)), zap.Error(err))
		c.logger.Warn("交易服务调用失败", fields...)
		return fmt.Errorf("%s: %w", operation, err)
	}

	c.logger.Debug("交易服务调用完成", fields...)
	return nil
}
