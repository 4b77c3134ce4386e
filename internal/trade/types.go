package trade

import "time"

// StatusRequest 标识一次状态查询，构造后不再修改。
type StatusRequest struct {
	TradeID    string
	TrackingID string
}

// NewStatusRequest 创建状态查询请求，trackingID 为空时自动生成。
func NewStatusRequest(tradeID, trackingID string) StatusRequest {
	return StatusRequest{
		TradeID:    tradeID,
		TrackingID: trackingIDOrNew(trackingID),
	}
}

// Outcome 为单次状态观测结果。
type Outcome struct {
	TradeID    string    `json:"trade_id"`
	Status     Status    `json:"status"`
	Attempt    int       `json:"attempt"`
	ObservedAt time.Time `json:"observed_at"`
}

// SubmitRequest 携带钱包已签名的交易。
type SubmitRequest struct {
	SignedTransaction string
	TrackingID        string
	TradeID           string
}

// NewSubmitRequest 创建提交请求，trackingID 为空时自动生成。
func NewSubmitRequest(signedTx, tradeID, trackingID string) SubmitRequest {
	return SubmitRequest{
		SignedTransaction: signedTx,
		TrackingID:        trackingIDOrNew(trackingID),
		TradeID:           tradeID,
	}
}

// SubmitResponse 为提交签名交易的返回。
type SubmitResponse struct {
	Success   bool     `json:"success"`
	TradeID   string   `json:"trade_id"`
	ErrorLogs []string `json:"error_logs,omitempty"`
}

// QuoteRequest 询价参数。
type QuoteRequest struct {
	TokenMintX string
	TokenMintY string
	AmountIn   uint64
	IsSwapXToY bool
}

// QuoteResponse 询价结果。
type QuoteResponse struct {
	TokenMintX string
	TokenMintY string
	AmountIn   uint64
	AmountOut  uint64
	FeeAmount  uint64
	FeePct     float64
	IsSwapXToY bool
}

// ListRequest 按用户分页查询交易。
type ListRequest struct {
	UserAddress string
	PageSize    int32
	PageNumber  int32
}

// ListResponse 分页交易列表。
type ListResponse struct {
	Trades      []Trade
	TotalPages  int32
	CurrentPage int32
}

// Trade 描述一笔历史交易。
type Trade struct {
	TradeID          string
	OrderID          string
	UserAddress      string
	TokenX           *TokenMetadata
	TokenY           *TokenMetadata
	AmountIn         uint64
	MinimalAmountOut uint64
	Status           Status
	Signature        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	IsSwapXToY       bool
}

// TokenMetadata 代币元数据。
type TokenMetadata struct {
	Name     string
	Symbol   string
	Decimals uint32
	LogoURI  string
	Address  string
}
