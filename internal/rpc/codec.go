package rpc

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"darklake-client/internal/trade"
)

// message 对 protoreflect.Message 做按字段名读写的薄封装。
type message struct {
	protoreflect.Message
}

func newMessage(name string) message {
	return message{dynamicpb.NewMessage(defaultSchema.Message(name))}
}

func (m message) field(name string) protoreflect.FieldDescriptor {
	fd := m.Descriptor().Fields().ByName(protoreflect.Name(name))
	if fd == nil {
		panic(fmt.Sprintf("rpc: %s 不存在字段 %s", m.Descriptor().FullName(), name))
	}
	return fd
}

func (m message) setString(name, v string) {
	m.Set(m.field(name), protoreflect.ValueOfString(v))
}

func (m message) setBool(name string, v bool) {
	m.Set(m.field(name), protoreflect.ValueOfBool(v))
}

func (m message) setUint64(name string, v uint64) {
	m.Set(m.field(name), protoreflect.ValueOfUint64(v))
}

func (m message) setUint32(name string, v uint32) {
	m.Set(m.field(name), protoreflect.ValueOfUint32(v))
}

func (m message) setInt32(name string, v int32) {
	m.Set(m.field(name), protoreflect.ValueOfInt32(v))
}

func (m message) setInt64(name string, v int64) {
	m.Set(m.field(name), protoreflect.ValueOfInt64(v))
}

func (m message) setFloat64(name string, v float64) {
	m.Set(m.field(name), protoreflect.ValueOfFloat64(v))
}

func (m message) setMessage(name string, sub message) {
	m.Set(m.field(name), protoreflect.ValueOfMessage(sub.Message))
}

func (m message) appendString(name, v string) {
	m.Mutable(m.field(name)).List().Append(protoreflect.ValueOfString(v))
}

func (m message) appendMessage(name string, sub message) {
	m.Mutable(m.field(name)).List().Append(protoreflect.ValueOfMessage(sub.Message))
}

func (m message) str(name string) string { return m.Get(m.field(name)).String() }

func (m message) boolean(name string) bool { return m.Get(m.field(name)).Bool() }

func (m message) u64(name string) uint64 { return m.Get(m.field(name)).Uint() }

func (m message) i64(name string) int64 { return m.Get(m.field(name)).Int() }

func (m message) f64(name string) float64 { return m.Get(m.field(name)).Float() }

func (m message) has(name string) bool { return m.Has(m.field(name)) }

func (m message) sub(name string) message { return message{m.Get(m.field(name)).Message()} }

func (m message) list(name string) protoreflect.List { return m.Get(m.field(name)).List() }

func (m message) strings(name string) []string {
	l := m.list(name)
	if l.Len() == 0 {
		return nil
	}
	out := make([]string, 0, l.Len())
	for i := 0; i < l.Len(); i++ {
		out = append(out, l.Get(i).String())
	}
	return out
}

func (m message) messages(name string) []message {
	l := m.list(name)
	out := make([]message, 0, l.Len())
	for i := 0; i < l.Len(); i++ {
		out = append(out, message{l.Get(i).Message()})
	}
	return out
}

func encodeSubmitRequest(req trade.SubmitRequest) message {
	m := newMessage("SendSignedTransactionRequest")
	m.setString("signed_transaction", req.SignedTransaction)
	m.setString("tracking_id", req.TrackingID)
	m.setString("trade_id", req.TradeID)
	return m
}

func decodeSubmitResponse(m message) trade.SubmitResponse {
	return trade.SubmitResponse{
		Success:   m.boolean("success"),
		TradeID:   m.str("trade_id"),
		ErrorLogs: m.strings("error_logs"),
	}
}

func encodeStatusRequest(req trade.StatusRequest) message {
	m := newMessage("CheckTradeStatusRequest")
	m.setString("tracking_id", req.TrackingID)
	m.setString("trade_id", req.TradeID)
	return m
}

func decodeStatusResponse(m message) trade.Outcome {
	return trade.Outcome{
		TradeID: m.str("trade_id"),
		Status:  trade.StatusFromCode(int32(m.i64("status"))),
	}
}

func encodeQuoteRequest(req trade.QuoteRequest) message {
	m := newMessage("QuoteRequest")
	m.setString("token_mint_x", req.TokenMintX)
	m.setString("token_mint_y", req.TokenMintY)
	m.setUint64("amount_in", req.AmountIn)
	m.setBool("is_swap_x_to_y", req.IsSwapXToY)
	return m
}

func decodeQuoteResponse(m message) trade.QuoteResponse {
	return trade.QuoteResponse{
		TokenMintX: m.str("token_mint_x"),
		TokenMintY: m.str("token_mint_y"),
		AmountIn:   m.u64("amount_in"),
		AmountOut:  m.u64("amount_out"),
		FeeAmount:  m.u64("fee_amount"),
		FeePct:     m.f64("fee_pct"),
		IsSwapXToY: m.boolean("is_swap_x_to_y"),
	}
}

func encodeListRequest(req trade.ListRequest) message {
	m := newMessage("GetTradesListByUserRequest")
	m.setString("user_address", req.UserAddress)
	m.setInt32("page_size", req.PageSize)
	m.setInt32("page_number", req.PageNumber)
	return m
}

func decodeListResponse(m message) trade.ListResponse {
	items := m.messages("trades")
	trades := make([]trade.Trade, 0, len(items))
	for _, item := range items {
		trades = append(trades, decodeTrade(item))
	}
	return trade.ListResponse{
		Trades:      trades,
		TotalPages:  int32(m.i64("total_pages")),
		CurrentPage: int32(m.i64("current_page")),
	}
}

func decodeTrade(m message) trade.Trade {
	t := trade.Trade{
		TradeID:          m.str("trade_id"),
		OrderID:          m.str("order_id"),
		UserAddress:      m.str("user_address"),
		AmountIn:         m.u64("amount_in"),
		MinimalAmountOut: m.u64("minimal_amount_out"),
		Status:           trade.StatusFromCode(int32(m.i64("status"))),
		Signature:        m.str("signature"),
		CreatedAt:        unixTime(m.i64("created_at")),
		UpdatedAt:        unixTime(m.i64("updated_at")),
		IsSwapXToY:       m.boolean("is_swap_x_to_y"),
	}
	if m.has("token_x") {
		t.TokenX = decodeToken(m.sub("token_x"))
	}
	if m.has("token_y") {
		t.TokenY = decodeToken(m.sub("token_y"))
	}
	return t
}

func decodeToken(m message) *trade.TokenMetadata {
	return &trade.TokenMetadata{
		Name:     m.str("name"),
		Symbol:   m.str("symbol"),
		Decimals: uint32(m.u64("decimals")),
		LogoURI:  m.str("logo_uri"),
		Address:  m.str("address"),
	}
}

// 服务端时间戳为 Unix 秒，0 视为未设置。
func unixTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
