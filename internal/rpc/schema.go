package rpc

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

const (
	protoPackage = "darklake.v1"
	serviceName  = "DarklakeIntegrationsService"
)

// 远端服务的方法全名。
const (
	methodQuote                 = "/" + protoPackage + "." + serviceName + "/Quote"
	methodSendSignedTransaction = "/" + protoPackage + "." + serviceName + "/SendSignedTransaction"
	methodCheckTradeStatus      = "/" + protoPackage + "." + serviceName + "/CheckTradeStatus"
	methodGetTradesListByUser   = "/" + protoPackage + "." + serviceName + "/GetTradesListByUser"
)

type fieldKind = descriptorpb.FieldDescriptorProto_Type

const (
	kString  = descriptorpb.FieldDescriptorProto_TYPE_STRING
	kBool    = descriptorpb.FieldDescriptorProto_TYPE_BOOL
	kUint64  = descriptorpb.FieldDescriptorProto_TYPE_UINT64
	kUint32  = descriptorpb.FieldDescriptorProto_TYPE_UINT32
	kInt64   = descriptorpb.FieldDescriptorProto_TYPE_INT64
	kInt32   = descriptorpb.FieldDescriptorProto_TYPE_INT32
	kDouble  = descriptorpb.FieldDescriptorProto_TYPE_DOUBLE
	kMessage = descriptorpb.FieldDescriptorProto_TYPE_MESSAGE
)

type fieldDef struct {
	name     string
	kind     fieldKind
	repeated bool
	typeName string // 仅 message 类型
}

type messageDef struct {
	name   string
	fields []fieldDef
}

// 字段编号按声明顺序从 1 开始。状态字段在线上是枚举，按 int32 读取编码相同。
var messages = []messageDef{
	{name: "QuoteRequest", fields: []fieldDef{
		{name: "token_mint_x", kind: kString},
		{name: "token_mint_y", kind: kString},
		{name: "amount_in", kind: kUint64},
		{name: "is_swap_x_to_y", kind: kBool},
	}},
	{name: "QuoteResponse", fields: []fieldDef{
		{name: "token_mint_x", kind: kString},
		{name: "token_mint_y", kind: kString},
		{name: "amount_in", kind: kUint64},
		{name: "amount_out", kind: kUint64},
		{name: "fee_amount", kind: kUint64},
		{name: "fee_pct", kind: kDouble},
		{name: "is_swap_x_to_y", kind: kBool},
	}},
	{name: "SendSignedTransactionRequest", fields: []fieldDef{
		{name: "signed_transaction", kind: kString},
		{name: "tracking_id", kind: kString},
		{name: "trade_id", kind: kString},
	}},
	{name: "SendSignedTransactionResponse", fields: []fieldDef{
		{name: "success", kind: kBool},
		{name: "trade_id", kind: kString},
		{name: "error_logs", kind: kString, repeated: true},
	}},
	{name: "CheckTradeStatusRequest", fields: []fieldDef{
		{name: "tracking_id", kind: kString},
		{name: "trade_id", kind: kString},
	}},
	{name: "CheckTradeStatusResponse", fields: []fieldDef{
		{name: "trade_id", kind: kString},
		{name: "status", kind: kInt32},
	}},
	{name: "GetTradesListByUserRequest", fields: []fieldDef{
		{name: "user_address", kind: kString},
		{name: "page_size", kind: kInt32},
		{name: "page_number", kind: kInt32},
	}},
	{name: "GetTradesListByUserResponse", fields: []fieldDef{
		{name: "trades", kind: kMessage, repeated: true, typeName: "Trade"},
		{name: "total_pages", kind: kInt32},
		{name: "current_page", kind: kInt32},
	}},
	{name: "Trade", fields: []fieldDef{
		{name: "trade_id", kind: kString},
		{name: "order_id", kind: kString},
		{name: "user_address", kind: kString},
		{name: "token_x", kind: kMessage, typeName: "TokenMetadata"},
		{name: "token_y", kind: kMessage, typeName: "TokenMetadata"},
		{name: "amount_in", kind: kUint64},
		{name: "minimal_amount_out", kind: kUint64},
		{name: "status", kind: kInt32},
		{name: "signature", kind: kString},
		{name: "created_at", kind: kInt64},
		{name: "updated_at", kind: kInt64},
		{name: "is_swap_x_to_y", kind: kBool},
	}},
	{name: "TokenMetadata", fields: []fieldDef{
		{name: "name", kind: kString},
		{name: "symbol", kind: kString},
		{name: "decimals", kind: kUint32},
		{name: "logo_uri", kind: kString},
		{name: "address", kind: kString},
	}},
}

var methods = []struct {
	name, in, out string
}{
	{"Quote", "QuoteRequest", "QuoteResponse"},
	{"SendSignedTransaction", "SendSignedTransactionRequest", "SendSignedTransactionResponse"},
	{"CheckTradeStatus", "CheckTradeStatusRequest", "CheckTradeStatusResponse"},
	{"GetTradesListByUser", "GetTradesListByUserRequest", "GetTradesListByUserResponse"},
}

// Schema 持有运行时构建的消息描述符。
type Schema struct {
	file protoreflect.FileDescriptor
}

var defaultSchema = mustBuildSchema()

func mustBuildSchema() *Schema {
	s, err := buildSchema()
	if err != nil {
		panic(fmt.Sprintf("rpc: 构建 proto 描述失败: %v", err))
	}
	return s
}

func buildSchema() (*Schema, error) {
	fdp := &descriptorpb.FileDescriptorProto{
		Name:    proto.String("darklake/integrations/v1/client.proto"),
		Package: proto.String(protoPackage),
		Syntax:  proto.String("proto3"),
	}

	for _, m := range messages {
		msg := &descriptorpb.DescriptorProto{Name: proto.String(m.name)}
		for i, f := range m.fields {
			label := descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL
			if f.repeated {
				label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED
			}
			field := &descriptorpb.FieldDescriptorProto{
				Name:   proto.String(f.name),
				Number: proto.Int32(int32(i + 1)),
				Label:  label.Enum(),
				Type:   f.kind.Enum(),
			}
			if f.typeName != "" {
				field.TypeName = proto.String("." + protoPackage + "." + f.typeName)
			}
			msg.Field = append(msg.Field, field)
		}
		fdp.MessageType = append(fdp.MessageType, msg)
	}

	svc := &descriptorpb.ServiceDescriptorProto{Name: proto.String(serviceName)}
	for _, m := range methods {
		svc.Method = append(svc.Method, &descriptorpb.MethodDescriptorProto{
			Name:       proto.String(m.name),
			InputType:  proto.String("." + protoPackage + "." + m.in),
			OutputType: proto.String("." + protoPackage + "." + m.out),
		})
	}
	fdp.Service = append(fdp.Service, svc)

	fd, err := protodesc.NewFile(fdp, new(protoregistry.Files))
	if err != nil {
		return nil, err
	}
	return &Schema{file: fd}, nil
}

// Message 返回指定名称的消息描述符。
func (s *Schema) Message(name string) protoreflect.MessageDescriptor {
	md := s.file.Messages().ByName(protoreflect.Name(name))
	if md == nil {
		panic(fmt.Sprintf("rpc: 未定义的消息 %s", name))
	}
	return md
}

// Service 返回服务描述符。
func (s *Schema) Service() protoreflect.ServiceDescriptor {
	return s.file.Services().ByName(serviceName)
}
