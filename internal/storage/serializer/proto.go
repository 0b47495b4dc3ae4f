package serializer

import (
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lk2023060901/ringercore-go/internal/json"
	"github.com/lk2023060901/ringercore-go/pkg/util/merr"
)

// ProtoSerializer 使用 Protobuf 进行二进制序列化。
//
// proto.Message 直接编解码；其余对象经由 structpb.Struct 表示，
// 因此顶层必须是字符串键的 map（raw dict 满足该要求）。
type ProtoSerializer struct{}

// 编译期断言：确保 ProtoSerializer 实现了 Serializer 接口。
var _ Serializer = (*ProtoSerializer)(nil)

func (ProtoSerializer) ID() ID {
	return IDProto
}

func (ProtoSerializer) Name() string {
	return "proto"
}

func (ProtoSerializer) Marshal(v any) ([]byte, error) {
	if msg, ok := v.(proto.Message); ok {
		return proto.Marshal(msg)
	}
	// 先经 JSON 归一化，使任意切片与具名 map 类型都能放入 structpb。
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	st := &structpb.Struct{}
	if err := protojson.Unmarshal(data, st); err != nil {
		return nil, merr.WrapErrParameterInvalidMsg("proto serializer requires a string keyed map, got %T: %s", v, err.Error())
	}
	return proto.MarshalOptions{Deterministic: true}.Marshal(st)
}

func (ProtoSerializer) Unmarshal(data []byte, v any) error {
	if msg, ok := v.(proto.Message); ok {
		return proto.Unmarshal(data, msg)
	}
	st := &structpb.Struct{}
	if err := proto.Unmarshal(data, st); err != nil {
		return err
	}
	plain, err := protojson.Marshal(st)
	if err != nil {
		return err
	}
	return json.Unmarshal(plain, v)
}
