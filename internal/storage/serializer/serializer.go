package serializer

import (
	"math"
	"strings"

	"github.com/lk2023060901/ringercore-go/internal/json"
	"github.com/lk2023060901/ringercore-go/pkg/util/merr"
)

// ID 是序列化格式在文件头中的编号。
type ID uint8

const (
	IDJSON  ID = 1
	IDProto ID = 2
)

// Serializer 抽象了 raw dict 与字节流之间的序列化能力。
//
// 调用方通过接口注入具体实现，文件头记录所用实现的 ID，读取时据此选择实现。
type Serializer interface {
	// ID 返回写入文件头的格式编号。
	ID() ID

	// Name 返回格式名，同时用作配置项取值。
	Name() string

	// Marshal 将任意对象编码为字节序列。
	Marshal(v any) ([]byte, error)

	// Unmarshal 将字节序列解码到目标对象。
	//
	// v 通常为指针类型，用于接收解码结果。
	Unmarshal(data []byte, v any) error
}

var all = []Serializer{JSONSerializer{}, ProtoSerializer{}}

// ByID 由文件头中的编号得到序列化实现。
func ByID(id ID) (Serializer, error) {
	for _, s := range all {
		if s.ID() == id {
			return s, nil
		}
	}
	return nil, merr.WrapErrCodecUnsupported("serializer", "unknown serializer id")
}

// ByName 由格式名（忽略大小写）得到序列化实现。
func ByName(name string) (Serializer, error) {
	for _, s := range all {
		if strings.EqualFold(s.Name(), name) {
			return s, nil
		}
	}
	return nil, merr.WrapErrCodecUnsupported(name)
}

// Normalize 将解码结果中的数字统一为 int64（整数）或 float64，并递归处理嵌套结构。
func Normalize(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, err := val.Float64()
		if err != nil {
			return val.String()
		}
		return f
	case float64:
		if val == math.Trunc(val) && math.Abs(val) <= 1<<53 {
			return int64(val)
		}
		return val
	case map[string]any:
		for k, item := range val {
			val[k] = Normalize(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = Normalize(item)
		}
		return val
	}
	return v
}
