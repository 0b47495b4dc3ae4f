package serializer

import (
	"math"
	"reflect"
	"strconv"

	"github.com/lk2023060901/ringercore-go/internal/json"
)

// JSONSerializer 使用 internal/json（基于 bytedance/sonic）实现 JSON 编解码。
type JSONSerializer struct{}

// 编译期断言：确保 JSONSerializer 实现了 Serializer 接口。
var _ Serializer = (*JSONSerializer)(nil)

func (JSONSerializer) ID() ID {
	return IDJSON
}

func (JSONSerializer) Name() string {
	return "json"
}

// Marshal 编码前将整数值的浮点数写成带小数点的形式，使其解码后仍为 float64。
func (JSONSerializer) Marshal(v any) ([]byte, error) {
	return json.Marshal(markFloats(v))
}

func (JSONSerializer) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

var jsonMarshalerType = reflect.TypeOf((*interface{ MarshalJSON() ([]byte, error) })(nil)).Elem()

// markFloats 复制 v 中的 map 与切片，把整数值的浮点数替换为 "N.0" 形式的 json.Number。
func markFloats(v any) any {
	switch val := v.(type) {
	case nil, string, bool, json.Number, []byte:
		return v
	case float64:
		return floatNumber(val, 64, v)
	case float32:
		return floatNumber(float64(val), 32, v)
	}

	rv := reflect.ValueOf(v)
	if rv.Type().Implements(jsonMarshalerType) {
		return v
	}
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return floatNumber(rv.Float(), rv.Type().Bits(), v)
	case reflect.Map:
		if rv.IsNil() || rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = markFloats(iter.Value().Interface())
		}
		return out
	case reflect.Slice:
		if rv.IsNil() || rv.Type().Elem().Kind() == reflect.Uint8 {
			return v
		}
		fallthrough
	case reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = markFloats(rv.Index(i).Interface())
		}
		return out
	}
	return v
}

func floatNumber(f float64, bits int, orig any) any {
	if math.IsInf(f, 0) || f != math.Trunc(f) {
		return orig
	}
	return json.Number(strconv.FormatFloat(f, 'f', -1, bits) + ".0")
}
