package typedlist

import (
	"reflect"
)

// coerceNumber 将解码得到的数字（int64/float64）无损转换为列表接受的数字类型。
// 无法无损转换时原样返回，由 Append 报告类型错误。
func coerceNumber(v any, accepted []reflect.Type) any {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || !isNumeric(rv.Kind()) {
		return v
	}
	for _, t := range accepted {
		if !isNumeric(t.Kind()) || !rv.CanConvert(t) {
			continue
		}
		if isUnsigned(t.Kind()) && isNegative(rv) {
			continue
		}
		converted := rv.Convert(t)
		if converted.Convert(rv.Type()).Equal(rv) {
			return converted.Interface()
		}
	}
	return v
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isUnsigned(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func isNegative(rv reflect.Value) bool {
	switch {
	case rv.CanInt():
		return rv.Int() < 0
	case rv.CanFloat():
		return rv.Float() < 0
	}
	return false
}
