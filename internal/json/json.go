// Package json 是项目内统一的 JSON 编解码入口。
// amd64 与 arm64 上使用 bytedance/sonic，其余平台退回 json-iterator。
// 两种实现都按键排序输出，并以 json.Number 解码数字。
package json

import (
	stdjson "encoding/json"
)

// Number 与标准库的 json.Number 相同，解码后的数字均为该类型。
type Number = stdjson.Number

// Marshal 将 v 编码为 JSON。
func Marshal(v any) ([]byte, error) {
	return api.Marshal(v)
}

// MarshalIndent 将 v 编码为带缩进的 JSON。
func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return api.MarshalIndent(v, prefix, indent)
}

// Unmarshal 将 data 解码到 v。
func Unmarshal(data []byte, v any) error {
	return api.Unmarshal(data, v)
}

// Valid 判断 data 是否为合法 JSON。
func Valid(data []byte) bool {
	return api.Valid(data)
}
