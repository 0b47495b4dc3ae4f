//go:build !amd64 && !arm64

package json

import (
	jsoniter "github.com/json-iterator/go"
)

var api = jsoniter.Config{
	SortMapKeys:            true,
	UseNumber:              true,
	ValidateJsonRawMessage: true,
}.Froze()
