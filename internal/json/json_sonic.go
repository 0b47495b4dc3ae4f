//go:build amd64 || arm64

package json

import (
	"github.com/bytedance/sonic"
)

var api = sonic.Config{
	SortMapKeys:      true,
	UseNumber:        true,
	ValidateString:   true,
	CompactMarshaler: true,
}.Froze()
