package compressor

import (
	"strings"

	"github.com/lk2023060901/ringercore-go/pkg/util/merr"
)

// ID 是压缩算法在文件头中的编号。
type ID uint8

const (
	IDNone ID = 0
	IDGzip ID = 1
	IDZstd ID = 2
)

// Compressor 抽象了“单次压缩/解压”能力。
//
// 面向整块 raw dict 负载的压缩，不做全局单例，调用方按需创建具体实现的实例。
type Compressor interface {
	// ID 返回写入文件头的算法编号。
	ID() ID

	// Extension 返回文件名后缀（含点），不压缩时为空。
	Extension() string

	// Compress 将 src 压缩到 dst。
	//
	// dst 一般可以传入一个可复用的缓冲区（长度可为 0），实现可选择复用其底层容量；
	// 返回值 packet 为压缩后的完整数据。
	Compress(dst, src []byte) (packet []byte, err error)

	// Decompress 将压缩数据 src 解压到 dst。
	//
	// 行为约定与 Compress 对称：src 必须是 Compress 的输出。
	Decompress(dst, src []byte) (plain []byte, err error)
}

// NopCompressor 是一个空实现：不做任何压缩/解压，直接返回输入内容。
type NopCompressor struct{}

func (NopCompressor) ID() ID {
	return IDNone
}

func (NopCompressor) Extension() string {
	return ""
}

func (NopCompressor) Compress(_ []byte, src []byte) ([]byte, error) {
	return src, nil
}

func (NopCompressor) Decompress(_ []byte, src []byte) ([]byte, error) {
	return src, nil
}

// 编译期断言：确保 NopCompressor 实现了 Compressor 接口。
var _ Compressor = NopCompressor{}

// ByID 由文件头中的编号创建压缩实现。
func ByID(id ID) (Compressor, error) {
	switch id {
	case IDNone:
		return NopCompressor{}, nil
	case IDGzip:
		return NewGzipCompressor(DefaultGzipLevel)
	case IDZstd:
		return NewZstdCompressor()
	}
	return nil, merr.WrapErrCodecUnsupported("compressor", "unknown compressor id")
}

// ByName 由算法名（none/gzip/zstd，忽略大小写）创建压缩实现。
func ByName(name string) (Compressor, error) {
	switch strings.ToLower(name) {
	case "", "none", "nop":
		return NopCompressor{}, nil
	case "gzip", "gz":
		return NewGzipCompressor(DefaultGzipLevel)
	case "zstd", "zst":
		return NewZstdCompressor()
	}
	return nil, merr.WrapErrCodecUnsupported(name)
}

// Close 释放持有资源的压缩实现。
func Close(c Compressor) {
	if closer, ok := c.(interface{ Close() }); ok {
		closer.Close()
	}
}
