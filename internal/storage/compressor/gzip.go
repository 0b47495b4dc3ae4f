package compressor

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/lk2023060901/ringercore-go/pkg/util/merr"
)

const DefaultGzipLevel = gzip.DefaultCompression

// GzipCompressor 基于 github.com/klauspost/compress/gzip 的压缩实现，输出为标准 gzip 流。
type GzipCompressor struct {
	level int
}

// 编译期断言：确保 GzipCompressor 实现了 Compressor 接口。
var _ Compressor = (*GzipCompressor)(nil)

func NewGzipCompressor(level int) (*GzipCompressor, error) {
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		return nil, merr.WrapErrParameterInvalid(gzip.BestCompression, level, "gzip level")
	}
	return &GzipCompressor{level: level}, nil
}

func (c *GzipCompressor) ID() ID {
	return IDGzip
}

func (c *GzipCompressor) Extension() string {
	return ".gz"
}

func (c *GzipCompressor) Compress(dst, src []byte) ([]byte, error) {
	buf := bytes.NewBuffer(dst[:0])
	w, err := gzip.NewWriterLevel(buf, c.level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(src); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *GzipCompressor) Decompress(dst, src []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	buf := bytes.NewBuffer(dst[:0])
	if _, err := io.Copy(buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
