package codec

import (
	"bytes"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/ringercore-go/internal/storage/compressor"
	"github.com/lk2023060901/ringercore-go/internal/storage/serializer"
	"github.com/lk2023060901/ringercore-go/pkg/streamable"
	"github.com/lk2023060901/ringercore-go/pkg/util/merr"
)

// Codec 负责 raw dict 与落盘字节之间的完整编解码流程。
//
// Pipeline（写出 Encode）：
//
//	raw --> serializer --> [compress if smaller] --> [checksum?] --> Header+Payload --> w
//
// Pipeline（读入 Decode）：
//
//	r --> Header --> [verify checksum?] --> [decompress?] --> serializer --> Normalize --> raw
//
// 读取时按文件头中的编号选择实现，与写出时的配置无关。
type Codec struct {
	serializer serializer.Serializer
	compressor compressor.Compressor
	checksum   bool
	maxPayload uint32
}

// Options 用于构造 Codec 的依赖注入参数。
type Options struct {
	Serializer serializer.Serializer // 允许为 nil（内部会用 JSONSerializer）
	Compressor compressor.Compressor // 允许为 nil（内部会用 NopCompressor）

	DisableChecksum bool   // 不计算负载校验和
	MaxPayloadSize  uint32 // 读取时允许的最大负载，0 表示 defaultMaxPayloadSize
}

const defaultMaxPayloadSize uint32 = 1 << 30 // 1GB

// New 创建一个基于给定依赖的 Codec。
func New(opts Options) *Codec {
	c := &Codec{
		serializer: opts.Serializer,
		compressor: opts.Compressor,
		checksum:   !opts.DisableChecksum,
		maxPayload: opts.MaxPayloadSize,
	}
	if c.serializer == nil {
		c.serializer = serializer.JSONSerializer{}
	}
	if c.compressor == nil {
		c.compressor = compressor.NopCompressor{}
	}
	if c.maxPayload == 0 {
		c.maxPayload = defaultMaxPayloadSize
	}
	return c
}

func (c *Codec) Serializer() serializer.Serializer {
	return c.serializer
}

func (c *Codec) Compressor() compressor.Compressor {
	return c.compressor
}

// Encode 将 raw 编码后写入 w，返回写入的字节数。
func (c *Codec) Encode(w io.Writer, raw streamable.RawDict) (int, error) {
	data, err := c.Marshal(raw)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	if err != nil {
		return n, merr.WrapErrIoFailed("encode", err)
	}
	return n, nil
}

// Marshal 返回 raw 编码后的完整字节（含文件头）。
func (c *Codec) Marshal(raw streamable.RawDict) ([]byte, error) {
	if raw == nil {
		return nil, merr.WrapErrRawDictInvalid("nil raw dict")
	}
	body, err := c.serializer.Marshal(map[string]any(raw))
	if err != nil {
		return nil, errors.Wrap(err, "codec: marshal failed")
	}
	compID := c.compressor.ID()
	if compID != compressor.IDNone {
		packed, err := c.compressor.Compress(nil, body)
		if err != nil {
			return nil, errors.Wrap(err, "codec: compress failed")
		}
		// 压缩未能缩小负载（含压缩实现直接透传的情况）时按原样存储。
		if len(packed) < len(body) {
			body = packed
		} else {
			compID = compressor.IDNone
		}
	}
	if uint64(len(body)) > uint64(^uint32(0)) {
		return nil, merr.WrapErrParameterInvalidMsg("payload too large: %d bytes", len(body))
	}

	h := Header{
		Version:    FormatVersion,
		Serializer: c.serializer.ID(),
		Compressor: compID,
		Length:     uint32(len(body)),
	}
	if c.checksum {
		h.Flags |= FlagChecksum
		h.Checksum = xxhash.Sum64(body)
	}

	out := make([]byte, 0, HeaderSize+len(body))
	out = append(out, h.marshal()...)
	return append(out, body...), nil
}

// Decode 从 r 读取一个完整的编码记录，返回 raw dict 与文件头。
// 解码得到的数字统一为 int64 或 float64。
func (c *Codec) Decode(r io.Reader) (streamable.RawDict, Header, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, Header{}, err
	}
	if h.Length > c.maxPayload {
		return nil, h, merr.WrapErrParameterInvalid(c.maxPayload, h.Length, "payload exceeds limit")
	}
	body := make([]byte, h.Length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, h, merr.WrapErrIoUnexpectEOF("payload", err)
	}
	raw, err := c.decodeBody(h, body)
	if err != nil {
		return nil, h, err
	}
	return raw, h, nil
}

// Unmarshal 解码 Marshal 的输出。
func (c *Codec) Unmarshal(data []byte) (streamable.RawDict, Header, error) {
	return c.Decode(bytes.NewReader(data))
}

func (c *Codec) decodeBody(h Header, body []byte) (streamable.RawDict, error) {
	if h.HasChecksum() && xxhash.Sum64(body) != h.Checksum {
		return nil, merr.WrapErrIoCorrupted("payload", "checksum mismatch")
	}

	comp, release, err := c.compressorFor(h.Compressor)
	if err != nil {
		return nil, err
	}
	defer release()
	plain, err := comp.Decompress(nil, body)
	if err != nil {
		return nil, merr.WrapErrIoCorrupted("payload", "decompress failed: "+err.Error())
	}

	ser, err := serializer.ByID(h.Serializer)
	if err != nil {
		return nil, err
	}
	var decoded map[string]any
	if err := ser.Unmarshal(plain, &decoded); err != nil {
		return nil, merr.WrapErrIoCorrupted("payload", "unmarshal failed: "+err.Error())
	}
	if decoded == nil {
		return nil, merr.WrapErrRawDictInvalid("payload is not a string keyed map")
	}
	serializer.Normalize(decoded)
	return streamable.RawDict(decoded), nil
}

// compressorFor 优先复用自身的压缩实现，否则按编号临时创建。
func (c *Codec) compressorFor(id compressor.ID) (compressor.Compressor, func(), error) {
	if c.compressor.ID() == id {
		return c.compressor, func() {}, nil
	}
	comp, err := compressor.ByID(id)
	if err != nil {
		return nil, nil, err
	}
	return comp, func() { compressor.Close(comp) }, nil
}

// Close 释放压缩实现持有的资源。
func (c *Codec) Close() {
	compressor.Close(c.compressor)
}
