package codec

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/blang/semver/v4"

	"github.com/lk2023060901/ringercore-go/internal/storage/compressor"
	"github.com/lk2023060901/ringercore-go/internal/storage/serializer"
	"github.com/lk2023060901/ringercore-go/pkg/util/merr"
)

// 文件头布局（大端）：
//
//	magic[4] | major u8 | minor u8 | patch u8 | serializer u8 | compressor u8 | flags u8 | length u32 | checksum u64
const (
	Magic      = "RDCT"
	HeaderSize = 22

	// FlagChecksum 表示 checksum 字段有效（对落盘负载做 xxhash64）。
	FlagChecksum uint8 = 1 << 0
)

var (
	// FormatVersion 是当前写出的格式版本。
	FormatVersion = semver.MustParse("1.0.0")

	supportedRange = semver.MustParseRange(">=1.0.0 <2.0.0")
)

// Header 是编码文件的固定头部。
type Header struct {
	Version    semver.Version
	Serializer serializer.ID
	Compressor compressor.ID
	Flags      uint8
	Length     uint32
	Checksum   uint64
}

func (h Header) HasChecksum() bool {
	return h.Flags&FlagChecksum != 0
}

func (h Header) String() string {
	return fmt.Sprintf("%s v%s serializer=%d compressor=%d flags=%#x length=%d",
		Magic, h.Version, h.Serializer, h.Compressor, h.Flags, h.Length)
}

// Sniff 判断 prefix 是否以文件头魔数开头。
func Sniff(prefix []byte) bool {
	return len(prefix) >= len(Magic) && string(prefix[:len(Magic)]) == Magic
}

func (h Header) marshal() []byte {
	var buf [HeaderSize]byte
	copy(buf[0:4], Magic)
	buf[4] = uint8(h.Version.Major)
	buf[5] = uint8(h.Version.Minor)
	buf[6] = uint8(h.Version.Patch)
	buf[7] = uint8(h.Serializer)
	buf[8] = uint8(h.Compressor)
	buf[9] = h.Flags
	binary.BigEndian.PutUint32(buf[10:14], h.Length)
	binary.BigEndian.PutUint64(buf[14:22], h.Checksum)
	return buf[:]
}

// ReadHeader 读取并校验文件头，格式版本须在支持范围内。
func ReadHeader(r io.Reader) (Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Header{}, merr.WrapErrIoUnexpectEOF("header", err)
		}
		return Header{}, merr.WrapErrIoFailed("header", err)
	}
	if !Sniff(buf[:]) {
		return Header{}, merr.WrapErrCodecUnsupported(fmt.Sprintf("%q", buf[:4]), "bad magic")
	}
	h := Header{
		Version: semver.Version{
			Major: uint64(buf[4]),
			Minor: uint64(buf[5]),
			Patch: uint64(buf[6]),
		},
		Serializer: serializer.ID(buf[7]),
		Compressor: compressor.ID(buf[8]),
		Flags:      buf[9],
		Length:     binary.BigEndian.Uint32(buf[10:14]),
		Checksum:   binary.BigEndian.Uint64(buf[14:22]),
	}
	if !supportedRange(h.Version) {
		return Header{}, merr.WrapErrCodecUnsupported("v"+h.Version.String(), "format version out of range")
	}
	return h, nil
}
