package codec

import (
	"bytes"
	"strings"
	"testing"

	"github.com/blang/semver/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/ringercore-go/internal/storage/compressor"
	"github.com/lk2023060901/ringercore-go/internal/storage/serializer"
	"github.com/lk2023060901/ringercore-go/pkg/streamable"
	"github.com/lk2023060901/ringercore-go/pkg/util/merr"
)

func sample() streamable.RawDict {
	return streamable.RawDict{
		streamable.KeyClass:            "Circle",
		streamable.KeyModule:           "ringer.shapes",
		streamable.KeyVersionedClasses: map[string]any{"ringer.shapes.Circle": 3, "ringer.shapes.Shape": 2},
		"Radius":                       1.5,
		"Count":                        7,
		"Tags":                         []any{"a", "b"},
		"Notes":                        strings.Repeat("ringer ", 64),
	}
}

type CodecSuite struct {
	suite.Suite
}

func (s *CodecSuite) TestRoundTrip() {
	for _, serName := range []string{"json", "proto"} {
		for _, compName := range []string{"none", "gzip", "zstd"} {
			s.Run(serName+"/"+compName, func() {
				ser, err := serializer.ByName(serName)
				s.Require().NoError(err)
				comp, err := compressor.ByName(compName)
				s.Require().NoError(err)
				defer compressor.Close(comp)

				c := New(Options{Serializer: ser, Compressor: comp})
				var buf bytes.Buffer
				n, err := c.Encode(&buf, sample())
				s.Require().NoError(err)
				s.Equal(buf.Len(), n)
				s.True(Sniff(buf.Bytes()))

				// 读取方使用默认配置，依靠文件头选择实现。
				raw, h, err := New(Options{}).Decode(&buf)
				s.Require().NoError(err)
				s.Equal(ser.ID(), h.Serializer)
				s.Equal(comp.ID(), h.Compressor)
				s.True(h.HasChecksum())
				s.Equal(FormatVersion, h.Version)

				s.Equal("Circle", raw.ClassName())
				s.Equal(int64(7), raw["Count"])
				s.Equal(1.5, raw["Radius"])
				s.Equal([]any{"a", "b"}, raw["Tags"])
				versions, modern, err := raw.VersionedClasses()
				s.Require().NoError(err)
				s.True(modern)
				s.Equal(3, versions["ringer.shapes.Circle"])
			})
		}
	}
}

func (s *CodecSuite) TestChecksumMismatch() {
	data, err := New(Options{}).Marshal(sample())
	s.Require().NoError(err)
	data[len(data)-2] ^= 0xff

	_, _, err = New(Options{}).Unmarshal(data)
	s.ErrorIs(err, merr.ErrIoCorrupted)
}

func (s *CodecSuite) TestWithoutChecksum() {
	data, err := New(Options{DisableChecksum: true}).Marshal(sample())
	s.Require().NoError(err)
	_, h, err := New(Options{}).Unmarshal(data)
	s.Require().NoError(err)
	s.False(h.HasChecksum())
	s.Zero(h.Checksum)
}

func (s *CodecSuite) TestBadMagic() {
	_, _, err := New(Options{}).Unmarshal(append([]byte("JSON"), make([]byte, HeaderSize)...))
	s.ErrorIs(err, merr.ErrCodecUnsupported)
}

func (s *CodecSuite) TestVersionOutOfRange() {
	h := Header{Version: semver.MustParse("2.0.0"), Serializer: serializer.IDJSON}
	_, err := ReadHeader(bytes.NewReader(h.marshal()))
	s.ErrorIs(err, merr.ErrCodecUnsupported)

	h.Version = semver.MustParse("1.3.0")
	got, err := ReadHeader(bytes.NewReader(h.marshal()))
	s.Require().NoError(err)
	s.Equal(uint64(3), got.Version.Minor)
}

func (s *CodecSuite) TestTruncated() {
	data, err := New(Options{}).Marshal(sample())
	s.Require().NoError(err)

	_, _, err = New(Options{}).Unmarshal(data[:HeaderSize-1])
	s.ErrorIs(err, merr.ErrIoUnexpectEOF)
	_, _, err = New(Options{}).Unmarshal(data[:len(data)-1])
	s.ErrorIs(err, merr.ErrIoUnexpectEOF)
}

func (s *CodecSuite) TestPayloadLimit() {
	data, err := New(Options{}).Marshal(sample())
	s.Require().NoError(err)
	_, _, err = New(Options{MaxPayloadSize: 8}).Unmarshal(data)
	s.ErrorIs(err, merr.ErrParameterInvalid)
}

func (s *CodecSuite) TestUnknownSerializer() {
	h := Header{Version: FormatVersion, Serializer: 9}
	_, _, err := New(Options{}).Unmarshal(h.marshal())
	s.ErrorIs(err, merr.ErrCodecUnsupported)
}

func (s *CodecSuite) TestIncompressibleStoredRaw() {
	z, err := compressor.NewZstdCompressor()
	s.Require().NoError(err)
	defer z.Close()
	z.SetMinCompressSize(1 << 20)

	data, err := New(Options{Compressor: z}).Marshal(streamable.RawDict{"a": 1})
	s.Require().NoError(err)
	raw, h, err := New(Options{}).Unmarshal(data)
	s.Require().NoError(err)
	s.Equal(compressor.IDNone, h.Compressor)
	s.Equal(int64(1), raw["a"])

	gz, err := compressor.NewGzipCompressor(compressor.DefaultGzipLevel)
	s.Require().NoError(err)
	data, err = New(Options{Compressor: gz}).Marshal(streamable.RawDict{"b": 2})
	s.Require().NoError(err)
	raw, h, err = New(Options{}).Unmarshal(data)
	s.Require().NoError(err)
	s.Equal(compressor.IDNone, h.Compressor)
	s.Equal(int64(2), raw["b"])
}

func TestCodec(t *testing.T) {
	suite.Run(t, new(CodecSuite))
}

func TestNilRawDict(t *testing.T) {
	_, err := New(Options{}).Marshal(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, merr.ErrRawDictInvalid)
}
