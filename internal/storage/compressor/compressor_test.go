package compressor

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/ringercore-go/pkg/util/merr"
)

func TestRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte(`{"class":"Circle","Radius":1.5}`), 64)
	for _, name := range []string{"none", "gzip", "zstd"} {
		t.Run(name, func(t *testing.T) {
			c, err := ByName(name)
			require.NoError(t, err)
			defer Close(c)

			packed, err := c.Compress(nil, payload)
			require.NoError(t, err)
			if c.ID() != IDNone {
				assert.Less(t, len(packed), len(payload))
			}

			plain, err := c.Decompress(nil, packed)
			require.NoError(t, err)
			assert.Equal(t, payload, plain)

			byID, err := ByID(c.ID())
			require.NoError(t, err)
			defer Close(byID)
			assert.Equal(t, c.Extension(), byID.Extension())
		})
	}
}

func TestUnknown(t *testing.T) {
	_, err := ByName("lz4")
	assert.ErrorIs(t, err, merr.ErrCodecUnsupported)
	_, err = ByID(7)
	assert.ErrorIs(t, err, merr.ErrCodecUnsupported)
}

func TestGzipLevel(t *testing.T) {
	_, err := NewGzipCompressor(42)
	assert.ErrorIs(t, err, merr.ErrParameterInvalid)
}

func TestZstdClosed(t *testing.T) {
	c, err := NewZstdCompressorWithConcurrency(1)
	require.NoError(t, err)
	c.Close()
	_, err = c.Compress(nil, []byte("x"))
	assert.ErrorIs(t, err, zstd.ErrEncoderClosed)
	_, err = c.Decompress(nil, []byte("x"))
	assert.ErrorIs(t, err, zstd.ErrDecoderClosed)
}

func TestZstdMinCompressSize(t *testing.T) {
	c, err := NewZstdCompressor()
	require.NoError(t, err)
	defer c.Close()
	c.SetMinCompressSize(1024)

	small := []byte("tiny")
	packed, err := c.Compress(nil, small)
	require.NoError(t, err)
	assert.Equal(t, small, packed)
}
