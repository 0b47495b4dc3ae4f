package fileio

import (
	"time"

	"github.com/lk2023060901/ringercore-go/internal/storage/codec"
	"github.com/lk2023060901/ringercore-go/internal/storage/compressor"
	"github.com/lk2023060901/ringercore-go/internal/storage/serializer"
	"github.com/lk2023060901/ringercore-go/pkg/util/enumutil"
	"github.com/lk2023060901/ringercore-go/pkg/util/merr"
)

// Compression 是落盘负载的压缩算法。
type Compression int

const (
	CompressionNone Compression = Compression(compressor.IDNone)
	CompressionGzip Compression = Compression(compressor.IDGzip)
	CompressionZstd Compression = Compression(compressor.IDZstd)
)

var CompressionStr = enumutil.New("Compression",
	map[Compression]string{
		CompressionNone: "none",
		CompressionGzip: "gzip",
		CompressionZstd: "zstd",
	},
	enumutil.WithIgnoreCase[Compression](),
	enumutil.WithAliases(map[string]Compression{"gz": CompressionGzip, "zst": CompressionZstd, "": CompressionNone}),
)

func (c Compression) String() string {
	return CompressionStr.MustString(c)
}

// Format 是落盘负载的序列化格式。
type Format int

const (
	FormatJSON  Format = Format(serializer.IDJSON)
	FormatProto Format = Format(serializer.IDProto)
)

var FormatStr = enumutil.New("Format",
	map[Format]string{
		FormatJSON:  "json",
		FormatProto: "proto",
	},
	enumutil.WithIgnoreCase[Format](),
	enumutil.WithAliases(map[string]Format{"protobuf": FormatProto}),
)

func (f Format) String() string {
	return FormatStr.MustString(f)
}

// Config 描述持久化相关配置，可以由 viper 从 YAML/JSON 中加载。
type Config struct {
	// Format 为序列化格式，可选 json 或 proto。
	Format string `toml:"format" json:"format" mapstructure:"format"`
	// Compression 为压缩算法，可选 none、gzip 或 zstd。
	Compression string `toml:"compression" json:"compression" mapstructure:"compression"`
	// Checksum 表示是否写入负载校验和，接受 true/false、yes/no、on/off。
	Checksum string `toml:"checksum" json:"checksum" mapstructure:"checksum"`
	// Retries 为读写失败时的最大尝试次数。
	Retries uint `toml:"retries" json:"retries" mapstructure:"retries"`
	// RetrySleep 为首次重试前的等待时间，此后每次翻倍。
	RetrySleep time.Duration `toml:"retrySleep" json:"retrySleep" mapstructure:"retrySleep"`
	// RetryMaxSleep 为两次重试之间的最长等待时间。
	RetryMaxSleep time.Duration `toml:"retryMaxSleep" json:"retryMaxSleep" mapstructure:"retryMaxSleep"`
	// Workers 为并行加载的协程数，0 表示 CPU 核心数。
	Workers int `toml:"workers" json:"workers" mapstructure:"workers"`
}

// DefaultConfig 返回默认配置：JSON、gzip 压缩、写入校验和。
func DefaultConfig() Config {
	return Config{
		Format:        FormatJSON.String(),
		Compression:   CompressionGzip.String(),
		Checksum:      "true",
		Retries:       3,
		RetrySleep:    200 * time.Millisecond,
		RetryMaxSleep: 3 * time.Second,
	}
}

// parsed 是校验过的 Config。
type parsed struct {
	format      Format
	compression Compression
	checksum    bool
	retries     uint
	sleep       time.Duration
	maxSleep    time.Duration
	workers     int
}

func (c Config) parse() (parsed, error) {
	format, err := FormatStr.Retrieve(defaultString(c.Format, FormatJSON.String()))
	if err != nil {
		return parsed{}, err
	}
	compression, err := CompressionStr.Retrieve(c.Compression)
	if err != nil {
		return parsed{}, err
	}
	checksum, err := enumutil.ParseBool(defaultString(c.Checksum, "true"))
	if err != nil {
		return parsed{}, err
	}
	retries := c.Retries
	if retries == 0 {
		retries = 1
	}
	if c.RetrySleep < 0 || c.RetryMaxSleep < 0 {
		return parsed{}, merr.WrapErrParameterInvalidMsg("retry sleep must not be negative")
	}
	return parsed{
		format:      format,
		compression: compression,
		checksum:    checksum,
		retries:     retries,
		sleep:       c.RetrySleep,
		maxSleep:    c.RetryMaxSleep,
		workers:     c.Workers,
	}, nil
}

// Validate 校验配置项取值。
func (c Config) Validate() error {
	_, err := c.parse()
	return err
}

func (p parsed) newCodec() (*codec.Codec, error) {
	ser, err := serializer.ByID(serializer.ID(p.format))
	if err != nil {
		return nil, err
	}
	comp, err := compressor.ByID(compressor.ID(p.compression))
	if err != nil {
		return nil, err
	}
	return codec.New(codec.Options{
		Serializer:      ser,
		Compressor:      comp,
		DisableChecksum: !p.checksum,
	}), nil
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// NewCodec 按配置创建编解码器，调用方负责 Close。
func (c Config) NewCodec() (*codec.Codec, error) {
	p, err := c.parse()
	if err != nil {
		return nil, err
	}
	return p.newCodec()
}
