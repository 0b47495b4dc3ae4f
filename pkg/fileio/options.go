package fileio

import (
	"github.com/lk2023060901/ringercore-go/pkg/streamable"
	"github.com/lk2023060901/ringercore-go/pkg/util/enumutil"
	"github.com/lk2023060901/ringercore-go/pkg/util/merr"
	"github.com/lk2023060901/ringercore-go/pkg/util/retry"
)

type options struct {
	cfg       Config
	highLevel bool
	registry  *streamable.Registry
	loadOpts  []streamable.LoadOption
	retryOpts []retry.Option
}

func newOptions(opts []Option) (*options, parsed, error) {
	o := &options{cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(o)
	}
	p, err := o.cfg.parse()
	if err != nil {
		return nil, parsed{}, err
	}
	return o, p, nil
}

func (o *options) retryOptions(p parsed) []retry.Option {
	out := []retry.Option{
		retry.Attempts(p.retries),
		retry.RetryErr(merr.IsRetryableErr),
	}
	if p.sleep > 0 {
		out = append(out, retry.Sleep(p.sleep))
	}
	if p.maxSleep > 0 {
		out = append(out, retry.MaxSleepTime(p.maxSleep))
	}
	return append(out, o.retryOpts...)
}

// Option 配置一次读写操作。
type Option func(*options)

// WithConfig 替换整份配置。
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.cfg = cfg
	}
}

func WithFormat(f Format) Option {
	return func(o *options) {
		o.cfg.Format = f.String()
	}
}

// WithCompression 设置压缩算法，CompressionNone 表示不压缩。
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.cfg.Compression = c.String()
	}
}

func WithChecksum(enable bool) Option {
	return func(o *options) {
		o.cfg.Checksum = enumutil.BooleanStr.MustString(boolean(enable))
	}
}

// WithWorkers 设置 LoadAll 的并行度。
func WithWorkers(n int) Option {
	return func(o *options) {
		o.cfg.Workers = n
	}
}

// WithHighLevelObject 读取时将 raw dict 还原为 r 中注册的对象，r 为 nil 时使用默认注册表。
func WithHighLevelObject(r *streamable.Registry, opts ...streamable.LoadOption) Option {
	return func(o *options) {
		o.highLevel = true
		o.registry = r
		o.loadOpts = opts
	}
}

// WithRetryOptions 追加重试配置。
func WithRetryOptions(opts ...retry.Option) Option {
	return func(o *options) {
		o.retryOpts = append(o.retryOpts, opts...)
	}
}

func boolean(b bool) enumutil.Boolean {
	if b {
		return enumutil.True
	}
	return enumutil.False
}
