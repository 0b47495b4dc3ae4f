// Package archive 以键值方式保存编码后的 raw dict。
package archive

import (
	"context"
	"strings"
	"time"

	"github.com/lk2023060901/ringercore-go/internal/storage/codec"
	"github.com/lk2023060901/ringercore-go/pkg/fileio"
	"github.com/lk2023060901/ringercore-go/pkg/metrics"
	"github.com/lk2023060901/ringercore-go/pkg/streamable"
	"github.com/lk2023060901/ringercore-go/pkg/util/merr"
)

// Archive 是 raw dict 的键值存储。键不存在时 Get/Delete 返回 merr.ErrIoKeyNotFound。
type Archive interface {
	Put(ctx context.Context, key string, raw streamable.RawDict) error
	Get(ctx context.Context, key string) (streamable.RawDict, error)
	Delete(ctx context.Context, key string) error
	// Keys 按字典序返回以 prefix 开头的全部键。
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

const (
	badgerScheme = "badger://"
	// BadgerMemory 是内存模式 badger 存储的 URL。
	BadgerMemory = badgerScheme + "memory"
)

// Open 按 URL 打开存储：
//   - badger://memory 或 badger:///path/to/dir：BadgerArchive；
//   - etcd://host:2379/root：EtcdArchive；
//   - 其余（mem://、file:///path 等 gocloud.dev 支持的 URL）：BlobArchive。
func Open(ctx context.Context, url string, cfg fileio.Config) (Archive, error) {
	if strings.HasPrefix(url, badgerScheme) {
		path := strings.TrimPrefix(url, badgerScheme)
		if url == BadgerMemory {
			path = ""
		}
		return OpenBadger(path, cfg)
	}
	if strings.HasPrefix(url, etcdScheme) {
		return OpenEtcd(url, cfg)
	}
	return OpenBlob(ctx, url, cfg)
}

// PutObject 流化 obj 后写入 key。
func PutObject(ctx context.Context, a Archive, key string, obj streamable.Object) error {
	raw, err := streamable.Serialize(obj)
	if err != nil {
		return err
	}
	return a.Put(ctx, key, raw)
}

// GetObject 读取 key 并由注册表 r 还原为对象，r 为 nil 时使用默认注册表。
func GetObject(ctx context.Context, a Archive, r *streamable.Registry, key string) (streamable.Object, error) {
	raw, err := a.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return streamable.Load(r, raw)
}

// store 汇集各实现共用的编解码与指标逻辑。
type store struct {
	codec *codec.Codec
}

func newStore(cfg fileio.Config) (*store, error) {
	c, err := cfg.NewCodec()
	if err != nil {
		return nil, err
	}
	return &store{codec: c}, nil
}

func (s *store) encode(key string, raw streamable.RawDict) ([]byte, error) {
	if key == "" {
		return nil, merr.WrapErrParameterMissing("key")
	}
	data, err := s.codec.Marshal(raw)
	if err != nil {
		return nil, err
	}
	metrics.StorageBytes.WithLabelValues(metrics.PutOpLabel, s.codec.Serializer().Name()).Observe(float64(len(data)))
	return data, nil
}

func (s *store) decode(data []byte) (streamable.RawDict, error) {
	raw, _, err := s.codec.Unmarshal(data)
	return raw, err
}

func (s *store) close() {
	s.codec.Close()
}

func observe(op string, start time.Time, err error) {
	status := metrics.SuccessLabel
	if err != nil && !merr.IsCanceledOrTimeout(err) {
		status = metrics.FailLabel
	}
	metrics.StorageOpTotal.WithLabelValues(op, status).Inc()
	metrics.StorageOpLatency.WithLabelValues(op).Observe(float64(time.Since(start).Milliseconds()))
}
