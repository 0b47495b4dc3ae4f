package archive

import (
	"context"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"

	"github.com/lk2023060901/ringercore-go/pkg/fileio"
	"github.com/lk2023060901/ringercore-go/pkg/log"
	"github.com/lk2023060901/ringercore-go/pkg/metrics"
	"github.com/lk2023060901/ringercore-go/pkg/streamable"
	"github.com/lk2023060901/ringercore-go/pkg/util/merr"
)

const (
	etcdScheme         = "etcd://"
	defaultDialTimeout = 5 * time.Second
)

// EtcdArchive 将 raw dict 保存在 etcd 中，所有键位于 root 前缀之下。
type EtcdArchive struct {
	log.Binder
	*store

	cli  *clientv3.Client
	root string
	// owned 为 true 时 Close 同时关闭客户端。
	owned bool
}

var _ Archive = (*EtcdArchive)(nil)

// OpenEtcd 连接 etcd://host1:2379,host2:2379/root 形式的地址。
func OpenEtcd(rawURL string, cfg fileio.Config) (*EtcdArchive, error) {
	hosts, root, _ := strings.Cut(strings.TrimPrefix(rawURL, etcdScheme), "/")
	if hosts == "" {
		return nil, merr.WrapErrParameterInvalidMsg("etcd url %q has no endpoints", rawURL)
	}
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   strings.Split(hosts, ","),
		DialTimeout: defaultDialTimeout,
		Logger:      log.L().Named("etcd-client"),
	})
	if err != nil {
		return nil, merr.WrapErrIoFailed(hosts, err)
	}
	a, err := NewEtcd(cli, root, cfg)
	if err != nil {
		cli.Close()
		return nil, err
	}
	a.owned = true
	return a, nil
}

// NewEtcd 基于已有客户端创建存储，Close 不会关闭 cli。
func NewEtcd(cli *clientv3.Client, root string, cfg fileio.Config) (*EtcdArchive, error) {
	s, err := newStore(cfg)
	if err != nil {
		return nil, err
	}
	root = strings.Trim(root, "/")
	if root != "" {
		root += "/"
	}
	a := &EtcdArchive{store: s, cli: cli, root: root}
	a.Bind(log.FieldComponent("etcd-archive"), zap.String("root", root))
	return a, nil
}

func (a *EtcdArchive) fullKey(key string) string {
	return a.root + key
}

func (a *EtcdArchive) Put(ctx context.Context, key string, raw streamable.RawDict) (err error) {
	defer func(start time.Time) { observe(metrics.PutOpLabel, start, err) }(time.Now())
	data, err := a.encode(key, raw)
	if err != nil {
		return err
	}
	_, err = a.cli.Put(ctx, a.fullKey(key), string(data))
	return a.wrap(key, err)
}

func (a *EtcdArchive) Get(ctx context.Context, key string) (_ streamable.RawDict, err error) {
	defer func(start time.Time) { observe(metrics.GetOpLabel, start, err) }(time.Now())
	if key == "" {
		return nil, merr.WrapErrParameterMissing("key")
	}
	resp, err := a.cli.Get(ctx, a.fullKey(key))
	if err != nil {
		return nil, a.wrap(key, err)
	}
	if len(resp.Kvs) == 0 {
		return nil, merr.WrapErrIoKeyNotFound(key)
	}
	return a.decode(resp.Kvs[0].Value)
}

// Delete 删除 key，键不存在时返回 merr.ErrIoKeyNotFound。
func (a *EtcdArchive) Delete(ctx context.Context, key string) (err error) {
	defer func(start time.Time) { observe(metrics.RemoveOpLabel, start, err) }(time.Now())
	if key == "" {
		return merr.WrapErrParameterMissing("key")
	}
	resp, err := a.cli.Delete(ctx, a.fullKey(key))
	if err != nil {
		return a.wrap(key, err)
	}
	if resp.Deleted == 0 {
		return merr.WrapErrIoKeyNotFound(key)
	}
	return nil
}

func (a *EtcdArchive) Keys(ctx context.Context, prefix string) (_ []string, err error) {
	defer func(start time.Time) { observe(metrics.ListOpLabel, start, err) }(time.Now())
	full := a.fullKey(prefix)
	opts := []clientv3.OpOption{clientv3.WithKeysOnly(), clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend)}
	if full == "" {
		opts = append(opts, clientv3.WithFromKey())
		full = "\x00"
	} else {
		opts = append(opts, clientv3.WithPrefix())
	}
	resp, err := a.cli.Get(ctx, full, opts...)
	if err != nil {
		return nil, a.wrap(prefix, err)
	}
	keys := make([]string, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		keys = append(keys, strings.TrimPrefix(string(kv.Key), a.root))
	}
	return keys, nil
}

func (a *EtcdArchive) Close() error {
	a.close()
	if !a.owned {
		return nil
	}
	if err := a.cli.Close(); err != nil {
		a.Logger().Warn("failed to close etcd client", zap.Error(err))
		return merr.WrapErrIoFailed("etcd", err)
	}
	return nil
}

func (a *EtcdArchive) wrap(key string, err error) error {
	if err == nil || merr.IsCanceledOrTimeout(err) {
		return err
	}
	a.Logger().Warn("etcd operation failed", zap.String("key", key), zap.Error(err))
	return merr.WrapErrIoFailed(key, err)
}
