package archive

import (
	"context"
	"io"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	"gocloud.dev/gcerrors"

	"github.com/lk2023060901/ringercore-go/pkg/fileio"
	"github.com/lk2023060901/ringercore-go/pkg/log"
	"github.com/lk2023060901/ringercore-go/pkg/metrics"
	"github.com/lk2023060901/ringercore-go/pkg/streamable"
	"github.com/lk2023060901/ringercore-go/pkg/util/merr"
)

// BlobArchive 将每个键保存为 bucket 中的一个对象，对象名为键加 .rdc 扩展名。
type BlobArchive struct {
	log.Binder
	*store

	url    string
	bucket *blob.Bucket
}

var _ Archive = (*BlobArchive)(nil)

// OpenBlob 打开 gocloud.dev 支持的 bucket URL，例如 mem:// 或 file:///tmp/archive。
func OpenBlob(ctx context.Context, url string, cfg fileio.Config) (*BlobArchive, error) {
	s, err := newStore(cfg)
	if err != nil {
		return nil, err
	}
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		s.close()
		return nil, merr.WrapErrIoFailed(url, err)
	}
	a := &BlobArchive{store: s, url: url, bucket: bucket}
	a.Bind(log.FieldComponent("blob-archive"), zap.String("url", url))
	return a, nil
}

func objectKey(key string) string {
	return key + fileio.Ext
}

func (a *BlobArchive) Put(ctx context.Context, key string, raw streamable.RawDict) (err error) {
	defer func(start time.Time) { observe(metrics.PutOpLabel, start, err) }(time.Now())
	data, err := a.encode(key, raw)
	if err != nil {
		return err
	}
	if err := a.bucket.WriteAll(ctx, objectKey(key), data, nil); err != nil {
		return a.wrap(key, err)
	}
	return nil
}

func (a *BlobArchive) Get(ctx context.Context, key string) (_ streamable.RawDict, err error) {
	defer func(start time.Time) { observe(metrics.GetOpLabel, start, err) }(time.Now())
	data, err := a.bucket.ReadAll(ctx, objectKey(key))
	if err != nil {
		return nil, a.wrap(key, err)
	}
	return a.decode(data)
}

func (a *BlobArchive) Delete(ctx context.Context, key string) (err error) {
	defer func(start time.Time) { observe(metrics.RemoveOpLabel, start, err) }(time.Now())
	if err := a.bucket.Delete(ctx, objectKey(key)); err != nil {
		return a.wrap(key, err)
	}
	return nil
}

func (a *BlobArchive) Keys(ctx context.Context, prefix string) (_ []string, err error) {
	defer func(start time.Time) { observe(metrics.ListOpLabel, start, err) }(time.Now())
	it := a.bucket.List(&blob.ListOptions{Prefix: prefix})
	var keys []string
	for {
		obj, err := it.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, a.wrap(prefix, err)
		}
		if obj.IsDir || !strings.HasSuffix(obj.Key, fileio.Ext) {
			continue
		}
		keys = append(keys, strings.TrimSuffix(obj.Key, fileio.Ext))
	}
	sort.Strings(keys)
	return keys, nil
}

func (a *BlobArchive) Close() error {
	a.close()
	if err := a.bucket.Close(); err != nil {
		a.Logger().Warn("failed to close bucket", zap.Error(err))
		return merr.WrapErrIoFailed(a.url, err)
	}
	return nil
}

func (a *BlobArchive) wrap(key string, err error) error {
	if gcerrors.Code(err) == gcerrors.NotFound {
		return merr.WrapErrIoKeyNotFound(key)
	}
	a.Logger().Warn("blob operation failed", zap.String("key", key), zap.Error(err))
	return merr.WrapErrIoFailed(key, err)
}
