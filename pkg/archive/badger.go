package archive

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/lk2023060901/ringercore-go/pkg/fileio"
	"github.com/lk2023060901/ringercore-go/pkg/log"
	"github.com/lk2023060901/ringercore-go/pkg/metrics"
	"github.com/lk2023060901/ringercore-go/pkg/streamable"
	"github.com/lk2023060901/ringercore-go/pkg/util/merr"
)

// BadgerArchive 将 raw dict 保存在嵌入式 badger 数据库中。
type BadgerArchive struct {
	log.Binder
	*store

	db *badger.DB
}

var _ Archive = (*BadgerArchive)(nil)

// badgerLogger 将 badger 的日志转发到 MLogger。
type badgerLogger struct {
	logger *log.MLogger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// OpenBadger 打开 path 下的 badger 数据库，path 为空时使用内存模式。
func OpenBadger(path string, cfg fileio.Config) (*BadgerArchive, error) {
	s, err := newStore(cfg)
	if err != nil {
		return nil, err
	}
	a := &BadgerArchive{store: s}
	a.Bind(log.FieldComponent("badger-archive"), log.FieldFile(path))

	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0o750); err != nil {
			s.close()
			return nil, merr.WrapErrIoFailed(path, err)
		}
		opts = badger.DefaultOptions(path)
	}
	opts = opts.WithNumVersionsToKeep(1).WithLogger(badgerLogger{logger: a.Logger()})

	db, err := badger.Open(opts)
	if err != nil {
		s.close()
		return nil, merr.WrapErrIoFailed(path, err)
	}
	a.db = db
	return a, nil
}

func (a *BadgerArchive) Put(ctx context.Context, key string, raw streamable.RawDict) (err error) {
	defer func(start time.Time) { observe(metrics.PutOpLabel, start, err) }(time.Now())
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := a.encode(key, raw)
	if err != nil {
		return err
	}
	err = a.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	return a.wrap(key, err)
}

func (a *BadgerArchive) Get(ctx context.Context, key string) (_ streamable.RawDict, err error) {
	defer func(start time.Time) { observe(metrics.GetOpLabel, start, err) }(time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var data []byte
	err = a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, a.wrap(key, err)
	}
	return a.decode(data)
}

// Delete 删除 key，键不存在时返回 merr.ErrIoKeyNotFound。
func (a *BadgerArchive) Delete(ctx context.Context, key string) (err error) {
	defer func(start time.Time) { observe(metrics.RemoveOpLabel, start, err) }(time.Now())
	if err := ctx.Err(); err != nil {
		return err
	}
	err = a.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(key)); err != nil {
			return err
		}
		return txn.Delete([]byte(key))
	})
	return a.wrap(key, err)
}

func (a *BadgerArchive) Keys(ctx context.Context, prefix string) (_ []string, err error) {
	defer func(start time.Time) { observe(metrics.ListOpLabel, start, err) }(time.Now())
	var keys []string
	err = a.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, a.wrap(prefix, err)
	}
	return keys, nil
}

func (a *BadgerArchive) Close() error {
	a.close()
	if err := a.db.Close(); err != nil {
		a.Logger().Warn("failed to close badger", zap.Error(err))
		return merr.WrapErrIoFailed("badger", err)
	}
	return nil
}

func (a *BadgerArchive) wrap(key string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return merr.WrapErrIoKeyNotFound(key)
	case errors.Is(err, badger.ErrEmptyKey):
		return merr.WrapErrParameterMissing("key")
	case merr.IsCanceledOrTimeout(err):
		return err
	}
	a.Logger().Warn("badger operation failed", zap.String("key", key), zap.Error(err))
	return merr.WrapErrIoFailed(key, err)
}
