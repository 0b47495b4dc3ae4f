package fileio

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"os"
	"path"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/lk2023060901/ringercore-go/pkg/log"
	"github.com/lk2023060901/ringercore-go/pkg/metrics"
	"github.com/lk2023060901/ringercore-go/pkg/util/merr"
	"github.com/lk2023060901/ringercore-go/pkg/util/retry"
)

// Member 是 tar 归档中的一个成员。
type Member struct {
	Name  string
	Value any
}

// SaveTar 将 members 写入 tar 归档，filename 以 .tgz/.tar.gz 结尾时整体 gzip 压缩，
// 否则补全为 .tar。每个成员为一条编码记录，成员名补全 .rdc 扩展名。返回最终文件名。
func SaveTar(ctx context.Context, filename string, members []Member, opts ...Option) (string, error) {
	filename = EnsureExtension(os.ExpandEnv(filename), "tar|tgz|tar.gz")
	ctx, span := startSpan(ctx, "fileio.SaveTar", filename)
	defer span.End()
	start := time.Now()

	o, p, err := newOptions(opts)
	if err != nil {
		return "", endSpan(span, err)
	}
	if len(members) == 0 {
		return "", endSpan(span, merr.WrapErrParameterMissing("members"))
	}
	c, err := p.newCodec()
	if err != nil {
		return "", endSpan(span, err)
	}
	defer c.Close()

	var buf bytes.Buffer
	var w io.Writer = &buf
	var gz *gzip.Writer
	if isGzipTar(filename) {
		gz = gzip.NewWriter(&buf)
		w = gz
	}
	tw := tar.NewWriter(w)
	now := time.Now()
	for _, m := range members {
		raw, err := ToRawDict(m.Value)
		if err != nil {
			return "", endSpan(span, errors.Wrapf(err, "member %s", m.Name))
		}
		data, err := c.Marshal(raw)
		if err != nil {
			return "", endSpan(span, errors.Wrapf(err, "member %s", m.Name))
		}
		hdr := &tar.Header{
			Typeflag: tar.TypeReg,
			Name:     EnsureExtension(m.Name, Ext[1:]+c.Compressor().Extension()),
			Mode:     0o644,
			Size:     int64(len(data)),
			ModTime:  now,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return "", endSpan(span, merr.WrapErrIoFailed(hdr.Name, err))
		}
		if _, err := tw.Write(data); err != nil {
			return "", endSpan(span, merr.WrapErrIoFailed(hdr.Name, err))
		}
	}
	if err := tw.Close(); err != nil {
		return "", endSpan(span, merr.WrapErrIoFailed(filename, err))
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return "", endSpan(span, merr.WrapErrIoFailed(filename, err))
		}
	}

	err = retry.Do(ctx, func() error {
		return writeFile(filename, buf.Bytes())
	}, o.retryOptions(p)...)
	observe(metrics.SaveOpLabel, start, err)
	if err != nil {
		return "", endSpan(span, err)
	}
	metrics.StorageBytes.WithLabelValues(metrics.SaveOpLabel, "tar").Observe(float64(buf.Len()))
	log.Ctx(ctx).Debug("tar archive saved", log.FieldFile(filename), zap.Int("members", len(members)))
	return filename, nil
}

// LoadTar 读取 tar 归档中名为 member 的成员，member 为空时读取全部成员。
// 成员名既可以是完整路径，也可以只是文件名。
func LoadTar(ctx context.Context, filename, member string, opts ...Option) ([]*Record, error) {
	var records []*Record
	err := WalkTar(ctx, filename, func(rec *Record) error {
		if member == "" || rec.Member == member || path.Base(rec.Member) == member {
			records = append(records, rec)
		}
		return nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if member != "" && len(records) == 0 {
		return nil, merr.WrapErrIoKeyNotFound(member, "no such member in "+filename)
	}
	return records, nil
}

// WalkTar 依次读取 tar 归档中的成员并交给 fn，fn 返回错误时停止。
// 成员逐个解码，不会一次性把全部记录留在内存中。
func WalkTar(ctx context.Context, filename string, fn func(*Record) error, opts ...Option) error {
	filename = os.ExpandEnv(filename)
	ctx, span := startSpan(ctx, "fileio.WalkTar", filename)
	defer span.End()
	start := time.Now()

	o, p, err := newOptions(opts)
	if err != nil {
		return endSpan(span, err)
	}
	c, err := p.newCodec()
	if err != nil {
		return endSpan(span, err)
	}
	defer c.Close()

	var data []byte
	err = retry.Do(ctx, func() error {
		data, err = readFile(filename)
		return err
	}, o.retryOptions(p)...)
	if err != nil {
		observe(metrics.LoadOpLabel, start, err)
		return endSpan(span, err)
	}

	var r io.Reader = bytes.NewReader(data)
	if isGzipTar(filename) {
		gz, err := gzip.NewReader(r)
		if err != nil {
			observe(metrics.LoadOpLabel, start, err)
			return endSpan(span, merr.WrapErrIoCorrupted(filename, err.Error()))
		}
		defer gz.Close()
		r = gz
	}

	err = walk(tar.NewReader(r), func(name string, body []byte) error {
		raw, h, err := c.Unmarshal(body)
		if err != nil {
			return errors.Wrapf(err, "decode %s:%s", filename, name)
		}
		rec, err := o.record(filename, name, h, raw)
		if err != nil {
			return err
		}
		return fn(rec)
	})
	observe(metrics.LoadOpLabel, start, err)
	if err != nil {
		log.Ctx(ctx).Warn("failed to read tar archive", log.FieldFile(filename), zap.Error(err))
		return endSpan(span, err)
	}
	metrics.StorageBytes.WithLabelValues(metrics.LoadOpLabel, "tar").Observe(float64(len(data)))
	return nil
}

func walk(tr *tar.Reader, fn func(name string, body []byte) error) error {
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return merr.WrapErrIoCorrupted("tar", err.Error())
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		body, err := io.ReadAll(tr)
		if err != nil {
			return merr.WrapErrIoUnexpectEOF(hdr.Name, err)
		}
		if err := fn(hdr.Name, body); err != nil {
			return err
		}
	}
}
