// Package fileio 将 raw dict 与可流化对象保存到文件，并从文件中读回。
//
// 文件内容为带文件头的编码记录（见 internal/storage/codec），读取时依据文件头
// 自动选择序列化格式与压缩算法，文件扩展名只用于识别 tar 归档。
package fileio

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/lk2023060901/ringercore-go/internal/storage/codec"
	"github.com/lk2023060901/ringercore-go/pkg/log"
	"github.com/lk2023060901/ringercore-go/pkg/metrics"
	"github.com/lk2023060901/ringercore-go/pkg/streamable"
	"github.com/lk2023060901/ringercore-go/pkg/util/conc"
	"github.com/lk2023060901/ringercore-go/pkg/util/hardware"
	"github.com/lk2023060901/ringercore-go/pkg/util/logutil"
	"github.com/lk2023060901/ringercore-go/pkg/util/merr"
	"github.com/lk2023060901/ringercore-go/pkg/util/retry"
)

// Ext 是编码记录文件的基础扩展名。
const Ext = ".rdc"

var tracer = otel.Tracer("github.com/lk2023060901/ringercore-go/pkg/fileio")

// Record 是一次读取的结果。
type Record struct {
	// File 为读取的文件名。
	File string
	// Member 为 tar 归档中的成员名，普通文件为空。
	Member string
	Header codec.Header
	Raw    streamable.RawDict
	// Object 为还原出的对象，仅在 WithHighLevelObject 且 Raw 为 raw dict 格式时非空。
	Object streamable.Object
}

// Value 优先返回还原出的对象，否则返回 raw dict。
func (r *Record) Value() any {
	if r.Object != nil {
		return r.Object
	}
	return r.Raw
}

// Save 将 v（RawDict、map[string]any 或 streamable.Object）保存到 filename。
// filename 中的环境变量会被展开，并补全扩展名（.rdc，压缩时再加 .gz/.zst），返回最终文件名。
func Save(ctx context.Context, v any, filename string, opts ...Option) (string, error) {
	ctx, span := startSpan(ctx, "fileio.Save", filename)
	defer span.End()
	start := time.Now()

	o, p, err := newOptions(opts)
	if err != nil {
		return "", endSpan(span, err)
	}
	raw, err := ToRawDict(v)
	if err != nil {
		return "", endSpan(span, err)
	}
	c, err := p.newCodec()
	if err != nil {
		return "", endSpan(span, err)
	}
	defer c.Close()

	filename = EnsureExtension(os.ExpandEnv(filename), Ext[1:]+c.Compressor().Extension())
	span.SetAttributes(attribute.String("file", filename))
	data, err := c.Marshal(raw)
	if err != nil {
		observe(metrics.SaveOpLabel, start, err)
		return "", endSpan(span, err)
	}

	err = retry.Do(ctx, func() error {
		return writeFile(filename, data)
	}, o.retryOptions(p)...)
	observe(metrics.SaveOpLabel, start, err)
	if err != nil {
		log.Ctx(ctx).Warn("failed to save raw dict", log.FieldFile(filename), zap.Error(err))
		return "", endSpan(span, err)
	}
	metrics.StorageBytes.WithLabelValues(metrics.SaveOpLabel, c.Serializer().Name()).Observe(float64(len(data)))
	log.Ctx(ctx).Debug("raw dict saved", log.FieldFile(filename), zap.Int("bytes", len(data)))
	return filename, nil
}

// Load 读取 filename 中的记录。tar 归档只能包含一个成员，多成员归档请使用 LoadTar。
func Load(ctx context.Context, filename string, opts ...Option) (*Record, error) {
	filename = os.ExpandEnv(filename)
	if IsTar(filename) {
		records, err := LoadTar(ctx, filename, "", opts...)
		if err != nil {
			return nil, err
		}
		if len(records) != 1 {
			return nil, merr.WrapErrParameterInvalidMsg("%s holds %d members, use LoadTar", filename, len(records))
		}
		return records[0], nil
	}

	ctx, span := startSpan(ctx, "fileio.Load", filename)
	defer span.End()
	start := time.Now()

	o, p, err := newOptions(opts)
	if err != nil {
		return nil, endSpan(span, err)
	}
	c, err := p.newCodec()
	if err != nil {
		return nil, endSpan(span, err)
	}
	defer c.Close()

	var data []byte
	err = retry.Do(ctx, func() error {
		data, err = readFile(filename)
		return err
	}, o.retryOptions(p)...)
	if err != nil {
		observe(metrics.LoadOpLabel, start, err)
		return nil, endSpan(span, err)
	}

	raw, h, err := c.Unmarshal(data)
	if err != nil {
		observe(metrics.LoadOpLabel, start, err)
		log.Ctx(ctx).Warn("failed to decode file", log.FieldFile(filename), zap.Error(err))
		return nil, endSpan(span, errors.Wrapf(err, "decode %s", filename))
	}
	rec, err := o.record(filename, "", h, raw)
	observe(metrics.LoadOpLabel, start, err)
	if err != nil {
		return nil, endSpan(span, err)
	}
	metrics.StorageBytes.WithLabelValues(metrics.LoadOpLabel, formatName(h)).Observe(float64(len(data)))
	return rec, nil
}

// LoadAll 并行读取 filenames，结果与输入一一对应，任一文件失败则返回错误。
func LoadAll(ctx context.Context, filenames []string, opts ...Option) ([]*Record, error) {
	_, p, err := newOptions(opts)
	if err != nil {
		return nil, err
	}
	workers := p.workers
	if workers <= 0 {
		workers = hardware.GetCPUNum()
	}
	pool := conc.NewPool[*Record](workers, conc.WithName("fileio-load"))
	defer pool.Release()

	return conc.Map(pool, filenames, func(_ int, filename string) (*Record, error) {
		return Load(ctx, filename, opts...)
	})
}

// ToRawDict 将 v 转换为 raw dict，可流化对象经由 streamable.Serialize 转换。
func ToRawDict(v any) (streamable.RawDict, error) {
	switch val := v.(type) {
	case nil:
		return nil, merr.WrapErrParameterMissing("value")
	case streamable.RawDict:
		return val, nil
	case map[string]any:
		return streamable.RawDict(val), nil
	case streamable.Object:
		return streamable.Serialize(val)
	}
	return nil, merr.WrapErrParameterInvalidMsg("cannot save %T, expected a raw dict or a streamable object", v)
}

func (o *options) record(file, member string, h codec.Header, raw streamable.RawDict) (*Record, error) {
	rec := &Record{File: file, Member: member, Header: h, Raw: raw}
	if o.highLevel && streamable.IsRawDictFormat(raw) {
		obj, err := streamable.Load(o.registry, raw, o.loadOpts...)
		if err != nil {
			return nil, errors.Wrapf(err, "rehydrate %s", file)
		}
		rec.Object = obj
	}
	return rec, nil
}

func writeFile(filename string, data []byte) error {
	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return ioErr(dir, err)
		}
	}
	tmp := filename + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return ioErr(filename, err)
	}
	if err := os.Rename(tmp, filename); err != nil {
		_ = os.Remove(tmp)
		return ioErr(filename, err)
	}
	return nil
}

func readFile(filename string) ([]byte, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, ioErr(filename, err)
	}
	return data, nil
}

// ioErr 将文件不存在映射为不可重试的 ErrIoKeyNotFound，其余为可重试的 ErrIoFailed。
func ioErr(file string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return merr.WrapErrIoKeyNotFound(file, err.Error())
	}
	return merr.WrapErrIoFailed(file, err)
}

func formatName(h codec.Header) string {
	return Format(h.Serializer).String()
}

func startSpan(ctx context.Context, name, filename string) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attribute.String("file", filename)))
	return logutil.WithTraceLogger(ctx, log.FieldComponent("fileio")), span
}

func endSpan(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func observe(op string, start time.Time, err error) {
	status := metrics.SuccessLabel
	if err != nil {
		status = metrics.FailLabel
	}
	metrics.StorageOpTotal.WithLabelValues(op, status).Inc()
	metrics.StorageOpLatency.WithLabelValues(op).Observe(float64(time.Since(start).Milliseconds()))
}
