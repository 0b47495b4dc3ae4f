package typedlist

import (
	"reflect"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/lk2023060901/ringercore-go/pkg/streamable"
	"github.com/lk2023060901/ringercore-go/pkg/util/merr"
)

// Spec 描述一个可流化的列表类。
type Spec struct {
	Name     string
	Module   string
	Bases    []*streamable.Class
	Version  *int
	Accepted []reflect.Type
	// 额外的 Streamer/Converter 配置，叠加在列表自身的配置之上。
	StreamerOptions  []streamable.StreamerOption
	ConverterOptions []streamable.ConverterOption
}

// Register 在 r 中注册一个列表类。r 为 nil 时使用默认注册表。
// 元素在流化时写入 ItemsKey，反序列化时由 TreatObj 钩子还原并追加。
func Register(r *streamable.Registry, spec Spec) (*streamable.Class, error) {
	if len(spec.Accepted) == 0 {
		return nil, merr.WrapErrParameterMissing("accepted types", "list "+spec.Name)
	}
	if r == nil {
		r = streamable.DefaultRegistry()
	}
	accepted := mapset.NewSet(spec.Accepted...)

	var c *streamable.Class
	c, err := r.Register(streamable.ClassSpec{
		Name:    spec.Name,
		Module:  spec.Module,
		Bases:   spec.Bases,
		Version: spec.Version,
		Streamer: streamable.NewStreamer(
			append([]streamable.StreamerOption{streamable.WithTreatDict(treatDict)}, spec.StreamerOptions...)...),
		Converter: streamable.NewConverter(
			append([]streamable.ConverterOption{
				streamable.WithIgnore(ItemsKey),
				streamable.WithTreatObj(treatObj),
			}, spec.ConverterOptions...)...),
		New: func() streamable.Object {
			return &List{cls: c, name: spec.Name, accepted: accepted.Clone()}
		},
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// MustRegister 同 Register，出错时 panic。
func MustRegister(r *streamable.Registry, spec Spec) *streamable.Class {
	c, err := Register(r, spec)
	if err != nil {
		panic(err)
	}
	return c
}

type itemList interface {
	Items() []any
	Append(values ...any) error
}

type acceptor interface {
	Accepts(v any) bool
	AcceptedTypes() []reflect.Type
}

func treatDict(_ *streamable.Streamer, obj streamable.Object, raw streamable.RawDict) (streamable.RawDict, error) {
	l, ok := obj.(itemList)
	if !ok {
		return nil, merr.WrapErrParameterInvalidMsg("%T does not hold items", obj)
	}
	items := l.Items()
	out := make([]any, len(items))
	for i, item := range items {
		streamed, err := streamable.StreamValue(item)
		if err != nil {
			return nil, err
		}
		out[i] = streamed
	}
	raw[ItemsKey] = out
	return raw, nil
}

func treatObj(c *streamable.Converter, obj streamable.Object, raw streamable.RawDict) (streamable.Object, error) {
	l, ok := obj.(itemList)
	if !ok {
		return nil, merr.WrapErrParameterInvalidMsg("%T does not hold items", obj)
	}
	value, ok := raw[ItemsKey]
	if !ok || value == nil {
		return obj, nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, merr.WrapErrRawDictInvalid(ItemsKey + " must be a list")
	}
	acc, _ := obj.(acceptor)
	items := make([]any, rv.Len())
	for i := range items {
		item, err := c.Retrieve(rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		if acc != nil && !acc.Accepts(item) {
			item = coerceNumber(item, acc.AcceptedTypes())
		}
		items[i] = item
	}
	if err := l.Append(items...); err != nil {
		return nil, err
	}
	return obj, nil
}
