package streamable

import (
	"maps"
	"reflect"
	"slices"

	"go.uber.org/zap"

	"github.com/lk2023060901/ringercore-go/pkg/log"
	"github.com/lk2023060901/ringercore-go/pkg/metrics"
	"github.com/lk2023060901/ringercore-go/pkg/util/merr"
	"github.com/lk2023060901/ringercore-go/pkg/util/typeutil"
)

// StreamPreCallFunc 在读取属性之前调用，可用于准备对象状态。
type StreamPreCallFunc func(obj Object) error

// TreatDictFunc 在 raw dict 组装完成后调用，返回值作为最终结果。
type TreatDictFunc func(s *Streamer, obj Object, raw RawDict) (RawDict, error)

// StreamerOption 配置 Streamer。
type StreamerOption func(*Streamer)

// WithTransient 声明不参与流化的属性。
func WithTransient(attrs ...string) StreamerOption {
	return func(s *Streamer) {
		s.transient.Insert(attrs...)
	}
}

// WithToPublic 将逻辑属性 attr 以 key 的名字写入 raw dict。
func WithToPublic(attr, key string) StreamerOption {
	return func(s *Streamer) {
		s.toPublic[attr] = key
	}
}

func WithStreamPreCall(fn StreamPreCallFunc) StreamerOption {
	return func(s *Streamer) {
		s.preCall = fn
	}
}

func WithTreatDict(fn TreatDictFunc) StreamerOption {
	return func(s *Streamer) {
		s.treatDict = fn
	}
}

// Streamer 将对象转换为 raw dict。每个已注册类持有自己的 Streamer 实例。
type Streamer struct {
	log.Binder

	transient typeutil.Set[string]
	toPublic  map[string]string
	preCall   StreamPreCallFunc
	treatDict TreatDictFunc
	owner     *Class
}

func NewStreamer(opts ...StreamerOption) *Streamer {
	s := &Streamer{
		transient: typeutil.NewSet[string](),
		toPublic:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Clone 返回一个未绑定类的副本。
func (s *Streamer) Clone() *Streamer {
	return &Streamer{
		transient: s.transient.Clone(),
		toPublic:  maps.Clone(s.toPublic),
		preCall:   s.preCall,
		treatDict: s.treatDict,
	}
}

// Extend 在副本上追加配置，常用于子类在父类 Streamer 的基础上扩展。
func (s *Streamer) Extend(opts ...StreamerOption) *Streamer {
	out := s.Clone()
	for _, opt := range opts {
		opt(out)
	}
	return out
}

// Transient 返回排序后的非流化属性。
func (s *Streamer) Transient() []string {
	return typeutil.Sorted(s.transient)
}

func (s *Streamer) ToPublic() map[string]string {
	return maps.Clone(s.toPublic)
}

// Owner 返回绑定的类，未注册时为 nil。
func (s *Streamer) Owner() *Class {
	return s.owner
}

func (s *Streamer) bind(c *Class) {
	s.owner = c
	s.Bind(log.FieldComponent("streamer"), log.FieldClass(c.QualifiedName()))
}

// Stream 按以下顺序生成 raw dict：
// 前置钩子，读取属性并剔除非流化属性，公开键改名，嵌套对象递归流化，
// 写入类名、模块名与版本表，最后调用 TreatDict 钩子。
func (s *Streamer) Stream(obj Object) (RawDict, error) {
	if isNilObject(obj) {
		return nil, merr.WrapErrParameterMissing("object")
	}
	c := obj.Class()
	if c == nil || !c.streamable {
		return nil, merr.WrapErrClassNotStreamable(reflect.TypeOf(obj).String())
	}
	qualified := c.QualifiedName()

	if s.preCall != nil {
		if err := s.preCall(obj); err != nil {
			return nil, err
		}
	}

	attrs, err := getAttrs(obj)
	if err != nil {
		return nil, err
	}
	raw := make(RawDict, len(attrs)+3)
	for name, value := range attrs {
		if s.transient.Contain(name) {
			continue
		}
		raw[name] = value
	}

	for _, attr := range slices.Sorted(maps.Keys(s.toPublic)) {
		value, ok := raw[attr]
		if !ok {
			s.Logger().Error("cannot transform to public key attribute",
				log.FieldAttr(attr), zap.String("publicKey", s.toPublic[attr]), log.FieldClass(qualified))
			return nil, merr.WrapErrAttributeNotFound(qualified, attr, "to public key "+s.toPublic[attr])
		}
		delete(raw, attr)
		raw[s.toPublic[attr]] = value
	}

	for name, value := range raw {
		if IsReservedKey(name) {
			return nil, merr.WrapErrReservedAttribute(qualified, name)
		}
		streamed, err := StreamValue(value)
		if err != nil {
			return nil, err
		}
		raw[name] = streamed
	}

	raw[KeyClass] = c.name
	raw[KeyModule] = c.module
	raw[KeyVersionedClasses] = c.Versions()

	if s.treatDict != nil {
		raw, err = s.treatDict(s, obj, raw)
		if err != nil {
			return nil, err
		}
	}
	metrics.ObjectsTotal.WithLabelValues(qualified, metrics.StreamOpLabel, metrics.SuccessLabel).Inc()
	return raw, nil
}

// StreamValue 递归流化嵌套对象，包括切片、数组与字符串键 map 中的对象。
// 不可能包含对象的值原样返回。
func StreamValue(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	if obj, ok := isStreamableObject(value); ok {
		return Serialize(obj)
	}

	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		if (v.Kind() == reflect.Slice && v.IsNil()) || !mayHoldObjects(v.Type().Elem()) {
			return value, nil
		}
		out := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			streamed, err := StreamValue(v.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out[i] = streamed
		}
		return out, nil
	case reflect.Map:
		if v.IsNil() || v.Type().Key().Kind() != reflect.String || !mayHoldObjects(v.Type().Elem()) {
			return value, nil
		}
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			streamed, err := StreamValue(iter.Value().Interface())
			if err != nil {
				return nil, err
			}
			out[iter.Key().String()] = streamed
		}
		if _, ok := value.(RawDict); ok {
			return RawDict(out), nil
		}
		return out, nil
	}
	return value, nil
}

func mayHoldObjects(t reflect.Type) bool {
	switch {
	case t.Kind() == reflect.Interface, t.Implements(objectType):
		return true
	case t.Kind() == reflect.Slice, t.Kind() == reflect.Array, t.Kind() == reflect.Map:
		return mayHoldObjects(t.Elem())
	}
	return false
}
