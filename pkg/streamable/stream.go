package streamable

import (
	"reflect"

	"github.com/lk2023060901/ringercore-go/pkg/util/merr"
)

// Serialize 将对象转换为 raw dict。实现了 Marshaler 的类型由其自行处理。
func Serialize(obj Object) (RawDict, error) {
	if isNilObject(obj) {
		return nil, merr.WrapErrParameterMissing("object")
	}
	if m, ok := obj.(Marshaler); ok {
		return m.ToRawDict()
	}
	c := obj.Class()
	if c == nil || !c.streamable {
		return nil, merr.WrapErrClassNotStreamable(reflect.TypeOf(obj).String())
	}
	return c.streamer.Stream(obj)
}

// Deserialize 将 raw 写回 obj。实现了 Unmarshaler 的类型由其自行处理。
// 返回值可能是转换钩子替换后的对象。
func Deserialize(obj Object, raw RawDict) (Object, error) {
	if isNilObject(obj) {
		return nil, merr.WrapErrParameterMissing("object")
	}
	if u, ok := obj.(Unmarshaler); ok {
		if err := u.FromRawDict(raw); err != nil {
			return nil, err
		}
		return obj, nil
	}
	c := obj.Class()
	if c == nil || !c.streamable {
		return nil, merr.WrapErrClassNotStreamable(reflect.TypeOf(obj).String())
	}
	return c.converter.Convert(obj, raw)
}

// Load 由 raw 中记录的类在注册表 r 中创建对象，r 为 nil 时使用默认注册表。
func Load(r *Registry, raw RawDict, opts ...LoadOption) (Object, error) {
	if !IsRawDictFormat(raw) {
		return nil, merr.WrapErrRawDictInvalid("missing class, module or version keys")
	}
	if r == nil {
		r = defaultRegistry
	}
	c, err := r.Resolve(raw.Module(), raw.ClassName())
	if err != nil {
		return nil, err
	}
	return c.FromRawDict(raw, opts...)
}
