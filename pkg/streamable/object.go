package streamable

import "reflect"

// Object 是可流化对象需要实现的接口，Class 返回对象所属的已注册类。
// 嵌入父类结构体的子类型必须自行实现 Class，否则会沿用父类的描述符。
type Object interface {
	Class() *Class
}

// AttrGetter 允许类型自行提供待流化的属性集合，替代默认的结构体字段遍历。
type AttrGetter interface {
	GetAttrs() (map[string]any, error)
}

// AttrSetter 允许类型自行处理反序列化时的属性写入。
type AttrSetter interface {
	SetAttr(name string, value any) error
}

// Marshaler 由需要完全接管序列化的类型实现。
type Marshaler interface {
	ToRawDict() (RawDict, error)
}

// Unmarshaler 由需要完全接管反序列化的类型实现。
type Unmarshaler interface {
	FromRawDict(raw RawDict) error
}

// VersionRecorder 接收反序列化时读到的版本信息。
type VersionRecorder interface {
	RecordReadVersions(versions VersionMap, own int)
}

var _ VersionRecorder = (*Base)(nil)

// Base 可嵌入到可流化结构体中，记录最近一次反序列化读到的版本。
// Base 按值复制，与所在对象的其他字段一样不做并发保护。
type Base struct {
	readVersions VersionMap
	readVersion  int
}

func (b *Base) RecordReadVersions(versions VersionMap, own int) {
	b.readVersions = versions.Clone()
	b.readVersion = own
}

// ReadVersions 返回读到的按类版本表，对象不是由反序列化得到时返回 nil。
func (b *Base) ReadVersions() VersionMap {
	return b.readVersions.Clone()
}

// ReadVersion 返回对象自身类读到的版本。
func (b *Base) ReadVersion() (int, bool) {
	return b.readVersion, b.readVersions != nil
}

var objectType = reflect.TypeOf((*Object)(nil)).Elem()

func isNilObject(obj Object) bool {
	if obj == nil {
		return true
	}
	v := reflect.ValueOf(obj)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func:
		return v.IsNil()
	}
	return false
}

// isStreamableObject 判断 v 是否为带有流化能力的非空对象。
func isStreamableObject(v any) (Object, bool) {
	obj, ok := v.(Object)
	if !ok || isNilObject(obj) {
		return nil, false
	}
	c := obj.Class()
	return obj, c != nil && c.streamable
}
