package streamable

import (
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/lk2023060901/ringercore-go/pkg/util/merr"
)

// raw dict 中的保留键。
const (
	KeyClass            = "class"
	KeyModule           = "__module"
	KeyVersionedClasses = "__versionedClasses"
	// KeyLegacyVersion 是按类版本化之前的单一版本号。
	KeyLegacyVersion = "__version"
)

var (
	baseAttrs   = []string{KeyClass, KeyVersionedClasses, KeyModule}
	baseAttrsV1 = []string{KeyClass, KeyLegacyVersion, KeyModule}
)

// RawDict 是对象序列化后的字符串键关联结构。
type RawDict map[string]any

// VersionMap 记录类限定名（module.Name）到版本号的映射。
type VersionMap map[string]int

// IsReservedKey 判断 key 是否为 raw dict 保留键。
func IsReservedKey(key string) bool {
	switch key {
	case KeyClass, KeyModule, KeyVersionedClasses, KeyLegacyVersion:
		return true
	}
	return false
}

// IsRawDictFormat 判断 v 是否为 raw dict 格式：
// 包含全部新版保留键，或包含全部旧版（单一版本号）保留键。
func IsRawDictFormat(v any) bool {
	d, ok := asRawDict(v)
	if !ok {
		return false
	}
	return d.hasAll(baseAttrs) || d.hasAll(baseAttrsV1)
}

// IsLegacyFormat 判断 raw dict 是否只携带旧版的单一版本号。
func IsLegacyFormat(v any) bool {
	d, ok := asRawDict(v)
	if !ok {
		return false
	}
	_, modern := d[KeyVersionedClasses]
	return !modern && d.hasAll(baseAttrsV1)
}

func asRawDict(v any) (RawDict, bool) {
	switch d := v.(type) {
	case RawDict:
		return d, d != nil
	case map[string]any:
		return RawDict(d), d != nil
	}
	return nil, false
}

func (d RawDict) hasAll(keys []string) bool {
	for _, key := range keys {
		if _, ok := d[key]; !ok {
			return false
		}
	}
	return true
}

// ClassName 返回 raw dict 记录的类名，缺失时返回空串。
func (d RawDict) ClassName() string {
	s, _ := d[KeyClass].(string)
	return s
}

// Module 返回 raw dict 记录的模块名，缺失时返回空串。
func (d RawDict) Module() string {
	s, _ := d[KeyModule].(string)
	return s
}

// QualifiedName 返回 module.Name 形式的类限定名。
func (d RawDict) QualifiedName() string {
	return QualifiedName(d.Module(), d.ClassName())
}

// VersionedClasses 返回 raw dict 中的按类版本表；旧格式返回 false。
func (d RawDict) VersionedClasses() (VersionMap, bool, error) {
	v, ok := d[KeyVersionedClasses]
	if !ok {
		return nil, false, nil
	}
	versions, err := toVersionMap(v)
	if err != nil {
		return nil, true, err
	}
	return versions, true, nil
}

// Attrs 返回去掉保留键之后的属性集合（浅拷贝）。
func (d RawDict) Attrs() map[string]any {
	out := make(map[string]any, len(d))
	for k, v := range d {
		if IsReservedKey(k) {
			continue
		}
		out[k] = v
	}
	return out
}

// Clone 深拷贝 raw dict。
func (d RawDict) Clone() RawDict {
	if d == nil {
		return nil
	}
	out := make(RawDict, len(d))
	for k, v := range d {
		out[k] = deepCopy(v)
	}
	return out
}

// Clone 返回版本表的拷贝。
func (m VersionMap) Clone() VersionMap {
	if m == nil {
		return nil
	}
	out := make(VersionMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// QualifiedName 拼接模块名与类名。
func QualifiedName(module, name string) string {
	if module == "" {
		return name
	}
	return module + "." + name
}

// SplitQualifiedName 按最后一个 '.' 拆分类限定名。
func SplitQualifiedName(qualified string) (module, name string) {
	idx := strings.LastIndex(qualified, ".")
	if idx < 0 {
		return "", qualified
	}
	return qualified[:idx], qualified[idx+1:]
}

func toVersionMap(v any) (VersionMap, error) {
	switch m := v.(type) {
	case VersionMap:
		return m.Clone(), nil
	case map[string]int:
		return VersionMap(m).Clone(), nil
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, merr.WrapErrRawDictInvalid("versioned classes must be a string keyed map")
	}
	out := make(VersionMap, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		version, err := toVersion(iter.Value().Interface())
		if err != nil {
			return nil, merr.WrapErrRawDictInvalid("bad version for " + iter.Key().String() + ": " + err.Error())
		}
		out[iter.Key().String()] = version
	}
	return out, nil
}

// toVersion 将解码得到的数字（int、float64、json.Number 等）转换为版本号。
func toVersion(v any) (int, error) {
	var version int
	if err := mapstructure.Decode(v, &version); err != nil {
		return 0, err
	}
	return version, nil
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case RawDict:
		return t.Clone()
	case map[string]any:
		return map[string]any(RawDict(t).Clone())
	case VersionMap:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = deepCopy(t[i])
		}
		return out
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return v
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		reflect.Copy(out, rv)
		return out.Interface()
	case reflect.Map:
		if rv.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), iter.Value())
		}
		return out.Interface()
	}
	return v
}
