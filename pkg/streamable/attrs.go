package streamable

import (
	"reflect"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"

	"github.com/lk2023060901/ringercore-go/pkg/util/merr"
)

// TagName 是结构体字段上声明属性名的 tag，取值 "-" 表示不参与流化。
const TagName = "rawdict"

type fieldInfo struct {
	name  string
	index []int
	typ   reflect.Type
}

var fieldCache sync.Map // map[reflect.Type][]fieldInfo

// structFields 返回结构体类型的可流化字段，嵌入结构体的字段按 Go 的提升规则展开，
// 外层字段遮蔽同名的内层字段。
func structFields(t reflect.Type) []fieldInfo {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.([]fieldInfo)
	}
	seen := make(map[string]struct{})
	fields := collectFields(t, nil, seen)
	actual, _ := fieldCache.LoadOrStore(t, fields)
	return actual.([]fieldInfo)
}

func collectFields(t reflect.Type, prefix []int, seen map[string]struct{}) []fieldInfo {
	var (
		fields   []fieldInfo
		embedded []reflect.StructField
	)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get(TagName)
		if tag == "-" {
			continue
		}
		if f.Anonymous && f.Type.Kind() == reflect.Struct && tag == "" {
			embedded = append(embedded, f)
			continue
		}
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag != "" {
			name = strings.Split(tag, ",")[0]
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		fields = append(fields, fieldInfo{
			name:  name,
			index: append(append([]int{}, prefix...), i),
			typ:   f.Type,
		})
	}
	for _, f := range embedded {
		index := append(append([]int{}, prefix...), f.Index...)
		fields = append(fields, collectFields(f.Type, index, seen)...)
	}
	return fields
}

func structValue(obj Object) (reflect.Value, bool) {
	v := reflect.ValueOf(obj)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	return v, v.Kind() == reflect.Struct
}

// getAttrs 返回对象的全部属性。
func getAttrs(obj Object) (map[string]any, error) {
	if getter, ok := obj.(AttrGetter); ok {
		attrs, err := getter.GetAttrs()
		if err != nil {
			return nil, err
		}
		return lo.Assign(attrs), nil
	}
	v, ok := structValue(obj)
	if !ok {
		return nil, merr.WrapErrParameterInvalidMsg("%T is neither a struct nor an AttrGetter", obj)
	}
	fields := structFields(v.Type())
	attrs := make(map[string]any, len(fields))
	for _, f := range fields {
		attrs[f.name] = v.FieldByIndex(f.index).Interface()
	}
	return attrs, nil
}

var errUnknownAttr = errors.New("unknown attribute")

// setAttr 将 value 写入对象的 name 属性，类型不完全匹配时按字段类型转换。
func setAttr(obj Object, name string, value any) error {
	if setter, ok := obj.(AttrSetter); ok {
		return setter.SetAttr(name, value)
	}
	v, ok := structValue(obj)
	if !ok || !v.CanAddr() {
		return merr.WrapErrParameterInvalidMsg("%T must be a pointer to struct or an AttrSetter", obj)
	}
	f, ok := lo.Find(structFields(v.Type()), func(f fieldInfo) bool { return f.name == name })
	if !ok {
		return errUnknownAttr
	}
	if err := assign(v.FieldByIndex(f.index), value); err != nil {
		return merr.WrapErrAttributeInvalid(obj.Class().QualifiedName(), name, err)
	}
	return nil
}

// assign 将任意解码得到的值写入 dst。
// 可直接赋值时直接写入；切片与字符串键 map 逐元素转换；其余交给 mapstructure 做弱类型转换。
func assign(dst reflect.Value, value any) error {
	if value == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	src := reflect.ValueOf(value)
	if src.Type().AssignableTo(dst.Type()) {
		dst.Set(src)
		return nil
	}

	switch dst.Kind() {
	case reflect.Pointer:
		elem := reflect.New(dst.Type().Elem())
		if err := assign(elem.Elem(), value); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	case reflect.Slice:
		if src.Kind() == reflect.Slice || src.Kind() == reflect.Array {
			out := reflect.MakeSlice(dst.Type(), src.Len(), src.Len())
			for i := 0; i < src.Len(); i++ {
				if err := assign(out.Index(i), src.Index(i).Interface()); err != nil {
					return errors.Wrapf(err, "index %d", i)
				}
			}
			dst.Set(out)
			return nil
		}
	case reflect.Map:
		if src.Kind() == reflect.Map && dst.Type().Key().Kind() == reflect.String && src.Type().Key().Kind() == reflect.String {
			out := reflect.MakeMapWithSize(dst.Type(), src.Len())
			iter := src.MapRange()
			for iter.Next() {
				elem := reflect.New(dst.Type().Elem()).Elem()
				if err := assign(elem, iter.Value().Interface()); err != nil {
					return errors.Wrapf(err, "key %s", iter.Key().String())
				}
				out.SetMapIndex(reflect.ValueOf(iter.Key().String()).Convert(dst.Type().Key()), elem)
			}
			dst.Set(out)
			return nil
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           dst.Addr().Interface(),
		TagName:          TagName,
		WeaklyTypedInput: false,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(value)
}
