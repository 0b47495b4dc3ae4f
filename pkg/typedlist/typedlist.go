// Package typedlist 提供只接受指定类型元素、并可流化的有序列表。
package typedlist

import (
	"reflect"
	"slices"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/samber/lo"

	"github.com/lk2023060901/ringercore-go/pkg/streamable"
	"github.com/lk2023060901/ringercore-go/pkg/util/merr"
)

// ItemsKey 是元素在 raw dict 中的键。
const ItemsKey = "items"

var _ streamable.Object = (*List)(nil)

// List 是只接受 accepted 中类型（或实现了其中接口类型）的值的有序列表。
type List struct {
	streamable.Base

	cls      *streamable.Class
	name     string
	accepted mapset.Set[reflect.Type]
	items    []any
}

// New 创建一个未注册的列表，不具备流化能力。
func New(name string, accepted ...reflect.Type) (*List, error) {
	if len(accepted) == 0 {
		return nil, merr.WrapErrParameterMissing("accepted types", "list "+name)
	}
	return &List{
		name:     name,
		accepted: mapset.NewSet(accepted...),
	}, nil
}

// Make 创建 c 的一个实例并追加 items，c 必须由 Register 注册。
func Make(c *streamable.Class, items ...any) (*List, error) {
	obj, err := c.New()
	if err != nil {
		return nil, err
	}
	l, ok := obj.(*List)
	if !ok {
		return nil, merr.WrapErrParameterInvalidMsg("%s is not a typed list class", c.QualifiedName())
	}
	if err := l.Append(items...); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *List) Class() *streamable.Class {
	return l.cls
}

// Name 返回列表的名字，已注册的列表为类名。
func (l *List) Name() string {
	return l.name
}

// AcceptedTypes 按类型名排序返回可接受的类型。
func (l *List) AcceptedTypes() []reflect.Type {
	types := l.accepted.ToSlice()
	sort.Slice(types, func(i, j int) bool { return types[i].String() < types[j].String() })
	return types
}

// Accepts 判断 v 能否放入列表。
func (l *List) Accepts(v any) bool {
	t := reflect.TypeOf(v)
	if t == nil {
		return false
	}
	if l.accepted.Contains(t) {
		return true
	}
	found := false
	l.accepted.Each(func(accepted reflect.Type) bool {
		if accepted.Kind() == reflect.Interface && t.Implements(accepted) {
			found = true
			return true
		}
		return false
	})
	return found
}

func (l *List) check(values ...any) error {
	for _, v := range values {
		if !l.Accepts(v) {
			return merr.WrapErrNotAllowedType(l.name, v, lo.Map(l.AcceptedTypes(), func(t reflect.Type, _ int) string { return t.String() }))
		}
	}
	return nil
}

// Append 追加元素，任一元素类型不符时不做任何修改。
func (l *List) Append(values ...any) error {
	if err := l.check(values...); err != nil {
		return err
	}
	l.items = append(l.items, values...)
	return nil
}

// Extend 追加 values 中的所有元素。
func (l *List) Extend(values []any) error {
	return l.Append(values...)
}

// Set 替换下标 i 处的元素。
func (l *List) Set(i int, v any) error {
	if i < 0 || i >= len(l.items) {
		return merr.WrapErrIndexOutOfRange(i, len(l.items))
	}
	if err := l.check(v); err != nil {
		return err
	}
	l.items[i] = v
	return nil
}

func (l *List) Get(i int) (any, error) {
	if i < 0 || i >= len(l.items) {
		return nil, merr.WrapErrIndexOutOfRange(i, len(l.items))
	}
	return l.items[i], nil
}

func (l *List) Len() int {
	return len(l.items)
}

// Items 返回元素的副本。
func (l *List) Items() []any {
	return slices.Clone(l.items)
}

// Each 依次访问元素，fn 返回 false 时停止。
func (l *List) Each(fn func(i int, v any) bool) {
	for i, v := range l.items {
		if !fn(i, v) {
			return
		}
	}
}

// Concat 返回一个同类列表，依次包含 l 与 other 的元素。
func (l *List) Concat(other *List) (*List, error) {
	out := &List{
		cls:      l.cls,
		name:     l.name,
		accepted: l.accepted.Clone(),
		items:    slices.Clone(l.items),
	}
	if other == nil {
		return out, nil
	}
	if err := out.Append(other.items...); err != nil {
		return nil, err
	}
	return out, nil
}
