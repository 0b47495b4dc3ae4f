// Package enumutil 提供整数枚举与字符串之间的相互转换。
package enumutil

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/lk2023060901/ringercore-go/pkg/util/merr"
)

// Option 配置 Enum。
type Option[T ~int] func(*Enum[T])

// WithIgnoreCase 解析时忽略大小写，并把 '-' 视为 '_'。
func WithIgnoreCase[T ~int]() Option[T] {
	return func(e *Enum[T]) {
		e.ignoreCase = true
	}
}

// WithAliases 为枚举值增加解析用的别名，别名不会出现在 String 的结果中。
func WithAliases[T ~int](aliases map[string]T) Option[T] {
	return func(e *Enum[T]) {
		for name, v := range aliases {
			e.aliases[name] = v
		}
	}
}

// Enum 是一张枚举值到名字的对照表。
type Enum[T ~int] struct {
	name       string
	ignoreCase bool
	names      map[T]string
	aliases    map[string]T
}

func New[T ~int](name string, names map[T]string, opts ...Option[T]) *Enum[T] {
	e := &Enum[T]{
		name:    name,
		names:   maps.Clone(names),
		aliases: make(map[string]T),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name 返回枚举本身的名字。
func (e *Enum[T]) Name() string {
	return e.name
}

// String 返回 v 的名字，未定义的值返回 false。
func (e *Enum[T]) String(v T) (string, bool) {
	s, ok := e.names[v]
	return s, ok
}

// MustString 同 String，未定义的值返回其十进制表示。
func (e *Enum[T]) MustString(v T) string {
	if s, ok := e.names[v]; ok {
		return s
	}
	return strconv.Itoa(int(v))
}

func (e *Enum[T]) normalize(s string) string {
	if !e.ignoreCase {
		return s
	}
	return strings.ToUpper(strings.ReplaceAll(s, "-", "_"))
}

// Parse 由名字（或别名）得到枚举值。
func (e *Enum[T]) Parse(s string) (T, error) {
	target := e.normalize(s)
	for v, name := range e.names {
		if e.normalize(name) == target {
			return v, nil
		}
	}
	for alias, v := range e.aliases {
		if e.normalize(alias) == target {
			return v, nil
		}
	}
	return 0, merr.WrapErrParameterInvalidMsg("%s is not in enumeration %s, use one of %v", s, e.name, e.Names())
}

// Retrieve 接受枚举值、整数、整数字符串、名字或 fmt.Stringer，并校验其为合法值。
func (e *Enum[T]) Retrieve(v any) (T, error) {
	switch val := v.(type) {
	case T:
		return e.check(val)
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return e.check(T(i))
		}
		return e.Parse(val)
	case fmt.Stringer:
		return e.Parse(val.String())
	}
	var i int
	if err := mapstructure.Decode(v, &i); err != nil {
		return 0, merr.WrapErrParameterInvalidMsg("cannot retrieve %s from %T", e.name, v)
	}
	return e.check(T(i))
}

func (e *Enum[T]) check(v T) (T, error) {
	if _, ok := e.names[v]; !ok {
		return 0, merr.WrapErrParameterInvalidMsg("%d is not a value of enumeration %s, use one of %v", int(v), e.name, e.Names())
	}
	return v, nil
}

// Values 按升序返回全部枚举值。
func (e *Enum[T]) Values() []T {
	return slices.Sorted(maps.Keys(e.names))
}

// Names 按值升序返回全部名字。
func (e *Enum[T]) Names() []string {
	values := e.Values()
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = e.names[v]
	}
	return out
}
