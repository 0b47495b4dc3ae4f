// Package configure 提供惰性配置的取值容器。
//
// Holder 在首次读取时若尚未设置则调用自动配置函数，默认只允许设置一次；
// 经 Register 注册后可以像其他可流化对象一样写入 raw dict 并随文件持久化。
package configure

import (
	"cmp"
	"fmt"
	"sync"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/lk2023060901/ringercore-go/pkg/log"
	"github.com/lk2023060901/ringercore-go/pkg/streamable"
	"github.com/lk2023060901/ringercore-go/pkg/util/enumutil"
	"github.com/lk2023060901/ringercore-go/pkg/util/merr"
)

// NotSetStr 是未设置的 Holder 的字符串形式。
const NotSetStr = "<+NotSet+>"

// raw dict 中的属性名
const (
	AttrName   = "Name"
	AttrChoice = "Choice"
)

var (
	_ streamable.Object     = (*Holder[int])(nil)
	_ streamable.AttrGetter = (*Holder[int])(nil)
	_ streamable.AttrSetter = (*Holder[int])(nil)
)

// Holder 保存一个配置项的取值。
type Holder[T comparable] struct {
	log.Binder

	cls  *streamable.Class
	name string

	mu         sync.Mutex
	autoMu     sync.Mutex
	choice     T
	configured bool

	allowReconfigure bool
	retrieve         func(v any) (T, error)
	format           func(v T) string
	test             func(v T) error
	auto             func() (any, error)
	onSet            []func(v T)
}

// Option 调整 Holder 的行为。
type Option[T comparable] func(*Holder[T])

// WithAllowReconfigure 允许以不同的值重复设置。
func WithAllowReconfigure[T comparable]() Option[T] {
	return func(h *Holder[T]) {
		h.allowReconfigure = true
	}
}

// WithAuto 设置自动配置函数，未设置的 Holder 被读取时调用，返回值经 Set 写入。
func WithAuto[T comparable](fn func() (any, error)) Option[T] {
	return func(h *Holder[T]) {
		h.auto = fn
	}
}

// WithRetrieve 替换将输入转换为 T 的函数。
func WithRetrieve[T comparable](fn func(v any) (T, error)) Option[T] {
	return func(h *Holder[T]) {
		h.retrieve = fn
	}
}

// WithTest 设置取值校验，校验失败时 Set 返回错误且不修改当前值。
func WithTest[T comparable](fn func(v T) error) Option[T] {
	return func(h *Holder[T]) {
		h.test = fn
	}
}

// WithFormat 设置 String 及流化时使用的字符串形式。
func WithFormat[T comparable](fn func(v T) string) Option[T] {
	return func(h *Holder[T]) {
		h.format = fn
	}
}

// WithOnSet 追加每次成功设置后的回调。
func WithOnSet[T comparable](fn func(v T)) Option[T] {
	return func(h *Holder[T]) {
		h.onSet = append(h.onSet, fn)
	}
}

// New 创建一个未设置的 Holder。
func New[T comparable](name string, opts ...Option[T]) *Holder[T] {
	h := &Holder[T]{
		name:     name,
		retrieve: decode[T],
	}
	for _, opt := range opts {
		opt(h)
	}
	h.Bind(log.FieldComponent("configure"), zap.String("name", name))
	return h
}

// NewEnum 创建取值为枚举的 Holder，接受枚举值、整数、名字或别名，字符串形式为枚举名。
func NewEnum[T ~int](name string, enum *enumutil.Enum[T], opts ...Option[T]) *Holder[T] {
	base := []Option[T]{
		WithRetrieve(enum.Retrieve),
		WithFormat(enum.MustString),
	}
	return New(name, append(base, opts...)...)
}

func decode[T comparable](v any) (T, error) {
	if val, ok := v.(T); ok {
		return val, nil
	}
	var out T
	if err := mapstructure.Decode(v, &out); err != nil {
		return out, merr.WrapErrParameterInvalidMsg("cannot retrieve %T from %T: %s", out, v, err.Error())
	}
	return out, nil
}

func (h *Holder[T]) Class() *streamable.Class {
	return h.cls
}

func (h *Holder[T]) Name() string {
	return h.name
}

// Configured 判断是否已设置。
func (h *Holder[T]) Configured() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.configured
}

// Set 将 v 转换为 T 后写入。v 为 nil 时不做任何修改。
// 不允许重复配置的 Holder 只能以相同的值再次设置。
func (h *Holder[T]) Set(v any) error {
	if v == nil {
		h.Logger().Debug("set called with empty value")
		return nil
	}
	value, err := h.retrieve(v)
	if err != nil {
		return err
	}

	h.mu.Lock()
	if h.configured && !h.allowReconfigure && h.choice != value {
		h.mu.Unlock()
		return merr.WrapErrParameterInvalidMsg("%s is already configured as %s", h.name, h.formatLocked())
	}
	if h.test != nil {
		if err := h.test(value); err != nil {
			h.mu.Unlock()
			return merr.WrapErrParameterInvalidMsg("%s test failed for %v: %s", h.name, v, err.Error())
		}
	}
	h.choice = value
	h.configured = true
	str := h.formatLocked()
	h.mu.Unlock()

	for _, fn := range h.onSet {
		fn(value)
	}
	h.Logger().Info("configuration set", zap.String("value", str))
	return nil
}

// Get 返回当前取值，未设置时先自动配置。
func (h *Holder[T]) Get() (T, error) {
	h.mu.Lock()
	if h.configured {
		defer h.mu.Unlock()
		return h.choice, nil
	}
	h.mu.Unlock()

	if err := h.autoConfigure(); err != nil {
		var zero T
		return zero, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.choice, nil
}

// MustGet 同 Get，出错时 panic。
func (h *Holder[T]) MustGet() T {
	v, err := h.Get()
	if err != nil {
		panic(err)
	}
	return v
}

func (h *Holder[T]) autoConfigure() error {
	h.autoMu.Lock()
	defer h.autoMu.Unlock()
	if h.Configured() {
		return nil
	}
	if h.auto == nil {
		return merr.WrapErrParameterMissing(h.name, "not configured and cannot auto-configure")
	}
	v, err := h.auto()
	if err != nil {
		return err
	}
	if v == nil {
		return merr.WrapErrParameterMissing(h.name, "auto-configuration returned no value")
	}
	return h.Set(v)
}

// Equal 判断当前取值是否等于 v，v 按 Set 的规则转换。
func (h *Holder[T]) Equal(v any) bool {
	want, err := h.retrieve(v)
	if err != nil {
		return false
	}
	got, err := h.Get()
	return err == nil && got == want
}

func (h *Holder[T]) String() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.formatLocked()
}

func (h *Holder[T]) formatLocked() string {
	if !h.configured {
		return NotSetStr
	}
	if h.format != nil {
		return h.format(h.choice)
	}
	return fmt.Sprint(h.choice)
}

// Compare 比较 h 的取值与 v，返回 -1、0 或 1。
func Compare[T cmp.Ordered](h *Holder[T], v any) (int, error) {
	want, err := h.retrieve(v)
	if err != nil {
		return 0, err
	}
	got, err := h.Get()
	if err != nil {
		return 0, err
	}
	return cmp.Compare(got, want), nil
}

// GetAttrs 流化名字与取值，带格式的取值写入其字符串形式，未设置时取值为 nil。
func (h *Holder[T]) GetAttrs() (map[string]any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var choice any
	if h.configured {
		if h.format != nil {
			choice = h.format(h.choice)
		} else {
			choice = h.choice
		}
	}
	return map[string]any{AttrName: h.name, AttrChoice: choice}, nil
}

func (h *Holder[T]) SetAttr(name string, value any) error {
	switch name {
	case AttrName:
		s, ok := value.(string)
		if !ok {
			return merr.WrapErrAttributeInvalid(h.qualifiedName(), name, merr.WrapErrParameterInvalidMsg("name must be a string, got %T", value))
		}
		if s != h.name {
			h.Logger().Warn("loaded configuration under another name", zap.String("loaded", s))
		}
		return nil
	case AttrChoice:
		if err := h.Set(value); err != nil {
			return merr.WrapErrAttributeInvalid(h.qualifiedName(), name, err)
		}
		return nil
	}
	return merr.WrapErrAttributeInvalid(h.qualifiedName(), name, merr.WrapErrParameterInvalidMsg("unknown attribute"))
}

func (h *Holder[T]) qualifiedName() string {
	if h.cls != nil {
		return h.cls.QualifiedName()
	}
	return h.name
}
