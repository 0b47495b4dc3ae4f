package configure

import (
	"github.com/lk2023060901/ringercore-go/pkg/streamable"
	"github.com/lk2023060901/ringercore-go/pkg/util/merr"
)

// Spec 描述一个可流化的配置类，类名取 New 创建的 Holder 的名字。
type Spec[T comparable] struct {
	Module  string
	Version *int
	// New 创建一个未设置的 Holder，反序列化与 Make 都通过它创建实例。
	New func() *Holder[T]
}

// Register 在 r 中注册配置类。r 为 nil 时使用默认注册表。
func Register[T comparable](r *streamable.Registry, spec Spec[T]) (*streamable.Class, error) {
	if spec.New == nil {
		return nil, merr.WrapErrParameterMissing("new", "configure class in "+spec.Module)
	}
	if r == nil {
		r = streamable.DefaultRegistry()
	}
	var c *streamable.Class
	c, err := r.Register(streamable.ClassSpec{
		Name:    spec.New().Name(),
		Module:  spec.Module,
		Version: spec.Version,
		New: func() streamable.Object {
			h := spec.New()
			h.cls = c
			return h
		},
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// MustRegister 同 Register，出错时 panic。
func MustRegister[T comparable](r *streamable.Registry, spec Spec[T]) *streamable.Class {
	c, err := Register(r, spec)
	if err != nil {
		panic(err)
	}
	return c
}

// Make 创建 c 的一个未设置实例，c 必须由 Register 以同样的 T 注册。
func Make[T comparable](c *streamable.Class) (*Holder[T], error) {
	obj, err := c.New()
	if err != nil {
		return nil, err
	}
	h, ok := obj.(*Holder[T])
	if !ok {
		return nil, merr.WrapErrParameterInvalidMsg("%s is not a configure class of %T", c.QualifiedName(), *new(T))
	}
	return h, nil
}

// MustMake 同 Make，出错时 panic。
func MustMake[T comparable](c *streamable.Class) *Holder[T] {
	h, err := Make[T](c)
	if err != nil {
		panic(err)
	}
	return h
}
