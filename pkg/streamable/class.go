package streamable

import (
	"slices"

	"github.com/lk2023060901/ringercore-go/pkg/util/merr"
)

// DefaultVersion 是未声明版本的可流化类所使用的版本号。
const DefaultVersion = 1

// ClassSpec 描述一个待注册的可流化类。
type ClassSpec struct {
	// Name 为类名，Module 为类所在的模块，二者组成类限定名。
	Name   string
	Module string
	// Bases 为直接基类，顺序参与 C3 线性化。
	Bases []*Class
	// Version 为 nil 时使用 DefaultVersion。
	Version *int
	// Streamer 与 Converter 为 nil 时沿 MRO 继承最近祖先的实例副本。
	Streamer  *Streamer
	Converter *Converter
	// New 创建一个零值实例，反序列化时先创建实例再写入属性。
	New func() Object
}

// Version 返回指向 v 的指针，便于填写 ClassSpec.Version。
func Version(v int) *int {
	return &v
}

// Class 是已注册类的描述符，注册完成后只读。
type Class struct {
	name   string
	module string
	bases  []*Class
	// mro 以自身开头。
	mro []*Class

	streamable bool
	version    int
	versions   VersionMap
	versioned  []*Class

	streamer  *Streamer
	converter *Converter
	newFn     func() Object
	registry  *Registry
}

// NewPlainClass 创建一个不具备流化能力的层级节点，用于描述普通基类或混入类。
// 普通类不声明版本，也不会出现在子类的版本表中。
func NewPlainClass(name, module string, bases ...*Class) (*Class, error) {
	if name == "" {
		return nil, merr.WrapErrParameterMissing("name")
	}
	c := &Class{name: name, module: module, bases: slices.Clone(bases)}
	ancestors, err := Linearize(c.QualifiedName(), bases...)
	if err != nil {
		return nil, err
	}
	c.mro = append([]*Class{c}, ancestors...)
	return c, nil
}

// MustNewPlainClass 同 NewPlainClass，出错时 panic。
func MustNewPlainClass(name, module string, bases ...*Class) *Class {
	c, err := NewPlainClass(name, module, bases...)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Class) Name() string {
	return c.name
}

func (c *Class) Module() string {
	return c.module
}

// QualifiedName 返回 module.Name。
func (c *Class) QualifiedName() string {
	return QualifiedName(c.module, c.name)
}

func (c *Class) String() string {
	return c.QualifiedName()
}

func (c *Class) Bases() []*Class {
	return slices.Clone(c.bases)
}

// MRO 返回以自身开头的方法解析顺序。
func (c *Class) MRO() []*Class {
	return slices.Clone(c.mro)
}

// Streamable 表示该类是否经由注册获得了流化能力。
func (c *Class) Streamable() bool {
	return c.streamable
}

func (c *Class) Version() int {
	return c.version
}

// Versions 返回自身及所有可流化祖先的版本表副本。
func (c *Class) Versions() VersionMap {
	return c.versions.Clone()
}

// VersionedClasses 按 MRO 顺序返回参与版本化的类，第一个元素为自身。
func (c *Class) VersionedClasses() []*Class {
	return slices.Clone(c.versioned)
}

func (c *Class) Streamer() *Streamer {
	return c.streamer
}

func (c *Class) Converter() *Converter {
	return c.converter
}

// Registry 返回类所在的注册表，普通类返回 nil。
func (c *Class) Registry() *Registry {
	return c.registry
}

// IsSubclassOf 判断 base 是否出现在 c 的 MRO 中（包括自身）。
func (c *Class) IsSubclassOf(base *Class) bool {
	return slices.Contains(c.mro, base)
}

// New 创建一个该类的零值实例。
func (c *Class) New() (Object, error) {
	if !c.streamable || c.newFn == nil {
		return nil, merr.WrapErrClassNotStreamable(c.QualifiedName())
	}
	obj := c.newFn()
	if isNilObject(obj) {
		return nil, merr.WrapErrParameterInvalidMsg("factory of %s returned nil", c.QualifiedName())
	}
	return obj, nil
}

// LoadOption 调整 FromRawDict 的行为。
type LoadOption func(*loadOptions)

type loadOptions struct {
	workOnCopy    bool
	converterOpts []ConverterOption
}

// WithWorkOnCopy 在转换前深拷贝输入，保证调用方的 raw dict 不被钩子修改。
func WithWorkOnCopy() LoadOption {
	return func(o *loadOptions) {
		o.workOnCopy = true
	}
}

// WithConverterOptions 基于类的 Converter 派生一个临时 Converter 完成本次转换。
func WithConverterOptions(opts ...ConverterOption) LoadOption {
	return func(o *loadOptions) {
		o.converterOpts = append(o.converterOpts, opts...)
	}
}

// FromRawDict 创建一个实例并用 raw 填充。
func (c *Class) FromRawDict(raw RawDict, opts ...LoadOption) (Object, error) {
	options := &loadOptions{}
	for _, opt := range opts {
		opt(options)
	}

	obj, err := c.New()
	if err != nil {
		return nil, err
	}
	if options.workOnCopy {
		raw = raw.Clone()
	}
	if len(options.converterOpts) > 0 {
		return c.converter.derive(options.converterOpts...).Convert(obj, raw)
	}
	return Deserialize(obj, raw)
}
