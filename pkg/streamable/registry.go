package streamable

import (
	"reflect"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/lk2023060901/ringercore-go/pkg/log"
	"github.com/lk2023060901/ringercore-go/pkg/metrics"
	"github.com/lk2023060901/ringercore-go/pkg/util/merr"
	"github.com/lk2023060901/ringercore-go/pkg/util/typeutil"
)

var defaultRegistry = NewRegistry()

// DefaultRegistry 返回进程级默认注册表。
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register 在默认注册表中注册一个类。
func Register(spec ClassSpec) (*Class, error) {
	return defaultRegistry.Register(spec)
}

// MustRegister 在默认注册表中注册一个类，出错时 panic，适合包级变量初始化。
func MustRegister(spec ClassSpec) *Class {
	return defaultRegistry.MustRegister(spec)
}

// Registry 按类限定名保存已注册的类，用于反序列化时由 (module, class) 找回类。
type Registry struct {
	log.Binder

	mu      sync.RWMutex
	classes map[string]*Class
}

func NewRegistry() *Registry {
	r := &Registry{classes: make(map[string]*Class)}
	r.Bind(log.FieldComponent("registry"))
	return r
}

// MustRegister 同 Register，出错时 panic。
func (r *Registry) MustRegister(spec ClassSpec) *Class {
	c, err := r.Register(spec)
	if err != nil {
		panic(err)
	}
	return c
}

// Register 为 spec 描述的类赋予流化能力：
// 计算 MRO，解析并绑定 Streamer 与 Converter，合并可流化祖先的版本表。
func (r *Registry) Register(spec ClassSpec) (*Class, error) {
	if spec.Name == "" {
		return nil, merr.WrapErrParameterMissing("name")
	}
	if spec.New == nil {
		return nil, merr.WrapErrParameterMissing("new", "no factory for "+QualifiedName(spec.Module, spec.Name))
	}

	c := &Class{
		name:       spec.Name,
		module:     spec.Module,
		bases:      slices.Clone(spec.Bases),
		streamable: true,
		version:    DefaultVersion,
		newFn:      spec.New,
		registry:   r,
	}
	qualified := c.QualifiedName()
	logger := r.Logger().With(log.FieldClass(qualified))

	if spec.Version != nil {
		if *spec.Version < 0 {
			logger.Error("class version must be a non-negative integer", zap.Int("version", *spec.Version))
			return nil, merr.WrapErrInvalidVersion(qualified, *spec.Version)
		}
		c.version = *spec.Version
	}

	ancestors, err := Linearize(qualified, spec.Bases...)
	if err != nil {
		logger.Error("failed to linearize class hierarchy", zap.Error(err))
		return nil, err
	}
	c.mro = append([]*Class{c}, ancestors...)

	c.versions = VersionMap{qualified: c.version}
	c.versioned = []*Class{c}
	for _, ancestor := range ancestors {
		if !ancestor.streamable {
			continue
		}
		if _, ok := c.versions[ancestor.QualifiedName()]; ok {
			continue
		}
		c.versions[ancestor.QualifiedName()] = ancestor.version
		c.versioned = append(c.versioned, ancestor)
	}

	c.streamer = resolveStreamer(spec.Streamer, ancestors)
	c.converter = resolveConverter(spec.Converter, ancestors)
	if err := c.converter.err; err != nil {
		return nil, err
	}
	if err := checkReservedAttrs(c, spec.New()); err != nil {
		logger.Error("attribute collides with a reserved key", zap.Error(err))
		return nil, err
	}

	r.mu.Lock()
	if _, ok := r.classes[qualified]; ok {
		r.mu.Unlock()
		return nil, merr.WrapErrClassAlreadyRegistered(qualified)
	}
	r.classes[qualified] = c
	r.mu.Unlock()

	c.streamer.bind(c)
	c.converter.bind(c)
	metrics.RegisteredClasses.Inc()
	logger.Debug("class registered",
		zap.Int("version", c.version),
		zap.Any("versionedClasses", c.versions))
	return c, nil
}

// Resolve 由模块名与类名找回已注册的类。
func (r *Registry) Resolve(module, name string) (*Class, error) {
	c, ok := r.Lookup(QualifiedName(module, name))
	if !ok {
		return nil, merr.WrapErrClassNotFound(module, name)
	}
	return c, nil
}

// Lookup 按类限定名查找。
func (r *Registry) Lookup(qualified string) (*Class, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.classes[qualified]
	return c, ok
}

// Classes 按限定名排序返回全部已注册的类。
func (r *Registry) Classes() []*Class {
	r.mu.RLock()
	names := typeutil.NewSet[string]()
	for name := range r.classes {
		names.Insert(name)
	}
	out := make([]*Class, 0, len(r.classes))
	for _, name := range typeutil.Sorted(names) {
		out = append(out, r.classes[name])
	}
	r.mu.RUnlock()
	return out
}

func resolveStreamer(declared *Streamer, ancestors []*Class) *Streamer {
	if declared != nil {
		return declared.Clone()
	}
	for _, ancestor := range ancestors {
		if ancestor.streamer != nil {
			return ancestor.streamer.Clone()
		}
	}
	return NewStreamer()
}

func resolveConverter(declared *Converter, ancestors []*Class) *Converter {
	if declared != nil {
		return declared.Clone()
	}
	for _, ancestor := range ancestors {
		if ancestor.converter != nil {
			return ancestor.converter.Clone()
		}
	}
	return NewConverter()
}

// checkReservedAttrs 检查结构体字段（以及公开键映射）是否与保留键冲突。
// 自定义 AttrGetter 的类型在流化时再检查。
func checkReservedAttrs(c *Class, sample Object) error {
	qualified := c.QualifiedName()
	for _, key := range c.streamer.toPublic {
		if IsReservedKey(key) {
			return merr.WrapErrReservedAttribute(qualified, key)
		}
	}
	for _, attr := range c.converter.toProtected {
		if IsReservedKey(attr) {
			return merr.WrapErrReservedAttribute(qualified, attr)
		}
	}
	if isNilObject(sample) {
		return nil
	}
	if _, ok := sample.(AttrGetter); ok {
		return nil
	}
	t := reflect.TypeOf(sample)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	for _, field := range structFields(t) {
		if IsReservedKey(field.name) {
			return merr.WrapErrReservedAttribute(qualified, field.name)
		}
	}
	return nil
}
