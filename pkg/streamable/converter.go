package streamable

import (
	"maps"
	"regexp"
	"slices"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/lk2023060901/ringercore-go/pkg/log"
	"github.com/lk2023060901/ringercore-go/pkg/metrics"
	"github.com/lk2023060901/ringercore-go/pkg/util/merr"
)

// ConvertPreCallFunc 在写入属性之前调用，可替换目标对象或输入。
type ConvertPreCallFunc func(obj Object, raw RawDict) (Object, RawDict, error)

// TreatObjFunc 在属性写入完成后调用，返回值作为最终结果。
type TreatObjFunc func(c *Converter, obj Object, raw RawDict) (Object, error)

// ConverterOption 配置 Converter。
type ConverterOption func(*Converter)

// WithIgnore 声明不写回对象的键，pattern 为完整匹配的正则表达式。
func WithIgnore(patterns ...string) ConverterOption {
	return func(c *Converter) {
		c.ignorePatterns = append(c.ignorePatterns, patterns...)
	}
}

// WithToProtected 将 raw dict 中的 key 写回逻辑属性 attr。
func WithToProtected(key, attr string) ConverterOption {
	return func(c *Converter) {
		c.toProtected[key] = attr
	}
}

// WithIgnoreRawChildren 为 true 时不再将嵌套 raw dict 还原为对象。
func WithIgnoreRawChildren(ignore bool) ConverterOption {
	return func(c *Converter) {
		c.ignoreRawChildren = ignore
	}
}

// WithOldClass 将版本表中的旧类名映射到新类名。
// oldName 可以是类限定名，也可以只是类名（此时保留原模块名）。
func WithOldClass(oldName, newName string) ConverterOption {
	return func(c *Converter) {
		c.oldClasses[oldName] = newName
	}
}

func WithConvertPreCall(fn ConvertPreCallFunc) ConverterOption {
	return func(c *Converter) {
		c.preCall = fn
	}
}

func WithTreatObj(fn TreatObjFunc) ConverterOption {
	return func(c *Converter) {
		c.treatObj = fn
	}
}

// Converter 将 raw dict 写回对象。每个已注册类持有自己的 Converter 实例。
type Converter struct {
	log.Binder

	ignorePatterns    []string
	ignore            []*regexp.Regexp
	toProtected       map[string]string
	ignoreRawChildren bool
	oldClasses        map[string]string
	preCall           ConvertPreCallFunc
	treatObj          TreatObjFunc
	owner             *Class
	err               error
}

func NewConverter(opts ...ConverterOption) *Converter {
	c := &Converter{
		toProtected: make(map[string]string),
		oldClasses:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.compile()
	return c
}

func (c *Converter) compile() {
	c.ignore = c.ignore[:0]
	c.err = nil
	for _, pattern := range c.ignorePatterns {
		re, err := regexp.Compile("^(?:" + pattern + ")$")
		if err != nil {
			c.err = merr.WrapErrParameterInvalidMsg("bad ignore pattern %q: %s", pattern, err.Error())
			return
		}
		c.ignore = append(c.ignore, re)
	}
}

// Clone 返回一个未绑定类的副本。
func (c *Converter) Clone() *Converter {
	out := &Converter{
		ignorePatterns:    slices.Clone(c.ignorePatterns),
		toProtected:       maps.Clone(c.toProtected),
		ignoreRawChildren: c.ignoreRawChildren,
		oldClasses:        maps.Clone(c.oldClasses),
		preCall:           c.preCall,
		treatObj:          c.treatObj,
	}
	out.compile()
	return out
}

// Extend 在副本上追加配置。
func (c *Converter) Extend(opts ...ConverterOption) *Converter {
	out := c.Clone()
	for _, opt := range opts {
		opt(out)
	}
	out.compile()
	return out
}

// derive 派生一个沿用当前绑定的临时 Converter。
func (c *Converter) derive(opts ...ConverterOption) *Converter {
	out := c.Extend(opts...)
	out.owner = c.owner
	out.SetLogger(c.Logger())
	return out
}

func (c *Converter) ToProtected() map[string]string {
	return maps.Clone(c.toProtected)
}

func (c *Converter) OldClasses() map[string]string {
	return maps.Clone(c.oldClasses)
}

func (c *Converter) IgnoreRawChildren() bool {
	return c.ignoreRawChildren
}

// Owner 返回绑定的类，未注册时为 nil。
func (c *Converter) Owner() *Class {
	return c.owner
}

func (c *Converter) bind(owner *Class) {
	c.owner = owner
	c.Bind(log.FieldComponent("converter"), log.FieldClass(owner.QualifiedName()))
}

// Ignored 判断 key 是否命中忽略规则。
func (c *Converter) Ignored(key string) bool {
	for _, re := range c.ignore {
		if re.MatchString(key) {
			return true
		}
	}
	return false
}

// Convert 将 raw 写回 obj 并返回结果对象（前置或后置钩子可能替换对象）。
func (c *Converter) Convert(obj Object, raw RawDict) (Object, error) {
	if c.err != nil {
		return nil, c.err
	}
	if c.owner == nil {
		return nil, merr.WrapErrOperationNotSupported("convert with an unbound converter")
	}
	if raw == nil {
		return nil, merr.WrapErrRawDictInvalid("nil raw dict")
	}

	var err error
	if c.preCall != nil {
		obj, raw, err = c.preCall(obj, raw)
		if err != nil {
			return nil, err
		}
	}
	if isNilObject(obj) {
		return nil, merr.WrapErrParameterMissing("object")
	}
	cls := obj.Class()
	if cls == nil {
		return nil, merr.WrapErrClassNotStreamable(c.owner.QualifiedName())
	}

	versions, err := c.readVersions(raw)
	if err != nil {
		c.fail(cls)
		return nil, err
	}
	own, ok := versions[cls.QualifiedName()]
	if !ok {
		c.fail(cls)
		return nil, merr.WrapErrVersionNotFound(c.owner.QualifiedName(), cls.QualifiedName())
	}
	if recorder, ok := obj.(VersionRecorder); ok {
		recorder.RecordReadVersions(versions, own)
	}

	for _, key := range slices.Sorted(maps.Keys(raw)) {
		if IsReservedKey(key) || c.Ignored(key) {
			continue
		}
		value := raw[key]
		attr := key
		if protected, ok := c.toProtected[key]; ok {
			attr = protected
		}
		if value, err = c.Retrieve(value); err != nil {
			c.fail(cls)
			return nil, err
		}
		if err := setAttr(obj, attr, value); err != nil {
			if errors.Is(err, errUnknownAttr) {
				c.Logger().Debug("skip unknown attribute", log.FieldAttr(attr))
				continue
			}
			c.fail(cls)
			return nil, err
		}
	}

	if c.treatObj != nil {
		if obj, err = c.treatObj(c, obj, raw); err != nil {
			c.fail(cls)
			return nil, err
		}
	}
	metrics.ObjectsTotal.WithLabelValues(cls.QualifiedName(), metrics.ConvertOpLabel, metrics.SuccessLabel).Inc()
	return obj, nil
}

func (c *Converter) fail(cls *Class) {
	metrics.ObjectsTotal.WithLabelValues(cls.QualifiedName(), metrics.ConvertOpLabel, metrics.FailLabel).Inc()
}

// readVersions 得到所属类每个版本化类读到的版本。
// 新格式按旧类名映射改名；旧格式把单一版本号（缺失为 0）应用到所有版本化类。
// 所属类未声明的版本化类被忽略。
func (c *Converter) readVersions(raw RawDict) (VersionMap, error) {
	expected := c.owner.versions
	read, modern, err := raw.VersionedClasses()
	if err != nil {
		return nil, err
	}

	if !modern {
		legacy := 0
		if v, ok := raw[KeyLegacyVersion]; ok {
			if legacy, err = toVersion(v); err != nil {
				return nil, merr.WrapErrRawDictInvalid("bad legacy version: " + err.Error())
			}
		}
		metrics.LegacyPayloads.Inc()
		c.Logger().Debug("reading legacy single version payload", zap.Int("version", legacy))
		out := make(VersionMap, len(expected))
		for name := range expected {
			out[name] = legacy
		}
		return out, nil
	}

	out := make(VersionMap, len(read))
	for name, version := range read {
		out[c.renameClass(name)] = version
	}
	for name := range out {
		if _, ok := expected[name]; !ok {
			c.Logger().Debug("ignore unknown versioned class", log.FieldClass(name))
			delete(out, name)
		}
	}
	for name := range expected {
		if _, ok := out[name]; !ok {
			c.Logger().Error("missing version for versioned class", log.FieldClass(name))
			return nil, merr.WrapErrVersionNotFound(c.owner.QualifiedName(), name)
		}
	}
	return out, nil
}

func (c *Converter) renameClass(qualified string) string {
	if renamed, ok := c.oldClasses[qualified]; ok {
		return renamed
	}
	module, name := SplitQualifiedName(qualified)
	if renamed, ok := c.oldClasses[name]; ok {
		return QualifiedName(module, renamed)
	}
	return qualified
}

func (c *Converter) registry() *Registry {
	if c.owner != nil && c.owner.registry != nil {
		return c.owner.registry
	}
	return defaultRegistry
}

// Retrieve 将嵌套的 raw dict（包括切片与 map 中的）还原为对象。
// 类无法解析时记录日志并保留原值；IgnoreRawChildren 为 true 时原样返回。
func (c *Converter) Retrieve(value any) (any, error) {
	if c.ignoreRawChildren {
		return value, nil
	}
	return c.retrieve(value)
}

func (c *Converter) retrieve(value any) (any, error) {
	if IsRawDictFormat(value) {
		nested, _ := asRawDict(value)
		cls, err := c.registry().Resolve(nested.Module(), nested.ClassName())
		if err != nil {
			metrics.RehydrationFailures.WithLabelValues("class_not_found").Inc()
			c.Logger().RatedWarn(1, "couldn't convert raw dict to an instance",
				zap.String("module", nested.Module()), zap.String("rawClass", nested.ClassName()), zap.Error(err))
			return value, nil
		}
		return cls.FromRawDict(nested)
	}

	switch v := value.(type) {
	case []any:
		out := make([]any, len(v))
		for i := range v {
			item, err := c.retrieve(v[i])
			if err != nil {
				return nil, err
			}
			out[i] = item
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			retrieved, err := c.retrieve(item)
			if err != nil {
				return nil, err
			}
			out[k] = retrieved
		}
		return out, nil
	case RawDict:
		out := make(RawDict, len(v))
		for k, item := range v {
			retrieved, err := c.retrieve(item)
			if err != nil {
				return nil, err
			}
			out[k] = retrieved
		}
		return out, nil
	}
	return value, nil
}
