package log

import (
	"go.uber.org/zap"
)

const (
	FieldNameModule    = "module"
	FieldNameComponent = "component"
	FieldNameClass     = "class"
	FieldNameAttr      = "attr"
	FieldNameFile      = "file"
)

// FieldModule 返回一个包含模块名的 zap 字段。
func FieldModule(module string) zap.Field {
	return zap.String(FieldNameModule, module)
}

// FieldComponent 返回一个包含组件名的 zap 字段。
func FieldComponent(component string) zap.Field {
	return zap.String(FieldNameComponent, component)
}

// FieldClass 返回一个包含类限定名（module.Name）的 zap 字段。
func FieldClass(qualifiedName string) zap.Field {
	return zap.String(FieldNameClass, qualifiedName)
}

// FieldAttr 返回一个包含属性名的 zap 字段。
func FieldAttr(attr string) zap.Field {
	return zap.String(FieldNameAttr, attr)
}

// FieldFile 返回一个包含文件路径的 zap 字段。
func FieldFile(path string) zap.Field {
	return zap.String(FieldNameFile, path)
}
