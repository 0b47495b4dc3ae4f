package log

import (
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Binder 嵌入到组件中，为组件持有一个带上下文字段的 Logger。
// 零值可用，未绑定时返回全局 Logger。
type Binder struct {
	logger atomic.Pointer[MLogger]
	bound  atomic.Pointer[boundLogger]
}

// boundLogger 记录 Bind 的字段以及生成 Logger 时的全局 Logger。
type boundLogger struct {
	base   *zap.Logger
	fields []zap.Field
	logger *MLogger
}

// SetLogger 固定组件的 Logger，优先于 Bind。
func (b *Binder) SetLogger(logger *MLogger) {
	b.logger.Store(logger)
}

// Bind 以全局 Logger 加上 fields 作为组件的 Logger。
// 全局 Logger 被 ReplaceGlobals 替换后，下次调用 Logger 时重新生成。
func (b *Binder) Bind(fields ...zap.Field) {
	b.bound.Store(&boundLogger{fields: fields})
}

func (b *Binder) Logger() *MLogger {
	if l := b.logger.Load(); l != nil {
		return l
	}
	bl := b.bound.Load()
	if bl == nil {
		return With()
	}
	if base := L(); bl.base != base {
		bl = &boundLogger{base: base, fields: bl.fields, logger: With(bl.fields...)}
		b.bound.Store(bl)
	}
	return bl.logger
}
