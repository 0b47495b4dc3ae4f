package configure

import (
	"go.uber.org/zap/zapcore"

	"github.com/lk2023060901/ringercore-go/pkg/log"
	"github.com/lk2023060901/ringercore-go/pkg/util/enumutil"
)

// LogLevel 是全局日志级别，取值与 zapcore.Level 一致。
type LogLevel int

const (
	LevelDebug LogLevel = LogLevel(zapcore.DebugLevel)
	LevelInfo  LogLevel = LogLevel(zapcore.InfoLevel)
	LevelWarn  LogLevel = LogLevel(zapcore.WarnLevel)
	LevelError LogLevel = LogLevel(zapcore.ErrorLevel)
	LevelFatal LogLevel = LogLevel(zapcore.FatalLevel)
)

var LogLevelStr = enumutil.New("LogLevel",
	map[LogLevel]string{
		LevelDebug: "DEBUG",
		LevelInfo:  "INFO",
		LevelWarn:  "WARNING",
		LevelError: "ERROR",
		LevelFatal: "FATAL",
	},
	enumutil.WithIgnoreCase[LogLevel](),
	enumutil.WithAliases(map[string]LogLevel{"warn": LevelWarn, "critical": LevelFatal}),
)

func (l LogLevel) String() string {
	return LogLevelStr.MustString(l)
}

// NewMasterLevel 创建控制全局日志级别的 Holder：可以重复设置，
// 设置后立即修改全局级别，未设置时取当前全局级别。
func NewMasterLevel() *Holder[LogLevel] {
	return NewEnum("MasterLevel", LogLevelStr,
		WithAllowReconfigure[LogLevel](),
		WithAuto[LogLevel](func() (any, error) {
			return LogLevel(log.GetLevel()), nil
		}),
		WithOnSet(func(l LogLevel) {
			log.SetLevel(zapcore.Level(l))
		}),
	)
}

var masterLevelClass = MustRegister(nil, Spec[LogLevel]{
	Module: "ringer.configure",
	New:    NewMasterLevel,
})

// MasterLevel 是进程内共享的全局日志级别配置。
var MasterLevel = MustMake[LogLevel](masterLevelClass)
