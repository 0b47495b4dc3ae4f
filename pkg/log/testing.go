package log

import (
	"bytes"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// testWriter 将每条日志写入 testing.T。
type testWriter struct {
	t zaptest.TestingT
	// fail 为 true 时写入即标记测试失败，用于 zap 内部错误。
	fail bool
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Logf("%s", bytes.TrimSuffix(p, []byte("\n")))
	if w.fail {
		w.t.Fail()
	}
	return len(p), nil
}

func (testWriter) Sync() error {
	return nil
}

// InitTestLogger 为单元测试初始化一个写入 t 的 Logger。
func InitTestLogger(t zaptest.TestingT, cfg *Config, opts ...zap.Option) (*zap.Logger, *ZapProperties, error) {
	opts = append([]zap.Option{zap.ErrorOutput(testWriter{t: t, fail: true})}, opts...)
	return InitLoggerWithWriteSyncer(cfg, testWriter{t: t}, opts...)
}

// TestingT 是 ReplaceGlobalsForTest 需要的 testing.T 子集。
type TestingT interface {
	zaptest.TestingT
	Cleanup(func())
}

// ReplaceGlobalsForTest 在测试期间将全局日志重定向到 t，测试结束后恢复原 Logger。
func ReplaceGlobalsForTest(t TestingT, level string) {
	lg, props, err := InitTestLogger(t, &Config{Level: level})
	if err != nil {
		t.Errorf("init test logger: %v", err)
		t.FailNow()
		return
	}
	replaceGlobalsUntilCleanup(t, lg, props)
}

// ObserveForTest 在测试期间将全局日志收集到内存中，供断言日志内容。
func ObserveForTest(t TestingT, level zapcore.Level) *observer.ObservedLogs {
	atomicLevel := zap.NewAtomicLevelAt(level)
	core, logs := observer.New(atomicLevel)
	replaceGlobalsUntilCleanup(t, zap.New(core), &ZapProperties{Core: core, Level: atomicLevel})
	return logs
}

func replaceGlobalsUntilCleanup(t TestingT, lg *zap.Logger, props *ZapProperties) {
	prevL, prevP := L(), _globalP.Load().(*ZapProperties)
	ReplaceGlobals(lg, props)
	t.Cleanup(func() { ReplaceGlobals(prevL, prevP) })
}
