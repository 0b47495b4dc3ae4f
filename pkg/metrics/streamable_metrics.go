package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const streamableSubsystem = "streamable"

var (
	RegisteredClasses = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: ringerNamespace,
		Subsystem: streamableSubsystem,
		Name:      "registered_classes",
		Help:      "已注册的可流化类数量",
	})

	// ObjectsTotal 按类和操作（stream/convert）统计对象数量。
	ObjectsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ringerNamespace,
		Subsystem: streamableSubsystem,
		Name:      "objects_total",
		Help:      "序列化与反序列化的对象数量",
	}, []string{classLabelName, opLabelName, statusLabelName})

	// RehydrationFailures 统计嵌套 raw dict 无法还原为对象的次数。
	RehydrationFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ringerNamespace,
		Subsystem: streamableSubsystem,
		Name:      "rehydration_failures_total",
		Help:      "嵌套 raw dict 还原失败次数",
	}, []string{reasonLabelName})

	LegacyPayloads = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ringerNamespace,
		Subsystem: streamableSubsystem,
		Name:      "legacy_payloads_total",
		Help:      "读取到的单一版本号旧格式 raw dict 数量",
	})
)

func registerStreamableMetrics(r prometheus.Registerer) {
	r.MustRegister(RegisteredClasses)
	r.MustRegister(ObjectsTotal)
	r.MustRegister(RehydrationFailures)
	r.MustRegister(LegacyPayloads)
}
