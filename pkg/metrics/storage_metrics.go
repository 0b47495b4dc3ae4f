package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const storageSubsystem = "storage"

var (
	StorageOpTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ringerNamespace,
		Subsystem: storageSubsystem,
		Name:      "op_total",
		Help:      "持久化操作次数",
	}, []string{opLabelName, statusLabelName})

	StorageOpLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ringerNamespace,
		Subsystem: storageSubsystem,
		Name:      "op_latency",
		Help:      "持久化操作耗时（毫秒）",
		Buckets:   buckets,
	}, []string{opLabelName})

	StorageBytes = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ringerNamespace,
		Subsystem: storageSubsystem,
		Name:      "payload_bytes",
		Help:      "编码后的负载大小（字节）",
		Buckets:   sizeBuckets,
	}, []string{opLabelName, formatLabelName})
)

func registerStorageMetrics(r prometheus.Registerer) {
	r.MustRegister(StorageOpTotal)
	r.MustRegister(StorageOpLatency)
	r.MustRegister(StorageBytes)
}
