package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tracker"

// Collector 汇总交易生命周期相关指标，nil 接收者上的调用均为空操作。
type Collector struct {
	statusChecks  *prometheus.CounterVec
	checkLatency  prometheus.Histogram
	submissions   *prometheus.CounterVec
	pollResults   *prometheus.CounterVec
	deliveryWaits prometheus.Histogram
}

// NewCollector 创建并注册指标，reg 为 nil 时使用默认注册表。
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		statusChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_checks_total",
			Help:      "Trade status checks grouped by observed status.",
		}, []string{"status"}),
		checkLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "status_check_latency_seconds",
			Help:      "Latency of a single trade status RPC.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Signed transaction submissions grouped by result.",
		}, []string{"result"}),
		pollResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_results_total",
			Help:      "Finished poll loops grouped by result.",
		}, []string{"result"}),
		deliveryWaits: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sink_delivery_seconds",
			Help:      "Time spent handing an event to a sink.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
	}

	for _, col := range []prometheus.Collector{
		c.statusChecks,
		c.checkLatency,
		c.submissions,
		c.pollResults,
		c.deliveryWaits,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// ObserveStatusCheck 记录一次状态查询。
func (c *Collector) ObserveStatusCheck(status string, latency time.Duration) {
	if c == nil {
		return
	}
	c.statusChecks.WithLabelValues(status).Inc()
	c.checkLatency.Observe(latency.Seconds())
}

// ObserveSubmission 记录一次提交结果。
func (c *Collector) ObserveSubmission(result string) {
	if c == nil {
		return
	}
	c.submissions.WithLabelValues(result).Inc()
}

// ObservePollResult 记录轮询结束原因。
func (c *Collector) ObservePollResult(result string) {
	if c == nil {
		return
	}
	c.pollResults.WithLabelValues(result).Inc()
}

// ObserveDelivery 记录事件投递耗时。
func (c *Collector) ObserveDelivery(wait time.Duration) {
	if c == nil {
		return
	}
	c.deliveryWaits.Observe(wait.Seconds())
}
