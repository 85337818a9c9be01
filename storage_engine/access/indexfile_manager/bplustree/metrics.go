package bplus

import "github.com/prometheus/client_golang/prometheus"

// Metrics are shared by every tree of an engine; each tree gets its own "index" label.
type Metrics struct {
	Inserts        *prometheus.CounterVec
	LeafSplits     *prometheus.CounterVec
	InternalSplits *prometheus.CounterVec
	RootGrowths    *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	vec := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "keytree", Subsystem: "bplus", Name: name, Help: help,
		}, []string{"index"})
	}
	return &Metrics{
		Inserts:        vec("inserts_total", "Keys inserted."),
		LeafSplits:     vec("leaf_splits_total", "Leaf page splits."),
		InternalSplits: vec("internal_splits_total", "Internal page splits."),
		RootGrowths:    vec("root_growths_total", "Times the tree gained a level."),
	}
}

func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.Inserts, m.LeafSplits, m.InternalSplits, m.RootGrowths}
}

type treeCounters struct {
	inserts        prometheus.Counter
	leafSplits     prometheus.Counter
	internalSplits prometheus.Counter
	rootGrowths    prometheus.Counter
}

func (m *Metrics) forIndex(name string) treeCounters {
	return treeCounters{
		inserts:        m.Inserts.WithLabelValues(name),
		leafSplits:     m.LeafSplits.WithLabelValues(name),
		internalSplits: m.InternalSplits.WithLabelValues(name),
		rootGrowths:    m.RootGrowths.WithLabelValues(name),
	}
}
