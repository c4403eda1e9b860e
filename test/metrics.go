// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Allocation statistics summed over all of the cases in a run,
// printed in the Prometheus text format.

package main

import (
	"io"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

type metricsT struct {
	registry   *prometheus.Registry
	cases      *prometheus.CounterVec
	edits      *prometheus.CounterVec
	operands   *prometheus.CounterVec
	evictions  prometheus.Counter
	frameBytes prometheus.Histogram
}

func newMetrics() *metricsT {
	m := &metricsT{
		registry: prometheus.NewRegistry(),
		cases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "regalloc",
			Name:      "cases_total",
			Help:      "Test cases run, by result.",
		}, []string{"result"}),
		edits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "regalloc",
			Name:      "edits_total",
			Help:      "Moves inserted by the allocator, by kind.",
		}, []string{"kind"}),
		operands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "regalloc",
			Name:      "operands_total",
			Help:      "Operands allocated, by where they ended up.",
		}, []string{"location"}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "regalloc",
			Name:      "evictions_total",
			Help:      "Values pushed out of registers to make room for others.",
		}),
		frameBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "regalloc",
			Name:      "frame_bytes",
			Help:      "Size of the spill area of each function.",
			Buckets:   prometheus.ExponentialBuckets(4, 2, 8),
		}),
	}
	m.registry.MustRegister(m.cases, m.edits, m.operands, m.evictions, m.frameBytes)
	return m
}

// Safe to call from multiple goroutines.

func (m *metricsT) record(result resultT) {
	if result.ok {
		m.cases.WithLabelValues("ok").Inc()
	} else {
		m.cases.WithLabelValues("fail").Inc()
	}
	stats := result.stats
	m.edits.WithLabelValues("store").Add(float64(stats.Stores))
	m.edits.WithLabelValues("reload").Add(float64(stats.Reloads))
	m.edits.WithLabelValues("move").Add(float64(stats.Moves))
	m.operands.WithLabelValues("register_hit").Add(float64(stats.RegHits))
	m.operands.WithLabelValues("stack").Add(float64(stats.StackOperands))
	m.operands.WithLabelValues("all").Add(float64(stats.Operands))
	m.evictions.Add(float64(stats.Evictions))
	if 0 < stats.Insts {
		m.frameBytes.Observe(float64(stats.FrameBytes))
	}
}

func (m *metricsT) write(out io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return errors.Wrap(err, "failed to gather metrics")
	}
	for _, family := range families {
		if _, err := expfmt.MetricFamilyToText(out, family); err != nil {
			return errors.Wrap(err, "failed to write metrics")
		}
	}
	return nil
}
