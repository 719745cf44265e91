// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lending

import (
	"github.com/luxfi/metric"

	"github.com/luxfi/pledge/utils/wrappers"
)

const (
	opLabel     = "op"
	resultLabel = "result"
	okResult    = "ok"
)

var operationLabels = []string{opLabel, resultLabel}

type metrics struct {
	operations metric.CounterVec
	pools      metric.Gauge
}

func newMetrics(registerer metric.Registerer) (*metrics, error) {
	m := &metrics{
		operations: metric.NewCounterVec(
			metric.CounterOpts{
				Name: "operations",
				Help: "Number of ledger operations by outcome",
			},
			operationLabels,
		),
		pools: metric.NewGauge(metric.GaugeOpts{
			Name: "pools",
			Help: "Number of lending pools",
		}),
	}

	errs := wrappers.Errs{}
	errs.Add(
		registerer.Register(metric.AsCollector(m.operations)),
		registerer.Register(metric.AsCollector(m.pools)),
	)
	return m, errs.Err
}

func (m *metrics) observe(op string, err error) {
	result := okResult
	if err != nil {
		result = Kind(err)
	}
	m.operations.With(metric.Labels{
		opLabel:     op,
		resultLabel: result,
	}).Inc()
}
