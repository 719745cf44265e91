// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package health

import "github.com/luxfi/metric"

type healthMetrics struct {
	// failingChecks is 1 for every check that failed on its last run
	failingChecks metric.GaugeVec
}

func newMetrics(registerer metric.Registerer) (*healthMetrics, error) {
	m := &healthMetrics{
		failingChecks: metric.NewGaugeVec(
			metric.GaugeOpts{
				Name: "checks_failing",
				Help: "number of currently failing health checks",
			},
			[]string{"check"},
		),
	}
	return m, registerer.Register(metric.AsCollector(m.failingChecks))
}
