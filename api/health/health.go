// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/luxfi/log"
	"github.com/luxfi/metric"
)

var errDuplicateCheck = errors.New("duplicated check")

// Checker can have its health checked
type Checker interface {
	// HealthCheck returns health check results and, if not healthy, a
	// non-nil error
	HealthCheck(context.Context) (interface{}, error)
}

type CheckerFunc func(context.Context) (interface{}, error)

func (f CheckerFunc) HealthCheck(ctx context.Context) (interface{}, error) {
	return f(ctx)
}

// Result of a single check.
type Result struct {
	Details   interface{}   `json:"message,omitempty"`
	Error     *string       `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
}

// Report is the response body of the health endpoint.
type Report struct {
	Checks  map[string]Result `json:"checks"`
	Healthy bool              `json:"healthy"`
}

type Health struct {
	log     log.Logger
	metrics *healthMetrics

	lock   sync.RWMutex
	checks map[string]Checker
}

func New(log log.Logger, registerer metric.Registerer) (*Health, error) {
	m, err := newMetrics(registerer)
	if err != nil {
		return nil, err
	}
	return &Health{
		log:     log,
		metrics: m,
		checks:  make(map[string]Checker),
	}, nil
}

func (h *Health) Register(name string, checker Checker) error {
	h.lock.Lock()
	defer h.lock.Unlock()

	if _, ok := h.checks[name]; ok {
		return fmt.Errorf("%w: %q", errDuplicateCheck, name)
	}
	h.checks[name] = checker
	h.metrics.failingChecks.WithLabelValues(name).Set(0)
	return nil
}

// Check runs every registered check in name order.
func (h *Health) Check(ctx context.Context) Report {
	h.lock.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	checks := make(map[string]Checker, len(h.checks))
	for name, c := range h.checks {
		checks[name] = c
	}
	h.lock.RUnlock()
	sort.Strings(names)

	report := Report{
		Checks:  make(map[string]Result, len(names)),
		Healthy: true,
	}
	for _, name := range names {
		start := time.Now()
		details, err := checks[name].HealthCheck(ctx)
		result := Result{
			Details:   details,
			Timestamp: start,
			Duration:  time.Since(start),
		}
		if err != nil {
			msg := err.Error()
			result.Error = &msg
			report.Healthy = false
			h.metrics.failingChecks.WithLabelValues(name).Set(1)
			h.log.Warn("health check failed",
				log.String("check", name),
				log.Err(err),
			)
		} else {
			h.metrics.failingChecks.WithLabelValues(name).Set(0)
		}
		report.Checks[name] = result
	}
	return report
}

// Handler responds 200 when every check passes and 503 otherwise.
func (h *Health) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report := h.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if report.Healthy {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		if err := json.NewEncoder(w).Encode(report); err != nil {
			h.log.Debug("failed to write health report", log.Err(err))
		}
	})
}
