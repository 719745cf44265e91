// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/luxfi/metric"
	"google.golang.org/protobuf/proto"
)

var (
	_ MultiGatherer = (*prefixGatherer)(nil)

	errOverlappingNamespaces = errors.New("prefix could create overlapping namespaces")
)

// MultiGatherer extends the Gatherer interface by allowing additional gatherers
// to be registered.
type MultiGatherer interface {
	metric.Gatherer

	// Register adds the outputs of [gatherer] to the results of future calls to
	// Gather with [prefix] prepended to every metric name.
	Register(prefix string, gatherer metric.Gatherer) error

	// Deregister removes the outputs of the gatherer registered with [prefix]
	// from the results of future calls to Gather. Returns true if a gatherer
	// with [prefix] was found.
	Deregister(prefix string) bool
}

// NewPrefixGatherer returns a new MultiGatherer that merges metrics by adding a
// prefix to their names.
func NewPrefixGatherer() MultiGatherer {
	return &prefixGatherer{}
}

type prefixGatherer struct {
	lock      sync.RWMutex
	prefixes  []string
	gatherers []metric.Gatherer
}

func (g *prefixGatherer) Register(prefix string, gatherer metric.Gatherer) error {
	g.lock.Lock()
	defer g.lock.Unlock()

	for _, existing := range g.prefixes {
		if eitherIsPrefix(prefix, existing) {
			return fmt.Errorf("%w: %q conflicts with %q",
				errOverlappingNamespaces,
				prefix,
				existing,
			)
		}
	}
	g.prefixes = append(g.prefixes, prefix)
	g.gatherers = append(g.gatherers, gatherer)
	return nil
}

func (g *prefixGatherer) Deregister(prefix string) bool {
	g.lock.Lock()
	defer g.lock.Unlock()

	for i, existing := range g.prefixes {
		if existing == prefix {
			g.prefixes = append(g.prefixes[:i], g.prefixes[i+1:]...)
			g.gatherers = append(g.gatherers[:i], g.gatherers[i+1:]...)
			return true
		}
	}
	return false
}

// Gather returns every registered family sorted by name. As with a single
// gatherer, partial results are returned alongside the first error.
func (g *prefixGatherer) Gather() ([]*metric.MetricFamily, error) {
	g.lock.RLock()
	defer g.lock.RUnlock()

	var (
		families []*metric.MetricFamily
		errs     []error
	)
	for i, gatherer := range g.gatherers {
		gathered, err := gatherer.Gather()
		if err != nil {
			errs = append(errs, fmt.Errorf("%q: %w", g.prefixes[i], err))
		}
		for _, family := range gathered {
			family.Name = proto.String(metric.AppendNamespace(g.prefixes[i], family.GetName()))
			families = append(families, family)
		}
	}

	sort.Slice(families, func(i, j int) bool {
		return families[i].GetName() < families[j].GetName()
	})
	return families, errors.Join(errs...)
}

// eitherIsPrefix returns true if either [a] is a prefix of [b] or [b] is a
// prefix of [a].
//
// This function accounts for the usage of the namespace boundary, so "hello" is
// not considered a prefix of "helloworld". However, "hello" is considered a
// prefix of "hello_world".
func eitherIsPrefix(a, b string) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	return a == b[:len(a)] && // a is a prefix of b
		(len(a) == 0 || // a is empty
			len(a) == len(b) || // a is equal to b
			b[len(a)] == '_') // a ends at a namespace boundary of b
}
