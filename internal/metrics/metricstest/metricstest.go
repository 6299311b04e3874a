// Package metricstest reads values back from a Prometheus gatherer in tests.
package metricstest

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

// Labels selects metric series; every listed label must match.
type Labels map[string]string

func matches(m *dto.Metric, labels Labels) bool {
	for name, want := range labels {
		found := false
		for _, pair := range m.GetLabel() {
			if pair.GetName() == name {
				found = pair.GetValue() == want
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func family(t *testing.T, g prometheus.Gatherer, name string) *dto.MetricFamily {
	t.Helper()

	families, err := g.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

// CounterSum sums every counter series of name matching labels.
func CounterSum(t *testing.T, g prometheus.Gatherer, name string, labels Labels) float64 {
	t.Helper()

	mf := family(t, g, name)
	if mf == nil {
		return 0
	}

	var total float64
	for _, m := range mf.GetMetric() {
		if matches(m, labels) {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

// GaugeSum sums every gauge series of name matching labels.
func GaugeSum(t *testing.T, g prometheus.Gatherer, name string, labels Labels) float64 {
	t.Helper()

	mf := family(t, g, name)
	if mf == nil {
		return 0
	}

	var total float64
	for _, m := range mf.GetMetric() {
		if matches(m, labels) {
			total += m.GetGauge().GetValue()
		}
	}
	return total
}

// HistogramCount sums the sample counts of every histogram series of name matching labels.
func HistogramCount(t *testing.T, g prometheus.Gatherer, name string, labels Labels) uint64 {
	t.Helper()

	mf := family(t, g, name)
	if mf == nil {
		return 0
	}

	var total uint64
	for _, m := range mf.GetMetric() {
		if matches(m, labels) {
			total += m.GetHistogram().GetSampleCount()
		}
	}
	return total
}

// Exists reports whether a family with the name was gathered.
func Exists(t *testing.T, g prometheus.Gatherer, name string) bool {
	t.Helper()
	return family(t, g, name) != nil
}
