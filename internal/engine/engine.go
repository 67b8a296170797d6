// Package engine scores free-form text against every loaded model
// head, producing binary decisions and optionally calibrated
// probabilities. Heads are evaluated sequentially in discovery order,
// which fixes the output column and key ordering.
package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"textheads/internal/bundle"
	"textheads/internal/graph"
)

// DefaultThreshold is the decision threshold used when no per-head
// override is given.
const DefaultThreshold = 0.5

// MetricsSink receives engine counters. A nil sink disables metrics.
type MetricsSink interface {
	ClassificationsInc()
	ClassificationErrorsInc()
	HeadLatencyObserve(seconds float64)
}

// HeadScore is one head's decision for one text.
type HeadScore struct {
	Head        string
	Probability float64
	Label       int
}

// Engine evaluates texts against a fixed set of session bundles. It
// holds no mutable state after construction and performs all work
// synchronously.
type Engine struct {
	bundles    []*bundle.SessionBundle
	thresholds map[string]float64
	metrics    MetricsSink
}

// New builds an engine over the discovered bundles. thresholds maps
// head name to a decision threshold; missing heads use the default.
func New(bundles []*bundle.SessionBundle, thresholds map[string]float64, metrics MetricsSink) *Engine {
	return &Engine{bundles: bundles, thresholds: thresholds, metrics: metrics}
}

// Heads returns head names in discovery order.
func (e *Engine) Heads() []string {
	heads := make([]string, len(e.bundles))
	for i, b := range e.bundles {
		heads[i] = b.Head
	}
	return heads
}

// Threshold returns the decision threshold for a head.
func (e *Engine) Threshold(head string) float64 {
	if t, ok := e.thresholds[head]; ok {
		return t
	}
	return DefaultThreshold
}

// Evaluate scores one text against every head in discovery order.
func (e *Engine) Evaluate(text string) ([]HeadScore, error) {
	scores := make([]HeadScore, 0, len(e.bundles))
	for _, b := range e.bundles {
		start := time.Now()
		raw, err := e.rawProbability(b, text)
		if err != nil {
			if e.metrics != nil {
				e.metrics.ClassificationErrorsInc()
			}
			return nil, fmt.Errorf("head %s: %w", b.Head, err)
		}

		p := raw
		if b.Calibration != nil {
			// Apply degrades to the raw probability on numeric failure
			p = b.Calibration.Apply(raw)
		}

		label := 0
		if p >= e.Threshold(b.Head) {
			label = 1
		}
		scores = append(scores, HeadScore{Head: b.Head, Probability: p, Label: label})

		if e.metrics != nil {
			e.metrics.ClassificationsInc()
			e.metrics.HeadLatencyObserve(time.Since(start).Seconds())
		}
	}
	return scores, nil
}

// rawProbability runs the session on a single-row string input and
// extracts the positive-class value: column index 1 of a two-column
// tensor, else the first scalar of the flattened output.
func (e *Engine) rawProbability(b *bundle.SessionBundle, text string) (float64, error) {
	val, err := b.Session.Run(b.InputName, []string{text}, b.OutputName)
	if err != nil {
		return 0, err
	}
	return extractPositive(val, b.ClassLabels), nil
}

// extractPositive pulls the positive-class probability out of a run
// output. Two-column float tensors use column 1; keyed maps use the
// positive class label; anything else falls back to the first scalar
// of the flattened output.
func extractPositive(val graph.Value, classLabels []string) float64 {
	switch {
	case len(val.Floats) > 0:
		row := val.Floats[0]
		if len(val.Dims) == 2 && val.Dims[1] >= 2 && len(row) >= 2 {
			return row[1]
		}
		if len(row) > 0 {
			return row[0]
		}
	case len(val.Maps) > 0:
		m := val.Maps[0]
		if len(classLabels) == 2 {
			if p, ok := m[classLabels[1]]; ok {
				return p
			}
		}
		// no recognizable key: first value in sorted key order
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if len(keys) > 0 {
			return m[keys[0]]
		}
	case len(val.Ints) > 0:
		return float64(val.Ints[0])
	}
	return 0
}

// ParseThresholds parses repeatable "head=value" threshold specs.
// Malformed specs or non-numeric values are fatal.
func ParseThresholds(specs []string) (map[string]float64, error) {
	thresholds := make(map[string]float64, len(specs))
	for _, spec := range specs {
		head, val, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, fmt.Errorf("invalid threshold %q (expected head=VALUE)", spec)
		}
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, fmt.Errorf("threshold for %q must be a number, got %q", head, val)
		}
		thresholds[head] = f
	}
	return thresholds, nil
}
