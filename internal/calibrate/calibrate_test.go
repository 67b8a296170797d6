package calibrate

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityRoundTripIsLossless(t *testing.T) {
	t.Parallel()

	id := Identity()
	// the logit-then-sigmoid transform must be lossless at (1,0)
	assert.InDelta(t, 0.5, id.Apply(0.5), 1e-6)
	assert.InDelta(t, 0.9, id.Apply(0.9), 1e-6)
	assert.InDelta(t, 0.1, id.Apply(0.1), 1e-6)
}

func TestApplyMatchesClosedForm(t *testing.T) {
	t.Parallel()

	p := Parameters{A: 2, B: -0.5, Type: TypePlatt}
	raw := 0.7
	logit := math.Log(raw / (1 - raw + 1e-10))
	want := 1 / (1 + math.Exp(-(2*logit - 0.5)))
	assert.InDelta(t, want, p.Apply(raw), 1e-12)
}

func TestApplyExtremesStayFinite(t *testing.T) {
	t.Parallel()

	p := Parameters{A: 3, B: 1, Type: TypePlatt}
	for _, raw := range []float64{0, 1e-12, 0.999999999999, 1} {
		got := p.Apply(raw)
		assert.False(t, math.IsNaN(got), "raw=%v", raw)
		assert.False(t, math.IsInf(got, 0), "raw=%v", raw)
	}
}

func TestIsIdentity(t *testing.T) {
	t.Parallel()

	assert.True(t, Identity().IsIdentity())
	assert.True(t, Parameters{A: 1 + 1e-10, B: 1e-10}.IsIdentity())
	assert.False(t, Parameters{A: 1.1, B: 0}.IsIdentity())
	assert.False(t, Parameters{A: 1, B: 0.01}.IsIdentity())
}

func TestFitDegenerateCurveYieldsIdentity(t *testing.T) {
	t.Parallel()

	// every prediction in one bin: fewer than 3 occupied bins
	probs := []float64{0.51, 0.52, 0.53, 0.54}
	labels := []int{0, 1, 0, 1}
	params := Fit("head", probs, labels)
	assert.True(t, params.IsIdentity())
	assert.Equal(t, TypeIdentity, params.Type)
}

func TestFitRecoversKnownSigmoid(t *testing.T) {
	t.Parallel()

	// synthesize raw probabilities whose empirical fractions follow a
	// known calibration map, then check the fit recovers it
	trueA, trueB := 1.8, -0.4
	rng := rand.New(rand.NewSource(7))

	var probs []float64
	var labels []int
	for i := 0; i < 20000; i++ {
		raw := rng.Float64()
		logit := math.Log(raw / (1 - raw + 1e-10))
		pTrue := 1 / (1 + math.Exp(-(trueA*logit + trueB)))
		probs = append(probs, raw)
		if rng.Float64() < pTrue {
			labels = append(labels, 1)
		} else {
			labels = append(labels, 0)
		}
	}

	params := Fit("head", probs, labels)
	require.Equal(t, TypePlatt, params.Type)
	assert.InDelta(t, trueA, params.A, 0.5)
	assert.InDelta(t, trueB, params.B, 0.3)
}

func TestFitParametersAlwaysBounded(t *testing.T) {
	t.Parallel()

	// near-degenerate curves push the optimizer hard; the box
	// constraint must hold regardless
	cases := [][2][]float64{
		{{0.05, 0.15, 0.25, 0.85, 0.95}, {0, 0, 0, 1, 1}},
		{{0.05, 0.15, 0.55, 0.65, 0.95}, {1, 1, 0, 0, 0}},
		{{0.01, 0.11, 0.21, 0.31, 0.41, 0.51, 0.61, 0.71, 0.81, 0.91}, {0, 0, 0, 0, 0, 1, 1, 1, 1, 1}},
	}
	for _, c := range cases {
		labels := make([]int, len(c[1]))
		for i, v := range c[1] {
			labels[i] = int(v)
		}
		params := Fit("head", c[0], labels)
		assert.GreaterOrEqual(t, params.A, -Bound)
		assert.LessOrEqual(t, params.A, Bound)
		assert.GreaterOrEqual(t, params.B, -Bound)
		assert.LessOrEqual(t, params.B, Bound)
	}
}

func TestReliabilityCurveBinning(t *testing.T) {
	t.Parallel()

	probs := []float64{0.05, 0.05, 0.55, 0.55, 0.95, 0.95}
	labels := []int{0, 0, 0, 1, 1, 1}
	meanPred, fracPos := reliabilityCurve(probs, labels)

	require.Len(t, meanPred, 3)
	require.Len(t, fracPos, 3)
	assert.InDelta(t, 0.05, meanPred[0], 1e-12)
	assert.InDelta(t, 0.0, fracPos[0], 1e-12)
	assert.InDelta(t, 0.55, meanPred[1], 1e-12)
	assert.InDelta(t, 0.5, fracPos[1], 1e-12)
	assert.InDelta(t, 0.95, meanPred[2], 1e-12)
	assert.InDelta(t, 1.0, fracPos[2], 1e-12)
}

func TestReliabilityCurveEdgeProbabilities(t *testing.T) {
	t.Parallel()

	// p=1.0 must land in the last bin, not out of range
	meanPred, _ := reliabilityCurve([]float64{0.0, 1.0}, []int{0, 1})
	assert.Len(t, meanPred, 2)
}

func TestFitSigmoidDirectly(t *testing.T) {
	t.Parallel()

	xs := []float64{-3, -2, -1, 0, 1, 2, 3}
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = 1 / (1 + math.Exp(-(0.8*x + 0.3)))
	}

	a, b, err := fitSigmoid(xs, ys)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, a, 1e-4)
	assert.InDelta(t, 0.3, b, 1e-4)
}

func TestFitSigmoidRejectsEmpty(t *testing.T) {
	t.Parallel()

	_, _, err := fitSigmoid(nil, nil)
	assert.Error(t, err)
}
