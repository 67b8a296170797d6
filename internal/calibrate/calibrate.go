// Package calibrate fits and applies Platt scaling to raw classifier
// probabilities. The sigmoid is fitted in log-odds space over a binned
// reliability curve; degenerate curves and fit failures degrade to the
// identity mapping rather than erroring.
package calibrate

import (
	"math"

	"github.com/rs/zerolog/log"
)

// Calibration types persisted in calibration.json.
const (
	TypePlatt    = "platt"
	TypeIdentity = "identity"
)

const (
	// logitEpsilon keeps the logit transform defined at p in {0,1}.
	logitEpsilon = 1e-10
	// identityTolerance decides when fitted parameters are close
	// enough to (1,0) to be treated as identity.
	identityTolerance = 1e-9
	// Bound is the box constraint on both fitted parameters.
	Bound = 10.0

	reliabilityBins = 10
	minOccupiedBins = 3
	minCurveStd     = 0.01
)

// Parameters is a fitted calibration mapping.
type Parameters struct {
	A    float64 `json:"a"`
	B    float64 `json:"b"`
	Type string  `json:"type"`
}

// Identity returns the no-op calibration (a=1, b=0).
func Identity() Parameters {
	return Parameters{A: 1, B: 0, Type: TypeIdentity}
}

// IsIdentity reports whether the parameters are identity within
// tolerance. Identity calibrations are never persisted.
func (p Parameters) IsIdentity() bool {
	return math.Abs(p.A-1) < identityTolerance && math.Abs(p.B) < identityTolerance
}

// Apply maps a raw probability through the fitted sigmoid. The logit
// transform is mandatory: calibrated = sigmoid(a*ln(p/(1-p+eps)) + b),
// matching exactly what Fit optimizes. A numerically invalid result
// falls back to the raw probability for this call only.
func (p Parameters) Apply(raw float64) float64 {
	logit := math.Log(raw / (1 - raw + logitEpsilon))
	cal := 1 / (1 + math.Exp(-(p.A*logit + p.B)))
	if math.IsNaN(cal) || math.IsInf(cal, 0) {
		return raw
	}
	return cal
}

// Fit derives calibration parameters from the training set's raw
// positive-class probabilities and true 0/1 labels. The reliability
// curve is computed over 10 uniform bins; curves with fewer than 3
// occupied bins or near-zero spread yield identity, as does any fit
// failure.
func Fit(head string, rawProbs []float64, labels []int) Parameters {
	meanPred, fracPos := reliabilityCurve(rawProbs, labels)

	if len(meanPred) < minOccupiedBins || std(meanPred) < minCurveStd {
		log.Info().Str("head", head).Int("bins", len(meanPred)).
			Msg("calibration curve degenerate, using identity")
		return Identity()
	}

	logits := make([]float64, len(meanPred))
	for i, p := range meanPred {
		logits[i] = math.Log(p / (1 - p + logitEpsilon))
	}

	a, b, err := fitSigmoid(logits, fracPos)
	if err != nil {
		log.Warn().Err(err).Str("head", head).Msg("calibration fit failed, using identity")
		return Identity()
	}

	params := Parameters{A: a, B: b, Type: TypePlatt}
	log.Info().Str("head", head).Float64("a", a).Float64("b", b).Msg("fitted platt calibration")
	return params
}

// reliabilityCurve bins predictions into 10 uniform bins and returns,
// for each occupied bin in ascending order, the mean predicted
// probability and the empirical positive fraction.
func reliabilityCurve(probs []float64, labels []int) (meanPred, fracPos []float64) {
	var sumPred, sumTrue [reliabilityBins]float64
	var count [reliabilityBins]int

	for i, p := range probs {
		bin := int(p * reliabilityBins)
		if bin >= reliabilityBins {
			bin = reliabilityBins - 1
		}
		if bin < 0 {
			bin = 0
		}
		sumPred[bin] += p
		sumTrue[bin] += float64(labels[i])
		count[bin]++
	}

	for bin := 0; bin < reliabilityBins; bin++ {
		if count[bin] == 0 {
			continue
		}
		meanPred = append(meanPred, sumPred[bin]/float64(count[bin]))
		fracPos = append(fracPos, sumTrue[bin]/float64(count[bin]))
	}
	return meanPred, fracPos
}

func std(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}
