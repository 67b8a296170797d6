package trainer

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"textheads/internal/calibrate"
	"textheads/internal/dataset"
	"textheads/internal/pipeline"
)

// HeadResult is the outcome of training one head. Skipped heads carry
// no pipeline and are excluded from export; the run continues.
type HeadResult struct {
	Head        string
	Pipeline    *pipeline.Pipeline
	Params      Params
	Metrics     Metrics
	Calibration calibrate.Parameters
	Skipped     bool
	SkipReason  string
}

// TrainHead runs the full per-head sequence: stratified split, pipeline
// fit, calibration fit on the training fold, and held-out evaluation.
func TrainHead(headCol string, ds *dataset.Dataset, params Params) (HeadResult, error) {
	head := dataset.HeadName(headCol)
	res := HeadResult{Head: head, Params: params}

	split := Split(headCol, ds, params.TestFraction, params.Seed)
	if split.Skipped {
		res.Skipped = true
		res.SkipReason = split.SkipReason
		return res, nil
	}

	p := BuildPipeline(params)
	log.Info().Str("head", head).Msg("fitting model")
	if err := p.Fit(split.Train.Texts, split.Train.Labels); err != nil {
		return res, fmt.Errorf("head %s: %w", head, err)
	}
	res.Pipeline = p

	trainProbs := p.PredictProba(split.Train.Texts)
	res.Calibration = calibrate.Fit(head, trainProbs, split.Train.Labels)

	testProbs := p.PredictProba(split.Test.Texts)
	res.Metrics = Evaluate(testProbs, split.Test.Labels)
	log.Info().Str("head", head).
		Float64("accuracy", res.Metrics.Accuracy).
		Float64("precision", res.Metrics.Precision).
		Float64("recall", res.Metrics.Recall).
		Float64("f1", res.Metrics.F1).
		Float64("roc_auc", res.Metrics.ROCAUC).
		Msg("evaluated head")

	return res, nil
}
