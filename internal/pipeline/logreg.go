package pipeline

import (
	"fmt"
	"math"
)

// LogRegConfig controls the logistic classifier stage.
type LogRegConfig struct {
	C       float64 `json:"c"`        // inverse regularization strength
	MaxIter int     `json:"max_iter"` // optimizer iteration cap
	Seed    int64   `json:"seed"`
}

// DefaultLogRegConfig returns the trainer defaults (C=0.5, 1000
// iterations, seed 42).
func DefaultLogRegConfig() LogRegConfig {
	return LogRegConfig{C: 0.5, MaxIter: 1000, Seed: 42}
}

// LogReg is an L2-regularized binary logistic classifier over sparse
// rows. Fitting minimizes the regularized log loss with full-batch
// gradient descent and an adaptive step size; given fixed inputs the
// result is deterministic.
type LogReg struct {
	Config    LogRegConfig `json:"config"`
	Coef      []float64    `json:"coef"`
	Intercept float64      `json:"intercept"`
}

// NewLogReg returns an unfitted classifier for the given config.
func NewLogReg(cfg LogRegConfig) *LogReg {
	return &LogReg{Config: cfg}
}

// Fit trains the classifier on rows with 0/1 labels. The feature
// dimension must cover every index present in rows.
func (lr *LogReg) Fit(rows []SparseRow, labels []int, dim int) error {
	if len(rows) == 0 || len(rows) != len(labels) {
		return fmt.Errorf("logreg fit: %d rows, %d labels", len(rows), len(labels))
	}
	if lr.Config.C <= 0 {
		return fmt.Errorf("logreg fit: C must be positive, got %v", lr.Config.C)
	}

	w := make([]float64, dim)
	var b float64
	grad := make([]float64, dim)

	step := 1.0
	loss := lr.loss(rows, labels, w, b)
	maxIter := lr.Config.MaxIter
	if maxIter <= 0 {
		maxIter = 1000
	}

	for iter := 0; iter < maxIter; iter++ {
		for i := range grad {
			grad[i] = w[i] / lr.Config.C
		}
		var gradB float64
		for i, row := range rows {
			p := sigmoid(dot(row, w) + b)
			d := p - float64(labels[i])
			for idx, x := range row {
				grad[idx] += d * x
			}
			gradB += d
		}

		var gnorm float64
		for _, g := range grad {
			gnorm += g * g
		}
		gnorm += gradB * gradB
		if math.Sqrt(gnorm) < 1e-6 {
			break
		}

		// backtracking: halve the step until the loss moves down
		wTrial := make([]float64, dim)
		improved := false
		for try := 0; try < 30; try++ {
			for i := range w {
				wTrial[i] = w[i] - step*grad[i]
			}
			bTrial := b - step*gradB
			trialLoss := lr.loss(rows, labels, wTrial, bTrial)
			if trialLoss < loss {
				copy(w, wTrial)
				b = bTrial
				loss = trialLoss
				step *= 1.1
				improved = true
				break
			}
			step *= 0.5
		}
		if !improved {
			break
		}
	}

	lr.Coef = w
	lr.Intercept = b
	return nil
}

// PredictProba returns the positive-class probability for each row.
func (lr *LogReg) PredictProba(rows []SparseRow) []float64 {
	probs := make([]float64, len(rows))
	for i, row := range rows {
		probs[i] = sigmoid(dot(row, lr.Coef) + lr.Intercept)
	}
	return probs
}

func (lr *LogReg) loss(rows []SparseRow, labels []int, w []float64, b float64) float64 {
	var l float64
	for i, row := range rows {
		z := dot(row, w) + b
		// log(1+exp(-z)) written to stay finite for large |z|
		if labels[i] == 1 {
			l += logistic(-z)
		} else {
			l += logistic(z)
		}
	}
	var reg float64
	for _, wi := range w {
		reg += wi * wi
	}
	return l + reg/(2*lr.Config.C)
}

func dot(row SparseRow, w []float64) float64 {
	var z float64
	for idx, x := range row {
		if idx < len(w) {
			z += x * w[idx]
		}
	}
	return z
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// logistic computes log(1+exp(z)) without overflow.
func logistic(z float64) float64 {
	if z > 35 {
		return z
	}
	return math.Log1p(math.Exp(z))
}
