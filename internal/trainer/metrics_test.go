package trainer

import (
	"math"
	"testing"
)

func TestEvaluatePerfectClassifier(t *testing.T) {
	t.Parallel()

	probs := []float64{0.9, 0.8, 0.1, 0.2}
	labels := []int{1, 1, 0, 0}
	m := Evaluate(probs, labels)

	for name, got := range map[string]float64{
		"accuracy": m.Accuracy, "precision": m.Precision,
		"recall": m.Recall, "f1": m.F1, "roc_auc": m.ROCAUC,
	} {
		if math.Abs(got-1) > 1e-12 {
			t.Errorf("%s = %v, want 1", name, got)
		}
	}
}

func TestEvaluateZeroDivisionReportsZero(t *testing.T) {
	t.Parallel()

	// classifier never predicts positive: precision denominator is 0
	probs := []float64{0.1, 0.2, 0.3}
	labels := []int{1, 0, 0}
	m := Evaluate(probs, labels)

	if m.Precision != 0 {
		t.Errorf("precision = %v, want 0", m.Precision)
	}
	if m.Recall != 0 {
		t.Errorf("recall = %v, want 0", m.Recall)
	}
	if m.F1 != 0 {
		t.Errorf("f1 = %v, want 0", m.F1)
	}
}

func TestEvaluateAUCUndefinedIsZero(t *testing.T) {
	t.Parallel()

	// single-class test fold
	m := Evaluate([]float64{0.6, 0.7}, []int{1, 1})
	if m.ROCAUC != 0 {
		t.Errorf("roc_auc = %v, want 0 for single-class fold", m.ROCAUC)
	}
}

func TestEvaluateThresholdIsInclusive(t *testing.T) {
	t.Parallel()

	// p exactly 0.5 counts as a positive prediction
	m := Evaluate([]float64{0.5}, []int{1})
	if m.Accuracy != 1 {
		t.Errorf("p=0.5 should predict positive, accuracy = %v", m.Accuracy)
	}
}

func TestROCAUCRandomScoresNearHalf(t *testing.T) {
	t.Parallel()

	// a constant score ties every pair: AUC must be exactly 0.5
	probs := []float64{0.4, 0.4, 0.4, 0.4}
	labels := []int{1, 0, 1, 0}
	if got := rocAUC(probs, labels); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("tied-score auc = %v, want 0.5", got)
	}
}

func TestROCAUCPartialOrdering(t *testing.T) {
	t.Parallel()

	// one inversion among 2x2 pairs: auc = 3/4
	probs := []float64{0.9, 0.6, 0.7, 0.2}
	labels := []int{1, 1, 0, 0}
	if got := rocAUC(probs, labels); math.Abs(got-0.75) > 1e-12 {
		t.Errorf("auc = %v, want 0.75", got)
	}
}
