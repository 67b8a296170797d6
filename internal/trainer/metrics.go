package trainer

import "sort"

// Metrics are held-out evaluation results for one head, computed at a
// fixed 0.5 decision threshold on the raw probability.
type Metrics struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	ROCAUC    float64 `json:"roc_auc"`
}

// Evaluate scores raw probabilities against true labels. Ratios with a
// zero denominator are reported as 0; ROC-AUC is 0 when undefined
// (single-class test fold).
func Evaluate(probs []float64, labels []int) Metrics {
	var tp, fp, tn, fn int
	for i, p := range probs {
		pred := 0
		if p >= 0.5 {
			pred = 1
		}
		switch {
		case pred == 1 && labels[i] == 1:
			tp++
		case pred == 1 && labels[i] == 0:
			fp++
		case pred == 0 && labels[i] == 0:
			tn++
		default:
			fn++
		}
	}

	m := Metrics{
		Accuracy:  ratio(tp+tn, len(labels)),
		Precision: ratio(tp, tp+fp),
		Recall:    ratio(tp, tp+fn),
		ROCAUC:    rocAUC(probs, labels),
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// rocAUC computes the area under the ROC curve via the rank statistic,
// with average ranks for tied scores.
func rocAUC(probs []float64, labels []int) float64 {
	nPos, nNeg := 0, 0
	for _, v := range labels {
		if v == 1 {
			nPos++
		} else {
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		return 0
	}

	order := make([]int, len(probs))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return probs[order[a]] < probs[order[b]] })

	ranks := make([]float64, len(probs))
	for i := 0; i < len(order); {
		j := i
		for j < len(order) && probs[order[j]] == probs[order[i]] {
			j++
		}
		avg := float64(i+j+1) / 2 // 1-based average rank of the tie group
		for k := i; k < j; k++ {
			ranks[order[k]] = avg
		}
		i = j
	}

	var posRankSum float64
	for i, v := range labels {
		if v == 1 {
			posRankSum += ranks[i]
		}
	}
	return (posRankSum - float64(nPos)*float64(nPos+1)/2) / (float64(nPos) * float64(nNeg))
}
