package trainer

import (
	"math/rand"

	"github.com/rs/zerolog/log"

	"textheads/internal/dataset"
)

// Fold is one side of a train/test split.
type Fold struct {
	Texts  []string
	Labels []int
}

// SplitResult is the outcome of splitting one head's data. Skipped
// marks a head whose label column holds a single value; such heads are
// excluded from export while the run continues.
type SplitResult struct {
	Train      Fold
	Test       Fold
	Skipped    bool
	SkipReason string
	// Stratified is false when the minority class was too small to
	// stratify and a plain random split was used instead.
	Stratified bool
}

// Split partitions one head's rows into stratified train/test folds.
// The split is deterministic for a given seed. When the minority class
// has fewer than 2 rows, stratification is abandoned for a plain
// random split with the same seed.
func Split(headCol string, ds *dataset.Dataset, testFraction float64, seed int64) SplitResult {
	head := dataset.HeadName(headCol)
	labels := make([]int, len(ds.Labels[headCol]))
	pos := 0
	for i, v := range ds.Labels[headCol] {
		labels[i] = normalizeLabel(v)
		pos += labels[i]
	}
	neg := len(labels) - pos
	if pos == 0 || neg == 0 {
		log.Warn().Str("head", head).Msg("only one class present, skipping head")
		return SplitResult{Skipped: true, SkipReason: "single label value"}
	}

	var trainIdx, testIdx []int
	stratified := true
	if min(pos, neg) < 2 {
		log.Warn().Str("head", head).Int("minority", min(pos, neg)).
			Msg("could not stratify split, falling back to random split")
		stratified = false
		trainIdx, testIdx = randomSplit(len(labels), testFraction, seed)
	} else {
		trainIdx, testIdx = stratifiedSplit(labels, testFraction, seed)
	}

	res := SplitResult{Stratified: stratified}
	res.Train = gather(ds, headCol, trainIdx)
	res.Test = gather(ds, headCol, testIdx)

	log.Info().Str("head", head).
		Int("train", len(res.Train.Labels)).Int("train_positive", countPos(res.Train.Labels)).
		Int("test", len(res.Test.Labels)).Int("test_positive", countPos(res.Test.Labels)).
		Msg("train/test split")
	return res
}

// stratifiedSplit samples the test fold per class so both folds keep
// the overall class proportions.
func stratifiedSplit(labels []int, testFraction float64, seed int64) (train, test []int) {
	byClass := make(map[int][]int)
	for i, v := range labels {
		byClass[v] = append(byClass[v], i)
	}

	rng := rand.New(rand.NewSource(seed))
	// iterate classes in fixed order so the shuffle sequence is stable
	for _, class := range []int{0, 1} {
		idx, ok := byClass[class]
		if !ok {
			continue
		}
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		nTest := int(float64(len(idx))*testFraction + 0.5)
		if nTest < 1 {
			nTest = 1
		}
		if nTest >= len(idx) {
			nTest = len(idx) - 1
		}
		test = append(test, idx[:nTest]...)
		train = append(train, idx[nTest:]...)
	}
	return train, test
}

func randomSplit(n int, testFraction float64, seed int64) (train, test []int) {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

	nTest := int(float64(n)*testFraction + 0.5)
	if nTest < 1 {
		nTest = 1
	}
	if nTest >= n {
		nTest = n - 1
	}
	return idx[nTest:], idx[:nTest]
}

func gather(ds *dataset.Dataset, headCol string, idx []int) Fold {
	f := Fold{
		Texts:  make([]string, len(idx)),
		Labels: make([]int, len(idx)),
	}
	for i, j := range idx {
		f.Texts[i] = ds.Texts[j]
		f.Labels[i] = normalizeLabel(ds.Labels[headCol][j])
	}
	return f
}

func normalizeLabel(v int) int {
	if v != 0 {
		return 1
	}
	return 0
}

func countPos(labels []int) int {
	n := 0
	for _, v := range labels {
		if v == 1 {
			n++
		}
	}
	return n
}
