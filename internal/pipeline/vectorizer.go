// Package pipeline implements the fitted text classification pipeline:
// word n-gram TF-IDF features feeding an L2-regularized logistic
// classifier. Both stages are plain batch transforms over explicit
// configuration with no global state, so a fitted pipeline can be
// serialized into a portable model graph and re-executed elsewhere.
package pipeline

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Accent stripping modes accepted by VectorizerConfig.StripAccents.
const (
	StripAccentsNone    = ""
	StripAccentsASCII   = "ascii"
	StripAccentsUnicode = "unicode"
)

// tokens are runs of two or more word characters
var tokenPattern = regexp.MustCompile(`\w\w+`)

// VectorizerConfig controls feature extraction.
type VectorizerConfig struct {
	NgramMin     int    `json:"ngram_min"`
	NgramMax     int    `json:"ngram_max"`
	MinDF        int    `json:"min_df"`
	StripAccents string `json:"strip_accents,omitempty"`
	Lowercase    bool   `json:"lowercase"`
	SublinearTF  bool   `json:"sublinear_tf"`
	L2Normalize  bool   `json:"l2_normalize"`
}

// DefaultVectorizerConfig returns the trainer defaults: unigrams and
// bigrams, min document frequency 1, lowercased, sublinear TF with
// L2-normalized rows.
func DefaultVectorizerConfig() VectorizerConfig {
	return VectorizerConfig{
		NgramMin:    1,
		NgramMax:    2,
		MinDF:       1,
		Lowercase:   true,
		SublinearTF: true,
		L2Normalize: true,
	}
}

// Vectorizer maps documents to sparse TF-IDF rows. Vocabulary indices
// are assigned in lexicographic term order so a fitted vectorizer is
// fully determined by its config and training corpus.
type Vectorizer struct {
	Config VectorizerConfig `json:"config"`
	Vocab  map[string]int   `json:"vocabulary"`
	IDF    []float64        `json:"idf"`
}

// SparseRow is one document as feature index -> weight.
type SparseRow map[int]float64

// NewVectorizer returns an unfitted vectorizer for the given config.
func NewVectorizer(cfg VectorizerConfig) *Vectorizer {
	return &Vectorizer{Config: cfg}
}

// Fit learns the vocabulary and IDF weights from the corpus.
func (v *Vectorizer) Fit(docs []string) error {
	if v.Config.NgramMin < 1 || v.Config.NgramMax < v.Config.NgramMin {
		return fmt.Errorf("invalid ngram range (%d,%d)", v.Config.NgramMin, v.Config.NgramMax)
	}
	if len(docs) == 0 {
		return fmt.Errorf("cannot fit vectorizer on empty corpus")
	}

	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, t := range v.analyze(doc) {
			seen[t] = struct{}{}
		}
		for t := range seen {
			df[t]++
		}
	}

	minDF := v.Config.MinDF
	if minDF < 1 {
		minDF = 1
	}
	terms := make([]string, 0, len(df))
	for t, n := range df {
		if n >= minDF {
			terms = append(terms, t)
		}
	}
	if len(terms) == 0 {
		return fmt.Errorf("empty vocabulary after min_df=%d pruning", minDF)
	}
	sort.Strings(terms)

	n := float64(len(docs))
	v.Vocab = make(map[string]int, len(terms))
	v.IDF = make([]float64, len(terms))
	for i, t := range terms {
		v.Vocab[t] = i
		// smoothed idf: ln((1+n)/(1+df)) + 1
		v.IDF[i] = math.Log((1+n)/(1+float64(df[t]))) + 1
	}
	return nil
}

// Transform maps documents to TF-IDF rows using the fitted vocabulary.
// Unknown terms are dropped.
func (v *Vectorizer) Transform(docs []string) []SparseRow {
	rows := make([]SparseRow, len(docs))
	for i, doc := range docs {
		counts := make(map[int]float64)
		for _, t := range v.analyze(doc) {
			if idx, ok := v.Vocab[t]; ok {
				counts[idx]++
			}
		}
		row := make(SparseRow, len(counts))
		for idx, tf := range counts {
			if v.Config.SublinearTF {
				tf = 1 + math.Log(tf)
			}
			row[idx] = tf * v.IDF[idx]
		}
		if v.Config.L2Normalize {
			l2normalize(row)
		}
		rows[i] = row
	}
	return rows
}

// Size returns the fitted vocabulary size.
func (v *Vectorizer) Size() int { return len(v.Vocab) }

// analyze produces the n-gram terms for one document.
func (v *Vectorizer) analyze(doc string) []string {
	if v.Config.Lowercase {
		doc = strings.ToLower(doc)
	}
	if v.Config.StripAccents != StripAccentsNone {
		doc = stripAccents(doc, v.Config.StripAccents)
	}
	words := tokenPattern.FindAllString(doc, -1)

	var terms []string
	for n := v.Config.NgramMin; n <= v.Config.NgramMax; n++ {
		for i := 0; i+n <= len(words); i++ {
			terms = append(terms, strings.Join(words[i:i+n], " "))
		}
	}
	return terms
}

func l2normalize(row SparseRow) {
	var ss float64
	for _, w := range row {
		ss += w * w
	}
	if ss == 0 {
		return
	}
	inv := 1 / math.Sqrt(ss)
	for idx := range row {
		row[idx] *= inv
	}
}

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func stripAccents(s, mode string) string {
	out, _, err := transform.String(accentStripper, s)
	if err != nil {
		return s
	}
	if mode == StripAccentsASCII {
		var b strings.Builder
		for _, r := range out {
			if r < 128 {
				b.WriteRune(r)
			}
		}
		out = b.String()
	}
	return out
}
