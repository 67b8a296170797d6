// Package trainer fits one binary classifier per label column:
// stratified train/test split, TF-IDF + logistic pipeline fitting,
// probability calibration, and held-out evaluation. Heads with a
// single label value are skipped without failing the run.
package trainer

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"textheads/internal/pipeline"
)

// Params are the effective per-head training parameters.
type Params struct {
	StripAccents string
	NgramMin     int
	NgramMax     int
	MinDF        int
	C            float64
	TestFraction float64
	Seed         int64
}

// DefaultParams returns the trainer defaults matching the exported
// bundle metadata: word 1-2 grams, min_df 1, C=0.5, 20% test fold,
// seed 42.
func DefaultParams() Params {
	return Params{
		NgramMin:     1,
		NgramMax:     2,
		MinDF:        1,
		C:            0.5,
		TestFraction: 0.2,
		Seed:         42,
	}
}

// Override is a sparse per-head parameter override. Unknown keys in
// the overrides file are ignored; char-level feature requests are a
// hard incompatibility with the export format and are rejected with a
// warning rather than honored.
type Override struct {
	StripAccents *string  `json:"strip_accents"`
	NgramRange   []int    `json:"word_ngram_range"`
	MinDF        *int     `json:"word_min_df"`
	C            *float64 `json:"C"`

	CharNgramRange []int `json:"char_ngram_range"`
	CharMinDF      *int  `json:"char_min_df"`
}

// LoadOverrides reads the per-head overrides JSON. The file must be an
// object mapping label column name to an override object.
func LoadOverrides(path string) (map[string]Override, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read overrides JSON: %w", err)
	}
	var overrides map[string]Override
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse overrides JSON: %w", err)
	}
	return overrides, nil
}

// Apply merges an override into base parameters for one head.
func (o Override) Apply(head string, base Params) Params {
	p := base
	if o.StripAccents != nil {
		p.StripAccents = *o.StripAccents
	}
	if len(o.NgramRange) == 2 {
		p.NgramMin, p.NgramMax = o.NgramRange[0], o.NgramRange[1]
	}
	if o.MinDF != nil {
		p.MinDF = *o.MinDF
	}
	if o.C != nil {
		p.C = *o.C
	}
	if len(o.CharNgramRange) > 0 || o.CharMinDF != nil {
		log.Warn().Str("head", head).
			Msg("char-level features are incompatible with graph export, ignoring")
	}
	return p
}

// BuildPipeline constructs the unfitted word-feature pipeline for the
// given parameters.
func BuildPipeline(p Params) *pipeline.Pipeline {
	vcfg := pipeline.DefaultVectorizerConfig()
	vcfg.NgramMin = p.NgramMin
	vcfg.NgramMax = p.NgramMax
	vcfg.MinDF = p.MinDF
	vcfg.StripAccents = p.StripAccents

	lcfg := pipeline.DefaultLogRegConfig()
	lcfg.C = p.C
	lcfg.Seed = p.Seed

	return pipeline.New(vcfg, lcfg)
}
